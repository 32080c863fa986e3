// Package follower is the chain-follower: a single cooperative loop
// that owns every write to the store, probing the upstream node for the
// next expected block and applying or reverting as the chain demands.
package follower

import (
	"context"
	"time"

	"github.com/fuxingloh/oxtu/internal/index"
	"github.com/fuxingloh/oxtu/internal/log"
	"github.com/fuxingloh/oxtu/internal/metrics"
	"github.com/fuxingloh/oxtu/internal/rpcclient"
	"github.com/fuxingloh/oxtu/internal/store"
	"github.com/fuxingloh/oxtu/pkg/types"
)

const (
	idleSleep      = 100 * time.Millisecond
	errorBackoff   = 5 * time.Second
	pruneRetention = 10_000
)

// progress is the follower's cursor: the height it next expects and the
// hash its parent must have.
type progress struct {
	height   uint64
	prevHash types.Hash
}

func genesisProgress() progress {
	return progress{height: 0, prevHash: types.Hash{}}
}

func forFork(popped store.Block) progress {
	return progress{height: popped.Height, prevHash: popped.PrevHash}
}

func forNext(b store.Block) progress {
	return progress{height: b.Height + 1, prevHash: b.Hash}
}

// Follower drives the store from the upstream node's current state.
type Follower struct {
	store  *store.Store
	client *rpcclient.Client
}

// New creates a follower over store s pulling from the given upstream
// client.
func New(s *store.Store, client *rpcclient.Client) *Follower {
	return &Follower{store: s, client: client}
}

// Run executes the main step in a loop until ctx is cancelled. Cancellation
// is polled between iterations, never in the middle of a block commit — a
// commit in flight always completes.
func (f *Follower) Run(ctx context.Context) error {
	next, err := f.initialProgress()
	if err != nil {
		return err
	}
	log.Follower.Info().Uint64("height", next.height).Msg("follower starting")

	sleepUntil := time.Now()
	for {
		select {
		case <-ctx.Done():
			log.Follower.Info().Msg("follower stopped")
			return nil
		default:
		}

		if time.Now().Before(sleepUntil) {
			select {
			case <-ctx.Done():
				log.Follower.Info().Msg("follower stopped")
				return nil
			case <-time.After(idleSleep):
			}
			continue
		}

		if next.height%pruneRetention == 0 && next.height > pruneRetention {
			if err := f.store.PruneUntil(next.height - pruneRetention); err != nil {
				return err
			}
		}

		outcome, blk, err := f.probe(next)
		if err != nil {
			if index.IsFatal(err) {
				return err
			}
			log.Follower.Warn().Err(err).Uint64("height", next.height).Msg("upstream probe errored")
			metrics.ProbeErrors.Inc()
			sleepUntil = time.Now().Add(errorBackoff)
			continue
		}

		switch outcome {
		case outcomeConnected:
			if err := index.Push(f.store, blk); err != nil {
				return err
			}
			hash, err := types.HexToHash(blk.Hash)
			if err != nil {
				return err
			}
			log.Follower.Info().Uint64("height", next.height).Msg("connected")
			metrics.BlocksPushed.Inc()
			metrics.TipHeight.Set(float64(next.height))
			next = progress{height: next.height + 1, prevHash: hash}
		case outcomeForked:
			popped, err := index.Pop(f.store)
			if err != nil {
				return err
			}
			log.Follower.Info().Uint64("height", popped.Height).Msg("forked, rewound")
			metrics.BlocksPopped.Inc()
			if popped.Height > 0 {
				metrics.TipHeight.Set(float64(popped.Height - 1))
			} else {
				metrics.TipHeight.Set(0)
			}
			next = forFork(popped)
		}
	}
}

func (f *Follower) initialProgress() (progress, error) {
	tip, ok, err := f.store.Peek()
	if err != nil {
		return progress{}, err
	}
	if !ok {
		return genesisProgress(), nil
	}
	return forNext(tip), nil
}

type outcome int

const (
	outcomeConnected outcome = iota
	outcomeForked
)

// probe fetches the block at next.height from upstream and classifies it.
// A non-nil, non-fatal error means a transient RPC failure;
// a *index.FatalError means malformed upstream data (an invariant
// violation, not a retry candidate).
func (f *Follower) probe(next progress) (outcome, *rpcclient.Block, error) {
	hash, err := f.client.GetBlockHash(next.height)
	if err != nil {
		return 0, nil, err
	}
	blk, err := f.client.GetBlock(hash)
	if err != nil {
		return 0, nil, err
	}

	if blk.PreviousBlockHash == "" {
		if blk.Height != 0 {
			return 0, nil, index.FatalNoPreviousBlockHash(blk.Height)
		}
		return outcomeConnected, blk, nil
	}

	parent, err := types.HexToHash(blk.PreviousBlockHash)
	if err != nil {
		return 0, nil, index.FatalBadHex("previousblockhash", blk.PreviousBlockHash, err)
	}
	if parent == next.prevHash {
		return outcomeConnected, blk, nil
	}
	return outcomeForked, blk, nil
}
