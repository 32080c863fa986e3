package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/fuxingloh/oxtu/internal/codec"
	"github.com/fuxingloh/oxtu/internal/metrics"
	"github.com/fuxingloh/oxtu/internal/storage"
	"github.com/fuxingloh/oxtu/pkg/types"
)

// Column-family prefixes. Badger has no native column families, so each
// logical table is a PrefixDB namespace over the one underlying database.
var (
	prefixBlock      = []byte("b/")
	prefixUndo       = []byte("d/")
	prefixUtxo       = []byte("u/")
	prefixUtxoKey    = []byte("k/")
	prefixScriptInfo = []byte("s/")
	prefixMeta       = []byte("m/")
)

var keyTip = []byte("tip")

// Store is the column-family store: it owns five logical tables over
// one storage.DB and commits all mutations for one block in one atomic
// storage.Batch.
type Store struct {
	root storage.DB

	blocks      *storage.PrefixDB
	undos       *storage.PrefixDB
	utxos       *storage.PrefixDB
	utxoKeys    *storage.PrefixDB
	scriptInfos *storage.PrefixDB
	meta        *storage.PrefixDB
}

// Open wraps a storage.DB with the five column-family namespaces. Failure
// to open the underlying DB is fatal at the caller; Open itself cannot
// fail since the DB is already open by the time it's called.
func Open(db storage.DB) *Store {
	return &Store{
		root:        db,
		blocks:      storage.NewPrefixDB(db, prefixBlock),
		undos:       storage.NewPrefixDB(db, prefixUndo),
		utxos:       storage.NewPrefixDB(db, prefixUtxo),
		utxoKeys:    storage.NewPrefixDB(db, prefixUtxoKey),
		scriptInfos: storage.NewPrefixDB(db, prefixScriptInfo),
		meta:        storage.NewPrefixDB(db, prefixMeta),
	}
}

// WriteBatch stages the mutations of one block (or one prune_until call)
// for a single atomic commit across all five tables.
type WriteBatch struct {
	root        storage.Batch
	blocks      storage.Batch
	undos       storage.Batch
	utxos       storage.Batch
	utxoKeys    storage.Batch
	scriptInfos storage.Batch
	meta        storage.Batch
}

// NewBatch opens a write batch. The underlying DB must support atomic
// batching (storage.Batcher) — BadgerDB does; a plain storage.DB that
// doesn't is a configuration error, not a runtime one, so this fails fast.
func (s *Store) NewBatch() (*WriteBatch, error) {
	batcher, ok := s.root.(storage.Batcher)
	if !ok {
		return nil, fmt.Errorf("store: underlying database does not support atomic batches")
	}
	root := batcher.NewBatch()
	return &WriteBatch{
		root:        root,
		blocks:      storage.WrapBatch(root, prefixBlock),
		undos:       storage.WrapBatch(root, prefixUndo),
		utxos:       storage.WrapBatch(root, prefixUtxo),
		utxoKeys:    storage.WrapBatch(root, prefixUtxoKey),
		scriptInfos: storage.WrapBatch(root, prefixScriptInfo),
		meta:        storage.WrapBatch(root, prefixMeta),
	}, nil
}

// Commit applies every staged mutation atomically.
func (wb *WriteBatch) Commit() error {
	start := time.Now()
	defer func() { metrics.BatchCommitLatency.Observe(time.Since(start).Seconds()) }()
	return wb.root.Commit()
}

// PutBlock stages a Block row and advances the tip pointer.
func (wb *WriteBatch) PutBlock(b Block) error {
	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("store: marshal block: %w", err)
	}
	if err := wb.blocks.Put(codec.BlockKey(b.Height), data); err != nil {
		return err
	}
	return wb.meta.Put(keyTip, codec.EncodeHeight(b.Height))
}

// DeleteBlock stages removal of a Block row. If height is the tip, the
// caller must also update the tip pointer (pop() moves it to height-1).
func (wb *WriteBatch) DeleteBlock(height uint64) error {
	return wb.blocks.Delete(codec.BlockKey(height))
}

// SetTip stages an update of the tip pointer to height, independent of a
// PutBlock call — used by pop() after deleting the old tip.
func (wb *WriteBatch) SetTip(height uint64) error {
	return wb.meta.Put(keyTip, codec.EncodeHeight(height))
}

// ClearTip stages removal of the tip pointer (the chain has no blocks).
func (wb *WriteBatch) ClearTip() error {
	return wb.meta.Delete(keyTip)
}

// PutUndo stages a BlockUndo row: the full undo list for one block.
func (wb *WriteBatch) PutUndo(height uint64, undos []Undo) error {
	data, err := json.Marshal(undos)
	if err != nil {
		return fmt.Errorf("store: marshal undo: %w", err)
	}
	return wb.undos.Put(codec.UndoKey(height), data)
}

// DeleteUndo stages removal of a BlockUndo row.
func (wb *WriteBatch) DeleteUndo(height uint64) error {
	return wb.undos.Delete(codec.UndoKey(height))
}

// PutUtxo stages a Utxo row.
func (wb *WriteBatch) PutUtxo(u Utxo) error {
	key, err := codec.UtxoKey(u.Script, u.Height, u.Vout)
	if err != nil {
		return err
	}
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("store: marshal utxo: %w", err)
	}
	return wb.utxos.Put(key, data)
}

// DeleteUtxo stages removal of a Utxo row by its composite key.
func (wb *WriteBatch) DeleteUtxo(c UtxoCoord) error {
	key, err := codec.UtxoKey(c.Script, c.Height, c.Vout)
	if err != nil {
		return err
	}
	return wb.utxos.Delete(key)
}

// PutUtxoKey stages a UtxoKey row.
func (wb *WriteBatch) PutUtxoKey(row UtxoKeyRow) error {
	data, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("store: marshal utxo key row: %w", err)
	}
	return wb.utxoKeys.Put(codec.UtxoKeyTableKey(row.Vout), data)
}

// DeleteUtxoKey stages removal of a UtxoKey row.
func (wb *WriteBatch) DeleteUtxoKey(v types.Vout) error {
	return wb.utxoKeys.Delete(codec.UtxoKeyTableKey(v))
}

// PutScriptInfo stages a ScriptInfo row.
func (wb *WriteBatch) PutScriptInfo(info ScriptInfo) error {
	key, err := codec.ScriptInfoKey(info.Script)
	if err != nil {
		return err
	}
	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("store: marshal script info: %w", err)
	}
	return wb.scriptInfos.Put(key, data)
}

// DeleteScriptInfo stages removal of a ScriptInfo row.
func (wb *WriteBatch) DeleteScriptInfo(script []byte) error {
	key, err := codec.ScriptInfoKey(script)
	if err != nil {
		return err
	}
	return wb.scriptInfos.Delete(key)
}

// --- reads (committed state only) ---

// GetBlock returns the Block row at height, or ok=false if absent.
func (s *Store) GetBlock(height uint64) (b Block, ok bool, err error) {
	data, err := s.blocks.Get(codec.BlockKey(height))
	if errors.Is(err, storage.ErrNotFound) {
		return Block{}, false, nil
	}
	if err != nil {
		return Block{}, false, fmt.Errorf("store: read block at height %d: %w", height, err)
	}
	if err := json.Unmarshal(data, &b); err != nil {
		return Block{}, false, fmt.Errorf("store: unmarshal block at height %d: %w", height, err)
	}
	return b, true, nil
}

// Peek returns the current tip block, or ok=false if the chain is empty.
// A real read error is propagated, never collapsed into "empty" — the
// follower seeds its cursor from this, and mistaking a failed read for an
// empty chain would re-index from genesis over live data.
func (s *Store) Peek() (b Block, ok bool, err error) {
	data, err := s.meta.Get(keyTip)
	if errors.Is(err, storage.ErrNotFound) {
		return Block{}, false, nil
	}
	if err != nil {
		return Block{}, false, fmt.Errorf("store: read tip pointer: %w", err)
	}
	height, err := codec.DecodeHeight(data)
	if err != nil {
		return Block{}, false, fmt.Errorf("store: corrupt tip pointer: %w", err)
	}
	return s.GetBlock(height)
}

// GetUndo returns the BlockUndo row at height, or ok=false if absent.
func (s *Store) GetUndo(height uint64) (undos []Undo, ok bool, err error) {
	data, err := s.undos.Get(codec.UndoKey(height))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("store: read undo at height %d: %w", height, err)
	}
	if err := json.Unmarshal(data, &undos); err != nil {
		return nil, false, fmt.Errorf("store: unmarshal undo at height %d: %w", height, err)
	}
	return undos, true, nil
}

// GetUtxo returns the Utxo row at the given composite key, or ok=false if
// absent.
func (s *Store) GetUtxo(c UtxoCoord) (u Utxo, ok bool, err error) {
	key, err := codec.UtxoKey(c.Script, c.Height, c.Vout)
	if err != nil {
		return Utxo{}, false, err
	}
	data, err := s.utxos.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return Utxo{}, false, nil
	}
	if err != nil {
		return Utxo{}, false, fmt.Errorf("store: read utxo: %w", err)
	}
	if err := json.Unmarshal(data, &u); err != nil {
		return Utxo{}, false, fmt.Errorf("store: unmarshal utxo: %w", err)
	}
	return u, true, nil
}

// GetUtxoKeyRow returns the UtxoKey row for the given output coordinate, or
// ok=false if absent.
func (s *Store) GetUtxoKeyRow(v types.Vout) (row UtxoKeyRow, ok bool, err error) {
	data, err := s.utxoKeys.Get(codec.UtxoKeyTableKey(v))
	if errors.Is(err, storage.ErrNotFound) {
		return UtxoKeyRow{}, false, nil
	}
	if err != nil {
		return UtxoKeyRow{}, false, fmt.Errorf("store: read utxo key row: %w", err)
	}
	if err := json.Unmarshal(data, &row); err != nil {
		return UtxoKeyRow{}, false, fmt.Errorf("store: unmarshal utxo key row: %w", err)
	}
	return row, true, nil
}

// GetScriptInfo returns the ScriptInfo row for script, or ok=false if the
// script has never been touched.
func (s *Store) GetScriptInfo(script []byte) (info ScriptInfo, ok bool, err error) {
	key, err := codec.ScriptInfoKey(script)
	if err != nil {
		return ScriptInfo{}, false, err
	}
	data, err := s.scriptInfos.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return ScriptInfo{}, false, nil
	}
	if err != nil {
		return ScriptInfo{}, false, fmt.Errorf("store: read script info: %w", err)
	}
	if err := json.Unmarshal(data, &info); err != nil {
		return ScriptInfo{}, false, fmt.Errorf("store: unmarshal script info: %w", err)
	}
	return info, true, nil
}

// ListUtxos returns every Utxo row for script with height in the half-open
// range [lowerHeight, upperHeight), in ascending (height, txid, n) order.
// A nil bound is unconstrained on that side.
func (s *Store) ListUtxos(script []byte, lowerHeight, upperHeight *uint64) ([]Utxo, error) {
	prefix, err := codec.ScriptPrefix(script)
	if err != nil {
		return nil, err
	}

	var rows []Utxo
	err = s.utxos.ForEach(prefix, func(key, value []byte) error {
		var u Utxo
		if err := json.Unmarshal(value, &u); err != nil {
			return fmt.Errorf("store: unmarshal utxo during scan: %w", err)
		}
		if lowerHeight != nil && u.Height < *lowerHeight {
			return nil
		}
		if upperHeight != nil && u.Height >= *upperHeight {
			return nil
		}
		rows = append(rows, u)
		return nil
	})
	if err != nil {
		return nil, err
	}

	// ForEach's iteration order is only guaranteed sorted for BadgerDB;
	// MemoryDB (used in tests) is map-backed. Sort explicitly so the
	// contract holds regardless of backend.
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Height != rows[j].Height {
			return rows[i].Height < rows[j].Height
		}
		if rows[i].Vout.TxID != rows[j].Vout.TxID {
			return rows[i].Vout.TxID.String() < rows[j].Vout.TxID.String()
		}
		return rows[i].Vout.N < rows[j].Vout.N
	})
	return rows, nil
}

// PruneUntil removes every Block and BlockUndo row with height strictly
// less than h, atomically. It never touches Utxo, UtxoKey, or ScriptInfo —
// those are permanent. Once a block is beyond the reorg horizon it cannot
// be rolled back, so its undo log is dead weight.
func (s *Store) PruneUntil(h uint64) error {
	var heights []uint64
	err := s.blocks.ForEach(nil, func(key, _ []byte) error {
		height, err := codec.DecodeHeight(key)
		if err != nil {
			return fmt.Errorf("store: corrupt block key during prune scan: %w", err)
		}
		if height < h {
			heights = append(heights, height)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if len(heights) == 0 {
		return nil
	}

	batch, err := s.NewBatch()
	if err != nil {
		return err
	}
	for _, height := range heights {
		if err := batch.DeleteBlock(height); err != nil {
			return err
		}
		if err := batch.DeleteUndo(height); err != nil {
			return err
		}
	}
	return batch.Commit()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.root.Close()
}
