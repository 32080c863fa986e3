// Package index is the block applier and reverser: it translates
// one upstream block into mutations of the five logical tables, recording
// an undo log so a later reorg can reverse exactly what it did.
package index

import (
	"encoding/hex"

	"github.com/fuxingloh/oxtu/internal/decimal"
	"github.com/fuxingloh/oxtu/internal/log"
	"github.com/fuxingloh/oxtu/internal/rpcclient"
	"github.com/fuxingloh/oxtu/internal/store"
	"github.com/fuxingloh/oxtu/pkg/types"
)

var zeroHash types.Hash

// Push applies one connected block to the store. Any store error
// during the batched commit is fatal at the caller: on restart the follower
// recomputes its tip from Block's last row and retries from there.
func Push(s *store.Store, blk *rpcclient.Block) error {
	height := blk.Height

	hash, err := types.HexToHash(blk.Hash)
	if err != nil {
		return fatalf("index: block hash %q is not valid hex: %w", blk.Hash, err)
	}

	prevHash := zeroHash
	if blk.PreviousBlockHash != "" {
		prevHash, err = types.HexToHash(blk.PreviousBlockHash)
		if err != nil {
			return fatalf("index: previousblockhash %q is not valid hex: %w", blk.PreviousBlockHash, err)
		}
	} else if height != 0 {
		return fatalf("index: block at height %d has no previousblockhash", height)
	}

	staged := newStagingArea(s)

	for _, tx := range blk.Tx {
		txid, err := types.HexToHash(tx.Txid)
		if err != nil {
			return fatalf("index: txid %q is not valid hex: %w", tx.Txid, err)
		}

		coinbase := false
		for _, vin := range tx.Vin {
			if vin.Txid == nil {
				coinbase = true
				continue
			}
			if vin.Vout == nil {
				return fatalf("index: vin for tx %s cites a txid but no vout", tx.Txid)
			}
			spentTxid, err := types.HexToHash(*vin.Txid)
			if err != nil {
				return fatalf("index: spent txid %q is not valid hex: %w", *vin.Txid, err)
			}
			vout := types.Vout{TxID: spentTxid, N: *vin.Vout}
			if err := staged.spend(vout); err != nil {
				return err
			}
		}

		for _, vout := range tx.Vout {
			script, err := hex.DecodeString(vout.ScriptPubKey.Hex)
			if err != nil {
				return fatalf("index: scriptPubKey.hex %q is not valid hex: %w", vout.ScriptPubKey.Hex, err)
			}
			value, err := decimal.ParseDecimalString(vout.Value.String())
			if err != nil {
				return fatalf("index: output value %q is not a valid decimal: %w", vout.Value.String(), err)
			}
			u := store.Utxo{
				Script:   script,
				Height:   height,
				Vout:     types.Vout{TxID: txid, N: vout.N},
				Coinbase: coinbase,
				Value:    value,
			}
			if err := staged.create(u); err != nil {
				return err
			}
		}
	}

	batch, err := s.NewBatch()
	if err != nil {
		return err
	}

	// Write every output surviving to the end of the block, and record its
	// paired delete undo so Pop removes it again.
	for vout, u := range staged.utxos {
		if err := batch.PutUtxo(u); err != nil {
			return err
		}
		coord := u.Coord()
		staged.undos = append(staged.undos, store.Undo{Kind: store.UndoUtxoDelete, UtxoCoord: &coord})

		row := store.UtxoKeyRow{Vout: vout, Height: u.Height, Script: u.Script}
		if err := batch.PutUtxoKey(row); err != nil {
			return err
		}
		v := vout
		staged.undos = append(staged.undos, store.Undo{Kind: store.UndoUtxoKeyDelete, Vout: &v})
	}

	// Write every touched script's new aggregate.
	for _, info := range staged.infos {
		if err := batch.PutScriptInfo(info); err != nil {
			return err
		}
	}

	// A Put-kind undo entry means "this key must not still exist on disk
	// after this block" (it records what pop must restore) — so any Utxo or
	// UtxoKey row recorded as Put here is a row that existed before this
	// block and has now been consumed; remove it from the live tables.
	// ScriptInfoPut/ScriptInfoDelete need no action here: the aggregate's
	// current value was already written above via staged.infos.
	for _, u := range staged.undos {
		switch u.Kind {
		case store.UndoUtxoPut:
			if err := batch.DeleteUtxo(u.Utxo.Coord()); err != nil {
				return err
			}
		case store.UndoUtxoKeyPut:
			if err := batch.DeleteUtxoKey(u.UtxoKeyRow.Vout); err != nil {
				return err
			}
		}
	}

	if err := batch.PutBlock(store.Block{Height: height, Hash: hash, PrevHash: prevHash}); err != nil {
		return err
	}
	if err := batch.PutUndo(height, staged.undos); err != nil {
		return err
	}
	if err := batch.Commit(); err != nil {
		return err
	}

	log.Store.Debug().Uint64("height", height).Int("txs", len(blk.Tx)).Msg("pushed block")
	return nil
}

// stagingArea holds the in-memory state accumulated while processing one
// block's transactions, before anything is written.
type stagingArea struct {
	s     *store.Store
	utxos map[types.Vout]store.Utxo
	infos map[string]store.ScriptInfo
	undos []store.Undo
}

func newStagingArea(s *store.Store) *stagingArea {
	return &stagingArea{
		s:     s,
		utxos: map[types.Vout]store.Utxo{},
		infos: map[string]store.ScriptInfo{},
	}
}

// updateInfo mutates the staged aggregate for script, seeding it from disk
// (or zero) on first touch and recording the undo entry that restores the
// pre-block state.
func (st *stagingArea) updateInfo(script []byte, apply func(*store.ScriptInfo) error) error {
	key := string(script)
	if info, ok := st.infos[key]; ok {
		if err := apply(&info); err != nil {
			return fatalf("index: script aggregate overflow: %w", err)
		}
		st.infos[key] = info
		return nil
	}

	info, ok, err := st.s.GetScriptInfo(script)
	if err != nil {
		return err
	}
	if ok {
		prior := info
		st.undos = append(st.undos, store.Undo{Kind: store.UndoScriptInfoPut, ScriptInfo: &prior})
	} else {
		info = store.ZeroScriptInfo(script)
		st.undos = append(st.undos, store.Undo{Kind: store.UndoScriptInfoDelete, ScriptForInfo: script})
	}
	if err := apply(&info); err != nil {
		return fatalf("index: script aggregate overflow: %w", err)
	}
	st.infos[key] = info
	return nil
}

// spend consumes the output at vout, preferring one created earlier in this
// same block (never reaching disk, no undo recorded for it) over one
// already committed.
func (st *stagingArea) spend(vout types.Vout) error {
	if u, ok := st.utxos[vout]; ok {
		delete(st.utxos, vout)
		return st.updateInfo(u.Script, func(info *store.ScriptInfo) error {
			return info.AddSpent(u.Value)
		})
	}

	row, ok, err := st.s.GetUtxoKeyRow(vout)
	if err != nil {
		return err
	}
	if !ok {
		return fatalf("index: no UtxoKey row for spent output %s", vout)
	}
	coord := store.UtxoCoord{Script: row.Script, Height: row.Height, Vout: vout}
	u, ok, err := st.s.GetUtxo(coord)
	if err != nil {
		return err
	}
	if !ok {
		return fatalf("index: UtxoKey for %s names a missing Utxo row", vout)
	}

	if err := st.updateInfo(u.Script, func(info *store.ScriptInfo) error {
		return info.AddSpent(u.Value)
	}); err != nil {
		return err
	}

	priorRow := row
	st.undos = append(st.undos, store.Undo{Kind: store.UndoUtxoKeyPut, UtxoKeyRow: &priorRow})
	priorUtxo := u
	st.undos = append(st.undos, store.Undo{Kind: store.UndoUtxoPut, Utxo: &priorUtxo})
	return nil
}

// create stages a newly produced output as a candidate survivor; it is
// written to disk only if nothing later in the same block spends it.
func (st *stagingArea) create(u store.Utxo) error {
	if err := st.updateInfo(u.Script, func(info *store.ScriptInfo) error {
		return info.AddUnspent(u.Value)
	}); err != nil {
		return err
	}
	st.utxos[u.Vout] = u
	return nil
}
