package index

import (
	"github.com/fuxingloh/oxtu/internal/log"
	"github.com/fuxingloh/oxtu/internal/store"
)

// Pop reverts the current tip: it reads the tip Block and its
// BlockUndo, then stages, in one batch, the deletion of the Block and
// BlockUndo rows, the tip-pointer update, and the replay of every undo entry
// in recorded order (not reversed — each entry is independently idempotent
// given its key), and commits that batch. Returns the reverted
// block so the caller can compute the next probe height and prev_hash.
func Pop(s *store.Store) (store.Block, error) {
	tip, ok, err := s.Peek()
	if err != nil {
		return store.Block{}, err
	}
	if !ok {
		return store.Block{}, fatalf("index: pop called with an empty chain")
	}

	undos, ok, err := s.GetUndo(tip.Height)
	if err != nil {
		return store.Block{}, err
	}
	if !ok {
		return store.Block{}, fatalf("index: no BlockUndo row for tip height %d", tip.Height)
	}

	batch, err := s.NewBatch()
	if err != nil {
		return store.Block{}, err
	}

	if err := batch.DeleteBlock(tip.Height); err != nil {
		return store.Block{}, err
	}
	if err := batch.DeleteUndo(tip.Height); err != nil {
		return store.Block{}, err
	}

	if tip.Height == 0 {
		if err := batch.ClearTip(); err != nil {
			return store.Block{}, err
		}
	} else if err := batch.SetTip(tip.Height - 1); err != nil {
		return store.Block{}, err
	}

	for _, undo := range undos {
		switch undo.Kind {
		case store.UndoUtxoPut:
			if err := batch.PutUtxo(*undo.Utxo); err != nil {
				return store.Block{}, err
			}
		case store.UndoUtxoDelete:
			if err := batch.DeleteUtxo(*undo.UtxoCoord); err != nil {
				return store.Block{}, err
			}
		case store.UndoUtxoKeyPut:
			if err := batch.PutUtxoKey(*undo.UtxoKeyRow); err != nil {
				return store.Block{}, err
			}
		case store.UndoUtxoKeyDelete:
			if err := batch.DeleteUtxoKey(*undo.Vout); err != nil {
				return store.Block{}, err
			}
		case store.UndoScriptInfoPut:
			if err := batch.PutScriptInfo(*undo.ScriptInfo); err != nil {
				return store.Block{}, err
			}
		case store.UndoScriptInfoDelete:
			if err := batch.DeleteScriptInfo(undo.ScriptForInfo); err != nil {
				return store.Block{}, err
			}
		default:
			return store.Block{}, fatalf("index: unknown undo kind %q", undo.Kind)
		}
	}

	if err := batch.Commit(); err != nil {
		return store.Block{}, err
	}

	log.Store.Debug().Uint64("height", tip.Height).Msg("popped block")
	return tip, nil
}
