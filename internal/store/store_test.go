package store

import (
	"testing"

	"github.com/fuxingloh/oxtu/internal/decimal"
	"github.com/fuxingloh/oxtu/internal/storage"
	"github.com/fuxingloh/oxtu/pkg/types"
)

func txid(b byte) types.Hash {
	var h types.Hash
	h[0] = b
	return h
}

func TestPutAndGetBlockAdvancesTip(t *testing.T) {
	s := Open(storage.NewMemory())

	batch, err := s.NewBatch()
	if err != nil {
		t.Fatalf("NewBatch: %v", err)
	}
	blk := Block{Height: 0, Hash: txid(0xaa), PrevHash: types.Hash{}}
	if err := batch.PutBlock(blk); err != nil {
		t.Fatalf("PutBlock: %v", err)
	}
	if err := batch.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	got, ok, err := s.GetBlock(0)
	if err != nil || !ok {
		t.Fatalf("GetBlock(0): ok=%v err=%v", ok, err)
	}
	if got.Hash != blk.Hash {
		t.Errorf("hash mismatch: got %s want %s", got.Hash, blk.Hash)
	}

	tip, ok, err := s.Peek()
	if err != nil || !ok {
		t.Fatalf("Peek(): ok=%v err=%v", ok, err)
	}
	if tip.Height != 0 {
		t.Errorf("tip height = %d, want 0", tip.Height)
	}
}

func TestUtxoBijectionAfterBatch(t *testing.T) {
	s := Open(storage.NewMemory())
	script := []byte("script-x")
	vout := types.Vout{TxID: txid(1), N: 0}

	batch, err := s.NewBatch()
	if err != nil {
		t.Fatalf("NewBatch: %v", err)
	}
	u := Utxo{Script: script, Height: 5, Vout: vout, Coinbase: false, Value: decimal.New(100, 8)}
	if err := batch.PutUtxo(u); err != nil {
		t.Fatalf("PutUtxo: %v", err)
	}
	if err := batch.PutUtxoKey(UtxoKeyRow{Vout: vout, Height: 5, Script: script}); err != nil {
		t.Fatalf("PutUtxoKey: %v", err)
	}
	if err := batch.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	gotUtxo, ok, err := s.GetUtxo(u.Coord())
	if err != nil || !ok {
		t.Fatalf("GetUtxo: ok=%v err=%v", ok, err)
	}
	if gotUtxo.Value.String() != "0.00000100" {
		t.Errorf("value = %s, want 0.00000100", gotUtxo.Value.String())
	}

	gotRow, ok, err := s.GetUtxoKeyRow(vout)
	if err != nil || !ok {
		t.Fatalf("GetUtxoKeyRow: ok=%v err=%v", ok, err)
	}
	if gotRow.Height != 5 || string(gotRow.Script) != string(script) {
		t.Errorf("utxo key row mismatch: %+v", gotRow)
	}
}

func TestListUtxosOrderingAndBounds(t *testing.T) {
	s := Open(storage.NewMemory())
	script := []byte("script-y")

	batch, _ := s.NewBatch()
	for _, h := range []uint64{10, 5, 20, 15} {
		u := Utxo{Script: script, Height: h, Vout: types.Vout{TxID: txid(byte(h)), N: 0}, Value: decimal.New(1, 0)}
		if err := batch.PutUtxo(u); err != nil {
			t.Fatalf("PutUtxo: %v", err)
		}
	}
	// A UTXO under a different script must never appear in the scan.
	other := Utxo{Script: []byte("other-script"), Height: 12, Vout: types.Vout{TxID: txid(99)}, Value: decimal.New(1, 0)}
	batch.PutUtxo(other)
	if err := batch.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	all, err := s.ListUtxos(script, nil, nil)
	if err != nil {
		t.Fatalf("ListUtxos: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("len = %d, want 4", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].Height >= all[i].Height {
			t.Errorf("not ascending at %d: %d >= %d", i, all[i-1].Height, all[i].Height)
		}
	}

	lower, upper := uint64(10), uint64(20)
	bounded, err := s.ListUtxos(script, &lower, &upper)
	if err != nil {
		t.Fatalf("ListUtxos bounded: %v", err)
	}
	if len(bounded) != 2 {
		t.Fatalf("bounded len = %d, want 2 (heights 10 and 15)", len(bounded))
	}
	if bounded[0].Height != 10 || bounded[1].Height != 15 {
		t.Errorf("bounded heights = %d, %d; want 10, 15", bounded[0].Height, bounded[1].Height)
	}
}

func TestPruneUntilLeavesUtxoTablesUntouched(t *testing.T) {
	s := Open(storage.NewMemory())

	batch, _ := s.NewBatch()
	for h := uint64(0); h < 5; h++ {
		batch.PutBlock(Block{Height: h, Hash: txid(byte(h + 1))})
		batch.PutUndo(h, []Undo{})
	}
	script := []byte("keepme")
	u := Utxo{Script: script, Height: 2, Vout: types.Vout{TxID: txid(7)}, Value: decimal.New(1, 0)}
	batch.PutUtxo(u)
	if err := batch.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	if err := s.PruneUntil(3); err != nil {
		t.Fatalf("PruneUntil: %v", err)
	}

	for h := uint64(0); h < 3; h++ {
		if _, ok, _ := s.GetBlock(h); ok {
			t.Errorf("block %d should have been pruned", h)
		}
		if _, ok, _ := s.GetUndo(h); ok {
			t.Errorf("undo %d should have been pruned", h)
		}
	}
	for h := uint64(3); h < 5; h++ {
		if _, ok, _ := s.GetBlock(h); !ok {
			t.Errorf("block %d should remain", h)
		}
	}

	if _, ok, err := s.GetUtxo(u.Coord()); err != nil || !ok {
		t.Error("utxo rows must survive pruning")
	}
}
