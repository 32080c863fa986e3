// Package store is the column-family store: a typed wrapper over the
// key-value database exposing five logical tables — Block, BlockUndo,
// Utxo, UtxoKey, ScriptInfo — that share one atomic write batch per block.
package store

import (
	"github.com/fuxingloh/oxtu/internal/decimal"
	"github.com/fuxingloh/oxtu/pkg/types"
)

// Block is one row of the Block table: the indexed chain's linkage at a
// given height.
type Block struct {
	Height   uint64     `json:"height"`
	Hash     types.Hash `json:"hash"`
	PrevHash types.Hash `json:"prevHash"`
}

// UtxoCoord is the composite key of the Utxo table: script, height, vout.
// It is also the payload undo entries carry when they need to name a Utxo
// row to delete.
type UtxoCoord struct {
	Script []byte     `json:"script"`
	Height uint64     `json:"height"`
	Vout   types.Vout `json:"vout"`
}

// Utxo is one row of the Utxo table: an unspent output.
type Utxo struct {
	Script   []byte          `json:"script"`
	Height   uint64          `json:"height"`
	Vout     types.Vout      `json:"vout"`
	Coinbase bool            `json:"coinbase"`
	Value    decimal.Decimal `json:"value"`
}

// Coord returns the Utxo's composite key as a UtxoCoord.
func (u Utxo) Coord() UtxoCoord {
	return UtxoCoord{Script: u.Script, Height: u.Height, Vout: u.Vout}
}

// UtxoKeyRow is one row of the UtxoKey table: the reverse lookup from a
// spent output's coordinate to the script and height it was created under.
// Needed because an input cites a prior output by Vout alone.
type UtxoKeyRow struct {
	Vout   types.Vout `json:"vout"`
	Height uint64     `json:"height"`
	Script []byte     `json:"script"`
}

// ScriptInfo is one row of the ScriptInfo table: running aggregates for one
// script. Invariant: Balance = TotalReceived - TotalSent.
type ScriptInfo struct {
	Script        []byte          `json:"script"`
	Balance       decimal.Decimal `json:"balance"`
	TotalSent     decimal.Decimal `json:"totalSent"`
	TotalReceived decimal.Decimal `json:"totalReceived"`
	TxCount       uint64          `json:"txCount"`
}

// AddUnspent applies the accounting for a newly created output: adds to
// balance and total received, and counts one more touch.
func (s *ScriptInfo) AddUnspent(value decimal.Decimal) error {
	balance, err := decimal.Add(s.Balance, value)
	if err != nil {
		return err
	}
	received, err := decimal.Add(s.TotalReceived, value)
	if err != nil {
		return err
	}
	s.Balance = balance
	s.TotalReceived = received
	s.TxCount++
	return nil
}

// AddSpent applies the accounting for a consumed output: subtracts from
// balance, adds to total sent, and counts one more touch.
func (s *ScriptInfo) AddSpent(value decimal.Decimal) error {
	balance, err := decimal.Sub(s.Balance, value)
	if err != nil {
		return err
	}
	sent, err := decimal.Add(s.TotalSent, value)
	if err != nil {
		return err
	}
	s.Balance = balance
	s.TotalSent = sent
	s.TxCount++
	return nil
}

// ZeroScriptInfo returns the zero-valued aggregate for a script with no
// indexed activity — what getaddressinfo returns for an unknown address.
func ZeroScriptInfo(script []byte) ScriptInfo {
	return ScriptInfo{
		Script:        script,
		Balance:       decimal.Zero(8),
		TotalSent:     decimal.Zero(8),
		TotalReceived: decimal.Zero(8),
	}
}

// UndoKind discriminates the six undo-entry variants. Serialized as a
// discriminant tag followed by the payload; variant naming must not change
// across versions or stored undo rows become unreadable.
type UndoKind string

const (
	UndoUtxoPut          UndoKind = "utxo_put"
	UndoUtxoDelete       UndoKind = "utxo_delete"
	UndoUtxoKeyPut       UndoKind = "utxo_key_put"
	UndoUtxoKeyDelete    UndoKind = "utxo_key_delete"
	UndoScriptInfoPut    UndoKind = "script_info_put"
	UndoScriptInfoDelete UndoKind = "script_info_delete"
)

// Undo is one entry of a BlockUndo row. Exactly one payload field is set,
// matching the Kind. Pop replays the list in the order it was recorded
// (not reversed) because every entry is independently idempotent given its
// key.
type Undo struct {
	Kind UndoKind `json:"kind"`

	Utxo          *Utxo       `json:"utxo,omitempty"`          // UndoUtxoPut
	UtxoCoord     *UtxoCoord  `json:"utxoCoord,omitempty"`     // UndoUtxoDelete
	UtxoKeyRow    *UtxoKeyRow `json:"utxoKeyRow,omitempty"`    // UndoUtxoKeyPut
	Vout          *types.Vout `json:"vout,omitempty"`          // UndoUtxoKeyDelete
	ScriptInfo    *ScriptInfo `json:"scriptInfo,omitempty"`    // UndoScriptInfoPut
	ScriptForInfo []byte      `json:"scriptForInfo,omitempty"` // UndoScriptInfoDelete
}
