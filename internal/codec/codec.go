// Package codec implements the order-preserving binary key encoding shared
// by every column family: a self-delimiting length-prefix framing for
// scripts so that every Utxo-table key for a given script shares one byte
// prefix, followed by big-endian integers so height and vout coordinates
// sort in natural order.
package codec

import (
	"encoding/binary"
	"fmt"

	"github.com/fuxingloh/oxtu/pkg/types"
)

// maxShortScriptLen is the largest script length encodable in the single
// length byte (0..=250). Lengths 251..=65535 use the two-byte extension
// introduced by the sentinel byte 251.
const (
	maxShortScriptLen = 250
	extensionSentinel = 251
	maxExtendedLen    = 65535
)

// EncodeScript writes a self-delimiting length-prefixed script: one length
// byte for scripts up to 250 bytes, or the sentinel byte 251 followed by a
// two-byte big-endian length for scripts from 251 to 65535 bytes. A script
// longer than that cannot be key-encoded; no real output script approaches
// this length, so callers treat the error as a fatal invariant violation.
func EncodeScript(script []byte) ([]byte, error) {
	n := len(script)
	switch {
	case n <= maxShortScriptLen:
		out := make([]byte, 1+n)
		out[0] = byte(n)
		copy(out[1:], script)
		return out, nil
	case n <= maxExtendedLen:
		out := make([]byte, 3+n)
		out[0] = extensionSentinel
		binary.BigEndian.PutUint16(out[1:3], uint16(n))
		copy(out[3:], script)
		return out, nil
	default:
		return nil, fmt.Errorf("codec: script length %d exceeds the %d-byte encodable maximum", n, maxExtendedLen)
	}
}

// DecodeScript reads a length-prefixed script from the front of buf and
// returns the script bytes plus the number of bytes consumed.
func DecodeScript(buf []byte) (script []byte, consumed int, err error) {
	if len(buf) < 1 {
		return nil, 0, fmt.Errorf("codec: empty buffer")
	}
	first := buf[0]
	if first <= maxShortScriptLen {
		n := int(first)
		if len(buf) < 1+n {
			return nil, 0, fmt.Errorf("codec: truncated script, need %d bytes have %d", 1+n, len(buf))
		}
		return buf[1 : 1+n], 1 + n, nil
	}
	if first == extensionSentinel {
		if len(buf) < 3 {
			return nil, 0, fmt.Errorf("codec: truncated script length extension")
		}
		n := int(binary.BigEndian.Uint16(buf[1:3]))
		if len(buf) < 3+n {
			return nil, 0, fmt.Errorf("codec: truncated script, need %d bytes have %d", 3+n, len(buf))
		}
		return buf[3 : 3+n], 3 + n, nil
	}
	return nil, 0, fmt.Errorf("codec: invalid length-prefix byte %d", first)
}

// ScriptPrefix returns the length-prefixed encoding of script alone — the
// exact byte span every Utxo-table key for this script shares, used both to
// build keys and as the prefix for a constrained range scan.
func ScriptPrefix(script []byte) ([]byte, error) {
	return EncodeScript(script)
}

// EncodeHeight renders a height as 8-byte big-endian, order-preserving.
func EncodeHeight(height uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], height)
	return buf[:]
}

// DecodeHeight parses an 8-byte big-endian height.
func DecodeHeight(buf []byte) (uint64, error) {
	if len(buf) != 8 {
		return 0, fmt.Errorf("codec: height field must be 8 bytes, got %d", len(buf))
	}
	return binary.BigEndian.Uint64(buf), nil
}

// EncodeVout renders a Vout as its 32-byte txid followed by a 4-byte
// big-endian output index.
func EncodeVout(v types.Vout) []byte {
	buf := make([]byte, types.HashSize+4)
	copy(buf, v.TxID[:])
	binary.BigEndian.PutUint32(buf[types.HashSize:], v.N)
	return buf
}

// DecodeVout parses a Vout from its 36-byte encoding.
func DecodeVout(buf []byte) (types.Vout, error) {
	if len(buf) != types.HashSize+4 {
		return types.Vout{}, fmt.Errorf("codec: vout field must be %d bytes, got %d", types.HashSize+4, len(buf))
	}
	var v types.Vout
	copy(v.TxID[:], buf[:types.HashSize])
	v.N = binary.BigEndian.Uint32(buf[types.HashSize:])
	return v, nil
}

// UtxoKey encodes the composite key of the Utxo column family:
// length-prefixed script, then height, then vout — in that order, so that
// a prefix scan on the script's encoding yields every UTXO for that script
// in ascending height order.
func UtxoKey(script []byte, height uint64, vout types.Vout) ([]byte, error) {
	prefix, err := EncodeScript(script)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(prefix)+8+types.HashSize+4)
	out = append(out, prefix...)
	out = append(out, EncodeHeight(height)...)
	out = append(out, EncodeVout(vout)...)
	return out, nil
}

// DecodeUtxoKey splits a Utxo column-family key back into its script,
// height, and vout components.
func DecodeUtxoKey(key []byte) (script []byte, height uint64, vout types.Vout, err error) {
	script, n, err := DecodeScript(key)
	if err != nil {
		return nil, 0, types.Vout{}, err
	}
	rest := key[n:]
	if len(rest) != 8+types.HashSize+4 {
		return nil, 0, types.Vout{}, fmt.Errorf("codec: utxo key has wrong remainder length %d", len(rest))
	}
	height, err = DecodeHeight(rest[:8])
	if err != nil {
		return nil, 0, types.Vout{}, err
	}
	vout, err = DecodeVout(rest[8:])
	if err != nil {
		return nil, 0, types.Vout{}, err
	}
	return script, height, vout, nil
}

// HeightLowerBound extends a script prefix with a height lower bound for a
// constrained range scan's start key. Inclusive.
func HeightLowerBound(script []byte, height uint64) ([]byte, error) {
	prefix, err := EncodeScript(script)
	if err != nil {
		return nil, err
	}
	return append(prefix, EncodeHeight(height)...), nil
}

// HeightUpperBound extends a script prefix with a height upper bound for a
// constrained range scan's end key. Exclusive — callers wanting an
// inclusive upper height h pass h+1.
func HeightUpperBound(script []byte, height uint64) ([]byte, error) {
	return HeightLowerBound(script, height)
}

// BlockKey encodes the key of the Block column family: the height alone,
// so that a reverse iterator directly yields the tip.
func BlockKey(height uint64) []byte {
	return EncodeHeight(height)
}

// UndoKey encodes the key of the BlockUndo column family. It shares the
// Block table's height-keyed layout: one undo row per indexed, unpruned
// block.
func UndoKey(height uint64) []byte {
	return EncodeHeight(height)
}

// UtxoKeyTableKey encodes the key of the UtxoKey (reverse-lookup) column
// family: the spent output's coordinate alone.
func UtxoKeyTableKey(vout types.Vout) []byte {
	return EncodeVout(vout)
}

// ScriptInfoKey encodes the key of the ScriptInfo column family: the
// length-prefixed script. Unlike the Utxo table, no further suffix is
// needed — one row per script.
func ScriptInfoKey(script []byte) ([]byte, error) {
	return EncodeScript(script)
}
