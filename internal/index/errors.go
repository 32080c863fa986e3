package index

import (
	"errors"
	"fmt"
)

// FatalError marks an invariant or data-corruption class failure:
// a missing UtxoKey for a cited input, a missing Utxo for a known key, a
// non-hex txid, decimal overflow, a scale byte out of range, or an absent
// previousblockhash above height 0. Store errors from Push and Pop (including
// a failed commit) are returned as they are, not wrapped in FatalError. The
// follower stops and returns every error from Push and Pop, and a FatalError
// from its upstream probe, rather than retrying — retrying a corrupted
// invariant can only make things worse.
type FatalError struct {
	err error
}

func fatalf(format string, args ...interface{}) *FatalError {
	return &FatalError{err: fmt.Errorf(format, args...)}
}

func (e *FatalError) Error() string { return e.err.Error() }
func (e *FatalError) Unwrap() error { return e.err }

// IsFatal reports whether err represents an invariant/corruption-class
// failure, as opposed to a transient store or RPC error.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}

// FatalNoPreviousBlockHash reports the invariant violation of a block above
// height 0 with no previousblockhash.
func FatalNoPreviousBlockHash(height uint64) error {
	return fatalf("index: block at height %d has no previousblockhash", height)
}

// FatalBadHex reports a field that failed to decode as hex where the
// upstream contract guarantees it always will.
func FatalBadHex(field, value string, err error) error {
	return fatalf("index: %s %q is not valid hex: %w", field, value, err)
}
