package codec

import (
	"bytes"
	"testing"

	"github.com/fuxingloh/oxtu/pkg/types"
)

func TestEncodeScriptShort(t *testing.T) {
	script := []byte{0xde, 0xad, 0xbe, 0xef}
	enc, err := EncodeScript(script)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if enc[0] != 4 {
		t.Errorf("length byte = %d, want 4", enc[0])
	}
	got, n, err := DecodeScript(enc)
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if n != len(enc) || !bytes.Equal(got, script) {
		t.Errorf("round trip mismatch: got %x consumed %d", got, n)
	}
}

func TestEncodeScriptExtended(t *testing.T) {
	script := make([]byte, 300)
	for i := range script {
		script[i] = byte(i)
	}
	enc, err := EncodeScript(script)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if enc[0] != extensionSentinel {
		t.Errorf("first byte = %d, want sentinel %d", enc[0], extensionSentinel)
	}
	got, n, err := DecodeScript(enc)
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if n != len(enc) || !bytes.Equal(got, script) {
		t.Errorf("round trip mismatch")
	}
}

func TestEncodeScriptTooLong(t *testing.T) {
	script := make([]byte, maxExtendedLen+1)
	if _, err := EncodeScript(script); err == nil {
		t.Fatal("expected error for over-long script, got nil")
	}
}

func TestUtxoKeyPrefixesShareScriptBytes(t *testing.T) {
	script := []byte("p2pkh-script-bytes")
	prefix, err := ScriptPrefix(script)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var txid types.Hash
	txid[0] = 0x01
	k1, err := UtxoKey(script, 10, types.Vout{TxID: txid, N: 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	k2, err := UtxoKey(script, 20, types.Vout{TxID: txid, N: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !bytes.HasPrefix(k1, prefix) || !bytes.HasPrefix(k2, prefix) {
		t.Fatal("utxo keys must share the script's length-prefixed encoding")
	}

	// Ascending height order within the same script.
	if bytes.Compare(k1, k2) >= 0 {
		t.Error("key at lower height should sort before key at higher height")
	}
}

func TestUtxoKeyDifferentScriptsDoNotShareAPrefix(t *testing.T) {
	a, err := ScriptPrefix([]byte("script-a"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := ScriptPrefix([]byte("script-b-longer"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// The length byte alone separates these two: a shorter script's
	// encoding must never be a byte-prefix of a longer one's, or a prefix
	// scan would leak rows across scripts.
	if bytes.HasPrefix(a, b) || bytes.HasPrefix(b, a) {
		t.Fatalf("prefixes overlap: %x vs %x", a, b)
	}
}

func TestDecodeUtxoKeyRoundTrip(t *testing.T) {
	script := []byte("abc")
	var txid types.Hash
	txid[5] = 0xaa
	vout := types.Vout{TxID: txid, N: 7}

	key, err := UtxoKey(script, 42, vout)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	gotScript, gotHeight, gotVout, err := DecodeUtxoKey(key)
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if !bytes.Equal(gotScript, script) || gotHeight != 42 || gotVout != vout {
		t.Errorf("round trip mismatch: script=%x height=%d vout=%+v", gotScript, gotHeight, gotVout)
	}
}

func TestHeightEncodingOrderPreserving(t *testing.T) {
	if bytes.Compare(EncodeHeight(1), EncodeHeight(2)) >= 0 {
		t.Error("height encoding must preserve numeric order")
	}
	if bytes.Compare(EncodeHeight(255), EncodeHeight(256)) >= 0 {
		t.Error("height encoding must preserve numeric order across byte boundary")
	}
}
