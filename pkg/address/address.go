package address

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Size is the length of the public-key-hash payload in bytes.
const Size = 20

// HRP constants for bech32 encoding, mirroring mainnet/testnet the way the
// upstream node's own address scheme does.
const (
	MainnetHRP = "oxt"
	TestnetHRP = "toxt"
)

// scriptVersion is the single leading byte of the pay-to-pubkey-hash style
// script this codec emits. The index never interprets it; it only needs a
// stable byte prefix so two addresses never collide on script bytes.
const scriptVersion = 0x00

// activeHRP is the HRP used by String(). Set once at startup.
var activeHRP = MainnetHRP

// SetHRP sets the active address HRP (call once at startup, before serving
// any requests).
func SetHRP(hrp string) {
	activeHRP = hrp
}

// Address is a 160-bit public-key-hash payload, the user-facing identity
// behind a script.
type Address [Size]byte

// String returns the bech32-encoded address.
func (a Address) String() string {
	s, err := bech32Encode(activeHRP, a[:])
	if err != nil {
		return activeHRP + ":" + hex.EncodeToString(a[:])
	}
	return s
}

// Parse decodes a bech32 address string into an Address.
func Parse(s string) (Address, error) {
	if s == "" {
		return Address{}, fmt.Errorf("address: empty string")
	}
	if !strings.Contains(s, "1") {
		return Address{}, fmt.Errorf("address: not bech32: %q", s)
	}
	_, data, err := bech32Decode(s)
	if err != nil {
		return Address{}, fmt.Errorf("address: %w", err)
	}
	if len(data) != Size {
		return Address{}, fmt.Errorf("address: payload must be %d bytes, got %d", Size, len(data))
	}
	var a Address
	copy(a[:], data)
	return a, nil
}

// ToScript renders the address as the script bytes the index stores UTXOs
// under: a one-byte version tag followed by the 20-byte payload.
func (a Address) ToScript() []byte {
	script := make([]byte, 1+Size)
	script[0] = scriptVersion
	copy(script[1:], a[:])
	return script
}

// ScriptToAddress recovers the Address from script bytes previously produced
// by ToScript. Returns an error if the script is not in the recognized
// shape — scripts from other output types never round-trip to an address.
func ScriptToAddress(script []byte) (Address, error) {
	if len(script) != 1+Size || script[0] != scriptVersion {
		return Address{}, fmt.Errorf("address: script not a recognized pay-to-pubkey-hash output")
	}
	var a Address
	copy(a[:], script[1:])
	return a, nil
}
