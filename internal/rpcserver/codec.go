package rpcserver

import "github.com/fuxingloh/oxtu/pkg/address"

// Bech32AddressCodec is the one concrete AddressCodec this system ships: it
// decodes the bech32 addresses pkg/address produces. Address<->script
// conversion stays at this boundary, so this is deliberately the only
// implementation — not a pluggable registry of every address scheme a real
// chain might use.
type Bech32AddressCodec struct{}

// ParseScript decodes a bech32 address into the script bytes the index
// stores UTXOs under.
func (Bech32AddressCodec) ParseScript(addr string) ([]byte, error) {
	a, err := address.Parse(addr)
	if err != nil {
		return nil, err
	}
	return a.ToScript(), nil
}
