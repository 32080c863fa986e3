package rpcserver

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/fuxingloh/oxtu/internal/store"
)

// decodeParams accepts both the bitcoind-style positional array form
// (`["address", {"minconf":1}]`) and a named-object form
// (`{"address": "...", "options": {...}}`). On the array path, targets are
// filled positionally; on the object path, obj (a pointer to the combined
// params struct) is unmarshaled directly.
func decodeParams(req *Request, obj interface{}, targets ...interface{}) error {
	if req.Params == nil {
		return fmt.Errorf("params required")
	}
	raw, err := json.Marshal(req.Params)
	if err != nil {
		return fmt.Errorf("invalid params")
	}

	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err == nil {
		for i, t := range targets {
			if i >= len(arr) {
				break
			}
			if err := json.Unmarshal(arr[i], t); err != nil {
				return fmt.Errorf("invalid params[%d]: %w", i, err)
			}
		}
		return nil
	}

	if err := json.Unmarshal(raw, obj); err != nil {
		return fmt.Errorf("invalid params: %w", err)
	}
	return nil
}

// saturatingSub returns a-b, clamped to 0 on underflow.
func saturatingSub(a, b uint64) uint64 {
	if b > a {
		return 0
	}
	return a - b
}

// handleListUnspent implements listunspent: translate minconf/maxconf into
// a half-open [lower, upper) height range against the current tip and
// return up to count UTXOs for the address.
//
// A malformed address is a request-level internal error, not an
// invalid-params response. Note the asymmetry against getaddressinfo,
// which answers with zeros for an address it has never seen.
func (s *Server) handleListUnspent(req *Request) (interface{}, *Error) {
	var params ListUnspentParams
	if err := decodeParams(req, &params, &params.Address, &params.Options); err != nil {
		return nil, &Error{Code: CodeInvalidParams, Message: err.Error()}
	}
	if params.Address == "" {
		return nil, &Error{Code: CodeInvalidParams, Message: "address is required"}
	}

	script, err := s.codec.ParseScript(params.Address)
	if err != nil {
		return nil, &Error{Code: CodeInternalError, Message: fmt.Sprintf("address %q could not be decoded: %v", params.Address, err)}
	}

	tip, ok, err := s.store.Peek()
	if err != nil {
		return nil, &Error{Code: CodeInternalError, Message: err.Error()}
	}
	if !ok {
		// Empty index: no blocks means no UTXOs for any address.
		return []UtxoResult{}, nil
	}

	var lower, upper *uint64
	count := s.maxCount
	if params.Options != nil {
		if params.Options.MaxConf != nil {
			v := saturatingSub(tip.Height, *params.Options.MaxConf) + 1
			lower = &v
		}
		if params.Options.MinConf != nil {
			v := saturatingSub(tip.Height, *params.Options.MinConf) + 2
			upper = &v
		}
		if params.Options.Count != nil && *params.Options.Count >= 0 && *params.Options.Count <= s.maxCount {
			count = *params.Options.Count
		}
	}

	rows, err := s.store.ListUtxos(script, lower, upper)
	if err != nil {
		return nil, &Error{Code: CodeInternalError, Message: err.Error()}
	}
	if len(rows) > count {
		rows = rows[:count]
	}

	scriptHex := hex.EncodeToString(script)
	out := make([]UtxoResult, 0, len(rows))
	for _, u := range rows {
		out = append(out, UtxoResult{
			Txid:          u.Vout.TxID.String(),
			Vout:          u.Vout.N,
			Address:       params.Address,
			ScriptPubKey:  scriptHex,
			Amount:        u.Value,
			Confirmations: tip.Height - u.Height + 1,
			Height:        u.Height,
			Coinbase:      u.Coinbase,
		})
	}
	return out, nil
}

// handleGetAddressInfo implements getaddressinfo: returns zeros for any
// address with no indexed activity, rather than erroring — it only errors
// if the address itself cannot be decoded into a script at all.
func (s *Server) handleGetAddressInfo(req *Request) (interface{}, *Error) {
	var params AddressInfoParams
	if err := decodeParams(req, &params, &params.Address); err != nil {
		return nil, &Error{Code: CodeInvalidParams, Message: err.Error()}
	}
	if params.Address == "" {
		return nil, &Error{Code: CodeInvalidParams, Message: "address is required"}
	}

	script, err := s.codec.ParseScript(params.Address)
	if err != nil {
		return nil, &Error{Code: CodeInternalError, Message: fmt.Sprintf("address %q could not be decoded: %v", params.Address, err)}
	}

	info, ok, err := s.store.GetScriptInfo(script)
	if err != nil {
		return nil, &Error{Code: CodeInternalError, Message: err.Error()}
	}
	if !ok {
		info = store.ZeroScriptInfo(script)
	}

	return AddressInfoResult{
		Address:       params.Address,
		Balance:       info.Balance,
		TotalSent:     info.TotalSent,
		TotalReceived: info.TotalReceived,
		TxCount:       info.TxCount,
	}, nil
}

// handleProbe implements _probe: liveness and startup always succeed;
// readiness succeeds iff the upstream tip is within readinessLagBlocks of
// what this node has indexed, with an empty index always counting as not
// ready.
func (s *Server) handleProbe(req *Request) (interface{}, *Error) {
	var params ProbeParams
	if err := decodeParams(req, &params, &params.Name); err != nil {
		return nil, &Error{Code: CodeInvalidParams, Message: err.Error()}
	}

	switch params.Name {
	case "liveness", "startup":
		return "liveness", nil
	case "readiness":
		ready, err := s.isReady()
		if err != nil || !ready {
			return nil, &Error{Code: CodeInternalError, Message: "not ready"}
		}
		return "liveness", nil
	default:
		return nil, &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("unknown probe %q", params.Name)}
	}
}

func (s *Server) isReady() (bool, error) {
	tip, ok, err := s.store.Peek()
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	upstreamHeight, err := s.upstream.GetBlockCount()
	if err != nil {
		return false, err
	}
	return upstreamHeight <= tip.Height+readinessLagBlocks, nil
}
