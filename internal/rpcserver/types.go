package rpcserver

import "github.com/fuxingloh/oxtu/internal/decimal"

// JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// Request is a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
	ID      interface{} `json:"id"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string      `json:"jsonrpc"`
	Result  interface{} `json:"result,omitempty"`
	Error   *Error      `json:"error,omitempty"`
	ID      interface{} `json:"id"`
}

// Error is a JSON-RPC 2.0 error object.
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ListUnspentOptions is the optional second parameter of listunspent.
type ListUnspentOptions struct {
	MinConf *uint64 `json:"minconf,omitempty"`
	MaxConf *uint64 `json:"maxconf,omitempty"`
	Count   *int    `json:"count,omitempty"`
}

// ListUnspentParams is the positional parameter shape of listunspent.
type ListUnspentParams struct {
	Address string              `json:"address"`
	Options *ListUnspentOptions `json:"options,omitempty"`
}

// UtxoResult is one entry returned by listunspent.
type UtxoResult struct {
	Txid          string          `json:"txid"`
	Vout          uint32          `json:"vout"`
	Address       string          `json:"address"`
	ScriptPubKey  string          `json:"scriptPubKey"`
	Amount        decimal.Decimal `json:"amount"`
	Confirmations uint64          `json:"confirmations"`
	Height        uint64          `json:"height"`
	Coinbase      bool            `json:"coinbase"`
}

// AddressInfoParams is the positional parameter shape of getaddressinfo.
type AddressInfoParams struct {
	Address string `json:"address"`
}

// AddressInfoResult is returned by getaddressinfo.
type AddressInfoResult struct {
	Address       string          `json:"address"`
	Balance       decimal.Decimal `json:"balance"`
	TotalSent     decimal.Decimal `json:"totalSent"`
	TotalReceived decimal.Decimal `json:"totalReceived"`
	TxCount       uint64          `json:"txCount"`
}

// ProbeParams is the positional parameter shape of _probe.
type ProbeParams struct {
	Name string `json:"name"`
}
