// Package rpcclient is the upstream JSON-RPC client: it speaks the
// bitcoind-style JSON-RPC 2.0 dialect used by the node being indexed,
// exposing only the three methods the follower needs.
package rpcclient

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"
)

// Options configures a Client. Username alone and username+password are
// both valid; password alone is rejected since Basic Auth has no meaning
// without a username.
type Options struct {
	URL      string
	Username string
	Password string
}

// Client is a JSON-RPC 2.0 HTTP client speaking to a single upstream node.
type Client struct {
	endpoint string
	auth     string // pre-built "Basic ..." header value, empty if unauthenticated
	http     *http.Client
}

// New creates a new RPC client targeting the given endpoint URL, with no
// authentication.
func New(endpoint string) *Client {
	c, err := NewWithOptions(Options{URL: endpoint})
	if err != nil {
		// unreachable: no credentials means Options can't fail validation.
		panic(err)
	}
	return c
}

// NewWithOptions creates a client honoring the Basic-Auth rule: username
// alone or username+password build an Authorization header; password with
// no username is an error; neither sends no header at all.
func NewWithOptions(opts Options) (*Client, error) {
	return newWithOptions(opts, 10*time.Second)
}

// NewWithTimeout creates a new RPC client with a custom HTTP timeout.
func NewWithTimeout(endpoint string, timeout time.Duration) *Client {
	c, err := newWithOptions(Options{URL: endpoint}, timeout)
	if err != nil {
		panic(err)
	}
	return c
}

func newWithOptions(opts Options, timeout time.Duration) (*Client, error) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	var auth string
	switch {
	case opts.Username != "" && opts.Password != "":
		auth = basicAuthHeader(opts.Username, opts.Password)
	case opts.Username != "" && opts.Password == "":
		auth = basicAuthHeader(opts.Username, "")
	case opts.Username == "" && opts.Password != "":
		return nil, fmt.Errorf("rpcclient: username is required when a password is set")
	}

	return &Client{
		endpoint: opts.URL,
		auth:     auth,
		http:     &http.Client{Timeout: timeout},
	}, nil
}

func basicAuthHeader(username, password string) string {
	credentials := username + ":" + password
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(credentials))
}

// request is a JSON-RPC 2.0 request.
type request struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
	ID      uint64      `json:"id"`
}

// response is a JSON-RPC 2.0 response.
type response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
	ID      uint64          `json:"id"`
}

// rpcError is a JSON-RPC 2.0 error.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// RPCError is returned when the server responds with an error.
type RPCError struct {
	Code    int
	Message string
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Call invokes a JSON-RPC method and unmarshals the result into the provided pointer.
// If result is nil, the response result is discarded. Each request carries a
// random id; the upstream does not require sequential ids.
func (c *Client) Call(method string, params, result interface{}) error {
	req := request{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      rand.Uint64(),
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequest(http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.auth != "" {
		httpReq.Header.Set("Authorization", c.auth)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var rpcResp response
	if err := json.Unmarshal(data, &rpcResp); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	if rpcResp.Error != nil {
		return &RPCError{
			Code:    rpcResp.Error.Code,
			Message: rpcResp.Error.Message,
		}
	}

	if result != nil && rpcResp.Result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("decode result: %w", err)
		}
	}

	return nil
}

// Block is the upstream's getblock(hash, verbosity=2) shape, trimmed to the
// fields the index consumes. Unknown fields are ignored by
// encoding/json automatically, which is how forward/backward compatibility
// with forks of the reference node is maintained.
type Block struct {
	Hash              string `json:"hash"`
	PreviousBlockHash string `json:"previousblockhash"`
	Height            uint64 `json:"height"`
	Tx                []Tx   `json:"tx"`
}

// Tx is one transaction within a Block.
type Tx struct {
	Txid string `json:"txid"`
	Vin  []Vin  `json:"vin"`
	Vout []Vout `json:"vout"`
}

// Vin is one transaction input. Txid/Vout are both absent for a coinbase
// input.
type Vin struct {
	Txid *string `json:"txid"`
	Vout *uint32 `json:"vout"`
}

// Vout is one transaction output.
type Vout struct {
	N            uint32       `json:"n"`
	ScriptPubKey ScriptPubKey `json:"scriptPubKey"`
	Value        json.Number  `json:"value"`
}

// ScriptPubKey carries only the hex-encoded output script; the upstream
// sends other descriptive fields (asm, type, addresses) that the index has
// no use for.
type ScriptPubKey struct {
	Hex string `json:"hex"`
}

// GetBlockCount returns the upstream's current chain tip height.
func (c *Client) GetBlockCount() (uint64, error) {
	var height uint64
	if err := c.Call("getblockcount", []interface{}{}, &height); err != nil {
		return 0, err
	}
	return height, nil
}

// GetBlockHash returns the block hash at height.
func (c *Client) GetBlockHash(height uint64) (string, error) {
	var hash string
	if err := c.Call("getblockhash", []interface{}{height}, &hash); err != nil {
		return "", err
	}
	return hash, nil
}

// GetBlock fetches the full block (verbosity=2, i.e. transactions inlined
// rather than as bare txids) for the given hash.
func (c *Client) GetBlock(hash string) (*Block, error) {
	var blk Block
	if err := c.Call("getblock", []interface{}{hash, 2}, &blk); err != nil {
		return nil, err
	}
	return &blk, nil
}
