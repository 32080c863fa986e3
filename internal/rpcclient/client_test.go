package rpcclient

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewWithOptions_PasswordOnlyIsError(t *testing.T) {
	_, err := NewWithOptions(Options{URL: "http://example.invalid", Password: "secret"})
	if err == nil {
		t.Fatal("expected error for password with no username")
	}
}

func TestNewWithOptions_UsernameAloneIsFine(t *testing.T) {
	if _, err := NewWithOptions(Options{URL: "http://example.invalid", Username: "bob"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewWithOptions_UsernameAndPasswordIsFine(t *testing.T) {
	if _, err := NewWithOptions(Options{URL: "http://example.invalid", Username: "bob", Password: "secret"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCall_SendsAuthorizationHeader(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":42}`))
	}))
	defer srv.Close()

	client, err := NewWithOptions(Options{URL: srv.URL, Username: "bob", Password: "secret"})
	if err != nil {
		t.Fatalf("NewWithOptions: %v", err)
	}

	var result int
	if err := client.Call("whatever", nil, &result); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if gotAuth == "" || gotAuth[:6] != "Basic " {
		t.Errorf("Authorization header = %q, want Basic-prefixed", gotAuth)
	}
}

func TestCall_NoAuthWhenUnconfigured(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":null}`))
	}))
	defer srv.Close()

	client := New(srv.URL)
	var result interface{}
	if err := client.Call("whatever", nil, &result); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if gotAuth != "" {
		t.Errorf("Authorization header = %q, want empty", gotAuth)
	}
}

func TestCall_PropagatesRPCError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-1,"message":"boom"}}`))
	}))
	defer srv.Close()

	client := New(srv.URL)
	var result interface{}
	err := client.Call("whatever", nil, &result)
	rpcErr, ok := err.(*RPCError)
	if !ok {
		t.Fatalf("expected *RPCError, got %T: %v", err, err)
	}
	if rpcErr.Code != -1 || rpcErr.Message != "boom" {
		t.Errorf("got %+v", rpcErr)
	}
}

func mockUpstream(t *testing.T, height uint64, hash string, blk Block) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string          `json:"method"`
			Params json.RawMessage `json:"params"`
			ID     uint64          `json:"id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}

		var result interface{}
		switch req.Method {
		case "getblockcount":
			result = height
		case "getblockhash":
			result = hash
		case "getblock":
			result = blk
		default:
			t.Fatalf("unexpected method %q", req.Method)
		}

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  result,
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestGetBlockCountHashAndBlock(t *testing.T) {
	blk := Block{
		Hash:              "aa",
		PreviousBlockHash: "bb",
		Height:            5,
		Tx: []Tx{{
			Txid: "cc",
			Vout: []Vout{{N: 0, ScriptPubKey: ScriptPubKey{Hex: "76a914"}, Value: "1.23456789"}},
		}},
	}
	srv := mockUpstream(t, 5, "aa", blk)
	defer srv.Close()

	client := New(srv.URL)

	count, err := client.GetBlockCount()
	if err != nil || count != 5 {
		t.Fatalf("GetBlockCount: %d, %v", count, err)
	}

	hash, err := client.GetBlockHash(5)
	if err != nil || hash != "aa" {
		t.Fatalf("GetBlockHash: %q, %v", hash, err)
	}

	got, err := client.GetBlock("aa")
	if err != nil {
		t.Fatalf("GetBlock: %v", err)
	}
	if got.Height != 5 || len(got.Tx) != 1 {
		t.Fatalf("GetBlock mismatch: %+v", got)
	}
	if got.Tx[0].Vout[0].Value.String() != "1.23456789" {
		t.Errorf("value = %s, want exact decimal preserved", got.Tx[0].Vout[0].Value.String())
	}
}
