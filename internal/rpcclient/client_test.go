package rpcclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Klingon-tech/clawshield/pkg/types"
)

// handlerFunc answers one JSON-RPC method. A non-nil *RPCError is sent as
// the error member.
type handlerFunc func(params json.RawMessage) (interface{}, *RPCError)

type testEnv struct {
	client *Client
	server *httptest.Server

	mu    sync.Mutex
	calls []string
	last  map[string]json.RawMessage
}

func setupTestEnv(t *testing.T, handlers map[string]handlerFunc) *testEnv {
	t.Helper()

	env := &testEnv{last: make(map[string]json.RawMessage)}
	env.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			JSONRPC string          `json:"jsonrpc"`
			Method  string          `json:"method"`
			Params  json.RawMessage `json:"params"`
			ID      uint64          `json:"id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		env.mu.Lock()
		env.calls = append(env.calls, req.Method)
		env.last[req.Method] = req.Params
		env.mu.Unlock()

		resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
		h, ok := handlers[req.Method]
		if !ok {
			resp["error"] = map[string]interface{}{"code": -32601, "message": "Method not found"}
		} else if result, rpcErr := h(req.Params); rpcErr != nil {
			resp["error"] = map[string]interface{}{"code": rpcErr.Code, "message": rpcErr.Message}
		} else {
			resp["result"] = result
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(env.server.Close)

	env.client = New(env.server.URL)
	return env
}

func (e *testEnv) params(method string) json.RawMessage {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last[method]
}

func TestCall_Result(t *testing.T) {
	env := setupTestEnv(t, map[string]handlerFunc{
		"echo": func(params json.RawMessage) (interface{}, *RPCError) {
			var p []string
			json.Unmarshal(params, &p)
			return p, nil
		},
	})

	var got []string
	if err := env.client.Call(context.Background(), "echo", []string{"a", "b"}, &got); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("result = %v", got)
	}
}

func TestCall_RPCError(t *testing.T) {
	env := setupTestEnv(t, nil)

	err := env.client.Call(context.Background(), "nope", nil, nil)
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		t.Fatalf("error = %v, want *RPCError", err)
	}
	if rpcErr.Code != -32601 {
		t.Errorf("code = %d, want -32601", rpcErr.Code)
	}
}

func TestCall_Unreachable(t *testing.T) {
	c := NewWithTimeout("http://127.0.0.1:1", time.Second)
	if err := c.Call(context.Background(), "getVersion", nil, nil); err == nil {
		t.Fatal("expected error for unreachable endpoint")
	}
}

func TestCall_ContextCanceled(t *testing.T) {
	env := setupTestEnv(t, map[string]handlerFunc{
		"getVersion": func(json.RawMessage) (interface{}, *RPCError) {
			return Version{SolanaCore: "1.18.0"}, nil
		},
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := env.client.Call(ctx, "getVersion", nil, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}

func TestCall_NonJSONStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gateway down", http.StatusBadGateway)
	}))
	defer srv.Close()

	err := New(srv.URL).Call(context.Background(), "getVersion", nil, nil)
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusBadGateway {
		t.Fatalf("error = %v, want *HTTPError 502", err)
	}
	if err.Error() != "http status 502" {
		t.Fatalf("message = %q", err.Error())
	}
}

func TestGetVersion(t *testing.T) {
	env := setupTestEnv(t, map[string]handlerFunc{
		"getVersion": func(json.RawMessage) (interface{}, *RPCError) {
			return map[string]interface{}{"solana-core": "1.18.22", "feature-set": 3580551090}, nil
		},
	})

	v, err := env.client.GetVersion(context.Background())
	if err != nil {
		t.Fatalf("GetVersion: %v", err)
	}
	if v.SolanaCore != "1.18.22" {
		t.Errorf("SolanaCore = %q", v.SolanaCore)
	}
}

func TestGetLatestBlockhash(t *testing.T) {
	var bh types.Hash
	bh[0] = 9
	env := setupTestEnv(t, map[string]handlerFunc{
		"getLatestBlockhash": func(json.RawMessage) (interface{}, *RPCError) {
			return map[string]interface{}{
				"context": map[string]uint64{"slot": 10},
				"value": map[string]interface{}{
					"blockhash":            bh.String(),
					"lastValidBlockHeight": 160,
				},
			}, nil
		},
	})

	got, err := env.client.GetLatestBlockhash(context.Background(), CommitmentConfirmed)
	if err != nil {
		t.Fatalf("GetLatestBlockhash: %v", err)
	}
	if got.Blockhash != bh || got.LastValidBlockHeight != 160 {
		t.Fatalf("got %+v", got)
	}

	var params []map[string]string
	json.Unmarshal(env.params("getLatestBlockhash"), &params)
	if len(params) != 1 || params[0]["commitment"] != "confirmed" {
		t.Fatalf("params = %s", env.params("getLatestBlockhash"))
	}
}

func TestSendTransaction_Options(t *testing.T) {
	var sig types.Signature
	sig[0] = 1
	env := setupTestEnv(t, map[string]handlerFunc{
		"sendTransaction": func(json.RawMessage) (interface{}, *RPCError) {
			return sig.String(), nil
		},
	})

	retries := uint(3)
	got, err := env.client.SendTransaction(context.Background(), "AQID", SendOptions{
		PreflightCommitment: CommitmentConfirmed,
		MaxRetries:          &retries,
	})
	if err != nil {
		t.Fatalf("SendTransaction: %v", err)
	}
	if got != sig {
		t.Fatalf("signature = %s, want %s", got, sig)
	}

	var params []json.RawMessage
	if err := json.Unmarshal(env.params("sendTransaction"), &params); err != nil || len(params) != 2 {
		t.Fatalf("params = %s", env.params("sendTransaction"))
	}
	var opts map[string]interface{}
	json.Unmarshal(params[1], &opts)
	if opts["encoding"] != "base64" {
		t.Errorf("encoding = %v, want base64", opts["encoding"])
	}
	if opts["skipPreflight"] != false {
		t.Errorf("skipPreflight = %v, want false", opts["skipPreflight"])
	}
	if opts["maxRetries"] != float64(3) {
		t.Errorf("maxRetries = %v, want 3", opts["maxRetries"])
	}
}

func TestGetSignatureStatuses(t *testing.T) {
	env := setupTestEnv(t, map[string]handlerFunc{
		"getSignatureStatuses": func(json.RawMessage) (interface{}, *RPCError) {
			return map[string]interface{}{
				"context": map[string]uint64{"slot": 5},
				"value": []interface{}{
					map[string]interface{}{"slot": 4, "confirmations": nil, "err": nil, "confirmationStatus": "finalized"},
					nil,
					map[string]interface{}{"slot": 5, "confirmations": 0, "err": map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}}, "confirmationStatus": "processed"},
				},
			}, nil
		},
	})

	statuses, err := env.client.GetSignatureStatuses(context.Background(),
		types.Signature{1}, types.Signature{2}, types.Signature{3})
	if err != nil {
		t.Fatalf("GetSignatureStatuses: %v", err)
	}
	if !statuses[0].Confirmed() || statuses[0].Failed() {
		t.Errorf("status 0 = %+v, want confirmed without error", statuses[0])
	}
	if statuses[1] != nil {
		t.Errorf("status 1 = %+v, want nil", statuses[1])
	}
	if statuses[2].Confirmed() || !statuses[2].Failed() {
		t.Errorf("status 2 = %+v, want failed", statuses[2])
	}
}

func TestGetSignatureStatuses_LengthMismatch(t *testing.T) {
	env := setupTestEnv(t, map[string]handlerFunc{
		"getSignatureStatuses": func(json.RawMessage) (interface{}, *RPCError) {
			return map[string]interface{}{"context": map[string]uint64{"slot": 1}, "value": []interface{}{}}, nil
		},
	})
	if _, err := env.client.GetSignatureStatuses(context.Background(), types.Signature{1}); err == nil {
		t.Fatal("expected error for short status list")
	}
}

func TestGetBlockHeight(t *testing.T) {
	env := setupTestEnv(t, map[string]handlerFunc{
		"getBlockHeight": func(json.RawMessage) (interface{}, *RPCError) {
			return 1234, nil
		},
	})
	h, err := env.client.GetBlockHeight(context.Background(), CommitmentConfirmed)
	if err != nil {
		t.Fatalf("GetBlockHeight: %v", err)
	}
	if h != 1234 {
		t.Fatalf("height = %d, want 1234", h)
	}
}

func TestProvider_Once(t *testing.T) {
	p := NewProvider("http://127.0.0.1:8899", time.Second)
	if p.Endpoint() != "http://127.0.0.1:8899" {
		t.Fatalf("Endpoint = %q", p.Endpoint())
	}

	var wg sync.WaitGroup
	clients := make([]*Client, 16)
	for i := range clients {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			clients[i] = p.Get()
		}(i)
	}
	wg.Wait()

	for i, c := range clients {
		if c == nil || c != clients[0] {
			t.Fatalf("client %d differs from first", i)
		}
	}
}
