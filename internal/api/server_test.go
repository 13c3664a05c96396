package api

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	klog "github.com/Klingon-tech/clawshield/internal/log"
	"github.com/Klingon-tech/clawshield/internal/pool"
	"github.com/Klingon-tech/clawshield/internal/rpc"
	"github.com/Klingon-tech/clawshield/internal/rpcclient"
	"github.com/Klingon-tech/clawshield/internal/shield"
	"github.com/Klingon-tech/clawshield/internal/shieldkey"
	"github.com/Klingon-tech/clawshield/internal/simnet"
	"github.com/Klingon-tech/clawshield/pkg/crypto"
	"github.com/Klingon-tech/clawshield/pkg/tx"
)

type testEnv struct {
	net    *simnet.Network
	server *Server
	wallet *crypto.PrivateKey
	pubkey string
	sigHex string
}

// startServer serves gw on a loopback listener.
func startServer(t *testing.T, gw Gateway, opts Options) *Server {
	t.Helper()
	s := New("127.0.0.1:0", gw, opts)
	if err := s.Start(); err != nil {
		t.Fatalf("start api: %v", err)
	}
	t.Cleanup(func() { s.Stop() })
	return s
}

func newWallet(t *testing.T) (*crypto.PrivateKey, string) {
	t.Helper()
	w, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	sig, err := w.Sign([]byte(shieldkey.BalanceMessage))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return w, hex.EncodeToString(sig[:])
}

// setupTestEnv runs the full stack: simnet, pool client, shield service
// and the HTTP server.
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	klog.Init("error", false, "")

	n, err := simnet.New(simnet.DefaultConfig())
	if err != nil {
		t.Fatalf("simnet: %v", err)
	}
	if err := n.Start(); err != nil {
		t.Fatalf("simnet start: %v", err)
	}
	t.Cleanup(func() { n.Stop() })

	cfg := shield.DefaultConfig()
	cfg.PollInterval = time.Millisecond
	svc := shield.New(
		pool.NewClient(rpcclient.New(n.RelayerURL())),
		pool.NewHasherProvider(cfg.CircuitPath),
		rpcclient.NewProvider(n.SolanaURL(), 5*time.Second),
		cfg,
	)

	w, sigHex := newWallet(t)
	return &testEnv{
		net:    n,
		server: startServer(t, svc, Options{}),
		wallet: w,
		pubkey: w.PublicKey().String(),
		sigHex: sigHex,
	}
}

// call sends a JSON request and decodes the JSON reply into a map.
func call(t *testing.T, s *Server, method, path string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			rd = strings.NewReader(b)
		default:
			data, err := json.Marshal(body)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			rd = bytes.NewReader(data)
		}
	}
	req, err := http.NewRequest(method, s.URL()+path, rd)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var out map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil && err != io.EOF {
		t.Fatalf("decode %s reply: %v", path, err)
	}
	return resp.StatusCode, out
}

func post(t *testing.T, s *Server, path string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	return call(t, s, http.MethodPost, path, body)
}

// signAndEncode signs a base64 transaction with w.
func signAndEncode(t *testing.T, unsigned string, w *crypto.PrivateKey) string {
	t.Helper()
	trx, err := tx.UnmarshalBase64(unsigned)
	if err != nil {
		t.Fatalf("decode unsigned: %v", err)
	}
	if err := trx.Sign(w); err != nil {
		t.Fatalf("sign: %v", err)
	}
	enc, err := trx.Base64()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return enc
}

// shieldAndSubmit deposits amount of token and waits for confirmation.
func (e *testEnv) shieldAndSubmit(t *testing.T, token string, amount float64) {
	t.Helper()
	code, body := post(t, e.server, "/shield", map[string]interface{}{
		"pubkey": e.pubkey, "amount": amount, "token": token, "signature": e.sigHex,
	})
	if code != http.StatusOK {
		t.Fatalf("/shield = %d %v", code, body)
	}
	signed := signAndEncode(t, body["unsignedTx"].(string), e.wallet)
	code, body = post(t, e.server, "/submit", map[string]string{"signedTx": signed})
	if code != http.StatusOK {
		t.Fatalf("/submit = %d %v", code, body)
	}
}

// ── Balance ─────────────────────────────────────────────────────────────

func TestBalance_NoDeposits(t *testing.T) {
	env := setupTestEnv(t)

	code, body := post(t, env.server, "/balance", map[string]string{
		"pubkey": env.pubkey, "signature": env.sigHex,
	})
	if code != http.StatusOK {
		t.Fatalf("status = %d, body %v", code, body)
	}
	if body["balance"] != 0.0 || body["token"] != "SOL" {
		t.Fatalf("body = %v", body)
	}
	if ts, _ := body["lastUpdated"].(float64); ts <= 0 {
		t.Fatalf("lastUpdated = %v", body["lastUpdated"])
	}
}

func TestBalance_TokenCaseInsensitive(t *testing.T) {
	env := setupTestEnv(t)
	env.shieldAndSubmit(t, "SOL", 0.25)

	for _, token := range []string{"SOL", "sol", "Sol"} {
		code, body := post(t, env.server, "/balance", map[string]string{
			"pubkey": env.pubkey, "signature": env.sigHex, "token": token,
		})
		if code != http.StatusOK {
			t.Fatalf("token %q: status %d %v", token, code, body)
		}
		if body["balance"] != 0.25 || body["token"] != "SOL" {
			t.Fatalf("token %q: body %v", token, body)
		}
	}
}

func TestBalance_Validation(t *testing.T) {
	env := setupTestEnv(t)

	tests := []struct {
		name string
		body interface{}
		code int
	}{
		{"missing pubkey", map[string]string{"signature": env.sigHex}, http.StatusBadRequest},
		{"missing signature", map[string]string{"pubkey": env.pubkey}, http.StatusBadRequest},
		{"invalid pubkey", map[string]string{"pubkey": "not-a-key", "signature": env.sigHex}, http.StatusBadRequest},
		{"signature not hex", map[string]string{"pubkey": env.pubkey, "signature": "zz"}, http.StatusBadRequest},
		{"signature wrong length", map[string]string{"pubkey": env.pubkey, "signature": "abcd"}, http.StatusBadRequest},
		{"invalid JSON", `{"pubkey":`, http.StatusBadRequest},
		{"unsupported token", map[string]string{"pubkey": env.pubkey, "signature": env.sigHex, "token": "DOGE"}, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := post(t, env.server, "/balance", tt.body)
			if code != tt.code {
				t.Fatalf("status = %d, want %d (%v)", code, tt.code, body)
			}
			if msg, _ := body["error"].(string); msg == "" {
				t.Fatalf("missing error message: %v", body)
			}
		})
	}
}

// ── Shield / Submit ─────────────────────────────────────────────────────

func TestShieldSubmit_EndToEnd(t *testing.T) {
	env := setupTestEnv(t)

	code, body := post(t, env.server, "/shield", map[string]interface{}{
		"pubkey": env.pubkey, "amount": 1.5, "token": "SOL", "signature": env.sigHex,
	})
	if code != http.StatusOK {
		t.Fatalf("/shield = %d %v", code, body)
	}
	if body["baseUnits"] != 1.5e9 || body["token"] != "SOL" || body["amount"] != 1.5 {
		t.Fatalf("/shield body = %v", body)
	}
	unsigned, _ := body["unsignedTx"].(string)
	if unsigned == "" {
		t.Fatal("empty unsignedTx")
	}

	// The returned bytes are not a valid signed transaction.
	trx, err := tx.UnmarshalBase64(unsigned)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if err := trx.VerifySignatures(); err == nil {
		t.Fatal("unsigned transaction verified")
	}
	code, body = post(t, env.server, "/submit", map[string]string{"signedTx": unsigned})
	if code != http.StatusInternalServerError {
		t.Fatalf("unsigned /submit = %d %v, want 500", code, body)
	}

	code, body = post(t, env.server, "/submit", map[string]string{"signedTx": signAndEncode(t, unsigned, env.wallet)})
	if code != http.StatusOK {
		t.Fatalf("/submit = %d %v", code, body)
	}
	if body["status"] != "confirmed" || body["txHash"] == "" {
		t.Fatalf("/submit body = %v", body)
	}
	if slot, _ := body["slot"].(float64); slot <= 0 {
		t.Fatalf("slot = %v", body["slot"])
	}

	code, body = post(t, env.server, "/api/balance", map[string]string{
		"pubkey": env.pubkey, "signature": env.sigHex,
	})
	if code != http.StatusOK || body["balance"] != 1.5 {
		t.Fatalf("/api/balance = %d %v", code, body)
	}
}

func TestShield_Token(t *testing.T) {
	env := setupTestEnv(t)
	env.shieldAndSubmit(t, "usdc", 12.5)

	code, body := post(t, env.server, "/balance", map[string]string{
		"pubkey": env.pubkey, "signature": env.sigHex, "token": "USDC",
	})
	if code != http.StatusOK || body["balance"] != 12.5 || body["token"] != "USDC" {
		t.Fatalf("/balance USDC = %d %v", code, body)
	}
	code, body = post(t, env.server, "/balance", map[string]string{
		"pubkey": env.pubkey, "signature": env.sigHex, "token": "USDT",
	})
	if code != http.StatusOK || body["balance"] != 0.0 {
		t.Fatalf("/balance USDT = %d %v", code, body)
	}
}

func TestShield_Validation(t *testing.T) {
	env := setupTestEnv(t)

	tests := []struct {
		name string
		body map[string]interface{}
		code int
	}{
		{"missing amount", map[string]interface{}{"pubkey": env.pubkey, "signature": env.sigHex}, http.StatusBadRequest},
		{"zero amount", map[string]interface{}{"pubkey": env.pubkey, "amount": 0, "signature": env.sigHex}, http.StatusBadRequest},
		{"negative amount", map[string]interface{}{"pubkey": env.pubkey, "amount": -1, "signature": env.sigHex}, http.StatusBadRequest},
		{"below one unit", map[string]interface{}{"pubkey": env.pubkey, "amount": 1e-12, "signature": env.sigHex}, http.StatusBadRequest},
		{"missing signature", map[string]interface{}{"pubkey": env.pubkey, "amount": 1}, http.StatusBadRequest},
		{"missing pubkey", map[string]interface{}{"amount": 1, "signature": env.sigHex}, http.StatusBadRequest},
		{"string amount", map[string]interface{}{"pubkey": env.pubkey, "amount": "1", "signature": env.sigHex}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := post(t, env.server, "/shield", tt.body)
			if code != tt.code {
				t.Fatalf("status = %d, want %d (%v)", code, tt.code, body)
			}
		})
	}
	if n := env.net.Ledger().OutputCount(""); n != 0 {
		t.Fatalf("ledger has %d outputs", n)
	}
}

func TestShield_RelayerErrorPassthrough(t *testing.T) {
	klog.Init("error", false, "")

	relayer := rpc.New("127.0.0.1:0", rpc.Options{})
	relayer.Handle(pool.MethodBuildDeposit, func(json.RawMessage) (interface{}, *rpc.Error) {
		return nil, &rpc.Error{Code: -32000, Message: "Insufficient balance"}
	})
	if err := relayer.Start(); err != nil {
		t.Fatalf("relayer start: %v", err)
	}
	t.Cleanup(func() { relayer.Stop() })

	cfg := shield.DefaultConfig()
	svc := shield.New(
		pool.NewClient(rpcclient.New(relayer.URL())),
		pool.NewHasherProvider(cfg.CircuitPath),
		rpcclient.NewProvider("http://127.0.0.1:1", time.Second),
		cfg,
	)
	s := startServer(t, svc, Options{})
	w, sigHex := newWallet(t)

	code, body := post(t, s, "/shield", map[string]interface{}{
		"pubkey": w.PublicKey().String(), "amount": 1, "signature": sigHex,
	})
	if code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500 (%v)", code, body)
	}
	if body["error"] != "Insufficient balance" {
		t.Fatalf("error = %q, want relayer message unchanged", body["error"])
	}
}

func TestSubmit_Validation(t *testing.T) {
	env := setupTestEnv(t)

	code, _ := post(t, env.server, "/submit", map[string]string{})
	if code != http.StatusBadRequest {
		t.Fatalf("missing signedTx = %d, want 400", code)
	}
	code, _ = post(t, env.server, "/submit", map[string]string{"signedTx": "%%%"})
	if code != http.StatusBadRequest {
		t.Fatalf("malformed signedTx = %d, want 400", code)
	}
}

// ── Withdraw ────────────────────────────────────────────────────────────

func TestWithdraw_EndToEnd(t *testing.T) {
	env := setupTestEnv(t)
	env.shieldAndSubmit(t, "SOL", 2)

	recipient, _ := crypto.GenerateKey()
	code, body := post(t, env.server, "/withdraw", map[string]interface{}{
		"pubkey": env.pubkey, "amount": 0.5, "recipient": recipient.PublicKey().String(), "signature": env.sigHex,
	})
	if code != http.StatusOK {
		t.Fatalf("/withdraw = %d %v", code, body)
	}
	if body["isPartial"] != false || body["token"] != "SOL" || body["amount"] != 0.5 {
		t.Fatalf("body = %v", body)
	}
	if body["recipient"] != recipient.PublicKey().String() || body["tx"] == "" {
		t.Fatalf("body = %v", body)
	}
	if body["fee_in_lamports"] != 2.75e6 {
		t.Fatalf("fee_in_lamports = %v, want 2750000", body["fee_in_lamports"])
	}
	if _, ok := body["fee_base_units"]; ok {
		t.Fatal("SOL withdraw reported fee_base_units")
	}
	if got := env.net.Ledger().Paid(recipient.PublicKey(), ""); got != 500_000_000-2_750_000 {
		t.Fatalf("paid = %d", got)
	}
}

func TestWithdraw_TokenFeeField(t *testing.T) {
	env := setupTestEnv(t)
	env.shieldAndSubmit(t, "USDC", 10)

	recipient, _ := crypto.GenerateKey()
	code, body := post(t, env.server, "/withdraw", map[string]interface{}{
		"pubkey": env.pubkey, "amount": 5, "token": "usdc", "recipient": recipient.PublicKey().String(), "signature": env.sigHex,
	})
	if code != http.StatusOK {
		t.Fatalf("/withdraw = %d %v", code, body)
	}
	// 35 bps of 5 USDC plus the token rent fee.
	if body["fee_base_units"] != 117500.0 || body["token"] != "USDC" {
		t.Fatalf("body = %v", body)
	}
	if _, ok := body["fee_in_lamports"]; ok {
		t.Fatal("token withdraw reported fee_in_lamports")
	}
}

func TestWithdraw_Partial(t *testing.T) {
	env := setupTestEnv(t)
	env.shieldAndSubmit(t, "SOL", 0.3)

	code, body := post(t, env.server, "/withdraw", map[string]interface{}{
		"pubkey": env.pubkey, "amount": 1, "recipient": env.pubkey, "signature": env.sigHex,
	})
	if code != http.StatusOK || body["isPartial"] != true {
		t.Fatalf("/withdraw = %d %v", code, body)
	}
}

func TestWithdraw_NoFunds(t *testing.T) {
	env := setupTestEnv(t)
	code, body := post(t, env.server, "/withdraw", map[string]interface{}{
		"pubkey": env.pubkey, "amount": 1, "recipient": env.pubkey, "signature": env.sigHex,
	})
	if code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", code)
	}
	if msg, _ := body["error"].(string); !strings.Contains(msg, pool.ErrNoFunds.Error()) {
		t.Fatalf("error = %q", msg)
	}
}

// ── Status ──────────────────────────────────────────────────────────────

func TestStatus_Healthy(t *testing.T) {
	env := setupTestEnv(t)

	code, body := call(t, env.server, http.MethodGet, "/status", nil)
	if code != http.StatusOK {
		t.Fatalf("status = %d %v", code, body)
	}
	if body["healthy"] != true || body["network"] != "mainnet-beta" || body["protocolVersion"] != shield.ProtocolVersion {
		t.Fatalf("body = %v", body)
	}
	if body["solanaVersion"] != simnet.DefaultConfig().Version {
		t.Fatalf("solanaVersion = %v", body["solanaVersion"])
	}
	if ts, _ := body["timestamp"].(float64); ts <= 0 {
		t.Fatalf("timestamp = %v", body["timestamp"])
	}
}

func TestStatus_Unreachable(t *testing.T) {
	klog.Init("error", false, "")
	svc := shield.New(&panicSDK{t: t}, pool.NewHasherProvider("public/circuit2"),
		rpcclient.NewProvider("http://127.0.0.1:1", time.Second), shield.DefaultConfig())
	s := startServer(t, svc, Options{})

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		code, body := call(t, s, method, "/status", nil)
		if code != http.StatusServiceUnavailable {
			t.Fatalf("%s /status = %d, want 503", method, code)
		}
		if body["healthy"] != false || body["error"] == "" {
			t.Fatalf("body = %v", body)
		}
	}
}
