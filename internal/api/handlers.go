package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Klingon-tech/clawshield/internal/asset"
	"github.com/Klingon-tech/clawshield/internal/shield"
	"github.com/Klingon-tech/clawshield/internal/shieldkey"
	"github.com/Klingon-tech/clawshield/pkg/types"
)

// errBadRequest marks request decoding failures.
var errBadRequest = errors.New("bad request")

// ── Request / response types ────────────────────────────────────────────

// BalanceRequest is the body of POST /balance.
type BalanceRequest struct {
	Pubkey    string `json:"pubkey"`
	Signature string `json:"signature"`
	Token     string `json:"token,omitempty"`
}

// BalanceResponse is the reply to POST /balance.
type BalanceResponse struct {
	Balance     float64 `json:"balance"`
	Token       string  `json:"token"`
	LastUpdated int64   `json:"lastUpdated"`
}

// ShieldRequest is the body of POST /shield.
type ShieldRequest struct {
	Pubkey    string   `json:"pubkey"`
	Amount    *float64 `json:"amount"`
	Signature string   `json:"signature"`
	Token     string   `json:"token,omitempty"`
}

// ShieldResponse carries the unsigned deposit transaction.
type ShieldResponse struct {
	UnsignedTx string  `json:"unsignedTx"`
	Token      string  `json:"token"`
	Amount     float64 `json:"amount"`
	BaseUnits  uint64  `json:"baseUnits"`
}

// WithdrawRequest is the body of POST /withdraw.
type WithdrawRequest struct {
	Pubkey    string   `json:"pubkey"`
	Amount    *float64 `json:"amount"`
	Recipient string   `json:"recipient"`
	Signature string   `json:"signature"`
	Token     string   `json:"token,omitempty"`
}

// WithdrawResponse is the reply to POST /withdraw. Exactly one of the fee
// fields is set: lamports for SOL, base units for tokens.
type WithdrawResponse struct {
	Tx           string  `json:"tx"`
	IsPartial    bool    `json:"isPartial"`
	Token        string  `json:"token"`
	Amount       float64 `json:"amount"`
	Recipient    string  `json:"recipient"`
	FeeLamports  *uint64 `json:"fee_in_lamports,omitempty"`
	FeeBaseUnits *uint64 `json:"fee_base_units,omitempty"`
}

// SubmitRequest is the body of POST /submit.
type SubmitRequest struct {
	SignedTx string `json:"signedTx"`
}

// SubmitResponse is the reply to POST /submit.
type SubmitResponse struct {
	TxHash string `json:"txHash"`
	Status string `json:"status"`
	Slot   uint64 `json:"slot"`
}

// StatusResponse is the reply to /status.
type StatusResponse struct {
	Healthy         bool   `json:"healthy"`
	Network         string `json:"network,omitempty"`
	SolanaVersion   string `json:"solanaVersion,omitempty"`
	ProtocolVersion string `json:"protocolVersion,omitempty"`
	Timestamp       int64  `json:"timestamp,omitempty"`
	Error           string `json:"error,omitempty"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ── Handlers ────────────────────────────────────────────────────────────

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	var req BalanceRequest
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if req.Pubkey == "" || req.Signature == "" {
		writeError(w, http.StatusBadRequest, "Missing required fields: pubkey, signature")
		return
	}

	owner, a, key, err := resolveCaller(req.Pubkey, req.Token, req.Signature)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	defer key.Zero()

	balance, err := s.gw.Balance(r.Context(), owner, a, key)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceResponse{
		Balance:     balance,
		Token:       a.Symbol,
		LastUpdated: time.Now().UnixMilli(),
	})
}

func (s *Server) handleShield(w http.ResponseWriter, r *http.Request) {
	var req ShieldRequest
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if req.Pubkey == "" || req.Amount == nil || *req.Amount <= 0 {
		writeError(w, http.StatusBadRequest, "Missing required fields: pubkey, amount")
		return
	}
	if req.Signature == "" {
		writeError(w, http.StatusBadRequest, "Missing signature for encryption key derivation")
		return
	}

	owner, a, key, err := resolveCaller(req.Pubkey, req.Token, req.Signature)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	defer key.Zero()

	built, err := s.gw.BuildShield(r.Context(), owner, a, *req.Amount, key)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ShieldResponse{
		UnsignedTx: built.Serialized,
		Token:      built.Asset,
		Amount:     built.Amount,
		BaseUnits:  built.BaseUnits,
	})
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	var req WithdrawRequest
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if req.Pubkey == "" || req.Amount == nil || *req.Amount <= 0 || req.Recipient == "" {
		writeError(w, http.StatusBadRequest, "Missing required fields: pubkey, amount, recipient")
		return
	}
	if req.Signature == "" {
		writeError(w, http.StatusBadRequest, "Missing signature for encryption key derivation")
		return
	}

	owner, a, key, err := resolveCaller(req.Pubkey, req.Token, req.Signature)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	defer key.Zero()

	res, err := s.gw.Withdraw(r.Context(), owner, req.Recipient, a, *req.Amount, key)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	resp := WithdrawResponse{
		Tx:        res.TxHash,
		IsPartial: res.IsPartial,
		Token:     a.Symbol,
		Amount:    res.Amount,
		Recipient: res.Recipient,
	}
	fee := res.Fee
	if a.IsNative() {
		resp.FeeLamports = &fee
	} else {
		resp.FeeBaseUnits = &fee
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if req.SignedTx == "" {
		writeError(w, http.StatusBadRequest, "Missing required field: signedTx")
		return
	}

	res, err := s.gw.Submit(r.Context(), req.SignedTx)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SubmitResponse{
		TxHash: res.TxHash,
		Status: res.Status,
		Slot:   res.Slot,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	h := s.gw.Health(r.Context())
	if !h.Healthy {
		s.logger.Warn().Err(h.Err).Msg("Health check failed")
		writeJSON(w, http.StatusServiceUnavailable, StatusResponse{
			Healthy: false,
			Error:   "Failed to connect to Solana",
		})
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{
		Healthy:         true,
		Network:         h.Network,
		SolanaVersion:   h.SolanaVersion,
		ProtocolVersion: h.ProtocolVersion,
		Timestamp:       time.Now().UnixMilli(),
	})
}

// ── Helpers ─────────────────────────────────────────────────────────────

// resolveCaller parses the fields every keyed endpoint shares. The
// returned key must be zeroed by the caller.
func resolveCaller(pubkey, token, signature string) (types.PublicKey, *asset.Config, *shieldkey.Key, error) {
	owner, err := types.ParsePublicKey(strings.TrimSpace(pubkey))
	if err != nil {
		return types.PublicKey{}, nil, nil, fmt.Errorf("%w: invalid pubkey: %w", shield.ErrValidation, err)
	}
	if token == "" {
		token = asset.NativeSymbol
	}
	a, err := asset.Resolve(token)
	if err != nil {
		return types.PublicKey{}, nil, nil, err
	}
	key, err := shieldkey.Derive(signature)
	if err != nil {
		return types.PublicKey{}, nil, nil, err
	}
	return owner, a, key, nil
}

// decodeBody reads a JSON request body into v.
func decodeBody(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("%w: request body too large", errBadRequest)
		}
		return fmt.Errorf("%w: invalid JSON body: %v", errBadRequest, err)
	}
	return nil
}

// statusFor maps an operation error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, shield.ErrValidation),
		errors.Is(err, shieldkey.ErrInvalidSignatureFormat):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err with its mapped status and logs server-side failures.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		ev := s.logger.Error().Err(err).Str("path", r.URL.Path)
		var sdkErr *shield.SDKError
		if errors.As(err, &sdkErr) {
			ev = ev.Str("detail", sdkErr.Err.Error())
		}
		ev.Msg("Request failed")
	}
	writeError(w, status, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
