package rpcclient

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Klingon-tech/clawshield/pkg/types"
)

// Commitment levels understood by Solana nodes.
const (
	CommitmentProcessed = "processed"
	CommitmentConfirmed = "confirmed"
	CommitmentFinalized = "finalized"
)

// Version is the result of getVersion.
type Version struct {
	SolanaCore string `json:"solana-core"`
	FeatureSet uint32 `json:"feature-set"`
}

// GetVersion returns the node software version.
func (c *Client) GetVersion(ctx context.Context) (*Version, error) {
	var v Version
	if err := c.Call(ctx, "getVersion", nil, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

type commitmentConfig struct {
	Commitment string `json:"commitment,omitempty"`
}

// Context is the slot a response was evaluated at.
type Context struct {
	Slot uint64 `json:"slot"`
}

// LatestBlockhash is the result of getLatestBlockhash.
type LatestBlockhash struct {
	Blockhash            types.Hash `json:"blockhash"`
	LastValidBlockHeight uint64     `json:"lastValidBlockHeight"`
}

// GetLatestBlockhash returns the newest blockhash at the given commitment.
func (c *Client) GetLatestBlockhash(ctx context.Context, commitment string) (*LatestBlockhash, error) {
	var resp struct {
		Context Context         `json:"context"`
		Value   LatestBlockhash `json:"value"`
	}
	params := []interface{}{commitmentConfig{Commitment: commitment}}
	if err := c.Call(ctx, "getLatestBlockhash", params, &resp); err != nil {
		return nil, err
	}
	return &resp.Value, nil
}

// SendOptions configures sendTransaction.
type SendOptions struct {
	Encoding            string `json:"encoding"`
	SkipPreflight       bool   `json:"skipPreflight"`
	PreflightCommitment string `json:"preflightCommitment,omitempty"`
	MaxRetries          *uint  `json:"maxRetries,omitempty"`
}

// SendTransaction broadcasts a base64 wire transaction and returns its
// signature. Preflight simulation runs unless opts disables it.
func (c *Client) SendTransaction(ctx context.Context, txBase64 string, opts SendOptions) (types.Signature, error) {
	opts.Encoding = "base64"
	var sig types.Signature
	if err := c.Call(ctx, "sendTransaction", []interface{}{txBase64, opts}, &sig); err != nil {
		return types.Signature{}, err
	}
	return sig, nil
}

// SignatureStatus is one entry of getSignatureStatuses. Err is non-empty
// when the transaction failed on chain.
type SignatureStatus struct {
	Slot               uint64          `json:"slot"`
	Confirmations      *uint64         `json:"confirmations"`
	Err                json.RawMessage `json:"err"`
	ConfirmationStatus string          `json:"confirmationStatus"`
}

// Failed reports whether the status carries an execution error.
func (s *SignatureStatus) Failed() bool {
	return len(s.Err) > 0 && string(s.Err) != "null"
}

// Confirmed reports whether the transaction reached at least confirmed
// commitment.
func (s *SignatureStatus) Confirmed() bool {
	return s.ConfirmationStatus == CommitmentConfirmed || s.ConfirmationStatus == CommitmentFinalized
}

// GetSignatureStatuses returns the status of each signature. Unknown
// signatures yield nil entries.
func (c *Client) GetSignatureStatuses(ctx context.Context, sigs ...types.Signature) ([]*SignatureStatus, error) {
	var resp struct {
		Context Context            `json:"context"`
		Value   []*SignatureStatus `json:"value"`
	}
	params := []interface{}{sigs, map[string]bool{"searchTransactionHistory": false}}
	if err := c.Call(ctx, "getSignatureStatuses", params, &resp); err != nil {
		return nil, err
	}
	if len(resp.Value) != len(sigs) {
		return nil, fmt.Errorf("getSignatureStatuses: %d statuses for %d signatures", len(resp.Value), len(sigs))
	}
	return resp.Value, nil
}

// GetBlockHeight returns the current block height at the given commitment.
func (c *Client) GetBlockHeight(ctx context.Context, commitment string) (uint64, error) {
	var height uint64
	params := []interface{}{commitmentConfig{Commitment: commitment}}
	if err := c.Call(ctx, "getBlockHeight", params, &height); err != nil {
		return 0, err
	}
	return height, nil
}
