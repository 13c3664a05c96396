package pool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/bits"
	"sort"
	"strconv"
	"strings"

	klog "github.com/Klingon-tech/clawshield/internal/log"
	"github.com/Klingon-tech/clawshield/internal/rpcclient"
	"github.com/Klingon-tech/clawshield/internal/shieldkey"
	"github.com/Klingon-tech/clawshield/pkg/tx"
	"github.com/Klingon-tech/clawshield/pkg/types"
	"golang.org/x/sync/errgroup"
)

const (
	outputPageSize   = 256
	nullifierBatch   = 64
	nullifierWorkers = 4

	// maxWithdrawInputs is the circuit's input count.
	maxWithdrawInputs = 2
)

// Client implements SDK against the pool relayer's JSON-RPC API.
type Client struct {
	relayer *rpcclient.Client
}

// NewClient creates a pool client talking to the given relayer.
func NewClient(relayer *rpcclient.Client) *Client {
	return &Client{relayer: relayer}
}

var _ SDK = (*Client)(nil)

// Utxos returns the unspent native-asset notes of the key holder.
func (c *Client) Utxos(ctx context.Context, p UtxoParams) ([]*Note, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	return c.unspent(ctx, &p.Session, types.PublicKey{})
}

// UtxosSPL returns the unspent notes of the token with the given mint.
func (c *Client) UtxosSPL(ctx context.Context, p UtxoParams) ([]*Note, error) {
	if p.Mint == nil {
		return nil, ErrMintRequired
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return c.unspent(ctx, &p.Session, *p.Mint)
}

// Deposit shields native lamports.
func (c *Client) Deposit(ctx context.Context, p DepositParams) (*DepositResult, error) {
	return c.deposit(ctx, p, types.PublicKey{})
}

// DepositSPL shields tokens of the given mint.
func (c *Client) DepositSPL(ctx context.Context, p DepositParams) (*DepositResult, error) {
	if p.Mint == nil {
		return nil, ErrMintRequired
	}
	return c.deposit(ctx, p, *p.Mint)
}

// Withdraw pays native lamports out of the pool.
func (c *Client) Withdraw(ctx context.Context, p WithdrawParams) (*WithdrawResult, error) {
	return c.withdraw(ctx, p, types.PublicKey{})
}

// WithdrawSPL pays tokens of the given mint out of the pool.
func (c *Client) WithdrawSPL(ctx context.Context, p WithdrawParams) (*WithdrawResult, error) {
	if p.Mint == nil {
		return nil, ErrMintRequired
	}
	return c.withdraw(ctx, p, *p.Mint)
}

func mintParam(mint types.PublicKey) string {
	if mint.IsZero() {
		return ""
	}
	return mint.String()
}

// cachePrefix namespaces scan state by key and asset.
func cachePrefix(s *Session, mint types.PublicKey) string {
	tag := "native"
	if !mint.IsZero() {
		tag = mint.String()
	}
	return "notes/" + s.Key.Fingerprint() + "/" + tag + "/"
}

func (c *Client) unspent(ctx context.Context, s *Session, mint types.PublicKey) ([]*Note, error) {
	notes, err := c.scan(ctx, s, mint)
	if err != nil {
		return nil, err
	}
	if len(notes) == 0 {
		return nil, nil
	}
	spent, err := c.checkNullifiers(ctx, notes)
	if err != nil {
		return nil, err
	}
	out := notes[:0]
	for i, n := range notes {
		if !spent[i] {
			out = append(out, n)
		}
	}
	klog.Pool.Debug().
		Str("key", s.Key.Fingerprint()).
		Str("mint", mintParam(mint)).
		Int("owned", len(notes)).
		Int("unspent", len(out)).
		Msg("Notes scanned")
	return out, nil
}

// scan pages through the pool outputs from the cached offset, keeps the
// ones this key can open, and returns every owned note found so far.
func (c *Client) scan(ctx context.Context, s *Session, mint types.PublicKey) ([]*Note, error) {
	prefix := cachePrefix(s, mint)
	offsetKey := prefix + "offset"
	notePrefix := prefix + "note/"

	var offset uint64
	if v, ok := s.Storage.GetItem(offsetKey); ok {
		parsed, err := strconv.ParseUint(v, 10, 64)
		if err == nil {
			offset = parsed
		}
	}

	for {
		var page GetOutputsResult
		params := GetOutputsParams{Mint: mintParam(mint), Offset: offset, Limit: outputPageSize}
		if err := c.relayer.Call(ctx, MethodGetOutputs, params, &page); err != nil {
			return nil, fmt.Errorf("fetch outputs at %d: %w", offset, err)
		}
		for _, out := range page.Outputs {
			n, err := openNote(s.Hasher, s.Key, out)
			if errors.Is(err, shieldkey.ErrDecrypt) {
				continue
			}
			if err != nil {
				klog.Pool.Warn().Err(err).Uint64("index", out.Index).Msg("Skipping malformed note")
				continue
			}
			if n.Mint != mint {
				continue
			}
			data, err := json.Marshal(n)
			if err != nil {
				return nil, fmt.Errorf("encode note: %w", err)
			}
			s.Storage.SetItem(fmt.Sprintf("%s%020d", notePrefix, n.Index), string(data))
		}
		offset += uint64(len(page.Outputs))
		s.Storage.SetItem(offsetKey, strconv.FormatUint(offset, 10))
		if len(page.Outputs) < outputPageSize || offset >= page.Total {
			break
		}
	}

	var notes []*Note
	for _, k := range s.Storage.Keys() {
		if !strings.HasPrefix(k, notePrefix) {
			continue
		}
		v, _ := s.Storage.GetItem(k)
		var n Note
		if err := json.Unmarshal([]byte(v), &n); err != nil {
			return nil, fmt.Errorf("decode cached note %s: %w", k, err)
		}
		notes = append(notes, &n)
	}
	return notes, nil
}

// checkNullifiers returns a spent flag per note. Batches are queried
// concurrently.
func (c *Client) checkNullifiers(ctx context.Context, notes []*Note) ([]bool, error) {
	spent := make([]bool, len(notes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(nullifierWorkers)
	for start := 0; start < len(notes); start += nullifierBatch {
		start := start
		end := min(start+nullifierBatch, len(notes))
		g.Go(func() error {
			req := CheckNullifiersParams{Nullifiers: make([]types.Hash, 0, end-start)}
			for _, n := range notes[start:end] {
				req.Nullifiers = append(req.Nullifiers, n.Nullifier)
			}
			var res CheckNullifiersResult
			if err := c.relayer.Call(gctx, MethodCheckNullifiers, req, &res); err != nil {
				return fmt.Errorf("check nullifiers: %w", err)
			}
			if len(res.Spent) != end-start {
				return fmt.Errorf("check nullifiers: %d flags for %d nullifiers", len(res.Spent), end-start)
			}
			copy(spent[start:end], res.Spent)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return spent, nil
}

func (c *Client) deposit(ctx context.Context, p DepositParams, mint types.PublicKey) (*DepositResult, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	if p.BaseUnits == 0 {
		return nil, ErrZeroAmount
	}
	if p.Signer == nil {
		return nil, ErrNoSigner
	}

	note, err := newNote(p.Hasher, p.Key, p.BaseUnits, mint)
	if err != nil {
		return nil, err
	}
	ct, err := note.encrypt(p.Key)
	if err != nil {
		return nil, fmt.Errorf("encrypt note: %w", err)
	}

	var built TransactionResult
	req := BuildDepositParams{
		Owner:      p.Owner,
		Mint:       mintParam(mint),
		Amount:     p.BaseUnits,
		Circuit:    p.Hasher.Circuit(),
		Commitment: note.Commitment,
		Ciphertext: ct,
	}
	if err := c.relayer.Call(ctx, MethodBuildDeposit, req, &built); err != nil {
		return nil, fmt.Errorf("build deposit: %w", err)
	}
	unsigned, err := tx.UnmarshalBase64(built.Transaction)
	if err != nil {
		return nil, fmt.Errorf("decode deposit transaction: %w", err)
	}

	signed, err := p.Signer(ctx, unsigned)
	if err != nil {
		return nil, fmt.Errorf("sign deposit: %w", err)
	}
	if signed == nil {
		return nil, errors.New("sign deposit: signer returned no transaction")
	}
	enc, err := signed.Base64()
	if err != nil {
		return nil, fmt.Errorf("encode signed deposit: %w", err)
	}

	var res SignatureResult
	if err := c.relayer.Call(ctx, MethodRelayDeposit, RelayDepositParams{Transaction: enc}, &res); err != nil {
		return nil, fmt.Errorf("relay deposit: %w", err)
	}
	klog.Pool.Info().
		Str("key", p.Key.Fingerprint()).
		Str("mint", mintParam(mint)).
		Uint64("amount", p.BaseUnits).
		Str("signature", res.Signature.String()).
		Msg("Deposit relayed")
	return &DepositResult{Signature: res.Signature}, nil
}

func (c *Client) withdraw(ctx context.Context, p WithdrawParams, mint types.PublicKey) (*WithdrawResult, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	if p.BaseUnits == 0 {
		return nil, ErrZeroAmount
	}
	if p.Recipient.IsZero() {
		return nil, errors.New("recipient required")
	}

	var cfg GetConfigResult
	if err := c.relayer.Call(ctx, MethodGetConfig, GetConfigParams{Mint: mintParam(mint)}, &cfg); err != nil {
		return nil, fmt.Errorf("fetch relayer config: %w", err)
	}
	if cfg.Circuit != p.Hasher.Circuit() {
		return nil, fmt.Errorf("%w: relayer %q, local %q", ErrCircuitMismatch, cfg.Circuit, p.Hasher.Circuit())
	}

	notes, err := c.unspent(ctx, &p.Session, mint)
	if err != nil {
		return nil, err
	}
	if len(notes) == 0 {
		return nil, ErrNoFunds
	}
	inputs := selectInputs(notes, maxWithdrawInputs)
	total := BalanceOf(inputs)

	amount, partial := p.BaseUnits, false
	if total < amount {
		amount, partial = total, true
	}
	fee := withdrawFee(amount, cfg.FeeRateBps, cfg.RentFee)
	if amount <= fee {
		return nil, fmt.Errorf("%w: amount %d, fee %d", ErrAmountBelowFee, amount, fee)
	}

	req := WithdrawRequest{
		Mint:      mintParam(mint),
		Circuit:   p.Hasher.Circuit(),
		Recipient: p.Recipient,
		Amount:    amount,
		Fee:       fee,
	}
	for _, n := range inputs {
		req.Inputs = append(req.Inputs, n.Commitment)
		req.Nullifiers = append(req.Nullifiers, n.Nullifier)
	}
	if change := total - amount; change > 0 {
		note, err := newNote(p.Hasher, p.Key, change, mint)
		if err != nil {
			return nil, err
		}
		ct, err := note.encrypt(p.Key)
		if err != nil {
			return nil, fmt.Errorf("encrypt change: %w", err)
		}
		req.Change = &ChangeOutput{Commitment: note.Commitment, Ciphertext: ct}
	}

	var res SignatureResult
	if err := c.relayer.Call(ctx, MethodWithdraw, req, &res); err != nil {
		return nil, fmt.Errorf("relay withdraw: %w", err)
	}
	klog.Pool.Info().
		Str("key", p.Key.Fingerprint()).
		Str("mint", mintParam(mint)).
		Uint64("amount", amount).
		Uint64("fee", fee).
		Bool("partial", partial).
		Str("signature", res.Signature.String()).
		Msg("Withdraw relayed")

	return &WithdrawResult{
		Signature: res.Signature,
		IsPartial: partial,
		Amount:    amount,
		Fee:       fee,
	}, nil
}

// selectInputs picks up to n notes, largest first.
func selectInputs(notes []*Note, n int) []*Note {
	sorted := make([]*Note, len(notes))
	copy(sorted, notes)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Amount > sorted[j].Amount
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// withdrawFee is ceil(amount*rateBps/10000) + rent, saturating on overflow.
func withdrawFee(amount, rateBps, rent uint64) uint64 {
	hi, lo := bits.Mul64(amount, rateBps)
	if hi >= 10000 {
		return math.MaxUint64
	}
	q, r := bits.Div64(hi, lo, 10000)
	if r != 0 {
		q++
	}
	fee, carry := bits.Add64(q, rent, 0)
	if carry != 0 {
		return math.MaxUint64
	}
	return fee
}
