// Package asset holds the fixed table of shieldable assets and the
// conversion between human amounts and base units.
package asset

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/Klingon-tech/clawshield/pkg/types"
)

// Errors.
var (
	ErrUnsupportedAsset = errors.New("unsupported token")
	ErrInvalidAmount    = errors.New("amount must be a positive number")
	ErrAmountTooSmall   = errors.New("amount is below one base unit")
	ErrAmountOverflow   = errors.New("amount exceeds maximum base units")
)

// NativeSymbol is the symbol of the chain's native asset.
const NativeSymbol = "SOL"

// Config describes one supported asset.
type Config struct {
	Symbol        string
	Name          string
	Mint          *types.PublicKey // nil for the native asset.
	Decimals      uint8
	UnitsPerToken uint64
}

// IsNative reports whether the asset is the native asset (no mint).
func (c *Config) IsNative() bool {
	return c.Mint == nil
}

// ToBaseUnits converts a human-readable amount to base units as
// round(amount * UnitsPerToken). Non-positive, non-finite and
// sub-unit amounts are rejected.
func (c *Config) ToBaseUnits(amount float64) (uint64, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return 0, fmt.Errorf("%w: %v", ErrInvalidAmount, amount)
	}
	units := math.Round(amount * float64(c.UnitsPerToken))
	if units < 1 {
		return 0, fmt.Errorf("%w: %v %s", ErrAmountTooSmall, amount, c.Symbol)
	}
	// float64(MaxUint64) rounds up to 2^64, so >= catches the overflow.
	if units >= float64(math.MaxUint64) {
		return 0, fmt.Errorf("%w: %v %s", ErrAmountOverflow, amount, c.Symbol)
	}
	return uint64(units), nil
}

// FromBaseUnits converts base units to a human-readable amount.
func (c *Config) FromBaseUnits(units uint64) float64 {
	return float64(units) / float64(c.UnitsPerToken)
}

// FormatBaseUnits renders base units as an exact decimal string.
func (c *Config) FormatBaseUnits(units uint64) string {
	whole := units / c.UnitsPerToken
	frac := units % c.UnitsPerToken
	if frac == 0 {
		return fmt.Sprintf("%d", whole)
	}
	s := fmt.Sprintf("%d.%0*d", whole, int(c.Decimals), frac)
	return strings.TrimRight(s, "0")
}

func mint(s string) *types.PublicKey {
	pk := types.MustParsePublicKey(s)
	return &pk
}

// registry is the closed set of supported assets, in display order.
var registry = []*Config{
	{
		Symbol:        NativeSymbol,
		Name:          "SOL",
		Decimals:      9,
		UnitsPerToken: 1_000_000_000,
	},
	{
		Symbol:        "USDC",
		Name:          "USDC",
		Mint:          mint("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"),
		Decimals:      6,
		UnitsPerToken: 1_000_000,
	},
	{
		Symbol:        "USDT",
		Name:          "USDT",
		Mint:          mint("Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB"),
		Decimals:      6,
		UnitsPerToken: 1_000_000,
	},
}

// Resolve returns the asset for symbol, case-insensitively.
func Resolve(symbol string) (*Config, error) {
	upper := strings.ToUpper(strings.TrimSpace(symbol))
	for _, c := range registry {
		if c.Symbol == upper {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedAsset, symbol)
}

// Native returns the native asset.
func Native() *Config {
	return registry[0]
}

// All returns every supported asset in display order.
func All() []*Config {
	out := make([]*Config, len(registry))
	copy(out, registry)
	return out
}

// ByMint returns the asset with the given mint, or the native asset for a
// nil mint.
func ByMint(m *types.PublicKey) (*Config, bool) {
	for _, c := range registry {
		if m == nil && c.Mint == nil {
			return c, true
		}
		if m != nil && c.Mint != nil && *c.Mint == *m {
			return c, true
		}
	}
	return nil, false
}
