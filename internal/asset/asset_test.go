package asset

import (
	"errors"
	"math"
	"testing"
)

func TestResolve_CaseInsensitive(t *testing.T) {
	for _, s := range []string{"SOL", "sol", "Sol", " sol "} {
		c, err := Resolve(s)
		if err != nil {
			t.Fatalf("Resolve(%q) error: %v", s, err)
		}
		if c.Symbol != "SOL" || !c.IsNative() {
			t.Errorf("Resolve(%q) = %s, want native SOL", s, c.Symbol)
		}
	}

	usdc, err := Resolve("usdc")
	if err != nil {
		t.Fatalf("Resolve(usdc) error: %v", err)
	}
	if usdc.IsNative() || usdc.Mint.String() != "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v" {
		t.Error("USDC should carry its mint")
	}
}

func TestResolve_Unsupported(t *testing.T) {
	_, err := Resolve("BONK")
	if !errors.Is(err, ErrUnsupportedAsset) {
		t.Fatalf("Resolve(BONK) = %v, want ErrUnsupportedAsset", err)
	}
	if err.Error() != "unsupported token: BONK" {
		t.Errorf("error message = %q", err.Error())
	}
}

func TestRegistryInvariants(t *testing.T) {
	natives := 0
	for _, c := range All() {
		want := uint64(math.Pow10(int(c.Decimals)))
		if c.UnitsPerToken != want {
			t.Errorf("%s: UnitsPerToken = %d, want 10^%d", c.Symbol, c.UnitsPerToken, c.Decimals)
		}
		if c.IsNative() {
			natives++
		}
		got, ok := ByMint(c.Mint)
		if !ok || got != c {
			t.Errorf("ByMint(%s) did not return the same asset", c.Symbol)
		}
	}
	if natives != 1 {
		t.Errorf("want exactly one native asset, got %d", natives)
	}
	if Native().Symbol != NativeSymbol {
		t.Error("Native() should be SOL")
	}
}

func TestToBaseUnits(t *testing.T) {
	sol, _ := Resolve("SOL")
	usdc, _ := Resolve("USDC")

	tests := []struct {
		c      *Config
		amount float64
		want   uint64
	}{
		{sol, 1.5, 1_500_000_000},
		{sol, 0.000000001, 1},
		{sol, 0.1 + 0.2, 300_000_000},
		{usdc, 12.345678, 12_345_678},
		{usdc, 0.000001, 1},
	}
	for _, tt := range tests {
		got, err := tt.c.ToBaseUnits(tt.amount)
		if err != nil {
			t.Errorf("%s.ToBaseUnits(%v) error: %v", tt.c.Symbol, tt.amount, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%s.ToBaseUnits(%v) = %d, want %d", tt.c.Symbol, tt.amount, got, tt.want)
		}
	}
}

func TestToBaseUnits_Rejects(t *testing.T) {
	sol, _ := Resolve("SOL")
	tests := []struct {
		name   string
		amount float64
		want   error
	}{
		{"zero", 0, ErrInvalidAmount},
		{"negative", -1, ErrInvalidAmount},
		{"nan", math.NaN(), ErrInvalidAmount},
		{"inf", math.Inf(1), ErrInvalidAmount},
		{"dust", 0.0000000001, ErrAmountTooSmall},
		{"overflow", 1e11, ErrAmountOverflow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := sol.ToBaseUnits(tt.amount); !errors.Is(err, tt.want) {
				t.Errorf("ToBaseUnits(%v) = %v, want %v", tt.amount, err, tt.want)
			}
		})
	}
}

func TestBaseUnitRoundTrip(t *testing.T) {
	amounts := []float64{1, 1.5, 0.25, 3.141592653, 1234.567891, 0.000001, 99999.999999}
	for _, c := range All() {
		for _, a := range amounts {
			units, err := c.ToBaseUnits(a)
			if err != nil {
				continue
			}
			back := c.FromBaseUnits(units)
			if diff := math.Abs(back - a); diff > 1/float64(c.UnitsPerToken) {
				t.Errorf("%s: %v -> %d -> %v, off by %v", c.Symbol, a, units, back, diff)
			}
		}
	}
}

func TestFormatBaseUnits(t *testing.T) {
	sol, _ := Resolve("SOL")
	usdt, _ := Resolve("USDT")
	tests := []struct {
		c     *Config
		units uint64
		want  string
	}{
		{sol, 1_500_000_000, "1.5"},
		{sol, 2_000_000_000, "2"},
		{sol, 1, "0.000000001"},
		{usdt, 10_000_001, "10.000001"},
	}
	for _, tt := range tests {
		if got := tt.c.FormatBaseUnits(tt.units); got != tt.want {
			t.Errorf("%s.FormatBaseUnits(%d) = %s, want %s", tt.c.Symbol, tt.units, got, tt.want)
		}
	}
}
