package asset

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

func TestRegistry_LookupSymbolIgnoresCase(t *testing.T) {
	r := DefaultRegistry()

	tests := []struct {
		symbol   string
		wantAddr common.Address
		wantOK   bool
	}{
		{"wstETH", AddrWstETH, true},
		{"WSTETH", AddrWstETH, true},
		{" usdc ", AddrUSDC, true},
		{"PEPE", common.Address{}, false},
	}

	for _, tt := range tests {
		a, ok := r.LookupSymbol(tt.symbol)
		if ok != tt.wantOK {
			t.Errorf("LookupSymbol(%q) ok = %v, want %v", tt.symbol, ok, tt.wantOK)
			continue
		}
		if ok && a.Address() != tt.wantAddr {
			t.Errorf("LookupSymbol(%q) = %s, want %s", tt.symbol, a.Address().Hex(), tt.wantAddr.Hex())
		}
	}
}

func TestRegistry_ResolvePair(t *testing.T) {
	r := DefaultRegistry()

	coll, loan, ok := r.ResolvePair("wstETH", "WETH")
	if !ok {
		t.Fatal("expected wstETH/WETH to resolve")
	}
	if coll != AddrWstETH || loan != AddrWETH {
		t.Errorf("got %s/%s", coll.Hex(), loan.Hex())
	}

	if _, _, ok := r.ResolvePair("wstETH", "UNKNOWN"); ok {
		t.Error("pair with an unknown symbol should not resolve")
	}
}

func TestRegistry_LookupAddress(t *testing.T) {
	r := DefaultRegistry()

	a, ok := r.LookupAddress(common.HexToAddress("0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"))
	if !ok || a.Symbol() != "USDC" {
		t.Errorf("lowercase address lookup failed: %v %v", a, ok)
	}
	if a.Decimals() != 6 {
		t.Errorf("Decimals = %d, want 6", a.Decimals())
	}
}

func TestRegistry_DuplicatePanics(t *testing.T) {
	r := NewRegistry()
	r.Register(USDC)

	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	r.Register(NewAsset("usdc", "", common.HexToAddress("0x01"), 6))
}

func TestRegistry_ResolveMixedPair(t *testing.T) {
	r := DefaultRegistry()

	coll, loan, ok := r.ResolvePair("0x7f39c581f595b53c5cb19bd0b3f8da6c935e2ca0", "weth")
	if !ok {
		t.Fatal("expected address/symbol pair to resolve")
	}
	if coll != AddrWstETH || loan != AddrWETH {
		t.Errorf("got %s/%s", coll.Hex(), loan.Hex())
	}
}

func TestAsset_Units(t *testing.T) {
	tests := []struct {
		asset *Asset
		raw   string
		want  string
	}{
		{USDC, "1500000", "1.5"},
		{WETH, "2500000000000000000", "2.5"},
		{WBTC, "1", "0.00000001"},
	}

	for _, tt := range tests {
		got := tt.asset.Tokens(decimal.RequireFromString(tt.raw))
		if !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("%s.Tokens(%s) = %s, want %s", tt.asset, tt.raw, got, tt.want)
		}
		back := tt.asset.BaseUnits(got)
		if back.String() != tt.raw {
			t.Errorf("%s.BaseUnits(%s) = %s, want %s", tt.asset, got, back, tt.raw)
		}
	}
}

func TestAsset_Is(t *testing.T) {
	if !WstETH.Is("WSTETH") || !WstETH.Is(AddrWstETH.Hex()) {
		t.Error("wstETH should match its symbol and address")
	}
	if WstETH.Is("stETH") || WstETH.Is(AddrWETH.Hex()) {
		t.Error("wstETH should not match other assets")
	}
}
