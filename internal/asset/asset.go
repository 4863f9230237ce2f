// Package asset holds metadata for the ERC20 tokens lending markets trade.
package asset

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Asset is a known token. The address is the identity; symbols may collide
// across chains and wrappers.
type Asset struct {
	symbol   string
	name     string
	address  common.Address
	decimals int32
}

// NewAsset creates an Asset. It panics on an empty symbol or more than 30 decimals.
func NewAsset(symbol, name string, address common.Address, decimals int32) *Asset {
	if symbol == "" {
		panic("asset: empty symbol")
	}
	if decimals < 0 || decimals > 30 {
		panic("asset: suspicious decimals")
	}
	return &Asset{symbol: symbol, name: name, address: address, decimals: decimals}
}

func (a *Asset) Symbol() string          { return a.symbol }
func (a *Asset) Address() common.Address { return a.address }
func (a *Asset) Decimals() int32         { return a.decimals }
func (a *Asset) String() string          { return a.symbol }

// Name returns the display name, falling back to the symbol.
func (a *Asset) Name() string {
	if a.name == "" {
		return a.symbol
	}
	return a.name
}

// Tokens converts raw base units (wei-style integers) to whole tokens.
func (a *Asset) Tokens(raw decimal.Decimal) decimal.Decimal {
	return raw.Shift(-a.decimals)
}

// BaseUnits converts whole tokens to raw base units, truncating dust.
func (a *Asset) BaseUnits(tokens decimal.Decimal) decimal.Decimal {
	return tokens.Shift(a.decimals).Truncate(0)
}

// Is reports whether ref names this asset, either by symbol (any case) or
// by hex address (any checksum).
func (a *Asset) Is(ref string) bool {
	ref = strings.TrimSpace(ref)
	if common.IsHexAddress(ref) {
		return common.HexToAddress(ref) == a.address
	}
	return strings.EqualFold(ref, a.symbol)
}
