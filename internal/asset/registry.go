package asset

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Registry is a thread-safe registry of known tokens, indexed by symbol and address.
type Registry struct {
	bySymbol  map[string]*Asset // upper-cased symbol
	byAddress map[common.Address]*Asset
	mu        sync.RWMutex
}

// NewRegistry creates a new empty asset registry.
func NewRegistry() *Registry {
	return &Registry{
		bySymbol:  make(map[string]*Asset),
		byAddress: make(map[common.Address]*Asset),
	}
}

// Register adds an asset to the registry.
// Panics if the address or symbol is already registered.
func (r *Registry) Register(a *Asset) {
	if a == nil {
		panic("asset: cannot register nil asset")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToUpper(a.Symbol())
	if _, exists := r.byAddress[a.Address()]; exists {
		panic(fmt.Sprintf("asset: %s already registered", a.Address().Hex()))
	}
	if _, exists := r.bySymbol[key]; exists {
		panic(fmt.Sprintf("asset: symbol %s already registered", a.Symbol()))
	}

	r.byAddress[a.Address()] = a
	r.bySymbol[key] = a
}

// LookupSymbol finds an asset by symbol, ignoring case.
func (r *Registry) LookupSymbol(symbol string) (*Asset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.bySymbol[strings.ToUpper(strings.TrimSpace(symbol))]
	return a, ok
}

// LookupAddress finds an asset by contract address.
func (r *Registry) LookupAddress(address common.Address) (*Asset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.byAddress[address]
	return a, ok
}

// Lookup finds an asset by symbol or by hex address.
func (r *Registry) Lookup(ref string) (*Asset, bool) {
	ref = strings.TrimSpace(ref)
	if common.IsHexAddress(ref) {
		return r.LookupAddress(common.HexToAddress(ref))
	}
	return r.LookupSymbol(ref)
}

// ResolvePair resolves a collateral/loan pair, given as symbols or
// addresses, to addresses. ok is false unless both sides are known.
func (r *Registry) ResolvePair(collateral, loan string) (collateralAddr, loanAddr common.Address, ok bool) {
	c, okC := r.Lookup(collateral)
	l, okL := r.Lookup(loan)
	if !okC || !okL {
		return common.Address{}, common.Address{}, false
	}
	return c.Address(), l.Address(), true
}

// Count returns the number of registered assets.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byAddress)
}
