package asset

import "github.com/ethereum/go-ethereum/common"

// Well-known token addresses on Ethereum Mainnet
var (
	// Stablecoins
	AddrUSDC = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	AddrUSDT = common.HexToAddress("0xdAC17F958D2ee523a2206206994597C13D831ec7")
	AddrDAI  = common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F")

	// ETH and liquid staking
	AddrWETH   = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	AddrWstETH = common.HexToAddress("0x7f39C581F595B53c5cb19bD0b3f8dA6c935E2Ca0")
	AddrWeETH  = common.HexToAddress("0xCd5fE23C85820F7B72D0926FC9b05b43E359b7ee")
	AddrRETH   = common.HexToAddress("0xae78736Cd615f374D3085123A210448E74Fc6393")

	// BTC
	AddrWBTC  = common.HexToAddress("0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599")
	AddrCbBTC = common.HexToAddress("0xcbB7C0000aB88B473b1f5aFd9ef808440eed33Bf")
)

// Well-known Assets (pre-created instances)
var (
	USDC   = NewAsset("USDC", "USD Coin", AddrUSDC, 6)
	USDT   = NewAsset("USDT", "Tether USD", AddrUSDT, 6)
	DAI    = NewAsset("DAI", "Dai Stablecoin", AddrDAI, 18)
	WETH   = NewAsset("WETH", "Wrapped Ether", AddrWETH, 18)
	WstETH = NewAsset("wstETH", "Wrapped liquid staked Ether", AddrWstETH, 18)
	WeETH  = NewAsset("weETH", "Wrapped eETH", AddrWeETH, 18)
	RETH   = NewAsset("rETH", "Rocket Pool ETH", AddrRETH, 18)
	WBTC   = NewAsset("WBTC", "Wrapped Bitcoin", AddrWBTC, 8)
	CbBTC  = NewAsset("cbBTC", "Coinbase Wrapped BTC", AddrCbBTC, 8)
)

// DefaultRegistry returns a registry pre-populated with well-known assets.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.Register(USDC)
	r.Register(USDT)
	r.Register(DAI)
	r.Register(WETH)
	r.Register(WstETH)
	r.Register(WeETH)
	r.Register(RETH)
	r.Register(WBTC)
	r.Register(CbBTC)

	return r
}
