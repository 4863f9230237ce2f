// Package di contains dependency injection tokens for the lending market context.
package di

import (
	"github.com/fd1az/debt-rebalancer/business/market/app"
	"github.com/fd1az/debt-rebalancer/internal/di"
)

// Public service tokens - exposed to other modules
var (
	MarketService = di.NewToken[*app.MarketService]("market.MarketService")
)

// Private dependency tokens - internal to market module
var (
	DataProvider = di.NewToken[app.MarketDataProvider]("market:dataProvider")
)

func GetMarketService(c di.ServiceRegistry) *app.MarketService {
	return di.GetToken(c, MarketService)
}

func GetDataProvider(c di.ServiceRegistry) app.MarketDataProvider {
	return di.GetToken(c, DataProvider)
}
