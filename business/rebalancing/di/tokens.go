// Package di contains dependency injection tokens for the debt rebalancing context.
package di

import (
	"github.com/fd1az/debt-rebalancer/business/rebalancing/app"
	"github.com/fd1az/debt-rebalancer/business/rebalancing/domain"
	"github.com/fd1az/debt-rebalancer/business/rebalancing/infra/rest"
	"github.com/fd1az/debt-rebalancer/business/rebalancing/infra/sqlite"
	"github.com/fd1az/debt-rebalancer/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Optimizer      = di.NewToken[*app.Optimizer]("rebalancing.Optimizer")
	RunConfig      = di.NewToken[domain.RebalancingConfig]("rebalancing.RunConfig")
	OptimizeJob    = di.NewToken[*app.OptimizeJob]("rebalancing.OptimizeJob")
	Reporter       = di.NewToken[app.Reporter]("rebalancing.Reporter")
	ResultsHandler = di.NewToken[*rest.ResultsHandler]("rebalancing.ResultsHandler")
)

// Private dependency tokens - internal to rebalancing module
var (
	Store = di.NewToken[*sqlite.Store]("rebalancing:store")
)

func GetOptimizer(c di.ServiceRegistry) *app.Optimizer {
	return di.GetToken(c, Optimizer)
}

func GetRunConfig(c di.ServiceRegistry) domain.RebalancingConfig {
	return di.GetToken(c, RunConfig)
}

func GetOptimizeJob(c di.ServiceRegistry) *app.OptimizeJob {
	return di.GetToken(c, OptimizeJob)
}

func GetReporter(c di.ServiceRegistry) app.Reporter {
	return di.GetToken(c, Reporter)
}

func GetResultsHandler(c di.ServiceRegistry) *rest.ResultsHandler {
	return di.GetToken(c, ResultsHandler)
}

// GetResultStore returns the result store, or nil when persistence is disabled.
func GetResultStore(c di.ServiceRegistry) app.ResultStore {
	store := di.GetToken(c, Store)
	if store == nil {
		return nil
	}
	return store
}
