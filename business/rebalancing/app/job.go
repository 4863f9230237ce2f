package app

import (
	"context"
	"sync/atomic"

	"github.com/fd1az/debt-rebalancer/business/rebalancing/domain"
	"github.com/fd1az/debt-rebalancer/internal/logger"
)

// OptimizeJob runs the optimizer for a fixed config on every tick and keeps
// the latest result in memory.
type OptimizeJob struct {
	optimizer *Optimizer
	config    domain.RebalancingConfig
	reporter  Reporter
	logger    logger.LoggerInterface

	latest atomic.Pointer[domain.RebalancingResult]
}

// NewOptimizeJob creates an OptimizeJob. reporter may be nil.
func NewOptimizeJob(optimizer *Optimizer, cfg domain.RebalancingConfig, reporter Reporter, log logger.LoggerInterface) *OptimizeJob {
	return &OptimizeJob{optimizer: optimizer, config: cfg, reporter: reporter, logger: log}
}

func (j *OptimizeJob) Name() string {
	return "optimize " + j.config.Pair()
}

// Run executes one optimization. A failed run is still recorded as latest.
func (j *OptimizeJob) Run(ctx context.Context) error {
	result, err := j.optimizer.Optimize(ctx, j.config)
	if err != nil {
		return err
	}
	j.latest.Store(result)

	if j.reporter != nil {
		if err := j.reporter.Report(ctx, result); err != nil {
			j.logger.Warn(ctx, "report failed", "id", result.ID, "error", err)
		}
	}
	return nil
}

// Latest returns the most recent result, or nil before the first run.
func (j *OptimizeJob) Latest() *domain.RebalancingResult {
	return j.latest.Load()
}
