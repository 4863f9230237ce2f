package app

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	marketDomain "github.com/fd1az/debt-rebalancer/business/market/domain"
	"github.com/fd1az/debt-rebalancer/business/rebalancing/domain"
)

var hoursPerYear = decimal.NewFromInt(8760)

// Fallback price drift: 1% amplitude over a weekly period.
const (
	driftAmplitude   = 0.01
	driftPeriodHours = 168.0
)

// SimulationState is the lifecycle of one simulated path.
type SimulationState int

const (
	StateInitialized SimulationState = iota
	StateStepping
	StateCompleted
)

func (s SimulationState) String() string {
	switch s {
	case StateInitialized:
		return "initialized"
	case StateStepping:
		return "stepping"
	case StateCompleted:
		return "completed"
	}
	return "unknown"
}

// SimulationInput is everything a simulation needs, already resident in memory.
type SimulationInput struct {
	Config           domain.RebalancingConfig
	Markets          []domain.MarketDebtInfo // score order
	Timeseries       map[string][]marketDomain.TimeseriesPoint
	Prices           map[string][]marketDomain.PricePoint
	InitialPositions []domain.DebtPosition
}

// SimulationOutput holds the strategy and benchmark paths.
type SimulationOutput struct {
	Strategy  []domain.RebalancingSnapshot
	Benchmark []domain.RebalancingSnapshot
	State     SimulationState
	Aborted   bool
}

// RebalancingSimulator replays aligned history for an actively rebalanced
// allocation and a static single-market benchmark.
type RebalancingSimulator struct {
	planner *AllocationPlanner
}

// NewRebalancingSimulator creates a new RebalancingSimulator.
func NewRebalancingSimulator(planner *AllocationPlanner) *RebalancingSimulator {
	return &RebalancingSimulator{planner: planner}
}

// Run simulates both paths step by step in timestamp order. The output is a
// pure function of the input.
func (s *RebalancingSimulator) Run(ctx context.Context, in SimulationInput) (*SimulationOutput, error) {
	steps := AlignTimeseries(in.Timeseries)
	if len(steps) == 0 {
		return nil, domain.SimulationDataGapError("no aligned timestamps across market timeseries")
	}

	policy, err := NewTriggerPolicy(in.Config.Mode)
	if err != nil {
		return nil, err
	}

	prices, err := ResolvePrices(in.Markets)
	if err != nil {
		return nil, err
	}
	path := newPricePath(prices.CollateralInLoan(), steps[0].Timestamp, in.Prices[prices.MarketID])

	strategy := &pathRun{
		cfg:       in.Config,
		markets:   in.Markets,
		positions: domain.ClonePositions(in.InitialPositions),
		policy:    policy,
		planner:   s.planner,
	}
	benchmark := &pathRun{
		cfg:       in.Config,
		positions: []domain.DebtPosition{benchmarkPosition(in, prices.CollateralInLoan())},
	}

	out := &SimulationOutput{}
	history := make(map[string][]decimal.Decimal)

	for i, step := range steps {
		price := path.At(step.Timestamp)

		rates := make(map[string]decimal.Decimal, len(step.Points))
		utilization := make(map[string]decimal.Decimal, len(step.Points))
		for id, p := range step.Points {
			rates[id] = p.BorrowAPY
			utilization[id] = p.Utilization
		}
		recordObserved(history, step)

		if err := strategy.step(ctx, i, step.Timestamp, price, rates, utilization, history); err != nil {
			return nil, err
		}
		if err := benchmark.step(ctx, i, step.Timestamp, price, rates, utilization, history); err != nil {
			return nil, err
		}

		if in.Config.AbortOnLiquidation && strategy.last().Liquidated() {
			out.Aborted = true
			break
		}
	}

	strategy.state = StateCompleted
	benchmark.state = StateCompleted

	out.Strategy = strategy.snapshots
	out.Benchmark = benchmark.snapshots
	out.State = strategy.state
	return out, nil
}

// benchmarkPosition holds all debt in the market with the lowest initial rate.
func benchmarkPosition(in SimulationInput, price decimal.Decimal) domain.DebtPosition {
	var best domain.MarketDebtInfo
	for i, m := range in.Markets {
		if i == 0 || m.BorrowAPY.LessThan(best.BorrowAPY) {
			best = m
		}
	}

	p := domain.DebtPosition{
		MarketID:         best.MarketID,
		MarketName:       best.MarketName,
		CollateralAmount: domain.TotalCollateral(in.InitialPositions),
		BorrowAmount:     domain.TotalDebt(in.InitialPositions),
		BorrowAPY:        best.BorrowAPY,
		LLTV:             best.LLTV,
		AllocationWeight: one,
	}
	p.Refresh(price, in.Config.MarginCallThreshold)
	p.RefreshInterest()
	return p
}

// pathRun is the mutable state of one simulated path. A nil policy never rebalances.
type pathRun struct {
	cfg       domain.RebalancingConfig
	markets   []domain.MarketDebtInfo
	positions []domain.DebtPosition
	policy    TriggerPolicy
	planner   *AllocationPlanner

	state              SimulationState
	prevTS             time.Time
	cumulativeInterest decimal.Decimal
	cumulativeCost     decimal.Decimal
	snapshots          []domain.RebalancingSnapshot
}

func (r *pathRun) last() domain.RebalancingSnapshot {
	return r.snapshots[len(r.snapshots)-1]
}

func (r *pathRun) step(ctx context.Context, i int, ts time.Time, price decimal.Decimal, rates, utilization map[string]decimal.Decimal, history map[string][]decimal.Decimal) error {
	var hours decimal.Decimal
	if i > 0 {
		hours = decimal.NewFromInt(int64(ts.Sub(r.prevTS) / time.Second)).Div(decimal.NewFromInt(3600))
	}

	for j := range r.positions {
		p := &r.positions[j]
		if rate, ok := rates[p.MarketID]; ok {
			p.BorrowAPY = rate
		}
		if i > 0 {
			interest := p.BorrowAmount.Mul(p.BorrowAPY).Mul(hours).Div(hoursPerYear)
			p.BorrowAmount = p.BorrowAmount.Add(interest)
			r.cumulativeInterest = r.cumulativeInterest.Add(interest)
		}
		p.Refresh(price, r.cfg.MarginCallThreshold)
		p.RefreshInterest()
	}

	hf := domain.AggregateHealthFactor(r.positions, price)
	spread := RateSpreadBps(r.positions, rates)

	var rebalanced bool
	trigger := domain.TriggerNone
	if i > 0 && r.policy != nil {
		fire, why := healthOverride(hf, r.cfg)
		if !fire {
			fire, why = r.policy.ShouldRebalance(&StepState{
				Config:      r.cfg,
				Positions:   r.positions,
				Rates:       rates,
				Utilization: utilization,
				RateHistory: history,
				SpreadBps:   spread,
			})
		}
		if fire {
			if err := r.rebalance(ctx, price, rates, utilization); err != nil {
				return err
			}
			rebalanced, trigger = true, why
			r.cumulativeCost = r.cumulativeCost.Add(r.cfg.GasCostUSD)
			hf = domain.AggregateHealthFactor(r.positions, price)
		}
	}

	r.snapshots = append(r.snapshots, domain.RebalancingSnapshot{
		Timestamp:               ts,
		Positions:               domain.ClonePositions(r.positions),
		TotalDebt:               domain.TotalDebt(r.positions),
		TotalCollateral:         domain.TotalCollateral(r.positions),
		WeightedBorrowAPY:       domain.WeightedBorrowAPY(r.positions),
		CumulativeInterest:      r.cumulativeInterest,
		CumulativeRebalanceCost: r.cumulativeCost,
		RateSpreadBps:           spread,
		Rebalanced:              rebalanced,
		Trigger:                 trigger,
		CollateralPrice:         price,
		HealthFactor:            hf,
		MarginCallTriggered:     hf.LessThan(r.cfg.MarginCallThreshold),
	})

	if i > 0 {
		r.state = StateStepping
	}
	r.prevTS = ts
	return nil
}

// rebalance re-plans on current rates and moves the accrued debt onto the new weights.
func (r *pathRun) rebalance(ctx context.Context, price decimal.Decimal, rates, utilization map[string]decimal.Decimal) error {
	current := make([]domain.MarketDebtInfo, len(r.markets))
	for i, m := range r.markets {
		if rate, ok := rates[m.MarketID]; ok {
			m.BorrowAPY = rate
		}
		if u, ok := utilization[m.MarketID]; ok {
			m.Utilization = u
		}
		Rescore(&m, r.cfg.TotalDebt)
		current[i] = m
	}

	alloc, err := r.planner.Allocate(ctx, current, r.cfg)
	if err != nil {
		return err
	}

	r.positions = Redistribute(r.positions, alloc)
	for j := range r.positions {
		r.positions[j].Refresh(price, r.cfg.MarginCallThreshold)
		r.positions[j].RefreshInterest()
	}
	return nil
}

// AlignedStep is one timestamp of the union timeline with the latest known
// point of every market seen so far.
type AlignedStep struct {
	Timestamp time.Time
	Points    map[string]marketDomain.TimeseriesPoint
}

// recordObserved appends the rates observed at the step's timestamp. Points
// carried forward over a gap are not repeated.
func recordObserved(history map[string][]decimal.Decimal, step AlignedStep) {
	for id, p := range step.Points {
		if p.Timestamp.Equal(step.Timestamp) {
			history[id] = append(history[id], p.BorrowAPY)
		}
	}
}

// AlignTimeseries merges per-market series onto the union of their timestamps.
// For duplicate timestamps within a market the first point wins; a market
// missing at a timestamp carries its last known point forward.
func AlignTimeseries(series map[string][]marketDomain.TimeseriesPoint) []AlignedStep {
	ids := make([]string, 0, len(series))
	for id := range series {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	deduped := make(map[string][]marketDomain.TimeseriesPoint, len(series))
	union := make(map[int64]time.Time)
	for _, id := range ids {
		points := append([]marketDomain.TimeseriesPoint(nil), series[id]...)
		sort.SliceStable(points, func(i, j int) bool { return points[i].Timestamp.Before(points[j].Timestamp) })

		var kept []marketDomain.TimeseriesPoint
		for _, p := range points {
			if n := len(kept); n > 0 && kept[n-1].Timestamp.Equal(p.Timestamp) {
				continue
			}
			kept = append(kept, p)
			union[p.Timestamp.UnixNano()] = p.Timestamp
		}
		deduped[id] = kept
	}

	keys := make([]int64, 0, len(union))
	for k := range union {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	cursor := make(map[string]int, len(ids))
	current := make(map[string]marketDomain.TimeseriesPoint, len(ids))
	steps := make([]AlignedStep, 0, len(keys))
	for _, k := range keys {
		ts := union[k]
		for _, id := range ids {
			points := deduped[id]
			if c := cursor[id]; c < len(points) && points[c].Timestamp.Equal(ts) {
				current[id] = points[c]
				cursor[id] = c + 1
			}
		}

		points := make(map[string]marketDomain.TimeseriesPoint, len(current))
		for id, p := range current {
			points[id] = p
		}
		steps = append(steps, AlignedStep{Timestamp: ts, Points: points})
	}
	return steps
}

// pricePath yields the collateral price at any time: linear interpolation over
// known history, or a deterministic drift around the base price without one.
type pricePath struct {
	base    decimal.Decimal
	start   time.Time
	history []marketDomain.PricePoint
}

func newPricePath(base decimal.Decimal, start time.Time, history []marketDomain.PricePoint) pricePath {
	var kept []marketDomain.PricePoint
	for _, p := range history {
		if p.Price.IsPositive() {
			kept = append(kept, p)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Timestamp.Before(kept[j].Timestamp) })
	return pricePath{base: base, start: start, history: kept}
}

func (p pricePath) At(ts time.Time) decimal.Decimal {
	n := len(p.history)
	if n == 0 {
		h := ts.Sub(p.start).Hours()
		return p.base.Mul(decimal.NewFromFloat(1 + driftAmplitude*math.Sin(2*math.Pi*h/driftPeriodHours)))
	}
	if !ts.After(p.history[0].Timestamp) {
		return p.history[0].Price
	}
	if !ts.Before(p.history[n-1].Timestamp) {
		return p.history[n-1].Price
	}

	i := sort.Search(n, func(i int) bool { return p.history[i].Timestamp.After(ts) })
	a, b := p.history[i-1], p.history[i]
	span := b.Timestamp.Sub(a.Timestamp)
	if span <= 0 {
		return a.Price
	}
	w := decimal.NewFromInt(int64(ts.Sub(a.Timestamp))).Div(decimal.NewFromInt(int64(span)))
	return a.Price.Add(b.Price.Sub(a.Price).Mul(w))
}
