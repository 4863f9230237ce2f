package app

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/fd1az/debt-rebalancer/business/rebalancing/domain"
	"github.com/fd1az/debt-rebalancer/internal/logger"
)

var (
	lltvSafetyBuffer = decimal.RequireFromString("0.95")
	liquidityUsage   = decimal.RequireFromString("0.8")
)

// Prices is the collateral/loan price pair the allocation is computed at.
type Prices struct {
	MarketID      string
	CollateralUSD decimal.Decimal
	LoanUSD       decimal.Decimal
}

// CollateralInLoan is the collateral price in loan-asset units.
func (p Prices) CollateralInLoan() decimal.Decimal {
	return p.CollateralUSD.Div(p.LoanUSD)
}

// ResolvePrices takes the prices of the first market, in the given order,
// that carries both. It never defaults a missing price.
func ResolvePrices(markets []domain.MarketDebtInfo) (Prices, error) {
	for _, m := range markets {
		if m.HasPrices() {
			return Prices{MarketID: m.MarketID, CollateralUSD: m.CollateralPriceUSD, LoanUSD: m.LoanPriceUSD}, nil
		}
	}
	return Prices{}, domain.NoPriceDataError("no market carries both collateral and loan USD prices")
}

// Allocation is the planner's output.
type Allocation struct {
	Amounts     map[string]decimal.Decimal // loan-asset units per market
	Positions   []domain.DebtPosition      // in allocation order
	TotalBorrow decimal.Decimal
	Prices      Prices
}

// AllocationPlanner spreads debt across scored markets with a greedy heuristic.
type AllocationPlanner struct {
	logger logger.LoggerInterface
}

// NewAllocationPlanner creates a new AllocationPlanner.
func NewAllocationPlanner(log logger.LoggerInterface) *AllocationPlanner {
	return &AllocationPlanner{logger: log}
}

type allocated struct {
	market domain.MarketDebtInfo
	amount decimal.Decimal
}

// Allocate computes the debt split and the resulting positions.
// The amounts always sum exactly to TotalBorrow.
func (p *AllocationPlanner) Allocate(ctx context.Context, markets []domain.MarketDebtInfo, cfg domain.RebalancingConfig) (*Allocation, error) {
	if len(markets) == 0 {
		return nil, domain.NoMarketsFoundError(cfg.CollateralAsset, cfg.BorrowAsset)
	}
	prices, err := ResolvePrices(markets)
	if err != nil {
		return nil, err
	}

	total := cfg.CollateralAmount.Mul(prices.CollateralUSD).Mul(cfg.TargetLTV()).Div(prices.LoanUSD)

	eligible := make([]domain.MarketDebtInfo, 0, len(markets))
	for _, m := range markets {
		if cfg.TargetLTV().LessThanOrEqual(m.LLTV.Mul(lltvSafetyBuffer)) {
			eligible = append(eligible, m)
		}
	}
	if len(eligible) == 0 {
		p.logger.Warn(ctx, "no market supports the target LTV with buffer, using all markets",
			"target_ltv", cfg.TargetLTV().String(), "markets", len(markets))
		eligible = append(eligible, markets...)
	}
	SortByScore(eligible)

	allocs := greedy(eligible, total, cfg)
	amounts := conserve(allocs, total)

	out := &Allocation{
		Amounts:     make(map[string]decimal.Decimal, len(allocs)),
		TotalBorrow: total,
		Prices:      prices,
	}
	price := prices.CollateralInLoan()

	collateralLeft := cfg.CollateralAmount
	for i, a := range allocs {
		amount := amounts[i]
		weight := decimal.Zero
		if total.IsPositive() {
			weight = amount.Div(total)
		}

		collateral := cfg.CollateralAmount.Mul(weight)
		if i == len(allocs)-1 {
			collateral = collateralLeft
		}
		collateralLeft = collateralLeft.Sub(collateral)

		pos := domain.DebtPosition{
			MarketID:         a.market.MarketID,
			MarketName:       a.market.MarketName,
			CollateralAmount: collateral,
			BorrowAmount:     amount,
			BorrowAPY:        a.market.BorrowAPY,
			LLTV:             a.market.LLTV,
			AllocationWeight: weight,
		}
		pos.Refresh(price, cfg.MarginCallThreshold)
		pos.RefreshInterest()

		out.Amounts[pos.MarketID] = amount
		out.Positions = append(out.Positions, pos)
	}

	return out, nil
}

// greedy walks markets best first and takes min(cap by pct, 80% of liquidity, remaining).
// Markets below the minimum share are skipped, except the first accepted one.
func greedy(markets []domain.MarketDebtInfo, total decimal.Decimal, cfg domain.RebalancingConfig) []allocated {
	maxPerMarket := total.Mul(cfg.MaxAllocationPct)
	minPerMarket := total.Mul(cfg.MinAllocationPct)
	remaining := total

	var out []allocated
	for _, m := range markets {
		if !remaining.IsPositive() {
			break
		}
		amount := decimal.Min(maxPerMarket, m.AvailableLiquidity.Mul(liquidityUsage), remaining)
		if !amount.IsPositive() {
			continue
		}
		if len(out) > 0 && amount.LessThan(minPerMarket) {
			continue
		}
		out = append(out, allocated{market: m, amount: amount})
		remaining = remaining.Sub(amount)
	}

	if len(out) == 0 && len(markets) > 0 {
		out = append(out, allocated{market: markets[0], amount: decimal.Zero})
	}
	return out
}

// conserve spreads any undistributed remainder proportionally and gives the
// last allocation the exact balance, so the amounts sum to total.
func conserve(allocs []allocated, total decimal.Decimal) []decimal.Decimal {
	amounts := make([]decimal.Decimal, len(allocs))
	if len(allocs) == 0 {
		return amounts
	}

	sum := decimal.Zero
	for _, a := range allocs {
		sum = sum.Add(a.amount)
	}
	remainder := total.Sub(sum)

	left := total
	for i, a := range allocs {
		if i == len(allocs)-1 {
			amounts[i] = left
			break
		}
		amount := a.amount
		if remainder.IsPositive() && sum.IsPositive() {
			amount = amount.Add(remainder.Mul(a.amount).Div(sum))
		}
		amounts[i] = amount
		left = left.Sub(amount)
	}
	return amounts
}

// Redistribute splits the accrued total debt and collateral of positions
// across a new allocation's weights. Totals are conserved exactly.
func Redistribute(current []domain.DebtPosition, target *Allocation) []domain.DebtPosition {
	totalDebt := domain.TotalDebt(current)
	totalCollateral := domain.TotalCollateral(current)

	out := make([]domain.DebtPosition, 0, len(target.Positions))
	debtLeft, collLeft := totalDebt, totalCollateral
	for i, p := range target.Positions {
		debt := totalDebt.Mul(p.AllocationWeight)
		coll := totalCollateral.Mul(p.AllocationWeight)
		if i == len(target.Positions)-1 {
			debt, coll = debtLeft, collLeft
		}
		debtLeft = debtLeft.Sub(debt)
		collLeft = collLeft.Sub(coll)

		p.BorrowAmount = debt
		p.CollateralAmount = coll
		out = append(out, p)
	}
	return out
}
