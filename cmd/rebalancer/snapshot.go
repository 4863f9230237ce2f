package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fd1az/debt-rebalancer/business/market"
	marketDI "github.com/fd1az/debt-rebalancer/business/market/di"
	marketDomain "github.com/fd1az/debt-rebalancer/business/market/domain"
	"github.com/fd1az/debt-rebalancer/business/market/infra/snapshot"
	"github.com/fd1az/debt-rebalancer/internal/monolith"
)

var snapshotFlags struct {
	out  string
	pair bool
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Fetch markets and history from the configured provider into a snapshot file",
	Args:  cobra.NoArgs,
	RunE:  exportSnapshot,
}

func init() {
	snapshotCmd.Flags().StringVarP(&snapshotFlags.out, "out", "o", "snapshot.json", "output file")
	snapshotCmd.Flags().BoolVar(&snapshotFlags.pair, "pair-only", true, "keep only markets of the configured asset pair")
}

func exportSnapshot(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	s, err := loadSession()
	if err != nil {
		return err
	}
	defer s.close()

	mono := monolith.New(s.cfg, s.log)
	defer mono.Close()
	mod := &market.Module{}
	if err := mono.RegisterModules(mod); err != nil {
		return err
	}
	if err := mono.StartModules(ctx, mod); err != nil {
		return err
	}

	svc := marketDI.GetMarketService(mono.Services())
	rc := s.cfg.Rebalancing

	markets, err := svc.Markets(ctx, rc.Protocol, s.cfg.Provider.MarketLimit)
	if err != nil {
		return err
	}
	if snapshotFlags.pair {
		markets = pairMarkets(markets, rc.CollateralAsset, rc.BorrowAsset)
	}

	interval, err := marketDomain.ParseInterval(rc.SimulationInterval)
	if err != nil {
		return err
	}
	history, err := svc.History(ctx, rc.Protocol, markets, interval, rc.SimulationDays)
	if err != nil {
		return err
	}

	doc := snapshot.Document{
		Protocol:   rc.Protocol,
		Markets:    markets,
		Timeseries: history.Timeseries,
		Prices:     history.Prices,
	}
	if err := snapshot.Save(snapshotFlags.out, doc); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d markets to %s\n", len(markets), snapshotFlags.out)
	return nil
}

// pairMarkets keeps markets whose asset symbols or addresses match the pair.
func pairMarkets(markets []marketDomain.Market, collateral, borrow string) []marketDomain.Market {
	out := markets[:0]
	for _, m := range markets {
		if assetMatches(m.CollateralAsset, collateral) && assetMatches(m.LoanAsset, borrow) {
			out = append(out, m)
		}
	}
	return out
}

func assetMatches(a marketDomain.AssetInfo, want string) bool {
	return strings.EqualFold(a.Symbol, want) || strings.EqualFold(a.Address, want)
}
