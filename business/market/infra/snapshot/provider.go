// Package snapshot implements MarketDataProvider over a JSON snapshot document on disk.
//
// A snapshot holds one protocol's market universe together with per-market
// history:
//
//	{
//	  "protocol": "morpho",
//	  "markets": [ {...}, ... ],
//	  "timeseries": { "<market id>": [ {...}, ... ] },
//	  "prices": { "<market id>": [ {...}, ... ] }
//	}
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/fd1az/debt-rebalancer/business/market/domain"
	"github.com/fd1az/debt-rebalancer/internal/apperror"
)

// Document is the on-disk snapshot format.
type Document struct {
	Protocol   string                              `json:"protocol"`
	Markets    []domain.Market                     `json:"markets"`
	Timeseries map[string][]domain.TimeseriesPoint `json:"timeseries"`
	Prices     map[string][]domain.PricePoint      `json:"prices,omitempty"`
}

// Provider serves market data from an in-memory Document.
type Provider struct {
	doc    Document
	latest time.Time
}

// Load reads and parses a snapshot file.
func Load(path string) (*Provider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperror.New(apperror.CodeMarketDataFetchFailed,
			apperror.WithCause(err),
			apperror.WithContext("read snapshot "+path))
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, apperror.New(apperror.CodeInvalidMarketData,
			apperror.WithCause(err),
			apperror.WithContext("parse snapshot "+path))
	}
	return New(doc), nil
}

// Save writes doc to path as indented JSON.
func Save(path string, doc Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// New builds a provider over doc. Series are sorted ascending by timestamp.
func New(doc Document) *Provider {
	p := &Provider{doc: doc}

	for id, points := range doc.Timeseries {
		sort.SliceStable(points, func(i, j int) bool { return points[i].Timestamp.Before(points[j].Timestamp) })
		doc.Timeseries[id] = points
		if n := len(points); n > 0 && points[n-1].Timestamp.After(p.latest) {
			p.latest = points[n-1].Timestamp
		}
	}
	for id, points := range doc.Prices {
		sort.SliceStable(points, func(i, j int) bool { return points[i].Timestamp.Before(points[j].Timestamp) })
		doc.Prices[id] = points
	}

	return p
}

func (p *Provider) protocolMatches(protocol string) bool {
	return p.doc.Protocol == "" || protocol == "" || strings.EqualFold(p.doc.Protocol, protocol)
}

// GetMarkets returns up to first markets in document order.
func (p *Provider) GetMarkets(_ context.Context, protocol string, first int) ([]domain.Market, error) {
	if !p.protocolMatches(protocol) {
		return nil, nil
	}
	markets := p.doc.Markets
	if first > 0 && first < len(markets) {
		markets = markets[:first]
	}
	out := make([]domain.Market, len(markets))
	copy(out, markets)
	return out, nil
}

// GetMarket returns the market with the given id, or nil.
func (p *Provider) GetMarket(_ context.Context, protocol, marketID string) (*domain.Market, error) {
	if !p.protocolMatches(protocol) {
		return nil, nil
	}
	for _, m := range p.doc.Markets {
		if strings.EqualFold(m.ID, marketID) {
			m := m
			return &m, nil
		}
	}
	return nil, nil
}

// GetMarketTimeseries returns the last days of history, one point per interval bucket.
// The window is anchored at the newest point in the document, not the wall clock.
func (p *Provider) GetMarketTimeseries(_ context.Context, protocol, marketID string, interval domain.Interval, days int) ([]domain.TimeseriesPoint, error) {
	if !p.protocolMatches(protocol) {
		return nil, nil
	}
	cutoff := p.cutoff(days)

	var out []domain.TimeseriesPoint
	var lastBucket time.Time
	for _, pt := range p.doc.Timeseries[marketID] {
		if pt.Timestamp.Before(cutoff) {
			continue
		}
		bucket := pt.Timestamp.Truncate(interval.Duration())
		if interval != domain.IntervalHour && len(out) > 0 && bucket.Equal(lastBucket) {
			continue
		}
		lastBucket = bucket
		out = append(out, pt)
	}
	return out, nil
}

// GetPriceHistory returns the last days of price points for the market.
func (p *Provider) GetPriceHistory(_ context.Context, protocol, marketID string, _ domain.Interval, days int) ([]domain.PricePoint, error) {
	if !p.protocolMatches(protocol) {
		return nil, nil
	}
	cutoff := p.cutoff(days)

	var out []domain.PricePoint
	for _, pt := range p.doc.Prices[marketID] {
		if !pt.Timestamp.Before(cutoff) {
			out = append(out, pt)
		}
	}
	return out, nil
}

func (p *Provider) cutoff(days int) time.Time {
	if days <= 0 || p.latest.IsZero() {
		return time.Time{}
	}
	return p.latest.Add(-time.Duration(days) * 24 * time.Hour)
}
