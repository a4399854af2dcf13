// Package aggregate derives totals and shares from resolved allocations.
// All functions are pure and deterministic.
package aggregate

import (
	"sort"

	"github.com/aristath/folio/internal/domain"
	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/floats"
)

// TotalsByClient sums allocation amounts per client id.
// Clients without allocations are absent from the map.
func TotalsByClient(allocs []domain.ResolvedAllocation) map[string]decimal.Decimal {
	totals := make(map[string]decimal.Decimal)
	for _, a := range allocs {
		totals[a.ClientID] = totals[a.ClientID].Add(a.Amount)
	}
	return totals
}

// TotalsByAsset sums allocation amounts per asset id
func TotalsByAsset(allocs []domain.ResolvedAllocation) map[string]decimal.Decimal {
	totals := make(map[string]decimal.Decimal)
	for _, a := range allocs {
		totals[a.AssetID] = totals[a.AssetID].Add(a.Amount)
	}
	return totals
}

// HoldersByAsset counts the distinct clients holding each asset
func HoldersByAsset(allocs []domain.ResolvedAllocation) map[string]int {
	seen := make(map[[2]string]struct{})
	holders := make(map[string]int)
	for _, a := range allocs {
		pair := [2]string{a.AssetID, a.ClientID}
		if _, ok := seen[pair]; ok {
			continue
		}
		seen[pair] = struct{}{}
		holders[a.AssetID]++
	}
	return holders
}

// SharePercentage returns amount as a fraction of currentValue.
// The result is a ratio (0.25 for a quarter); it is None when the value is
// zero or negative, so callers never see an undefined division.
func SharePercentage(amount, currentValue decimal.Decimal) domain.Option[decimal.Decimal] {
	if !currentValue.IsPositive() {
		return domain.None[decimal.Decimal]()
	}
	return domain.Some(amount.Div(currentValue))
}

// Share is SharePercentage of a resolved allocation against its asset
func Share(a domain.ResolvedAllocation) domain.Option[decimal.Decimal] {
	return SharePercentage(a.Amount, a.Asset.CurrentValue)
}

// Summary describes a set of resolved allocations as a whole
type Summary struct {
	Total       decimal.Decimal `json:"total"`
	Allocations int             `json:"allocations"`
	Clients     int             `json:"clients"`
	Assets      int             `json:"assets"`
}

// Summarize computes the grand total and distinct counts of allocs
func Summarize(allocs []domain.ResolvedAllocation) Summary {
	clients := make(map[string]struct{})
	assets := make(map[string]struct{})
	total := decimal.Zero
	for _, a := range allocs {
		total = total.Add(a.Amount)
		clients[a.ClientID] = struct{}{}
		assets[a.AssetID] = struct{}{}
	}
	return Summary{
		Total:       total,
		Allocations: len(allocs),
		Clients:     len(clients),
		Assets:      len(assets),
	}
}

// Concentration returns the Herfindahl-Hirschman index of a client's holdings
// across assets: the sum of squared weights, where each weight is the amount
// held in one asset over the client's total. 1 means a single asset; values
// approach 1/n for an even spread over n assets.
func Concentration(allocs []domain.ResolvedAllocation, clientID string) domain.Option[float64] {
	byAsset := make(map[string]decimal.Decimal)
	order := make([]string, 0)
	total := decimal.Zero
	for _, a := range allocs {
		if a.ClientID != clientID {
			continue
		}
		if _, ok := byAsset[a.AssetID]; !ok {
			order = append(order, a.AssetID)
		}
		byAsset[a.AssetID] = byAsset[a.AssetID].Add(a.Amount)
		total = total.Add(a.Amount)
	}

	if !total.IsPositive() {
		return domain.None[float64]()
	}

	weights := make([]float64, len(order))
	for i, assetID := range order {
		weights[i] = byAsset[assetID].Div(total).InexactFloat64()
	}
	return domain.Some(floats.Dot(weights, weights))
}

// Ranked is an id with its total, used for top-N listings
type Ranked struct {
	ID    string          `json:"id"`
	Total decimal.Decimal `json:"total"`
}

// Top returns up to n entries of totals ordered by total descending, ties by id
func Top(totals map[string]decimal.Decimal, n int) []Ranked {
	ranked := make([]Ranked, 0, len(totals))
	for id, total := range totals {
		ranked = append(ranked, Ranked{ID: id, Total: total})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if c := ranked[i].Total.Cmp(ranked[j].Total); c != 0 {
			return c > 0
		}
		return ranked[i].ID < ranked[j].ID
	})
	if n >= 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
