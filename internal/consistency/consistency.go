// Package consistency joins allocations with their clients and assets and
// separates the ones that can be shown from the ones whose references are gone.
package consistency

import (
	"fmt"

	"github.com/aristath/folio/internal/domain"
)

// Join resolves the client and asset of every allocation.
//
// A relation embedded by the entity store is used when it names the same id
// as the allocation. Otherwise the reference is looked up in clients and
// assets. References that cannot be found stay None. The order of raw is kept.
func Join(raw []domain.Allocation, clients []domain.Client, assets []domain.Asset) []domain.Allocation {
	clientsByID := make(map[string]domain.Client, len(clients))
	for _, c := range clients {
		clientsByID[c.ID] = c
	}
	assetsByID := make(map[string]domain.Asset, len(assets))
	for _, a := range assets {
		assetsByID[a.ID] = a
	}

	joined := make([]domain.Allocation, len(raw))
	for i, alloc := range raw {
		if c, ok := alloc.Client.Get(); !ok || c.ID != alloc.ClientID {
			alloc.Client = lookup(clientsByID, alloc.ClientID)
		}
		if a, ok := alloc.Asset.Get(); !ok || a.ID != alloc.AssetID {
			alloc.Asset = lookup(assetsByID, alloc.AssetID)
		}
		joined[i] = alloc
	}
	return joined
}

func lookup[T any](index map[string]T, id string) domain.Option[T] {
	if id == "" {
		return domain.None[T]()
	}
	if v, ok := index[id]; ok {
		return domain.Some(v)
	}
	return domain.None[T]()
}

// MissingRef describes one reference that failed to resolve
type MissingRef struct {
	AllocationID string          `json:"allocationId"`
	Resource     domain.Resource `json:"resource"`
	ID           string          `json:"id"`
}

func (m MissingRef) String() string {
	return fmt.Sprintf("allocation %s: %s %q not found", m.AllocationID, m.Resource, m.ID)
}

// Result is the outcome of partitioning joined allocations
type Result struct {
	Valid   []domain.ResolvedAllocation
	Invalid int
	Missing []MissingRef
}

// Partition keeps the allocations whose client and asset are both present.
// Every other allocation is counted in Invalid and described in Missing.
// Valid is never nil and preserves the input order.
func Partition(joined []domain.Allocation) Result {
	res := Result{Valid: make([]domain.ResolvedAllocation, 0, len(joined))}

	for _, alloc := range joined {
		client, hasClient := alloc.Client.Get()
		asset, hasAsset := alloc.Asset.Get()

		if hasClient && hasAsset {
			res.Valid = append(res.Valid, domain.ResolvedAllocation{
				Allocation: alloc,
				Client:     client,
				Asset:      asset,
			})
			continue
		}

		res.Invalid++
		if !hasClient {
			res.Missing = append(res.Missing, MissingRef{AllocationID: alloc.ID, Resource: domain.ResourceClients, ID: alloc.ClientID})
		}
		if !hasAsset {
			res.Missing = append(res.Missing, MissingRef{AllocationID: alloc.ID, Resource: domain.ResourceAssets, ID: alloc.AssetID})
		}
	}

	return res
}

// Filter joins and partitions in one step
func Filter(raw []domain.Allocation, clients []domain.Client, assets []domain.Asset) Result {
	return Partition(Join(raw, clients, assets))
}

// Warning is the degraded-data notice shown next to allocation data.
// It is empty when every allocation resolved.
func (r Result) Warning() string {
	switch r.Invalid {
	case 0:
		return ""
	case 1:
		return "1 allocation references a missing client or asset and is hidden"
	default:
		return fmt.Sprintf("%d allocations reference a missing client or asset and are hidden", r.Invalid)
	}
}
