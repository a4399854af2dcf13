package mutation

import "github.com/aristath/folio/internal/domain"

// Operation names a mutation the coordinator performs
type Operation string

const (
	OpCreateClient     Operation = "create_client"
	OpUpdateClient     Operation = "update_client"
	OpSetClientStatus  Operation = "set_client_status"
	OpCreateAsset      Operation = "create_asset"
	OpUpdateAsset      Operation = "update_asset"
	OpCreateAllocation Operation = "create_allocation"
	OpDeleteAllocation Operation = "delete_allocation"
)

// invalidations declares the resources each mutation makes stale.
// Allocation changes alter per-client and per-asset totals, so all three
// resources go. Client and asset changes alter the joins shown with allocations.
var invalidations = map[Operation][]domain.Resource{
	OpCreateClient:     {domain.ResourceClients, domain.ResourceAllocations},
	OpUpdateClient:     {domain.ResourceClients, domain.ResourceAllocations},
	OpSetClientStatus:  {domain.ResourceClients, domain.ResourceAllocations},
	OpCreateAsset:      {domain.ResourceAssets, domain.ResourceAllocations},
	OpUpdateAsset:      {domain.ResourceAssets, domain.ResourceAllocations},
	OpCreateAllocation: {domain.ResourceAllocations, domain.ResourceClients, domain.ResourceAssets},
	OpDeleteAllocation: {domain.ResourceAllocations, domain.ResourceClients, domain.ResourceAssets},
}

// InvalidatedBy returns the resources invalidated after op
func InvalidatedBy(op Operation) []domain.Resource {
	resources := invalidations[op]
	out := make([]domain.Resource, len(resources))
	copy(out, resources)
	return out
}

// changeOps maps a change announced by the entity store to the mutation that
// would have produced it locally
var changeOps = map[domain.Resource]Operation{
	domain.ResourceClients:     OpUpdateClient,
	domain.ResourceAssets:      OpUpdateAsset,
	domain.ResourceAllocations: OpCreateAllocation,
}

// InvalidatedByChange returns the resources made stale by an out-of-band
// change. Unknown resources invalidate everything.
func InvalidatedByChange(change domain.Change) []domain.Resource {
	op, ok := changeOps[change.Resource]
	if !ok {
		return append([]domain.Resource(nil), domain.AllResources...)
	}
	return InvalidatedBy(op)
}
