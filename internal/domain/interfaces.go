package domain

import "context"

// EntityStoreReader defines the read side of the remote entity store
type EntityStoreReader interface {
	ListClients(ctx context.Context) ([]Client, error)
	GetClient(ctx context.Context, id string) (Client, error)
	ListAssets(ctx context.Context) ([]Asset, error)
	GetAsset(ctx context.Context, id string) (Asset, error)
	ListAllocations(ctx context.Context) ([]Allocation, error)
}

// EntityStoreWriter defines the mutations accepted by the remote entity store.
// Referential integrity of allocations is enforced on the store side.
type EntityStoreWriter interface {
	CreateClient(ctx context.Context, in ClientInput) (Client, error)
	UpdateClient(ctx context.Context, id string, in ClientInput) (Client, error)
	UpdateClientStatus(ctx context.Context, id string, status ClientStatus) (Client, error)
	CreateAsset(ctx context.Context, in AssetInput) (Asset, error)
	UpdateAsset(ctx context.Context, id string, in AssetInput) (Asset, error)
	CreateAllocation(ctx context.Context, in AllocationInput) (Allocation, error)
	DeleteAllocation(ctx context.Context, id string) error
}

// EntityStore is the full remote contract
type EntityStore interface {
	EntityStoreReader
	EntityStoreWriter
}
