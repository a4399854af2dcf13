// Package domain provides the core entities of the allocation dashboard:
// clients, assets, allocations and the resource names used to key cached reads.
package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// The entity store speaks JSON numbers, not quoted decimals.
	decimal.MarshalJSONWithoutQuotes = true
}

// ClientStatus represents whether a client can receive new allocations
type ClientStatus string

const (
	ClientStatusActive   ClientStatus = "active"
	ClientStatusInactive ClientStatus = "inactive"
)

// Valid reports whether s is one of the known statuses
func (s ClientStatus) Valid() bool {
	return s == ClientStatusActive || s == ClientStatusInactive
}

// ParseClientStatus parses a status name, case-insensitively
func ParseClientStatus(s string) (ClientStatus, error) {
	status := ClientStatus(strings.ToLower(strings.TrimSpace(s)))
	if !status.Valid() {
		return "", fmt.Errorf("unknown client status %q", s)
	}
	return status, nil
}

// Resource names a family of entity store reads.
// Cache invalidation is expressed in terms of resources.
type Resource string

const (
	ResourceClients     Resource = "clients"
	ResourceAssets      Resource = "assets"
	ResourceAllocations Resource = "allocations"
)

// AllResources lists every resource the dashboard reads
var AllResources = []Resource{ResourceClients, ResourceAssets, ResourceAllocations}

// Client is an investor that can hold allocations
type Client struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Email     string       `json:"email"`
	Status    ClientStatus `json:"status"`
	CreatedAt time.Time    `json:"createdAt"`
}

// IsActive reports whether the client may be the target of a new allocation.
// Existing allocations of inactive clients stay valid.
func (c Client) IsActive() bool {
	return c.Status == ClientStatusActive
}

// Asset is an investable instrument with a current value
type Asset struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	CurrentValue decimal.Decimal `json:"currentValue"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// Allocation links one client to one asset with a positive amount.
//
// Client and Asset carry the join performed by the entity store. They are
// optional: a relation that failed to resolve arrives as an absent or null
// field and decodes to None.
type Allocation struct {
	ID        string          `json:"id"`
	ClientID  string          `json:"clientId"`
	AssetID   string          `json:"assetId"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"createdAt"`
	Client    Option[Client]  `json:"client,omitzero"`
	Asset     Option[Asset]   `json:"asset,omitzero"`
}

// ResolvedAllocation is an allocation whose client and asset are both present.
// Only resolved allocations are aggregated or rendered.
type ResolvedAllocation struct {
	Allocation
	Client Client `json:"client"`
	Asset  Asset  `json:"asset"`
}

// ClientInput is the validated payload for creating or updating a client
type ClientInput struct {
	Name   string       `json:"name"`
	Email  string       `json:"email"`
	Status ClientStatus `json:"status"`
}

// AssetInput is the validated payload for creating or updating an asset
type AssetInput struct {
	Name         string          `json:"name"`
	CurrentValue decimal.Decimal `json:"currentValue"`
}

// AllocationInput is the validated payload for creating an allocation
type AllocationInput struct {
	ClientID string          `json:"clientId"`
	AssetID  string          `json:"assetId"`
	Amount   decimal.Decimal `json:"amount"`
}

// StatusInput is the payload of a client status update
type StatusInput struct {
	Status ClientStatus `json:"status"`
}

// ChangeAction describes what happened to an entity
type ChangeAction string

const (
	ChangeCreated ChangeAction = "created"
	ChangeUpdated ChangeAction = "updated"
	ChangeDeleted ChangeAction = "deleted"
)

// Change is one committed mutation announced on the entity store change feed
type Change struct {
	Resource  Resource     `json:"resource"`
	Action    ChangeAction `json:"action"`
	ID        string       `json:"id"`
	Timestamp time.Time    `json:"timestamp"`
}
