// Package events provides the in-process event bus used to announce
// mutations and cache invalidations.
package events

import "time"

// EventType represents different event types
type EventType string

const (
	// Domain mutations
	ClientCreated       EventType = "CLIENT_CREATED"
	ClientUpdated       EventType = "CLIENT_UPDATED"
	ClientStatusChanged EventType = "CLIENT_STATUS_CHANGED"
	AssetCreated        EventType = "ASSET_CREATED"
	AssetUpdated        EventType = "ASSET_UPDATED"
	AllocationCreated   EventType = "ALLOCATION_CREATED"
	AllocationDeleted   EventType = "ALLOCATION_DELETED"

	// Cache and upstream
	CacheInvalidated     EventType = "CACHE_INVALIDATED"
	EntityStoreChanged   EventType = "ENTITY_STORE_CHANGED"
	EntityStoreConnected EventType = "ENTITY_STORE_CONNECTED"
	ErrorOccurred        EventType = "ERROR_OCCURRED"
)

// Event represents a system event
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
	Module    string                 `json:"module"`
}
