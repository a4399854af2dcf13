package querycache

import (
	"time"

	"github.com/aristath/folio/internal/domain"
)

// TTL constants per resource.
// Mutations made through the dashboard invalidate immediately; the TTL only
// bounds staleness from writes made elsewhere.
const (
	TTLClients     = 5 * time.Minute
	TTLAssets      = 5 * time.Minute
	TTLAllocations = time.Minute
)

// TTLFor returns the TTL of a resource
func TTLFor(r domain.Resource) time.Duration {
	switch r {
	case domain.ResourceClients:
		return TTLClients
	case domain.ResourceAssets:
		return TTLAssets
	default:
		return TTLAllocations
	}
}
