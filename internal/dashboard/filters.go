package dashboard

import (
	"strings"

	"github.com/aristath/folio/internal/domain"
)

// ClientFilter narrows the client list. Zero values match everything.
type ClientFilter struct {
	Search string
	Status domain.ClientStatus
}

// Match reports whether c passes the filter.
// Search is a case-insensitive substring of the name or email.
func (f ClientFilter) Match(c domain.Client) bool {
	if f.Status != "" && c.Status != f.Status {
		return false
	}
	return containsFold(c.Name, f.Search) || containsFold(c.Email, f.Search)
}

// AssetFilter narrows the asset list
type AssetFilter struct {
	Search string
}

// Match reports whether a passes the filter
func (f AssetFilter) Match(a domain.Asset) bool {
	return containsFold(a.Name, f.Search)
}

// AllocationFilter narrows the allocation list to one client and/or asset
type AllocationFilter struct {
	ClientID string
	AssetID  string
}

// Match reports whether a passes the filter
func (f AllocationFilter) Match(a domain.ResolvedAllocation) bool {
	if f.ClientID != "" && a.ClientID != f.ClientID {
		return false
	}
	if f.AssetID != "" && a.AssetID != f.AssetID {
		return false
	}
	return true
}

func containsFold(s, substr string) bool {
	substr = strings.TrimSpace(substr)
	if substr == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
