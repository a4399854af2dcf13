// Package dashboard builds the view models of the dashboard from cached
// entity store reads.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aristath/folio/internal/consistency"
	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/querycache"
	"github.com/aristath/folio/internal/validation"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// ErrNotFound reports a lookup that cannot match any entity
var ErrNotFound = errors.New("not found")

// requireID rejects a blank id before it reaches the cache or the entity store
func requireID(resource, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%s id is required: %w", resource, ErrNotFound)
	}
	return nil
}

// Service reads through the query cache and derives views
type Service struct {
	store domain.EntityStoreReader
	cache *querycache.Cache
	log   zerolog.Logger
}

// NewService creates a new dashboard service
func NewService(store domain.EntityStoreReader, cache *querycache.Cache, log zerolog.Logger) *Service {
	return &Service{
		store: store,
		cache: cache,
		log:   log.With().Str("service", "dashboard").Logger(),
	}
}

// Clients returns every client
func (s *Service) Clients(ctx context.Context) ([]domain.Client, error) {
	return querycache.Fetch(ctx, s.cache, querycache.ListKey(domain.ResourceClients), querycache.TTLFor(domain.ResourceClients), s.store.ListClients)
}

// Assets returns every asset
func (s *Service) Assets(ctx context.Context) ([]domain.Asset, error) {
	return querycache.Fetch(ctx, s.cache, querycache.ListKey(domain.ResourceAssets), querycache.TTLFor(domain.ResourceAssets), s.store.ListAssets)
}

// Allocations returns every allocation as the entity store sent it
func (s *Service) Allocations(ctx context.Context) ([]domain.Allocation, error) {
	return querycache.Fetch(ctx, s.cache, querycache.ListKey(domain.ResourceAllocations), querycache.TTLFor(domain.ResourceAllocations), s.store.ListAllocations)
}

// Client returns one client by id
func (s *Service) Client(ctx context.Context, id string) (domain.Client, error) {
	if err := requireID("client", id); err != nil {
		return domain.Client{}, err
	}
	return querycache.Fetch(ctx, s.cache, querycache.ItemKey(domain.ResourceClients, id), querycache.TTLFor(domain.ResourceClients),
		func(ctx context.Context) (domain.Client, error) { return s.store.GetClient(ctx, id) })
}

// Asset returns one asset by id
func (s *Service) Asset(ctx context.Context, id string) (domain.Asset, error) {
	if err := requireID("asset", id); err != nil {
		return domain.Asset{}, err
	}
	return querycache.Fetch(ctx, s.cache, querycache.ItemKey(domain.ResourceAssets, id), querycache.TTLFor(domain.ResourceAssets),
		func(ctx context.Context) (domain.Asset, error) { return s.store.GetAsset(ctx, id) })
}

// Snapshot is a consistent set of the three resources with the filtered join
type Snapshot struct {
	Clients     []domain.Client
	Assets      []domain.Asset
	Allocations []domain.Allocation
	Result      consistency.Result
}

// Snapshot loads clients, assets and allocations in parallel.
// Nothing is derived until all three loads have succeeded; any failure
// returns that error and no partial snapshot.
func (s *Service) Snapshot(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		clients, err := s.Clients(gctx)
		if err != nil {
			return fmt.Errorf("failed to load clients: %w", err)
		}
		snap.Clients = clients
		return nil
	})
	g.Go(func() error {
		assets, err := s.Assets(gctx)
		if err != nil {
			return fmt.Errorf("failed to load assets: %w", err)
		}
		snap.Assets = assets
		return nil
	})
	g.Go(func() error {
		allocations, err := s.Allocations(gctx)
		if err != nil {
			return fmt.Errorf("failed to load allocations: %w", err)
		}
		snap.Allocations = allocations
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snap.Result = consistency.Filter(snap.Allocations, snap.Clients, snap.Assets)
	if snap.Result.Invalid > 0 {
		missing := make([]string, len(snap.Result.Missing))
		for i, m := range snap.Result.Missing {
			missing[i] = m.String()
		}
		s.log.Warn().
			Int("invalid", snap.Result.Invalid).
			Strs("missing", missing).
			Msg("Allocations reference missing clients or assets")
	}

	return snap, nil
}

// References returns the clients and assets new allocations may point at
func (s *Service) References(ctx context.Context) (validation.References, error) {
	var (
		clients []domain.Client
		assets  []domain.Asset
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		clients, err = s.Clients(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		assets, err = s.Assets(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return validation.References{}, err
	}

	return validation.NewReferences(clients, assets), nil
}
