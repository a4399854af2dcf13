package dashboard

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aristath/folio/internal/aggregate"
	"github.com/aristath/folio/internal/domain"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// topN is the length of the top client and asset listings of the overview
const topN = 5

// AllocationRow is one resolved allocation as displayed
type AllocationRow struct {
	ID           string                         `json:"id"`
	ClientID     string                         `json:"clientId"`
	ClientName   string                         `json:"clientName"`
	ClientActive bool                           `json:"clientActive"`
	AssetID      string                         `json:"assetId"`
	AssetName    string                         `json:"assetName"`
	Amount       decimal.Decimal                `json:"amount"`
	Share        domain.Option[decimal.Decimal] `json:"share"`
	CreatedAt    time.Time                      `json:"createdAt"`
}

func newAllocationRow(a domain.ResolvedAllocation) AllocationRow {
	return AllocationRow{
		ID:           a.ID,
		ClientID:     a.ClientID,
		ClientName:   a.Client.Name,
		ClientActive: a.Client.IsActive(),
		AssetID:      a.AssetID,
		AssetName:    a.Asset.Name,
		Amount:       a.Amount,
		Share:        aggregate.Share(a),
		CreatedAt:    a.CreatedAt,
	}
}

func allocationRows(allocs []domain.ResolvedAllocation, keep func(domain.ResolvedAllocation) bool) []AllocationRow {
	rows := make([]AllocationRow, 0, len(allocs))
	for _, a := range allocs {
		if keep == nil || keep(a) {
			rows = append(rows, newAllocationRow(a))
		}
	}
	return rows
}

// Ranked is an entry of a top listing
type Ranked struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Total decimal.Decimal `json:"total"`
}

// Overview summarises the whole book
type Overview struct {
	Clients       int             `json:"clients"`
	ActiveClients int             `json:"activeClients"`
	Assets        int             `json:"assets"`
	Allocations   int             `json:"allocations"`
	Total         decimal.Decimal `json:"total"`
	TopClients    []Ranked        `json:"topClients"`
	TopAssets     []Ranked        `json:"topAssets"`
	Invalid       int             `json:"invalid"`
	Warning       string          `json:"warning,omitempty"`
}

// Overview builds the landing view
func (s *Service) Overview(ctx context.Context) (*Overview, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	valid := snap.Result.Valid
	summary := aggregate.Summarize(valid)

	clientNames := make(map[string]string, len(snap.Clients))
	active := 0
	for _, c := range snap.Clients {
		clientNames[c.ID] = c.Name
		if c.IsActive() {
			active++
		}
	}
	assetNames := make(map[string]string, len(snap.Assets))
	for _, a := range snap.Assets {
		assetNames[a.ID] = a.Name
	}

	return &Overview{
		Clients:       len(snap.Clients),
		ActiveClients: active,
		Assets:        len(snap.Assets),
		Allocations:   summary.Allocations,
		Total:         summary.Total,
		TopClients:    named(aggregate.Top(aggregate.TotalsByClient(valid), topN), clientNames),
		TopAssets:     named(aggregate.Top(aggregate.TotalsByAsset(valid), topN), assetNames),
		Invalid:       snap.Result.Invalid,
		Warning:       snap.Result.Warning(),
	}, nil
}

func named(ranked []aggregate.Ranked, names map[string]string) []Ranked {
	out := make([]Ranked, len(ranked))
	for i, r := range ranked {
		out[i] = Ranked{ID: r.ID, Name: names[r.ID], Total: r.Total}
	}
	return out
}

// ClientRow is one client of the client list with its totals
type ClientRow struct {
	domain.Client
	Total       decimal.Decimal `json:"total"`
	Allocations int             `json:"allocations"`
}

// ClientList is the filtered client table
type ClientList struct {
	Rows    []ClientRow `json:"rows"`
	Total   int         `json:"total"`
	Warning string      `json:"warning,omitempty"`
}

// ClientList lists the clients matching filter with their allocation totals.
// Total counts every client before filtering.
func (s *Service) ClientList(ctx context.Context, filter ClientFilter) (*ClientList, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	totals := aggregate.TotalsByClient(snap.Result.Valid)
	counts := make(map[string]int)
	for _, a := range snap.Result.Valid {
		counts[a.ClientID]++
	}

	rows := make([]ClientRow, 0, len(snap.Clients))
	for _, c := range snap.Clients {
		if !filter.Match(c) {
			continue
		}
		rows = append(rows, ClientRow{
			Client:      c,
			Total:       totals[c.ID],
			Allocations: counts[c.ID],
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return lessByName(rows[i].Name, rows[i].ID, rows[j].Name, rows[j].ID)
	})

	return &ClientList{Rows: rows, Total: len(snap.Clients), Warning: snap.Result.Warning()}, nil
}

// ClientDetail is one client with its holdings
type ClientDetail struct {
	Client        domain.Client          `json:"client"`
	Allocations   []AllocationRow        `json:"allocations"`
	Total         decimal.Decimal        `json:"total"`
	Concentration domain.Option[float64] `json:"concentration"`
	Warning       string                 `json:"warning,omitempty"`
}

// ClientDetail loads one client by id together with its valid allocations
func (s *Service) ClientDetail(ctx context.Context, id string) (*ClientDetail, error) {
	if err := requireID("client", id); err != nil {
		return nil, err
	}

	var (
		client domain.Client
		snap   *Snapshot
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		client, err = s.Client(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		snap, err = s.Snapshot(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	valid := snap.Result.Valid
	return &ClientDetail{
		Client:        client,
		Allocations:   allocationRows(valid, func(a domain.ResolvedAllocation) bool { return a.ClientID == id }),
		Total:         aggregate.TotalsByClient(valid)[id],
		Concentration: aggregate.Concentration(valid, id),
		Warning:       snap.Result.Warning(),
	}, nil
}

// AssetRow is one asset of the asset list with its totals
type AssetRow struct {
	domain.Asset
	Total     decimal.Decimal                `json:"total"`
	Holders   int                            `json:"holders"`
	Allocated domain.Option[decimal.Decimal] `json:"allocated"`
}

// AssetList is the filtered asset table
type AssetList struct {
	Rows    []AssetRow `json:"rows"`
	Total   int        `json:"total"`
	Warning string     `json:"warning,omitempty"`
}

// AssetList lists the assets matching filter with their totals and holders
func (s *Service) AssetList(ctx context.Context, filter AssetFilter) (*AssetList, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	totals := aggregate.TotalsByAsset(snap.Result.Valid)
	holders := aggregate.HoldersByAsset(snap.Result.Valid)

	rows := make([]AssetRow, 0, len(snap.Assets))
	for _, a := range snap.Assets {
		if !filter.Match(a) {
			continue
		}
		rows = append(rows, AssetRow{
			Asset:     a,
			Total:     totals[a.ID],
			Holders:   holders[a.ID],
			Allocated: aggregate.SharePercentage(totals[a.ID], a.CurrentValue),
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return lessByName(rows[i].Name, rows[i].ID, rows[j].Name, rows[j].ID)
	})

	return &AssetList{Rows: rows, Total: len(snap.Assets), Warning: snap.Result.Warning()}, nil
}

// AssetDetail is one asset with the allocations held in it
type AssetDetail struct {
	Asset       domain.Asset                   `json:"asset"`
	Allocations []AllocationRow                `json:"allocations"`
	Total       decimal.Decimal                `json:"total"`
	Holders     int                            `json:"holders"`
	Allocated   domain.Option[decimal.Decimal] `json:"allocated"`
	Warning     string                         `json:"warning,omitempty"`
}

// AssetDetail loads one asset by id together with its valid allocations
func (s *Service) AssetDetail(ctx context.Context, id string) (*AssetDetail, error) {
	if err := requireID("asset", id); err != nil {
		return nil, err
	}

	var (
		asset domain.Asset
		snap  *Snapshot
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		asset, err = s.Asset(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		snap, err = s.Snapshot(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	valid := snap.Result.Valid
	total := aggregate.TotalsByAsset(valid)[id]
	return &AssetDetail{
		Asset:       asset,
		Allocations: allocationRows(valid, func(a domain.ResolvedAllocation) bool { return a.AssetID == id }),
		Total:       total,
		Holders:     aggregate.HoldersByAsset(valid)[id],
		Allocated:   aggregate.SharePercentage(total, asset.CurrentValue),
		Warning:     snap.Result.Warning(),
	}, nil
}

// AllocationList is the allocation table with the degraded-data notice
type AllocationList struct {
	Rows    []AllocationRow `json:"rows"`
	Total   decimal.Decimal `json:"total"`
	Invalid int             `json:"invalid"`
	Warning string          `json:"warning,omitempty"`
}

// AllocationList lists the valid allocations matching filter.
// Invalid counts every hidden allocation, regardless of the filter.
func (s *Service) AllocationList(ctx context.Context, filter AllocationFilter) (*AllocationList, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	rows := allocationRows(snap.Result.Valid, filter.Match)
	total := decimal.Zero
	for _, r := range rows {
		total = total.Add(r.Amount)
	}

	return &AllocationList{
		Rows:    rows,
		Total:   total,
		Invalid: snap.Result.Invalid,
		Warning: snap.Result.Warning(),
	}, nil
}

// AllocationOptions are the choices of the new-allocation form
type AllocationOptions struct {
	Clients []domain.Client `json:"clients"`
	Assets  []domain.Asset  `json:"assets"`
}

// AllocationOptions offers active clients only and every asset
func (s *Service) AllocationOptions(ctx context.Context) (*AllocationOptions, error) {
	refs, err := s.References(ctx)
	if err != nil {
		return nil, err
	}

	opts := &AllocationOptions{
		Clients: make([]domain.Client, 0, len(refs.Clients)),
		Assets:  make([]domain.Asset, 0, len(refs.Assets)),
	}
	for _, c := range refs.Clients {
		if c.IsActive() {
			opts.Clients = append(opts.Clients, c)
		}
	}
	for _, a := range refs.Assets {
		opts.Assets = append(opts.Assets, a)
	}

	sort.Slice(opts.Clients, func(i, j int) bool {
		return lessByName(opts.Clients[i].Name, opts.Clients[i].ID, opts.Clients[j].Name, opts.Clients[j].ID)
	})
	sort.Slice(opts.Assets, func(i, j int) bool {
		return lessByName(opts.Assets[i].Name, opts.Assets[i].ID, opts.Assets[j].Name, opts.Assets[j].ID)
	})
	return opts, nil
}

// Part is one slice of an allocation breakdown
type Part struct {
	Label  string          `json:"label"`
	Amount decimal.Decimal `json:"amount"`
}

// Breakdown splits allocated amounts by asset, for one client or for everyone
type Breakdown struct {
	Title string `json:"title"`
	Parts []Part `json:"parts"`
}

// Breakdown groups the valid allocations by asset. An empty clientID covers
// every client.
func (s *Service) Breakdown(ctx context.Context, clientID string) (*Breakdown, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	title := "Allocations by asset"
	valid := snap.Result.Valid
	if clientID != "" {
		client, err := s.Client(ctx, clientID)
		if err != nil {
			return nil, err
		}
		title = fmt.Sprintf("Allocations of %s", client.Name)
		valid = filterResolved(valid, func(a domain.ResolvedAllocation) bool { return a.ClientID == clientID })
	}

	names := make(map[string]string)
	for _, a := range valid {
		names[a.AssetID] = a.Asset.Name
	}

	ranked := aggregate.Top(aggregate.TotalsByAsset(valid), -1)
	parts := make([]Part, len(ranked))
	for i, r := range ranked {
		parts[i] = Part{Label: names[r.ID], Amount: r.Total}
	}
	return &Breakdown{Title: title, Parts: parts}, nil
}

func filterResolved(allocs []domain.ResolvedAllocation, keep func(domain.ResolvedAllocation) bool) []domain.ResolvedAllocation {
	out := make([]domain.ResolvedAllocation, 0, len(allocs))
	for _, a := range allocs {
		if keep(a) {
			out = append(out, a)
		}
	}
	return out
}

func lessByName(nameA, idA, nameB, idB string) bool {
	a, b := strings.ToLower(nameA), strings.ToLower(nameB)
	if a != b {
		return a < b
	}
	return idA < idB
}
