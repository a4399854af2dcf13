package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/folio/internal/charts"
	"github.com/aristath/folio/internal/dashboard"
	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/mutation"
	"github.com/aristath/folio/internal/validation"
)

// DashboardHandlers serves the dashboard views and the mutations behind its forms
type DashboardHandlers struct {
	responder
	service     *dashboard.Service
	coordinator *mutation.Coordinator
}

// NewDashboardHandlers creates the dashboard handlers
func NewDashboardHandlers(service *dashboard.Service, coordinator *mutation.Coordinator, log zerolog.Logger) *DashboardHandlers {
	return &DashboardHandlers{
		responder:   responder{log: log.With().Str("handler", "dashboard").Logger()},
		service:     service,
		coordinator: coordinator,
	}
}

// RegisterRoutes registers the dashboard routes under /api
func (h *DashboardHandlers) RegisterRoutes(r chi.Router) {
	r.Get("/overview", h.HandleOverview)

	r.Route("/clients", func(r chi.Router) {
		r.Get("/", h.HandleListClients)
		r.Post("/", h.HandleCreateClient)
		r.Get("/{id}", h.HandleGetClient)
		r.Put("/{id}", h.HandleUpdateClient)
		r.Patch("/{id}/status", h.HandleSetClientStatus)
	})

	r.Route("/assets", func(r chi.Router) {
		r.Get("/", h.HandleListAssets)
		r.Post("/", h.HandleCreateAsset)
		r.Get("/{id}", h.HandleGetAsset)
		r.Put("/{id}", h.HandleUpdateAsset)
	})

	r.Route("/allocations", func(r chi.Router) {
		r.Get("/", h.HandleListAllocations)
		r.Post("/", h.HandleCreateAllocation)
		r.Get("/options", h.HandleAllocationOptions)
		r.Delete("/{id}", h.HandleDeleteAllocation)
	})

	r.Get("/charts/allocations.svg", h.HandleAllocationChart)
}

// HandleOverview returns the landing view
// GET /api/overview
func (h *DashboardHandlers) HandleOverview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.service.Overview(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, overview)
}

// HandleListClients returns the filtered client list
// GET /api/clients?search=&status=
func (h *DashboardHandlers) HandleListClients(w http.ResponseWriter, r *http.Request) {
	filter := dashboard.ClientFilter{Search: r.URL.Query().Get("search")}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, err := domain.ParseClientStatus(raw)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		filter.Status = status
	}

	list, err := h.service.ClientList(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, list)
}

// HandleGetClient returns one client with its holdings
// GET /api/clients/{id}
func (h *DashboardHandlers) HandleGetClient(w http.ResponseWriter, r *http.Request) {
	detail, err := h.service.ClientDetail(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, detail)
}

// HandleListAssets returns the filtered asset list
// GET /api/assets?search=
func (h *DashboardHandlers) HandleListAssets(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.AssetList(r.Context(), dashboard.AssetFilter{Search: r.URL.Query().Get("search")})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, list)
}

// HandleGetAsset returns one asset with the allocations held in it
// GET /api/assets/{id}
func (h *DashboardHandlers) HandleGetAsset(w http.ResponseWriter, r *http.Request) {
	detail, err := h.service.AssetDetail(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, detail)
}

// HandleListAllocations returns the valid allocations and the hidden count
// GET /api/allocations?client=&asset=
func (h *DashboardHandlers) HandleListAllocations(w http.ResponseWriter, r *http.Request) {
	filter := dashboard.AllocationFilter{
		ClientID: r.URL.Query().Get("client"),
		AssetID:  r.URL.Query().Get("asset"),
	}
	list, err := h.service.AllocationList(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, list)
}

// HandleAllocationOptions returns the choices of the new-allocation form
// GET /api/allocations/options
func (h *DashboardHandlers) HandleAllocationOptions(w http.ResponseWriter, r *http.Request) {
	opts, err := h.service.AllocationOptions(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, opts)
}

// HandleAllocationChart renders the allocation breakdown as an SVG pie
// GET /api/charts/allocations.svg?client=
func (h *DashboardHandlers) HandleAllocationChart(w http.ResponseWriter, r *http.Request) {
	breakdown, err := h.service.Breakdown(r.Context(), r.URL.Query().Get("client"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	slices := make([]charts.Slice, len(breakdown.Parts))
	for i, p := range breakdown.Parts {
		slices[i] = charts.Slice{Label: p.Label, Value: p.Amount}
	}

	svg, err := charts.AllocationPie(breakdown.Title, slices)
	if errors.Is(err, charts.ErrNoData) {
		h.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to render allocation chart")
		h.writeError(w, http.StatusInternalServerError, "failed to render chart")
		return
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(svg); err != nil {
		h.log.Debug().Err(err).Msg("Failed to write chart")
	}
}

type clientRequest struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Status string `json:"status"`
}

func (req clientRequest) form() validation.ClientForm {
	return validation.ClientForm{Name: req.Name, Email: req.Email, Status: req.Status}
}

type statusRequest struct {
	Status string `json:"status"`
}

type assetRequest struct {
	Name         string    `json:"name"`
	CurrentValue formValue `json:"currentValue"`
}

func (req assetRequest) form() validation.AssetForm {
	return validation.AssetForm{Name: req.Name, CurrentValue: string(req.CurrentValue)}
}

type allocationRequest struct {
	ClientID string    `json:"clientId"`
	AssetID  string    `json:"assetId"`
	Amount   formValue `json:"amount"`
}

// HandleCreateClient creates a client
// POST /api/clients
func (h *DashboardHandlers) HandleCreateClient(w http.ResponseWriter, r *http.Request) {
	var req clientRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	client, err := h.coordinator.CreateClient(r.Context(), req.form())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, client)
}

// HandleUpdateClient updates a client
// PUT /api/clients/{id}
func (h *DashboardHandlers) HandleUpdateClient(w http.ResponseWriter, r *http.Request) {
	var req clientRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	client, err := h.coordinator.UpdateClient(r.Context(), chi.URLParam(r, "id"), req.form())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, client)
}

// HandleSetClientStatus activates or deactivates a client
// PATCH /api/clients/{id}/status
func (h *DashboardHandlers) HandleSetClientStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	client, err := h.coordinator.SetClientStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, client)
}

// HandleCreateAsset creates an asset
// POST /api/assets
func (h *DashboardHandlers) HandleCreateAsset(w http.ResponseWriter, r *http.Request) {
	var req assetRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	asset, err := h.coordinator.CreateAsset(r.Context(), req.form())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, asset)
}

// HandleUpdateAsset updates an asset
// PUT /api/assets/{id}
func (h *DashboardHandlers) HandleUpdateAsset(w http.ResponseWriter, r *http.Request) {
	var req assetRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	asset, err := h.coordinator.UpdateAsset(r.Context(), chi.URLParam(r, "id"), req.form())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, asset)
}

// HandleCreateAllocation creates an allocation
// POST /api/allocations
func (h *DashboardHandlers) HandleCreateAllocation(w http.ResponseWriter, r *http.Request) {
	var req allocationRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	allocation, err := h.coordinator.CreateAllocation(r.Context(), validation.AllocationForm{
		ClientID: req.ClientID,
		AssetID:  req.AssetID,
		Amount:   string(req.Amount),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, allocation)
}

// HandleDeleteAllocation deletes an allocation
// DELETE /api/allocations/{id}
func (h *DashboardHandlers) HandleDeleteAllocation(w http.ResponseWriter, r *http.Request) {
	if err := h.coordinator.DeleteAllocation(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
