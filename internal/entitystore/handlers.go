package entitystore

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/folio/internal/domain"
)

// Handler serves the entity store REST contract
type Handler struct {
	repo *Repository
	feed *Feed
	log  zerolog.Logger
}

// NewHandler creates a new entity store handler
func NewHandler(repo *Repository, feed *Feed, log zerolog.Logger) *Handler {
	return &Handler{
		repo: repo,
		feed: feed,
		log:  log.With().Str("handler", "entitystore").Logger(),
	}
}

// RegisterRoutes registers the REST resources and the change feed
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/clients", func(r chi.Router) {
		r.Get("/", h.HandleListClients)
		r.Post("/", h.HandleCreateClient)
		r.Get("/{id}", h.HandleGetClient)
		r.Put("/{id}", h.HandleUpdateClient)
		r.Patch("/{id}/status", h.HandleUpdateClientStatus)
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
		r.Delete("/{id}", h.HandleDeleteAllocation)
	})
}

// HandleListClients returns all clients
func (h *Handler) HandleListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := h.repo.ListClients(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, clients)
}

// HandleGetClient returns one client
func (h *Handler) HandleGetClient(w http.ResponseWriter, r *http.Request) {
	client, err := h.repo.GetClient(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, client)
}

// HandleCreateClient creates a client
func (h *Handler) HandleCreateClient(w http.ResponseWriter, r *http.Request) {
	var in domain.ClientInput
	if !h.decode(w, r, &in) {
		return
	}
	client, err := h.repo.CreateClient(r.Context(), in)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.feed.Publish(domain.ResourceClients, domain.ChangeCreated, client.ID)
	h.writeJSON(w, http.StatusCreated, client)
}

// HandleUpdateClient replaces a client's editable fields
func (h *Handler) HandleUpdateClient(w http.ResponseWriter, r *http.Request) {
	var in domain.ClientInput
	if !h.decode(w, r, &in) {
		return
	}
	client, err := h.repo.UpdateClient(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.feed.Publish(domain.ResourceClients, domain.ChangeUpdated, client.ID)
	h.writeJSON(w, http.StatusOK, client)
}

// HandleUpdateClientStatus changes a client's status
func (h *Handler) HandleUpdateClientStatus(w http.ResponseWriter, r *http.Request) {
	var in domain.StatusInput
	if !h.decode(w, r, &in) {
		return
	}
	client, err := h.repo.UpdateClientStatus(r.Context(), chi.URLParam(r, "id"), in.Status)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.feed.Publish(domain.ResourceClients, domain.ChangeUpdated, client.ID)
	h.writeJSON(w, http.StatusOK, client)
}

// HandleListAssets returns all assets
func (h *Handler) HandleListAssets(w http.ResponseWriter, r *http.Request) {
	assets, err := h.repo.ListAssets(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, assets)
}

// HandleGetAsset returns one asset
func (h *Handler) HandleGetAsset(w http.ResponseWriter, r *http.Request) {
	asset, err := h.repo.GetAsset(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, asset)
}

// HandleCreateAsset creates an asset
func (h *Handler) HandleCreateAsset(w http.ResponseWriter, r *http.Request) {
	var in domain.AssetInput
	if !h.decode(w, r, &in) {
		return
	}
	asset, err := h.repo.CreateAsset(r.Context(), in)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.feed.Publish(domain.ResourceAssets, domain.ChangeCreated, asset.ID)
	h.writeJSON(w, http.StatusCreated, asset)
}

// HandleUpdateAsset replaces an asset's name and value
func (h *Handler) HandleUpdateAsset(w http.ResponseWriter, r *http.Request) {
	var in domain.AssetInput
	if !h.decode(w, r, &in) {
		return
	}
	asset, err := h.repo.UpdateAsset(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.feed.Publish(domain.ResourceAssets, domain.ChangeUpdated, asset.ID)
	h.writeJSON(w, http.StatusOK, asset)
}

// HandleListAllocations returns all allocations with resolvable joins embedded
func (h *Handler) HandleListAllocations(w http.ResponseWriter, r *http.Request) {
	allocations, err := h.repo.ListAllocations(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, allocations)
}

// HandleCreateAllocation creates an allocation
func (h *Handler) HandleCreateAllocation(w http.ResponseWriter, r *http.Request) {
	var in domain.AllocationInput
	if !h.decode(w, r, &in) {
		return
	}
	allocation, err := h.repo.CreateAllocation(r.Context(), in)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.feed.Publish(domain.ResourceAllocations, domain.ChangeCreated, allocation.ID)
	h.writeJSON(w, http.StatusCreated, allocation)
}

// HandleDeleteAllocation deletes an allocation
func (h *Handler) HandleDeleteAllocation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.repo.DeleteAllocation(r.Context(), id); err != nil {
		h.fail(w, err)
		return
	}
	h.feed.Publish(domain.ResourceAllocations, domain.ChangeDeleted, id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// fail maps repository errors to status codes
func (h *Handler) fail(w http.ResponseWriter, err error) {
	var input *InputError
	switch {
	case errors.As(err, &input):
		h.writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":  input.Fields.Error(),
			"fields": input.Fields,
		})
	case errors.Is(err, ErrNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	default:
		h.log.Error().Err(err).Msg("Entity store request failed")
		h.writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
