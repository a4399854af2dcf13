package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/aristath/folio/internal/clients/entitystore"
	"github.com/aristath/folio/internal/dashboard"
	"github.com/aristath/folio/internal/mutation"
)

// responder holds the JSON helpers shared by the handler groups
type responder struct {
	log zerolog.Logger
}

// writeJSON writes a JSON response
func (h responder) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h responder) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

// fail translates a service error into a response.
// Entity store rejections keep their 4xx status and single message; anything
// that leaves the outcome unknown becomes 502.
func (h responder) fail(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *mutation.ValidationError
	if errors.As(err, &validationErr) {
		h.writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":  "validation failed",
			"fields": validationErr.Fields,
		})
		return
	}

	if errors.Is(err, dashboard.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, err.Error())
		return
	}

	if errors.Is(err, context.Canceled) && r.Context().Err() != nil {
		h.log.Debug().Str("path", r.URL.Path).Msg("Client went away")
		return
	}

	if apiErr, ok := entitystore.AsAPIError(err); ok {
		if apiErr.Status >= 400 && apiErr.Status < 500 {
			h.writeError(w, apiErr.Status, apiErr.Message)
			return
		}
		h.log.Warn().Int("upstream_status", apiErr.Status).Str("message", apiErr.Message).Msg("Entity store failed")
		h.writeError(w, http.StatusBadGateway, apiErr.Message)
		return
	}

	h.log.Warn().Err(err).Str("path", r.URL.Path).Msg("Entity store unreachable")
	h.writeError(w, http.StatusBadGateway, "entity store unavailable")
}

// decodeBody decodes a JSON request body, answering 400 on failure
func (h responder) decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// formValue reads a JSON scalar as form text, so "12.5" and 12.5 both work
// and anything unparsable is left to field validation
type formValue string

func (v *formValue) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = formValue(s)
		return nil
	}
	*v = formValue(data)
	return nil
}
