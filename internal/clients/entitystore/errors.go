package entitystore

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/PaesslerAG/jsonpath"
)

// APIError is a non-2xx answer from the entity store.
// Message is the single human-readable message of the response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("entity store returned %d: %s", e.Status, e.Message)
}

// messagePaths are tried in order against a JSON error body
var messagePaths = []string{"$.message", "$.error"}

func newAPIError(status int, body []byte) *APIError {
	return &APIError{Status: status, Message: extractMessage(status, body)}
}

// extractMessage reads the optional message of an error body and falls back
// to the status text when the body carries none.
func extractMessage(status int, body []byte) string {
	var doc interface{}
	if len(body) > 0 && json.Unmarshal(body, &doc) == nil {
		for _, path := range messagePaths {
			v, err := jsonpath.Get(path, doc)
			if err != nil {
				continue
			}
			if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}

	if text := http.StatusText(status); text != "" {
		return text
	}
	return fmt.Sprintf("HTTP %d", status)
}

// AsAPIError unwraps err to an *APIError
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsNotFound reports whether err is a 404 from the entity store
func IsNotFound(err error) bool {
	apiErr, ok := AsAPIError(err)
	return ok && apiErr.Status == http.StatusNotFound
}

// IsAmbiguous reports whether the outcome of a failed mutation is unknown:
// the request may or may not have been applied. Transport failures and 5xx
// answers are ambiguous; 4xx answers are definite rejections.
func IsAmbiguous(err error) bool {
	if err == nil {
		return false
	}
	apiErr, ok := AsAPIError(err)
	if !ok {
		return true
	}
	return apiErr.Status >= http.StatusInternalServerError
}
