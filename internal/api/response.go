// Package api implements the HTTP API & Middleware (spec.md §6): the chi
// router, auth/logging/recovery middleware, and the request handlers for
// every endpoint spec.md §6 names.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/nekostore/neko-object/internal/apierr"
)

// envelope is the uniform {success, data?, error?} response shape
// required by spec.md §6.
type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Details string      `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeOK(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: data})
}

func writeCreated(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusCreated, envelope{Success: true, Data: data})
}

// writeError translates a typed apierr.Error (or any other error, treated
// as Internal) into the response envelope and its HTTP status.
func writeError(w http.ResponseWriter, err error) {
	apiErr, ok := apierr.As(err)
	if !ok {
		apiErr = apierr.Internal("internal error", err)
	}

	status := statusForKind(apiErr.Kind)
	writeJSON(w, status, envelope{Success: false, Error: apiErr.Message, Details: apiErr.Detail})
}

func statusForKind(kind apierr.Kind) int {
	switch kind {
	case apierr.KindValidation:
		return http.StatusBadRequest
	case apierr.KindUnauthorized:
		return http.StatusUnauthorized
	case apierr.KindNotFound:
		return http.StatusNotFound
	case apierr.KindConflict:
		return http.StatusConflict
	case apierr.KindRangeNotSatisfiable:
		return http.StatusRequestedRangeNotSatisfiable
	case apierr.KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
