package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/alineuh/lnurl-project/internal/flow"
)

// statusBody is the LNURL success envelope.
type statusBody struct {
	Status string `json:"status"`
	Event  string `json:"event,omitempty"`
}

// errorBody is the LNURL failure envelope. Reason only ever carries the
// fixed protocol strings from flow errors, never internal error text.
type errorBody struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

// respondFlowError maps a flow failure to its HTTP status and emits the
// LNURL error body alongside it.
func respondFlowError(w http.ResponseWriter, err error) {
	var fe *flow.Error
	if !errors.As(err, &fe) {
		respondJSON(w, http.StatusInternalServerError, errorBody{Status: "ERROR", Reason: "internal error"})
		return
	}

	status := http.StatusInternalServerError
	switch fe.Kind {
	case flow.KindInvalidInput, flow.KindInvalidToken:
		status = http.StatusBadRequest
	case flow.KindUnauthorized:
		status = http.StatusUnauthorized
	case flow.KindUpstream:
		status = http.StatusBadGateway
	}
	respondJSON(w, status, errorBody{Status: "ERROR", Reason: fe.Reason})
}
