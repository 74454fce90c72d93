package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/okian/posture/internal/domain/types"
)

// TransitionDependencies defines the interface for transition history reads.
type TransitionDependencies interface {
	Transitions(ctx context.Context, limit int) ([]types.Transition, error)
}

// TransitionsHandler handles transition history requests.
type TransitionsHandler struct {
	deps     TransitionDependencies
	maxLimit int
}

// NewTransitionsHandler creates a new transitions handler.
func NewTransitionsHandler(deps TransitionDependencies, maxLimit int) *TransitionsHandler {
	return &TransitionsHandler{
		deps:     deps,
		maxLimit: maxLimit,
	}
}

// HandleGetTransitions handles GET /transitions?limit=N requests, newest first.
// The limit defaults to 20.
func (h *TransitionsHandler) HandleGetTransitions(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_transitions"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	n := defaultTransitionLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		var err error
		n, err = strconv.Atoi(limitStr)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
	}
	if n > h.maxLimit {
		writeError(w, http.StatusBadRequest, "limit_exceeded", NewKind(op, ErrBadRequest))
		return
	}
	trs, err := h.deps.Transitions(r.Context(), n)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, trs)
}
