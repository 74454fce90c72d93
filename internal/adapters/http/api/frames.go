package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/posture/internal/domain/skeleton"
	"github.com/okian/posture/internal/domain/types"
)

// FrameDependencies defines the interface for frame ingestion.
type FrameDependencies interface {
	Submit(ctx context.Context, frame skeleton.FramePair) (uint64, error)
}

// FramesHandler handles frame ingestion requests.
type FramesHandler struct {
	deps FrameDependencies
}

// NewFramesHandler creates a new frames handler.
func NewFramesHandler(deps FrameDependencies) *FramesHandler {
	return &FramesHandler{deps: deps}
}

// HandlePostFrame handles POST /frames requests. Frames are processed
// asynchronously in arrival order; 202 means the frame was queued and reports the
// number it was queued under. A frame whose id was already accepted gets 200 and
// is not queued again.
func (h *FramesHandler) HandlePostFrame(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_frame"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req types.Frame
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxFrameBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	frame, err := req.ToFramePair()
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	number, err := h.deps.Submit(r.Context(), frame)
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", Frame: number, ID: req.ID})
	case errors.Is(err, ErrDuplicate):
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", ID: req.ID})
	case errors.Is(err, ErrBackpressure):
		writeError(w, http.StatusTooManyRequests, "backpressure", NewKind(op, ErrBackpressure))
	default:
		writeError(w, http.StatusServiceUnavailable, "unavailable", Wrap(op, err))
	}
}
