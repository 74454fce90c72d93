package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/okian/posture/internal/domain/pipeline"
)

// DeviceDependencies defines the interface for sensor lifecycle notifications.
type DeviceDependencies interface {
	HandleDeviceEvent(ctx context.Context, ev pipeline.DeviceEvent) int
}

// DeviceHandler handles sensor lifecycle requests.
type DeviceHandler struct {
	deps DeviceDependencies
}

// NewDeviceHandler creates a new device handler.
func NewDeviceHandler(deps DeviceDependencies) *DeviceHandler {
	return &DeviceHandler{deps: deps}
}

type deviceRequest struct {
	Event string `json:"event"`
}

type deviceResponse struct {
	Event string `json:"event"`
	Exits int    `json:"exits"`
}

// HandlePostDevice handles POST /device with {"event":"connected|disconnected"}.
func (h *DeviceHandler) HandlePostDevice(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_device"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req deviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	var ev pipeline.DeviceEvent
	switch req.Event {
	case "connected":
		ev = pipeline.DeviceConnected
	case "disconnected":
		ev = pipeline.DeviceDisconnected
	default:
		writeError(w, http.StatusBadRequest, "bad_request",
			WrapKind(op, ErrBadRequest, fmt.Errorf("unknown event %q", req.Event)))
		return
	}

	exits := h.deps.HandleDeviceEvent(r.Context(), ev)
	writeJSON(w, http.StatusOK, deviceResponse{Event: ev.String(), Exits: exits})
}
