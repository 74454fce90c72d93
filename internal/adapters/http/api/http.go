// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/posture/internal/domain/pipeline"
	"github.com/okian/posture/internal/domain/skeleton"
	"github.com/okian/posture/internal/domain/types"
)

// Default limits for read endpoints.
const (
	defaultTransitionLimit = 20
	maxTransitionLimit     = 1000
	maxFrameBodyBytes      = 16 << 20
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Submit hands a frame to the pipeline and returns the number it was queued
	// under. Returns ErrBackpressure-wrapped errors when the frame queue is full
	// and ErrDuplicate-wrapped errors for a frame id already accepted.
	Submit(ctx context.Context, frame skeleton.FramePair) (uint64, error)

	// HandleDeviceEvent applies a sensor lifecycle change.
	HandleDeviceEvent(ctx context.Context, ev pipeline.DeviceEvent) int

	// Read operations expose the UI read model.
	State(ctx context.Context) (types.State, error)
	Transitions(ctx context.Context, limit int) ([]types.Transition, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	framesHandler      *FramesHandler
	deviceHandler      *DeviceHandler
	stateHandler       *StateHandler
	transitionsHandler *TransitionsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		framesHandler:      NewFramesHandler(deps),
		deviceHandler:      NewDeviceHandler(deps),
		stateHandler:       NewStateHandler(deps),
		transitionsHandler: NewTransitionsHandler(deps, maxTransitionLimit),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/frames", MetricsMiddleware(s.framesHandler.HandlePostFrame, "frames"))
	mux.HandleFunc("/device", MetricsMiddleware(s.deviceHandler.HandlePostDevice, "device"))
	mux.HandleFunc("/state", MetricsMiddleware(s.stateHandler.HandleGetState, "state"))
	mux.HandleFunc("/transitions", MetricsMiddleware(s.transitionsHandler.HandleGetTransitions, "transitions"))
}

type ackResponse struct {
	Status string `json:"status"`
	Frame  uint64 `json:"frame,omitempty"`
	ID     string `json:"id,omitempty"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
