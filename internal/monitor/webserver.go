// Package monitor serves the live sensor state over HTTP: JSON snapshots for
// the behavior layer's operators, a manual pose correction endpoint and
// debug charts of recent readings and the breadcrumb trail.
package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/banshee-data/robot.sensors/internal/db"
	"github.com/banshee-data/robot.sensors/internal/monitoring"
	"github.com/banshee-data/robot.sensors/internal/sensors"
	"github.com/banshee-data/robot.sensors/internal/units"
	"github.com/banshee-data/robot.sensors/internal/version"
)

// SessionView is the part of a sensors.Session the monitor reads and
// corrects.
type SessionView interface {
	ID() string
	Ticks() uint64
	LastRaw() sensors.RawReading
	LastFiltered() sensors.Snapshot
	Offset() sensors.PoseDelta
	TrailLength() float64
	ApplyPoseCorrection(dx, dy, dtheta float64) error
}

// TickHistory supplies recorded ticks for the readings chart.
type TickHistory interface {
	RecentTicks(sessionID string, limit int) ([]db.TickRecord, error)
}

var _ SessionView = (*sensors.Session)(nil)
var _ TickHistory = (*db.DB)(nil)

// WebServer handles the HTTP interface for monitoring the sensor session.
type WebServer struct {
	address string
	session SessionView
	history TickHistory
	server  *http.Server
	admin   []func(*http.ServeMux) error
}

// WebServerConfig contains configuration options for the web server
type WebServerConfig struct {
	Address string
	Session SessionView
	// History is optional; without it /debug/readings reports 404.
	History TickHistory
	// AdminRoutes attach extra /debug/ handlers, such as the serial mux and
	// recorder routes.
	AdminRoutes []func(*http.ServeMux) error
}

// NewWebServer creates a new web server with the provided configuration
func NewWebServer(config WebServerConfig) (*WebServer, error) {
	ws := &WebServer{
		address: config.Address,
		session: config.Session,
		history: config.History,
		admin:   config.AdminRoutes,
	}
	mux, err := ws.setupRoutes()
	if err != nil {
		return nil, err
	}
	ws.server = &http.Server{
		Addr:    ws.address,
		Handler: mux,
	}
	return ws, nil
}

// Handler returns the routed handler, for tests and embedding.
func (ws *WebServer) Handler() http.Handler {
	return ws.server.Handler
}

// Start serves until ctx is cancelled and then shuts the server down.
func (ws *WebServer) Start(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		monitoring.Logf("Starting HTTP server on %s", ws.address)
		if err := ws.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err, ok := <-errc:
		if ok {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	monitoring.Logf("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := ws.server.Shutdown(shutdownCtx); err != nil {
		monitoring.Logf("HTTP server shutdown error: %v", err)
		if err := ws.server.Close(); err != nil {
			monitoring.Logf("HTTP server force close error: %v", err)
		}
	}
	monitoring.Logf("HTTP server routine stopped")
	return nil
}

func (ws *WebServer) setupRoutes() (*http.ServeMux, error) {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", ws.handleHealth)
	mux.HandleFunc("/api/snapshot", ws.handleSnapshot)
	mux.HandleFunc("/api/raw", ws.handleRaw)
	mux.HandleFunc("/api/trail", ws.handleTrail)
	mux.HandleFunc("/api/correction", ws.handleCorrection)
	mux.HandleFunc("/debug/readings", ws.handleReadingsChart)
	mux.HandleFunc("/debug/trail.png", ws.handleTrailPlot)

	for _, attach := range ws.admin {
		if err := attach(mux); err != nil {
			return nil, err
		}
	}
	return mux, nil
}

func (ws *WebServer) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		monitoring.Logf("monitor: encode response: %v", err)
	}
}

func (ws *WebServer) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// angleUnits reads the units query parameter, defaulting to radians.
func (ws *WebServer) angleUnits(w http.ResponseWriter, r *http.Request) (string, bool) {
	u := r.URL.Query().Get("units")
	if u == "" {
		return units.Radians, true
	}
	if !units.IsValid(u) {
		ws.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid units %q, expected one of: %s", u, units.GetValidUnitsString()))
		return "", false
	}
	return u, true
}

func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	ws.writeJSON(w, map[string]any{
		"status":    "ok",
		"service":   "sensors",
		"version":   version.Version,
		"session":   ws.session.ID(),
		"ticks":     ws.session.Ticks(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (ws *WebServer) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ws.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	u, ok := ws.angleUnits(w, r)
	if !ok {
		return
	}
	ws.writeJSON(w, snapshotInUnits(ws.session.LastFiltered(), u))
}

func (ws *WebServer) handleRaw(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ws.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	u, ok := ws.angleUnits(w, r)
	if !ok {
		return
	}
	ws.writeJSON(w, rawInUnits(ws.session.LastRaw(), u))
}

// trailResponse is the breadcrumb trail with its simplified outline.
type trailResponse struct {
	Breadcrumbs []sensors.Pose `json:"breadcrumbs"`
	Simplified  []sensors.Pose `json:"simplified"`
	Length      float64        `json:"length"`
	Tolerance   float64        `json:"tolerance"`
}

// defaultSimplifyTolerance is the Douglas-Peucker tolerance in metres.
const defaultSimplifyTolerance = 0.05

func (ws *WebServer) handleTrail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ws.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	tol, ok := floatParam(r, "tolerance", defaultSimplifyTolerance)
	if !ok || tol < 0 {
		ws.writeJSONError(w, http.StatusBadRequest, "invalid tolerance")
		return
	}
	crumbs := ws.session.LastFiltered().Breadcrumbs
	ws.writeJSON(w, trailResponse{
		Breadcrumbs: crumbs,
		Simplified:  sensors.SimplifyPath(crumbs, tol),
		Length:      ws.session.TrailLength(),
		Tolerance:   tol,
	})
}

// correctionRequest is a manual pose correction. DTheta is in the units
// given by the units query parameter.
type correctionRequest struct {
	DX     float64 `json:"dx"`
	DY     float64 `json:"dy"`
	DTheta float64 `json:"dtheta"`
}

func (ws *WebServer) handleCorrection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		ws.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	u, ok := ws.angleUnits(w, r)
	if !ok {
		return
	}
	var req correctionRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		ws.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid correction: %v", err))
		return
	}
	dtheta := req.DTheta
	if u == units.Degrees {
		dtheta = units.DegreesToRadians(dtheta)
	}
	if err := ws.session.ApplyPoseCorrection(req.DX, req.DY, dtheta); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, sensors.ErrSessionClosed) {
			status = http.StatusServiceUnavailable
		}
		ws.writeJSONError(w, status, err.Error())
		return
	}
	off := ws.session.Offset()
	off.DTheta = units.ConvertAngle(off.DTheta, u)
	ws.writeJSON(w, map[string]any{"offset": off})
}
