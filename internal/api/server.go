// Package api exposes the growflow service layer over HTTP. Every
// mutating route dispatches a registered action; reads serve stored
// records, derived metrics and entity values.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Moritzheine/growflow-homeassistant/internal/actions"
	"github.com/Moritzheine/growflow-homeassistant/internal/entity"
	"github.com/Moritzheine/growflow-homeassistant/internal/eventbus"
	"github.com/Moritzheine/growflow-homeassistant/internal/grow"
	"github.com/Moritzheine/growflow-homeassistant/internal/ledger"
	"github.com/Moritzheine/growflow-homeassistant/internal/manager"
)

// EventSource reads the audit trail for the event feed routes.
// Implemented by ledger.Ledger.
type EventSource interface {
	GetByPlant(plantID string, limit int) ([]*ledger.Entry, error)
}

// ReadingSink records ingested sensor values. Implemented by
// readings.Store.
type ReadingSink interface {
	Record(sensor string, value float64) error
}

// Publisher sends events to the bus.
type Publisher interface {
	Publish(event eventbus.Event)
}

// Server is the growflow HTTP API.
type Server struct {
	addr       string
	mgr        *manager.Manager
	invoker    *actions.Invoker
	entities   *entity.Registry
	events     EventSource
	readings   ReadingSink
	bus        Publisher
	httpServer *http.Server
}

// NewServer creates a new API server. events, readings and bus may be nil
// when the corresponding concern is not wired.
func NewServer(host string, port int, mgr *manager.Manager, invoker *actions.Invoker, entities *entity.Registry, events EventSource, readings ReadingSink, bus Publisher) *Server {
	return &Server{
		addr:     fmt.Sprintf("%s:%d", host, port),
		mgr:      mgr,
		invoker:  invoker,
		entities: entities,
		events:   events,
		readings: readings,
		bus:      bus,
	}
}

// Handler returns the route table. Split out so tests can drive it with
// httptest without binding a port.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/plants", s.handleCreatePlant)
	mux.HandleFunc("GET /api/v1/plants", s.handleListPlants)
	mux.HandleFunc("GET /api/v1/plants/{id}", s.handleGetPlant)
	mux.HandleFunc("DELETE /api/v1/plants/{id}", s.handleDeletePlant)
	mux.HandleFunc("POST /api/v1/plants/{id}/phase", s.handleChangePhase)
	mux.HandleFunc("POST /api/v1/plants/{id}/waterings", s.handleLogWatering)
	mux.HandleFunc("POST /api/v1/plants/{id}/waterings/quick", s.handleQuickWater)
	mux.HandleFunc("POST /api/v1/plants/{id}/notes", s.handleAddNote)
	mux.HandleFunc("PUT /api/v1/plants/{id}/default-volume", s.handleSetDefaultVolume)
	mux.HandleFunc("GET /api/v1/plants/{id}/metrics", s.handlePlantMetrics)
	mux.HandleFunc("GET /api/v1/plants/{id}/events", s.handlePlantEvents)

	mux.HandleFunc("POST /api/v1/growboxes", s.handleCreateGrowbox)
	mux.HandleFunc("GET /api/v1/growboxes", s.handleListGrowboxes)
	mux.HandleFunc("GET /api/v1/growboxes/{id}", s.handleGetGrowbox)
	mux.HandleFunc("DELETE /api/v1/growboxes/{id}", s.handleDeleteGrowbox)
	mux.HandleFunc("PUT /api/v1/growboxes/{id}/target-vpd", s.handleSetTargetVPD)
	mux.HandleFunc("GET /api/v1/growboxes/{id}/metrics", s.handleGrowboxMetrics)

	mux.HandleFunc("POST /api/v1/ingest/sensor", s.handleIngestSensor)

	mux.HandleFunc("GET /api/v1/entities", s.handleListEntities)
	mux.HandleFunc("GET /api/v1/entities/{id}", s.handleGetEntity)

	return mux
}

// Run starts the API server. It blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	s.httpServer = &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
	}

	log.Info().Str("addr", s.addr).Msg("Starting API server")

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("API server shutdown error")
		}
	}()

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// writeError maps domain errors to HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, grow.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, grow.ErrInvalidTransition):
		status = http.StatusConflict
	case errors.Is(err, grow.ErrVolumeOutOfRange), errors.Is(err, grow.ErrUnknownPhase):
		status = http.StatusBadRequest
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return false
	}
	return true
}
