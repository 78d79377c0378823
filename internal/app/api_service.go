package app

import (
	"context"

	"github.com/Moritzheine/growflow-homeassistant/internal/actions"
	"github.com/Moritzheine/growflow-homeassistant/internal/api"
	"github.com/Moritzheine/growflow-homeassistant/internal/config"
	"github.com/Moritzheine/growflow-homeassistant/internal/entity"
	"github.com/Moritzheine/growflow-homeassistant/internal/manager"
)

// APIService wraps the HTTP API server.
type APIService struct {
	cfg    *config.Config
	server *api.Server
}

// NewAPIService creates a new APIService.
func NewAPIService(
	cfg *config.Config,
	mgr *manager.Manager,
	invoker *actions.Invoker,
	entities *entity.Registry,
	events api.EventSource,
	readingsSink api.ReadingSink,
	bus api.Publisher,
) *APIService {
	return &APIService{
		cfg:    cfg,
		server: api.NewServer(cfg.API.Host, cfg.API.Port, mgr, invoker, entities, events, readingsSink, bus),
	}
}

// Start begins serving if the API is enabled. A listen failure is fatal:
// without the API the daemon has no command surface.
func (s *APIService) Start(ctx context.Context, onFatalError func(error)) {
	if !s.cfg.API.Enabled {
		return
	}

	go func() {
		if err := s.server.Run(ctx, s.cfg.ShutdownTimeout.Duration()); err != nil {
			onFatalError(err)
		}
	}()
}
