package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/Moritzheine/growflow-homeassistant/internal/actions"
	"github.com/Moritzheine/growflow-homeassistant/internal/config"
	"github.com/Moritzheine/growflow-homeassistant/internal/db"
	"github.com/Moritzheine/growflow-homeassistant/internal/entity"
	"github.com/Moritzheine/growflow-homeassistant/internal/eventbus"
	"github.com/Moritzheine/growflow-homeassistant/internal/ledger"
	"github.com/Moritzheine/growflow-homeassistant/internal/manager"
	"github.com/Moritzheine/growflow-homeassistant/internal/readings"
	"github.com/Moritzheine/growflow-homeassistant/internal/state"
	"github.com/Moritzheine/growflow-homeassistant/internal/stores"
)

// Services is a container for all application services.
// It manages service initialization order and dependencies.
type Services struct {
	cfg *config.Config

	// Core infrastructure
	DB       *db.DB
	Ledger   *ledger.Ledger
	Store    *state.Store
	Stores   *stores.Registry
	Readings *readings.Store
	Bus      *eventbus.Bus

	// Domain layer
	Manager  *manager.Manager
	Entities *entity.Registry

	// Action system
	Registry *actions.Registry
	Invoker  *actions.Invoker

	// High-level services
	API       *APIService
	Lua       *LuaService
	Scheduler *SchedulerService
	Health    *HealthService
}

// NewServices creates all services with proper dependency injection.
func NewServices(cfg *config.Config) (*Services, error) {
	s := &Services{cfg: cfg}

	// Initialize database
	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	s.DB = database

	// Initialize ledger and stores
	s.Ledger = ledger.New(database.DB)
	s.Store = state.NewStore(database.DB)
	s.Stores = stores.NewRegistry(s.Store)
	s.Readings = readings.NewStore(database.DB, cfg.Readings.TTL.Duration())

	// Initialize event bus
	s.Bus = eventbus.NewWithConfig(cfg.EventBus.GetWorkers(), cfg.EventBus.GetQueueSize())

	// Initialize domain manager
	s.Manager = manager.New(
		s.Stores.Plants(),
		s.Stores.Growboxes(),
		s.Ledger,
		s.Bus,
		s.Readings,
		manager.Options{
			MaxVolumeML:          cfg.Watering.MaxVolumeML,
			DefaultWaterVolumeML: cfg.Watering.DefaultVolumeML,
		},
	)

	// Initialize entity registry
	s.Entities = entity.NewRegistry()

	// Initialize action system
	s.Registry = actions.NewRegistry()
	if err := actions.RegisterAll(s.Registry); err != nil {
		s.Close()
		return nil, err
	}
	ctxFactory := func(ctx context.Context) *actions.Context {
		return actions.NewContext(ctx, s.Manager)
	}
	s.Invoker = actions.NewInvoker(s.Registry, s.Ledger, ctxFactory)

	// Initialize high-level services
	s.API = NewAPIService(cfg, s.Manager, s.Invoker, s.Entities, s.Ledger, s.Readings, s.Bus)
	s.Scheduler = NewSchedulerService(cfg, s.Entities, s.Manager, s.Ledger, s.Readings, s.Bus)
	s.Health = NewHealthService(cfg)

	// Lua hooks are optional; no script path means no runtime at all
	if cfg.Script != "" {
		s.Lua = NewLuaService(cfg, s.Manager, s.Invoker)
	}

	return s, nil
}

// Start starts all services in the correct order.
// The onFatalError callback is called when a fatal error occurs.
func (s *Services) Start(ctx context.Context, onFatalError func(error)) error {
	// Rewrite any stored history still using the deprecated phase taxonomy
	// before anything reads state.
	if err := s.Manager.MigrateStored(); err != nil {
		return err
	}

	// Register entities for everything already stored.
	if err := entity.Sync(s.Entities, s.Manager); err != nil {
		return err
	}

	if s.Lua != nil {
		if err := s.Lua.LoadScript(); err != nil {
			return err
		}
		s.Lua.Start(ctx)
		s.subscribeLuaHooks(ctx)
	}

	s.subscribeEntityRefresh()

	s.API.Start(ctx, onFatalError)
	s.Scheduler.Start(ctx)
	s.Health.Start(ctx)

	return nil
}

// subscribeEntityRefresh keeps entity values current as domain events land.
func (s *Services) subscribeEntityRefresh() {
	refresh := func(eventbus.Event) {
		s.Entities.UpdateAll()
	}
	s.Bus.Subscribe(eventbus.EventTypePhaseChanged, refresh)
	s.Bus.Subscribe(eventbus.EventTypeWateringAdded, refresh)
	s.Bus.Subscribe(eventbus.EventTypeSensorReading, refresh)
	s.Bus.Subscribe(eventbus.EventTypeRefresh, refresh)
}

// subscribeLuaHooks forwards domain events to the script hooks. Hook
// execution is queued on the Lua worker; bus workers never touch the VM.
func (s *Services) subscribeLuaHooks(ctx context.Context) {
	s.Bus.Subscribe(eventbus.EventTypePhaseChanged, func(e eventbus.Event) {
		s.Lua.Do(ctx, func(context.Context) { s.Lua.Runtime.FirePhaseChange(e.Data) })
	})
	s.Bus.Subscribe(eventbus.EventTypeWateringAdded, func(e eventbus.Event) {
		s.Lua.Do(ctx, func(context.Context) { s.Lua.Runtime.FireWatering(e.Data) })
	})
	s.Bus.Subscribe(eventbus.EventTypeSensorReading, func(e eventbus.Event) {
		s.Lua.Do(ctx, func(context.Context) { s.Lua.Runtime.FireSensor(e.Data) })
	})
}

// ClearState clears all stored plant and growbox records.
func (s *Services) ClearState() error {
	return s.Stores.Clear()
}

// Stop gracefully stops all services.
func (s *Services) Stop() error {
	s.Close()
	return nil
}

// Close releases all resources.
func (s *Services) Close() {
	if s.Lua != nil {
		s.Lua.Close()
	}
	if s.Bus != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout.Duration())
		defer cancel()
		s.Bus.Close(shutdownCtx)
	}
	if s.DB != nil {
		if err := s.DB.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close database")
		}
	}
}
