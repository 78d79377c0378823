package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Moritzheine/growflow-homeassistant/internal/config"
	"github.com/Moritzheine/growflow-homeassistant/internal/entity"
	"github.com/Moritzheine/growflow-homeassistant/internal/eventbus"
	"github.com/Moritzheine/growflow-homeassistant/internal/ledger"
	"github.com/Moritzheine/growflow-homeassistant/internal/manager"
	"github.com/Moritzheine/growflow-homeassistant/internal/readings"
	"github.com/Moritzheine/growflow-homeassistant/internal/scheduler"
)

// SchedulerService registers the periodic maintenance jobs and runs them.
type SchedulerService struct {
	cfg       *config.Config
	Scheduler *scheduler.Scheduler
}

// NewSchedulerService creates a new SchedulerService.
func NewSchedulerService(
	cfg *config.Config,
	entities *entity.Registry,
	mgr *manager.Manager,
	l *ledger.Ledger,
	r *readings.Store,
	bus *eventbus.Bus,
) *SchedulerService {
	sched := scheduler.New()

	// Time-derived entity values (days in phase, days since watering) drift
	// without any domain event, so they refresh on a fixed interval.
	sched.Register(scheduler.Job{
		Name:     "entity_refresh",
		Interval: cfg.Scheduler.UpdateInterval.Duration(),
		Run: func(ctx context.Context) error {
			if err := entity.Sync(entities, mgr); err != nil {
				return err
			}
			entities.UpdateAll()
			bus.Publish(eventbus.Event{Type: eventbus.EventTypeRefresh, Data: map[string]any{}})
			return nil
		},
	})

	sched.Register(scheduler.Job{
		Name:     "ledger_cleanup",
		Interval: cfg.Ledger.CleanupInterval.Duration(),
		Run: func(ctx context.Context) error {
			retention := time.Duration(cfg.Ledger.RetentionDays) * 24 * time.Hour
			deleted, err := l.DeleteOlderThan(retention)
			if err != nil {
				return err
			}
			if deleted > 0 {
				log.Info().Int64("deleted", deleted).Msg("Pruned old ledger events")
			}
			return nil
		},
	})

	sched.Register(scheduler.Job{
		Name:     "readings_purge",
		Interval: cfg.Readings.PurgeInterval.Duration(),
		Run: func(ctx context.Context) error {
			deleted, err := r.Purge()
			if err != nil {
				return err
			}
			if deleted > 0 {
				log.Debug().Int64("deleted", deleted).Msg("Purged expired sensor readings")
			}
			return nil
		},
	})

	return &SchedulerService{cfg: cfg, Scheduler: sched}
}

// Start runs the scheduler in the background.
func (s *SchedulerService) Start(ctx context.Context) {
	go func() {
		if err := s.Scheduler.Run(ctx); err != nil {
			log.Error().Err(err).Msg("Scheduler stopped with error")
		}
	}()
}
