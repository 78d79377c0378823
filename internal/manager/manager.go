// Package manager owns plant and growbox lifecycle and every operation the
// service layer exposes. Each operation reads the whole persisted record,
// applies a pure core operation, writes the whole record back, appends an
// audit event and publishes to the bus. Errors are scoped to a single
// invocation and never retried.
package manager

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Moritzheine/growflow-homeassistant/internal/eventbus"
	"github.com/Moritzheine/growflow-homeassistant/internal/grow"
	"github.com/Moritzheine/growflow-homeassistant/internal/ledger"
)

// PlantStore is the persistence collaborator for plant records.
// Implemented by state.TypedStore[grow.Plant].
type PlantStore interface {
	Get(id string) (grow.Plant, int64, error)
	Set(id string, p grow.Plant) error
	Delete(id string) error
	GetAll() (map[string]grow.Plant, error)
}

// GrowboxStore is the persistence collaborator for growbox records.
type GrowboxStore interface {
	Get(id string) (grow.Growbox, int64, error)
	Set(id string, g grow.Growbox) error
	Delete(id string) error
	GetAll() (map[string]grow.Growbox, error)
}

// Recorder appends audit events. Implemented by ledger.Ledger.
type Recorder interface {
	Append(eventType ledger.EventType, eventID, plantID string, payload map[string]any) error
}

// Publisher sends events to the bus. Implemented by eventbus.Bus.
type Publisher interface {
	Publish(event eventbus.Event)
}

// ReadingSource resolves the latest value for an external sensor key.
type ReadingSource interface {
	Latest(sensor string) (value float64, ok bool)
}

// Options tune manager behavior.
type Options struct {
	// MaxVolumeML bounds a single watering. Zero means grow.DefaultMaxVolumeML.
	MaxVolumeML int
	// DefaultWaterVolumeML seeds new plants without an explicit default.
	DefaultWaterVolumeML int
	// Clock returns the current time; nil means time.Now. Injected so the
	// derived metrics are testable.
	Clock func() time.Time
}

// Manager coordinates all plant and growbox operations.
type Manager struct {
	mu        sync.Mutex
	plants    PlantStore
	growboxes GrowboxStore
	rec       Recorder
	bus       Publisher
	readings  ReadingSource
	opts      Options
}

// New creates a manager. rec, bus and readings may be nil when the
// corresponding concern is not wired (tests, --reset-state runs).
func New(plants PlantStore, growboxes GrowboxStore, rec Recorder, bus Publisher, readings ReadingSource, opts Options) *Manager {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.DefaultWaterVolumeML <= 0 {
		opts.DefaultWaterVolumeML = 500
	}
	return &Manager{
		plants:    plants,
		growboxes: growboxes,
		rec:       rec,
		bus:       bus,
		readings:  readings,
		opts:      opts,
	}
}

// MigrateStored maps every persisted phase history recorded under the
// deprecated taxonomy to the current one, rewriting changed records.
// Called once at startup before any entity reads state.
func (m *Manager) MigrateStored() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	all, err := m.plants.GetAll()
	if err != nil {
		return err
	}

	for id, p := range all {
		migrated, err := p.History.Migrate()
		if err != nil {
			return fmt.Errorf("plant %s: %w", id, err)
		}
		if changed := !historiesEqual(p.History, migrated); changed {
			p.History = migrated
			if err := m.plants.Set(id, p); err != nil {
				return fmt.Errorf("plant %s: %w", id, err)
			}
			log.Info().Str("plant", id).Msg("Migrated phase history to current taxonomy")
		}
	}
	return nil
}

func historiesEqual(a, b grow.PhaseHistory) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Phase != b[i].Phase {
			return false
		}
	}
	return true
}

// CreatePlantParams carries the configuration for a new plant.
type CreatePlantParams struct {
	ID                   string
	Name                 string
	Strain               string
	Growbox              string
	PlantedDate          time.Time
	Phase                grow.Phase
	DefaultWaterVolumeML int
}

// CreatePlant registers a new plant with one initial open phase-history
// entry. A referenced growbox must exist.
func (m *Manager) CreatePlant(params CreatePlantParams) (grow.Plant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if params.ID == "" {
		params.ID = uuid.NewString()
	}
	if params.Phase == "" {
		params.Phase = grow.PhaseEarlyVeg
	}
	if !params.Phase.Valid() {
		return grow.Plant{}, fmt.Errorf("%w: %q", grow.ErrUnknownPhase, params.Phase)
	}
	if params.PlantedDate.IsZero() {
		params.PlantedDate = m.opts.Clock()
	}
	if params.DefaultWaterVolumeML <= 0 {
		params.DefaultWaterVolumeML = m.opts.DefaultWaterVolumeML
	}

	if params.Growbox != "" {
		if _, version, err := m.growboxes.Get(params.Growbox); err != nil {
			return grow.Plant{}, err
		} else if version == 0 {
			return grow.Plant{}, fmt.Errorf("growbox %q: %w", params.Growbox, grow.ErrNotFound)
		}
	}

	if _, version, err := m.plants.Get(params.ID); err != nil {
		return grow.Plant{}, err
	} else if version != 0 {
		return grow.Plant{}, fmt.Errorf("plant %q already exists", params.ID)
	}

	p := grow.NewPlant(params.ID, params.Name, params.Strain, params.Growbox,
		params.PlantedDate, params.Phase, params.DefaultWaterVolumeML)
	if err := m.plants.Set(p.ID, p); err != nil {
		return grow.Plant{}, err
	}

	log.Info().Str("plant", p.ID).Str("name", p.Name).Str("phase", string(params.Phase)).Msg("Plant created")
	return p, nil
}

// DeletePlant removes a plant record entirely.
func (m *Manager) DeletePlant(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.loadPlant(id); err != nil {
		return err
	}
	if err := m.plants.Delete(id); err != nil {
		return err
	}
	log.Info().Str("plant", id).Msg("Plant deleted")
	return nil
}

// Plant returns the stored record for one plant.
func (m *Manager) Plant(id string) (grow.Plant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadPlant(id)
}

// Plants returns all stored plant records keyed by ID.
func (m *Manager) Plants() (map[string]grow.Plant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.plants.GetAll()
}

// ChangePhase closes the plant's open phase entry and opens a new one.
func (m *Manager) ChangePhase(id string, newPhase grow.Phase, note string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, err := m.loadPlant(id)
	if err != nil {
		return err
	}

	oldPhase := p.CurrentPhase()
	now := m.opts.Clock()

	history, err := p.History.ChangePhase(newPhase, now, note)
	if err != nil {
		return err
	}
	p.History = history

	if err := m.plants.Set(p.ID, p); err != nil {
		return err
	}

	m.emit(ledger.EventPhaseChanged, eventbus.EventTypePhaseChanged, p.ID, map[string]any{
		"plant_id":  p.ID,
		"old_phase": string(oldPhase),
		"new_phase": string(newPhase),
		"note":      note,
	})
	log.Info().Str("plant", p.ID).Str("from", string(oldPhase)).Str("to", string(newPhase)).Msg("Phase changed")
	return nil
}

// LogWatering appends a watering entry after validating the volume bound.
func (m *Manager) LogWatering(id string, volumeML int, note string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.water(id, volumeML, note)
}

// QuickWater appends a watering entry using the plant's configured default
// volume.
func (m *Manager) QuickWater(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, err := m.loadPlant(id)
	if err != nil {
		return err
	}
	return m.water(id, p.DefaultWaterVolumeML, "")
}

func (m *Manager) water(id string, volumeML int, note string) error {
	p, err := m.loadPlant(id)
	if err != nil {
		return err
	}

	now := m.opts.Clock()
	waterings, err := p.Waterings.Append(volumeML, now, note, m.opts.MaxVolumeML)
	if err != nil {
		return err
	}
	p.Waterings = waterings

	if err := m.plants.Set(p.ID, p); err != nil {
		return err
	}

	m.emit(ledger.EventWateringAdded, eventbus.EventTypeWateringAdded, p.ID, map[string]any{
		"plant_id":  p.ID,
		"volume_ml": volumeML,
		"note":      note,
	})
	log.Info().Str("plant", p.ID).Int("volume_ml", volumeML).Msg("Watering logged")
	return nil
}

// AddNote attaches a dated free-form note to a plant.
func (m *Manager) AddNote(id, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, err := m.loadPlant(id)
	if err != nil {
		return err
	}

	p.Notes = append(p.Notes, grow.Note{Timestamp: m.opts.Clock(), Text: text})
	if err := m.plants.Set(p.ID, p); err != nil {
		return err
	}

	m.emit(ledger.EventNoteAdded, eventbus.EventTypeNoteAdded, p.ID, map[string]any{
		"plant_id": p.ID,
		"note":     text,
	})
	return nil
}

// SetDefaultWaterVolume updates the volume used by QuickWater.
func (m *Manager) SetDefaultWaterVolume(id string, volumeML int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	maxML := m.opts.MaxVolumeML
	if maxML <= 0 {
		maxML = grow.DefaultMaxVolumeML
	}
	if volumeML < 1 || volumeML > maxML {
		return fmt.Errorf("%w: %d ml (allowed 1-%d)", grow.ErrVolumeOutOfRange, volumeML, maxML)
	}

	p, err := m.loadPlant(id)
	if err != nil {
		return err
	}
	p.DefaultWaterVolumeML = volumeML
	return m.plants.Set(p.ID, p)
}

// CreateGrowboxParams carries the configuration for a new growbox.
type CreateGrowboxParams struct {
	ID                string
	Name              string
	TemperatureSensor string
	HumiditySensor    string
	TargetVPD         float64
}

// CreateGrowbox registers a new growbox.
func (m *Manager) CreateGrowbox(params CreateGrowboxParams) (grow.Growbox, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if params.ID == "" {
		params.ID = uuid.NewString()
	}
	if _, version, err := m.growboxes.Get(params.ID); err != nil {
		return grow.Growbox{}, err
	} else if version != 0 {
		return grow.Growbox{}, fmt.Errorf("growbox %q already exists", params.ID)
	}

	g := grow.NewGrowbox(params.ID, params.Name, params.TemperatureSensor, params.HumiditySensor, params.TargetVPD)
	if err := m.growboxes.Set(g.ID, g); err != nil {
		return grow.Growbox{}, err
	}

	log.Info().Str("growbox", g.ID).Str("name", g.Name).Msg("Growbox created")
	return g, nil
}

// DeleteGrowbox removes a growbox. Plants referencing it keep their lookup
// key; the reference is non-owning.
func (m *Manager) DeleteGrowbox(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.loadGrowbox(id); err != nil {
		return err
	}
	if err := m.growboxes.Delete(id); err != nil {
		return err
	}
	log.Info().Str("growbox", id).Msg("Growbox deleted")
	return nil
}

// Growbox returns the stored record for one growbox.
func (m *Manager) Growbox(id string) (grow.Growbox, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadGrowbox(id)
}

// Growboxes returns all stored growbox records keyed by ID.
func (m *Manager) Growboxes() (map[string]grow.Growbox, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.growboxes.GetAll()
}

// SetTargetVPD updates a growbox's target vapor pressure deficit.
func (m *Manager) SetTargetVPD(id string, target float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, err := m.loadGrowbox(id)
	if err != nil {
		return err
	}
	g.TargetVPD = target
	return m.growboxes.Set(g.ID, g)
}

// Now returns the manager's current time. Entities use it so derived
// metrics share one clock.
func (m *Manager) Now() time.Time {
	return m.opts.Clock()
}

func (m *Manager) loadPlant(id string) (grow.Plant, error) {
	p, version, err := m.plants.Get(id)
	if err != nil {
		return grow.Plant{}, err
	}
	if version == 0 {
		return grow.Plant{}, fmt.Errorf("plant %q: %w", id, grow.ErrNotFound)
	}

	// Histories written by older releases carry the deprecated taxonomy.
	history, err := p.History.Migrate()
	if err != nil {
		return grow.Plant{}, fmt.Errorf("plant %q: %w", id, err)
	}
	p.History = history
	return p, nil
}

func (m *Manager) loadGrowbox(id string) (grow.Growbox, error) {
	g, version, err := m.growboxes.Get(id)
	if err != nil {
		return grow.Growbox{}, err
	}
	if version == 0 {
		return grow.Growbox{}, fmt.Errorf("growbox %q: %w", id, grow.ErrNotFound)
	}
	return g, nil
}

func (m *Manager) emit(ledgerType ledger.EventType, busType eventbus.EventType, plantID string, payload map[string]any) {
	eventID := uuid.NewString()
	payload["event_id"] = eventID

	if m.rec != nil {
		if err := m.rec.Append(ledgerType, eventID, plantID, payload); err != nil {
			log.Error().Err(err).Str("event_type", string(ledgerType)).Msg("Failed to append ledger event")
		}
	}
	if m.bus != nil {
		m.bus.Publish(eventbus.Event{Type: busType, Data: payload})
	}
}
