package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Moritzheine/growflow-homeassistant/internal/actions"
	"github.com/Moritzheine/growflow-homeassistant/internal/entity"
	"github.com/Moritzheine/growflow-homeassistant/internal/grow"
	"github.com/Moritzheine/growflow-homeassistant/internal/ledger"
	"github.com/Moritzheine/growflow-homeassistant/internal/manager"
)

type memStore[T any] struct {
	items    map[string]T
	versions map[string]int64
}

func newMemStore[T any]() *memStore[T] {
	return &memStore[T]{items: make(map[string]T), versions: make(map[string]int64)}
}

func (s *memStore[T]) Get(id string) (T, int64, error) {
	v, ok := s.items[id]
	if !ok {
		var zero T
		return zero, 0, nil
	}
	return v, s.versions[id], nil
}

func (s *memStore[T]) Set(id string, v T) error {
	s.items[id] = v
	s.versions[id]++
	return nil
}

func (s *memStore[T]) Delete(id string) error {
	delete(s.items, id)
	delete(s.versions, id)
	return nil
}

func (s *memStore[T]) GetAll() (map[string]T, error) {
	out := make(map[string]T, len(s.items))
	for k, v := range s.items {
		out[k] = v
	}
	return out, nil
}

type memRecorder struct {
	entries []ledger.Entry
}

func (r *memRecorder) Append(eventType ledger.EventType, eventID, plantID string, payload map[string]any) error {
	r.entries = append(r.entries, ledger.Entry{
		EventID:   eventID,
		EventType: eventType,
		PlantID:   plantID,
		Timestamp: time.Now(),
		Payload:   payload,
	})
	return nil
}

func (r *memRecorder) GetByPlant(plantID string, limit int) ([]*ledger.Entry, error) {
	var out []*ledger.Entry
	for i := len(r.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if r.entries[i].PlantID == plantID {
			e := r.entries[i]
			out = append(out, &e)
		}
	}
	return out, nil
}

type memReadings struct {
	values map[string]float64
}

func (r *memReadings) Record(sensor string, value float64) error {
	r.values[sensor] = value
	return nil
}

func (r *memReadings) Latest(sensor string) (float64, bool) {
	v, ok := r.values[sensor]
	return v, ok
}

type fixture struct {
	server   *httptest.Server
	mgr      *manager.Manager
	rec      *memRecorder
	readings *memReadings
	entities *entity.Registry
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		rec:      &memRecorder{},
		readings: &memReadings{values: make(map[string]float64)},
		entities: entity.NewRegistry(),
		now:      time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC),
	}

	f.mgr = manager.New(
		newMemStore[grow.Plant](), newMemStore[grow.Growbox](),
		f.rec, nil, f.readings,
		manager.Options{Clock: func() time.Time { return f.now }},
	)

	registry := actions.NewRegistry()
	if err := actions.RegisterAll(registry); err != nil {
		t.Fatalf("RegisterAll: %v", err)
	}
	invoker := actions.NewInvoker(registry, f.rec, func(ctx context.Context) *actions.Context {
		return actions.NewContext(ctx, f.mgr)
	})

	srv := NewServer("127.0.0.1", 0, f.mgr, invoker, f.entities, f.rec, f.readings, nil)
	f.server = httptest.NewServer(srv.Handler())
	t.Cleanup(f.server.Close)
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, f.server.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := f.server.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (f *fixture) doJSON(t *testing.T, method, path string, body any, wantStatus int, out any) {
	t.Helper()

	resp := f.do(t, method, path, body)
	if resp.StatusCode != wantStatus {
		t.Fatalf("%s %s: status = %d, want %d", method, path, resp.StatusCode, wantStatus)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
}

func (f *fixture) createPlant(t *testing.T, id, name string) {
	t.Helper()
	f.doJSON(t, http.MethodPost, "/api/v1/plants",
		map[string]any{"id": id, "name": name}, http.StatusCreated, nil)
}

func TestPlantLifecycle(t *testing.T) {
	f := newFixture(t)

	var created grow.Plant
	f.doJSON(t, http.MethodPost, "/api/v1/plants",
		map[string]any{"id": "p1", "name": "Northern Lights", "strain": "indica"},
		http.StatusCreated, &created)
	if created.ID != "p1" || created.Name != "Northern Lights" {
		t.Fatalf("created = %+v", created)
	}
	if created.CurrentPhase() != grow.PhaseEarlyVeg {
		t.Errorf("initial phase = %q, want early_veg", created.CurrentPhase())
	}

	var fetched grow.Plant
	f.doJSON(t, http.MethodGet, "/api/v1/plants/p1", nil, http.StatusOK, &fetched)
	if fetched.DefaultWaterVolumeML != 500 {
		t.Errorf("default volume = %d, want 500", fetched.DefaultWaterVolumeML)
	}

	var all map[string]grow.Plant
	f.doJSON(t, http.MethodGet, "/api/v1/plants", nil, http.StatusOK, &all)
	if len(all) != 1 {
		t.Fatalf("plants = %d, want 1", len(all))
	}

	f.doJSON(t, http.MethodDelete, "/api/v1/plants/p1", nil, http.StatusOK, nil)
	f.doJSON(t, http.MethodGet, "/api/v1/plants/p1", nil, http.StatusNotFound, nil)
}

func TestErrorMapping(t *testing.T) {
	f := newFixture(t)
	f.createPlant(t, "p1", "Test")

	// Missing plant.
	f.doJSON(t, http.MethodPost, "/api/v1/plants/nope/waterings/quick", nil, http.StatusNotFound, nil)

	// Same-phase transition.
	f.doJSON(t, http.MethodPost, "/api/v1/plants/p1/phase",
		map[string]any{"phase": "early_veg"}, http.StatusConflict, nil)

	// Unknown phase.
	f.doJSON(t, http.MethodPost, "/api/v1/plants/p1/phase",
		map[string]any{"phase": "germination"}, http.StatusBadRequest, nil)

	// Volume out of bounds.
	f.doJSON(t, http.MethodPost, "/api/v1/plants/p1/waterings",
		map[string]any{"volume_ml": 0}, http.StatusBadRequest, nil)
	f.doJSON(t, http.MethodPost, "/api/v1/plants/p1/waterings",
		map[string]any{"volume_ml": 10001}, http.StatusBadRequest, nil)

	// Malformed body.
	resp := f.do(t, http.MethodPost, "/api/v1/plants/p1/phase", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty body: status = %d, want 400", resp.StatusCode)
	}
}

func TestPhaseChangeAndMetrics(t *testing.T) {
	f := newFixture(t)
	f.createPlant(t, "p1", "Test")

	f.now = f.now.AddDate(0, 0, 10)
	f.doJSON(t, http.MethodPost, "/api/v1/plants/p1/phase",
		map[string]any{"phase": "mid_late_veg", "note": "stretching"}, http.StatusOK, nil)

	f.now = f.now.AddDate(0, 0, 5)

	var metrics manager.PlantMetrics
	f.doJSON(t, http.MethodGet, "/api/v1/plants/p1/metrics", nil, http.StatusOK, &metrics)
	if metrics.Phase != grow.PhaseMidLateVeg {
		t.Errorf("phase = %q, want mid_late_veg", metrics.Phase)
	}
	if metrics.DaysSincePlanted != 15 {
		t.Errorf("days since planted = %d, want 15", metrics.DaysSincePlanted)
	}
	if metrics.DaysInPhase[grow.PhaseEarlyVeg] != 10 {
		t.Errorf("days in early_veg = %d, want 10", metrics.DaysInPhase[grow.PhaseEarlyVeg])
	}
	if metrics.DaysInCurrentPhase != 5 {
		t.Errorf("days in current phase = %d, want 5", metrics.DaysInCurrentPhase)
	}
	if metrics.TotalVegDays != 15 {
		t.Errorf("total veg days = %d, want 15", metrics.TotalVegDays)
	}

	// Phase change and the action outcome both landed in the event feed.
	var events []map[string]any
	f.doJSON(t, http.MethodGet, "/api/v1/plants/p1/events", nil, http.StatusOK, &events)
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
}

func TestWateringRoutes(t *testing.T) {
	f := newFixture(t)
	f.createPlant(t, "p1", "Test")

	f.doJSON(t, http.MethodPost, "/api/v1/plants/p1/waterings",
		map[string]any{"volume_ml": 2000, "note": "with nutrients"}, http.StatusOK, nil)

	f.doJSON(t, http.MethodPut, "/api/v1/plants/p1/default-volume",
		map[string]any{"volume_ml": 750}, http.StatusOK, nil)
	f.doJSON(t, http.MethodPost, "/api/v1/plants/p1/waterings/quick", nil, http.StatusOK, nil)

	var metrics manager.PlantMetrics
	f.doJSON(t, http.MethodGet, "/api/v1/plants/p1/metrics", nil, http.StatusOK, &metrics)
	if metrics.TotalSessions != 2 {
		t.Errorf("sessions = %d, want 2", metrics.TotalSessions)
	}
	if metrics.WaterThisWeekML != 2750 {
		t.Errorf("water this week = %d, want 2750", metrics.WaterThisWeekML)
	}
	if metrics.AvgPerSessionML != 1375 {
		t.Errorf("avg per session = %v, want 1375", metrics.AvgPerSessionML)
	}
}

func TestGrowboxEnvironment(t *testing.T) {
	f := newFixture(t)

	f.doJSON(t, http.MethodPost, "/api/v1/growboxes",
		map[string]any{
			"id": "g1", "name": "Tent",
			"temperature_sensor": "sensor.tent_temp",
			"humidity_sensor":    "sensor.tent_hum",
		}, http.StatusCreated, nil)

	f.doJSON(t, http.MethodPut, "/api/v1/growboxes/g1/target-vpd",
		map[string]any{"target_vpd": 1.2}, http.StatusOK, nil)

	// No readings yet: environment fields absent.
	var metrics manager.GrowboxMetrics
	f.doJSON(t, http.MethodGet, "/api/v1/growboxes/g1/metrics", nil, http.StatusOK, &metrics)
	if metrics.VPD != nil || metrics.Temperature != nil {
		t.Fatalf("metrics without readings = %+v", metrics)
	}
	if metrics.TargetVPD != 1.2 {
		t.Errorf("target vpd = %v, want 1.2", metrics.TargetVPD)
	}

	f.doJSON(t, http.MethodPost, "/api/v1/ingest/sensor",
		map[string]any{"sensor": "sensor.tent_temp", "value": 25.0}, http.StatusOK, nil)
	f.doJSON(t, http.MethodPost, "/api/v1/ingest/sensor",
		map[string]any{"sensor": "sensor.tent_hum", "value": 60.0}, http.StatusOK, nil)

	f.doJSON(t, http.MethodGet, "/api/v1/growboxes/g1/metrics", nil, http.StatusOK, &metrics)
	if metrics.VPD == nil {
		t.Fatal("vpd missing after both readings ingested")
	}
	if got := *metrics.VPD; got < 1.2 || got > 1.3 {
		t.Errorf("vpd = %v, want ~1.27", got)
	}
	// 25C at 60% gives ~1.27 kPa, above the optimal band but below Too High.
	if metrics.VPDStatus != "Good" {
		t.Errorf("vpd status = %q, want Good", metrics.VPDStatus)
	}

	// Plant assignment shows up in box metrics.
	f.doJSON(t, http.MethodPost, "/api/v1/plants",
		map[string]any{"id": "p1", "name": "Test", "growbox": "g1"}, http.StatusCreated, nil)
	f.doJSON(t, http.MethodGet, "/api/v1/growboxes/g1/metrics", nil, http.StatusOK, &metrics)
	if len(metrics.Plants) != 1 || metrics.Plants[0] != "p1" {
		t.Errorf("plants = %v, want [p1]", metrics.Plants)
	}

	// Unknown growbox reference rejected at plant creation.
	f.doJSON(t, http.MethodPost, "/api/v1/plants",
		map[string]any{"id": "p2", "name": "Test", "growbox": "nope"}, http.StatusNotFound, nil)
}

func TestEntityRoutes(t *testing.T) {
	f := newFixture(t)
	f.createPlant(t, "p1", "Test")

	var values map[string]any
	f.doJSON(t, http.MethodGet, "/api/v1/entities", nil, http.StatusOK, &values)
	if _, ok := values["plant_p1_days_since_planted"]; !ok {
		t.Fatalf("plant entities missing after create, got %d entities", len(values))
	}

	var one map[string]any
	f.doJSON(t, http.MethodGet, "/api/v1/entities/plant_p1_days_since_planted", nil, http.StatusOK, &one)
	if got, ok := one["value"].(float64); !ok || got != 0 {
		t.Errorf("days_since_planted entity value = %v, want 0", one["value"])
	}

	f.doJSON(t, http.MethodGet, "/api/v1/entities/plant_p1_nope", nil, http.StatusNotFound, nil)

	// Entities are torn down with the plant.
	f.doJSON(t, http.MethodDelete, "/api/v1/plants/p1", nil, http.StatusOK, nil)
	values = nil // json.Decode merges into a non-nil map, keeping stale keys
	f.doJSON(t, http.MethodGet, "/api/v1/entities", nil, http.StatusOK, &values)
	if _, ok := values["plant_p1_days_since_planted"]; ok {
		t.Error("plant entities still registered after delete")
	}
}
