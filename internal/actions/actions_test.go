package actions

import (
	"context"
	"errors"
	"testing"
	"time"

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

type recorded struct {
	eventType ledger.EventType
	payload   map[string]any
}

type memRecorder struct {
	events []recorded
}

func (r *memRecorder) Append(eventType ledger.EventType, eventID, plantID string, payload map[string]any) error {
	r.events = append(r.events, recorded{eventType: eventType, payload: payload})
	return nil
}

func (r *memRecorder) lastOfType(et ledger.EventType) (recorded, bool) {
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].eventType == et {
			return r.events[i], true
		}
	}
	return recorded{}, false
}

func newFixture(t *testing.T) (*Invoker, *manager.Manager, *memRecorder) {
	t.Helper()

	rec := &memRecorder{}
	mgr := manager.New(
		newMemStore[grow.Plant](), newMemStore[grow.Growbox](),
		rec, nil, nil,
		manager.Options{Clock: func() time.Time {
			return time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
		}},
	)

	registry := NewRegistry()
	if err := RegisterAll(registry); err != nil {
		t.Fatalf("RegisterAll: %v", err)
	}
	invoker := NewInvoker(registry, rec, func(ctx context.Context) *Context {
		return NewContext(ctx, mgr)
	})
	return invoker, mgr, rec
}

func TestInvokeUnknownAction(t *testing.T) {
	invoker, _, _ := newFixture(t)

	if err := invoker.Invoke(context.Background(), "prune_plant", nil); err == nil {
		t.Fatal("expected error for unregistered action")
	}
	if invoker.HasAction("prune_plant") {
		t.Error("HasAction reports unregistered action")
	}
	if !invoker.HasAction(ActionWaterPlant) {
		t.Error("HasAction misses registered action")
	}
}

func TestWaterPlantCoercesJSONNumbers(t *testing.T) {
	invoker, mgr, rec := newFixture(t)
	if _, err := mgr.CreatePlant(manager.CreatePlantParams{ID: "p1", Name: "Test"}); err != nil {
		t.Fatal(err)
	}

	// JSON and Lua deliver numbers as float64.
	err := invoker.Invoke(context.Background(), ActionWaterPlant, map[string]any{
		"plant_id":  "p1",
		"volume_ml": float64(800),
	})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}

	p, err := mgr.Plant("p1")
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Waterings) != 1 || p.Waterings[0].VolumeML != 800 {
		t.Fatalf("waterings = %+v", p.Waterings)
	}

	if _, ok := rec.lastOfType(ledger.EventActionComplete); !ok {
		t.Error("successful invocation not recorded as action_completed")
	}
}

func TestFailedInvocationRecorded(t *testing.T) {
	invoker, mgr, rec := newFixture(t)
	if _, err := mgr.CreatePlant(manager.CreatePlantParams{ID: "p1", Name: "Test"}); err != nil {
		t.Fatal(err)
	}

	err := invoker.Invoke(context.Background(), ActionChangePhase, map[string]any{
		"plant_id": "p1",
		"phase":    "early_veg",
	})
	if !errors.Is(err, grow.ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}

	event, ok := rec.lastOfType(ledger.EventActionFailed)
	if !ok {
		t.Fatal("failed invocation not recorded")
	}
	if event.payload["action"] != ActionChangePhase {
		t.Errorf("recorded action = %v", event.payload["action"])
	}
}

func TestQuickWaterUsesPlantDefault(t *testing.T) {
	invoker, mgr, _ := newFixture(t)
	if _, err := mgr.CreatePlant(manager.CreatePlantParams{ID: "p1", Name: "Test", DefaultWaterVolumeML: 650}); err != nil {
		t.Fatal(err)
	}

	if err := invoker.Invoke(context.Background(), ActionWaterPlantQuick, map[string]any{"plant_id": "p1"}); err != nil {
		t.Fatalf("Invoke: %v", err)
	}

	p, _ := mgr.Plant("p1")
	if len(p.Waterings) != 1 || p.Waterings[0].VolumeML != 650 {
		t.Fatalf("waterings = %+v", p.Waterings)
	}
}

func TestAddNoteRequiresText(t *testing.T) {
	invoker, mgr, _ := newFixture(t)
	if _, err := mgr.CreatePlant(manager.CreatePlantParams{ID: "p1", Name: "Test"}); err != nil {
		t.Fatal(err)
	}

	if err := invoker.Invoke(context.Background(), ActionAddNote, map[string]any{"plant_id": "p1"}); err == nil {
		t.Fatal("expected error for missing note")
	}

	if err := invoker.Invoke(context.Background(), ActionAddNote, map[string]any{
		"plant_id": "p1",
		"note":     "topped today",
	}); err != nil {
		t.Fatalf("Invoke: %v", err)
	}

	p, _ := mgr.Plant("p1")
	if len(p.Notes) != 1 || p.Notes[0].Text != "topped today" {
		t.Fatalf("notes = %+v", p.Notes)
	}
}
