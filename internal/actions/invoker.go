package actions

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/Moritzheine/growflow-homeassistant/internal/ledger"
)

// Recorder appends audit events. Implemented by ledger.Ledger.
type Recorder interface {
	Append(eventType ledger.EventType, eventID, plantID string, payload map[string]any) error
}

// Invoker executes registered actions. Failures are recorded but never
// retried; each invocation is scoped to one service call.
type Invoker struct {
	registry   *Registry
	rec        Recorder
	ctxFactory func(ctx context.Context) *Context
}

// NewInvoker creates a new action invoker
func NewInvoker(registry *Registry, rec Recorder, ctxFactory func(ctx context.Context) *Context) *Invoker {
	return &Invoker{
		registry:   registry,
		rec:        rec,
		ctxFactory: ctxFactory,
	}
}

// HasAction checks if an action is registered
func (i *Invoker) HasAction(actionName string) bool {
	_, exists := i.registry.Get(actionName)
	return exists
}

// Invoke executes an action by name.
func (i *Invoker) Invoke(ctx context.Context, actionName string, args map[string]any) error {
	action, exists := i.registry.Get(actionName)
	if !exists {
		return fmt.Errorf("action %q not found", actionName)
	}

	log.Debug().Str("action", actionName).Interface("args", args).Msg("Executing action")

	actx := i.ctxFactory(ctx)
	err := action.Execute(actx, args)

	if i.rec != nil {
		plantID, _ := args["plant_id"].(string)
		outcome := ledger.EventActionComplete
		payload := map[string]any{"action": actionName}
		if err != nil {
			outcome = ledger.EventActionFailed
			payload["error"] = err.Error()
		}
		if recErr := i.rec.Append(outcome, "", plantID, payload); recErr != nil {
			log.Error().Err(recErr).Msg("Failed to record action outcome")
		}
	}

	return err
}
