package actions

import (
	"fmt"

	"github.com/Moritzheine/growflow-homeassistant/internal/grow"
)

// Service-call names, kept stable for API and Lua callers.
const (
	ActionChangePhase     = "change_phase"
	ActionWaterPlant      = "water_plant"
	ActionWaterPlantQuick = "water_plant_quick"
	ActionAddNote         = "add_note"
)

// RegisterAll registers the standard growflow service calls.
func RegisterAll(reg *Registry) error {
	if err := reg.RegisterSimple(ActionChangePhase, changePhase); err != nil {
		return err
	}
	if err := reg.RegisterSimple(ActionWaterPlant, waterPlant); err != nil {
		return err
	}
	if err := reg.RegisterSimple(ActionWaterPlantQuick, waterPlantQuick); err != nil {
		return err
	}
	return reg.RegisterSimple(ActionAddNote, addNote)
}

func changePhase(ctx *Context, args map[string]any) error {
	plantID, err := stringArg(args, "plant_id")
	if err != nil {
		return err
	}
	phaseName, err := stringArg(args, "phase")
	if err != nil {
		return err
	}
	phase, err := grow.ParsePhase(phaseName)
	if err != nil {
		return err
	}
	note, _ := args["note"].(string)
	return ctx.Manager.ChangePhase(plantID, phase, note)
}

func waterPlant(ctx *Context, args map[string]any) error {
	plantID, err := stringArg(args, "plant_id")
	if err != nil {
		return err
	}
	volume, err := intArg(args, "volume_ml")
	if err != nil {
		return err
	}
	note, _ := args["note"].(string)
	return ctx.Manager.LogWatering(plantID, volume, note)
}

func waterPlantQuick(ctx *Context, args map[string]any) error {
	plantID, err := stringArg(args, "plant_id")
	if err != nil {
		return err
	}
	return ctx.Manager.QuickWater(plantID)
}

func addNote(ctx *Context, args map[string]any) error {
	plantID, err := stringArg(args, "plant_id")
	if err != nil {
		return err
	}
	note, err := stringArg(args, "note")
	if err != nil {
		return err
	}
	return ctx.Manager.AddNote(plantID, note)
}

func stringArg(args map[string]any, key string) (string, error) {
	v, ok := args[key].(string)
	if !ok || v == "" {
		return "", fmt.Errorf("missing required argument %q", key)
	}
	return v, nil
}

// intArg accepts int or float64 - JSON and Lua both decode numbers as
// float64.
func intArg(args map[string]any, key string) (int, error) {
	switch v := args[key].(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	default:
		return 0, fmt.Errorf("missing required argument %q", key)
	}
}
