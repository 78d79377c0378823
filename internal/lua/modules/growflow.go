// Package modules provides Lua module bindings.
package modules

import (
	"encoding/json"

	"github.com/rs/zerolog/log"
	lua "github.com/yuin/gopher-lua"

	"github.com/Moritzheine/growflow-homeassistant/internal/actions"
	"github.com/Moritzheine/growflow-homeassistant/internal/manager"
)

// GrowflowModule exposes plant data and event hooks to Lua scripts
type GrowflowModule struct {
	mgr     *manager.Manager
	invoker *actions.Invoker

	phaseHandlers    []*lua.LFunction
	wateringHandlers []*lua.LFunction
	sensorHandlers   []*lua.LFunction
}

// NewGrowflowModule creates a new growflow module
func NewGrowflowModule(mgr *manager.Manager, invoker *actions.Invoker) *GrowflowModule {
	return &GrowflowModule{mgr: mgr, invoker: invoker}
}

// Loader is the module loader for Lua
func (m *GrowflowModule) Loader(L *lua.LState) int {
	mod := L.NewTable()

	L.SetField(mod, "on_phase_change", L.NewFunction(m.onPhaseChange))
	L.SetField(mod, "on_watering", L.NewFunction(m.onWatering))
	L.SetField(mod, "on_sensor", L.NewFunction(m.onSensor))
	L.SetField(mod, "plants", L.NewFunction(m.plants))
	L.SetField(mod, "plant_metrics", L.NewFunction(m.plantMetrics))
	L.SetField(mod, "growbox_metrics", L.NewFunction(m.growboxMetrics))
	L.SetField(mod, "call", L.NewFunction(m.call))

	L.Push(mod)
	return 1
}

// on_phase_change(fn) - Register a phase change hook
func (m *GrowflowModule) onPhaseChange(L *lua.LState) int {
	m.phaseHandlers = append(m.phaseHandlers, L.CheckFunction(1))
	return 0
}

// on_watering(fn) - Register a watering hook
func (m *GrowflowModule) onWatering(L *lua.LState) int {
	m.wateringHandlers = append(m.wateringHandlers, L.CheckFunction(1))
	return 0
}

// on_sensor(fn) - Register a sensor reading hook
func (m *GrowflowModule) onSensor(L *lua.LState) int {
	m.sensorHandlers = append(m.sensorHandlers, L.CheckFunction(1))
	return 0
}

// plants() - Returns the list of plant IDs
func (m *GrowflowModule) plants(L *lua.LState) int {
	all, err := m.mgr.Plants()
	if err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}

	tbl := L.NewTable()
	i := 1
	for id := range all {
		tbl.RawSetInt(i, lua.LString(id))
		i++
	}
	L.Push(tbl)
	return 1
}

// plant_metrics(plant_id) - Returns the derived metrics table for a plant
func (m *GrowflowModule) plantMetrics(L *lua.LState) int {
	id := L.CheckString(1)

	metrics, err := m.mgr.PlantMetrics(id)
	if err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(structToTable(L, metrics))
	return 1
}

// growbox_metrics(growbox_id) - Returns the environment metrics table for a growbox
func (m *GrowflowModule) growboxMetrics(L *lua.LState) int {
	id := L.CheckString(1)

	metrics, err := m.mgr.GrowboxMetrics(id)
	if err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(structToTable(L, metrics))
	return 1
}

// call(action_name, args) - Invoke a registered service call from Lua
func (m *GrowflowModule) call(L *lua.LState) int {
	name := L.CheckString(1)
	argsTable := L.OptTable(2, L.NewTable())

	if err := m.invoker.Invoke(L.Context(), name, LuaTableToMap(argsTable)); err != nil {
		L.Push(lua.LString(err.Error()))
		return 1
	}
	L.Push(lua.LNil)
	return 1
}

// FirePhaseChange calls registered phase hooks with the event payload
func (m *GrowflowModule) FirePhaseChange(L *lua.LState, data map[string]any) {
	fireAll(L, m.phaseHandlers, data)
}

// FireWatering calls registered watering hooks with the event payload
func (m *GrowflowModule) FireWatering(L *lua.LState, data map[string]any) {
	fireAll(L, m.wateringHandlers, data)
}

// FireSensor calls registered sensor hooks with the event payload
func (m *GrowflowModule) FireSensor(L *lua.LState, data map[string]any) {
	fireAll(L, m.sensorHandlers, data)
}

func fireAll(L *lua.LState, handlers []*lua.LFunction, data map[string]any) {
	for _, fn := range handlers {
		err := L.CallByParam(lua.P{
			Fn:      fn,
			NRet:    0,
			Protect: true,
		}, MapToLuaTable(L, data))
		if err != nil {
			log.Error().Err(err).Msg("Lua hook failed")
		}
	}
}

// structToTable converts a struct to a Lua table through its JSON form, so
// Lua scripts see the same field names as API clients.
func structToTable(L *lua.LState, v any) lua.LValue {
	raw, err := json.Marshal(v)
	if err != nil {
		return lua.LNil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return lua.LNil
	}
	return MapToLuaTable(L, m)
}
