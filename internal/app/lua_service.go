package app

import (
	"context"

	"github.com/Moritzheine/growflow-homeassistant/internal/actions"
	"github.com/Moritzheine/growflow-homeassistant/internal/config"
	luart "github.com/Moritzheine/growflow-homeassistant/internal/lua"
	"github.com/Moritzheine/growflow-homeassistant/internal/manager"
)

// LuaService wraps the Lua runtime and provides thread-safe execution.
type LuaService struct {
	cfg     *config.Config
	Runtime *luart.Runtime
}

// NewLuaService creates a new LuaService.
func NewLuaService(cfg *config.Config, mgr *manager.Manager, invoker *actions.Invoker) *LuaService {
	return &LuaService{
		cfg:     cfg,
		Runtime: luart.NewRuntime(mgr, invoker),
	}
}

// LoadScript loads and executes the hook script.
// Must be called before Start().
func (s *LuaService) LoadScript() error {
	return s.Runtime.LoadScript(s.cfg.Script)
}

// Start begins the Lua worker goroutine.
func (s *LuaService) Start(ctx context.Context) {
	// This is the ONLY goroutine that touches Lua
	go s.Runtime.Run(ctx)
}

// Do queues work to be executed on the Lua VM.
func (s *LuaService) Do(ctx context.Context, work luart.LuaWork) bool {
	return s.Runtime.Do(ctx, work)
}

// Close closes the Lua runtime.
func (s *LuaService) Close() {
	if s.Runtime != nil {
		s.Runtime.Close()
	}
}
