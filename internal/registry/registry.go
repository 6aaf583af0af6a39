// Package registry is the explicit catalog of collector modules and the
// single dispatch path for invoking them. Modules are registered under
// stable names; callers invoke a name plus an optional command and get the
// module's result mapping back.
package registry

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fabricmgr/fabricmgr/internal/apperrors"
	"github.com/fabricmgr/fabricmgr/internal/logger"
)

// Request carries the invocation configuration shared by all modules.
// Fields are optional; each module reads the ones it understands. Command
// is reserved for the dispatcher: it is populated only when a requested
// command is routed to the module's default entry point.
type Request struct {
	SubscriptionID string
	WorkspaceID    string
	TenantID       string
	OutputDir      string
	Command        string
}

// Result is the mapping every entry point returns. It is never a bare list
// or scalar, so callers can uniformly inspect well-known keys.
type Result map[string]any

// Well-known result keys and values.
const (
	KeyStatus  = "status"
	KeySummary = "summary"
	KeyRunID   = "run_id"

	StatusSuccess = "success"
)

// Summary returns the per-dataset record counts, or nil when absent.
func (r Result) Summary() map[string]int {
	summary, _ := r[KeySummary].(map[string]int)
	return summary
}

// Status returns the result status string, or "" when absent.
func (r Result) Status() string {
	status, _ := r[KeyStatus].(string)
	return status
}

// EntryPoint is one invocable operation of a module.
type EntryPoint func(ctx context.Context, req Request) (Result, error)

// Module is the minimal identity every registered collector exposes.
// Invocable behavior comes from the optional capability interfaces.
type Module interface {
	Name() string
	Description() string
}

// Runner is the default entry point capability.
type Runner interface {
	Run(ctx context.Context, req Request) (Result, error)
}

// CommandProvider exposes named commands beyond the default entry point.
type CommandProvider interface {
	Command(name string) (EntryPoint, bool)
}

// Registry holds named modules and dispatches invocations.
type Registry struct {
	mu      sync.RWMutex
	modules map[string]Module
	log     logger.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(log logger.Logger) *Registry {
	return &Registry{
		modules: make(map[string]Module),
		log:     log,
	}
}

// Register adds a module under its name. Registering a name twice replaces
// the earlier module and logs a warning.
func (r *Registry) Register(module Module) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := module.Name()
	if _, exists := r.modules[name]; exists {
		r.log.Warn("replacing registered module", logger.String("module", name))
	}
	r.modules[name] = module
}

// Get returns the module registered under name.
func (r *Registry) Get(name string) (Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	module, ok := r.modules[name]
	return module, ok
}

// Has reports whether a module is registered under name.
func (r *Registry) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// List returns all registered modules sorted by name.
func (r *Registry) List() []Module {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.modules))
	for name := range r.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	modules := make([]Module, 0, len(names))
	for _, name := range names {
		modules = append(modules, r.modules[name])
	}
	return modules
}

// Invoke resolves a module by name and runs one of its entry points.
//
// With a command, the module's own command table is consulted first and a
// hit is invoked with the request untouched. A miss falls back to the
// default entry point with req.Command set to the requested command, so the
// module can still branch on it. Without a command the default entry point
// runs with req.Command empty. Errors from entry points propagate to the
// caller unchanged.
func (r *Registry) Invoke(ctx context.Context, name string, req Request, command string) (Result, error) {
	module, ok := r.Get(name)
	if !ok {
		return nil, apperrors.NewModuleNotFound(name)
	}

	entry, label := r.resolve(module, &req, command)
	if entry == nil {
		return nil, apperrors.NewEntryPointMissing(name, command)
	}

	start := time.Now()
	result, err := entry(ctx, req)
	if err != nil {
		r.log.Error("module invocation failed",
			logger.String("module", name),
			logger.String("command", label),
			logger.Err(err))
		return nil, err
	}

	r.log.Info("module invocation complete",
		logger.String("module", name),
		logger.String("command", label),
		logger.Duration("duration", time.Since(start)))
	return result, nil
}

// resolve picks the entry point for a command, applying the fallback rule.
// It mutates req.Command only on the fallback path.
func (r *Registry) resolve(module Module, req *Request, command string) (EntryPoint, string) {
	if command != "" {
		if provider, ok := module.(CommandProvider); ok {
			if entry, ok := provider.Command(command); ok {
				return entry, command
			}
		}
		r.log.Warn("command not found, falling back to default entry point",
			logger.String("module", module.Name()),
			logger.String("command", command))
		req.Command = command
	}

	runner, ok := module.(Runner)
	if !ok {
		return nil, ""
	}
	label := "default"
	if command != "" {
		label = "default(" + command + ")"
	}
	return runner.Run, label
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// Default returns the process-wide registry.
func Default() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewRegistry(logger.New("registry"))
	})
	return defaultRegistry
}

// Register adds a module to the default registry.
func Register(module Module) {
	Default().Register(module)
}

// Invoke dispatches on the default registry.
func Invoke(ctx context.Context, name string, req Request, command string) (Result, error) {
	return Default().Invoke(ctx, name, req, command)
}
