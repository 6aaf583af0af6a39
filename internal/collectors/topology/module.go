package topology

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/fabricmgr/fabricmgr/internal/config"
	"github.com/fabricmgr/fabricmgr/internal/credentials"
	"github.com/fabricmgr/fabricmgr/internal/logger"
	"github.com/fabricmgr/fabricmgr/internal/registry"
	"github.com/fabricmgr/fabricmgr/internal/resilience"
)

// ModuleName is the registry name of the topology collector.
const ModuleName = "azure"

// Module is the registry-facing topology collector. It caches its manager
// per subscription scope: invoking with a different scope rebuilds the
// underlying clients.
type Module struct {
	log   logger.Logger
	cfg   *config.Config
	creds *credentials.Provider

	// Progress, when set, receives scope fan-out updates.
	Progress Progress

	buildAPI func(ctx context.Context) (API, error)

	mu           sync.Mutex
	manager      *Manager
	managerScope string
}

// NewModule creates the topology module.
func NewModule(cfg *config.Config, creds *credentials.Provider) *Module {
	m := &Module{
		log:   logger.New("topology"),
		cfg:   cfg,
		creds: creds,
	}
	m.buildAPI = m.defaultBuildAPI
	return m
}

// Register creates the module and adds it to reg.
func Register(reg *registry.Registry, cfg *config.Config, creds *credentials.Provider) *Module {
	m := NewModule(cfg, creds)
	reg.Register(m)
	return m
}

// Name implements registry.Module.
func (m *Module) Name() string { return ModuleName }

// Description implements registry.Module.
func (m *Module) Description() string {
	return "Collects Azure topology: subscriptions, management groups, resource groups and resources"
}

// Run implements registry.Runner with the collect operation.
func (m *Module) Run(ctx context.Context, req registry.Request) (registry.Result, error) {
	return m.collect(ctx, req)
}

// Command implements registry.CommandProvider.
func (m *Module) Command(name string) (registry.EntryPoint, bool) {
	switch name {
	case "collect":
		return m.collect, true
	case "visualize":
		return m.visualize, true
	}
	return nil, false
}

func (m *Module) collect(ctx context.Context, req registry.Request) (registry.Result, error) {
	mgr, err := m.managerFor(ctx, req.SubscriptionID)
	if err != nil {
		return nil, err
	}

	summary, err := mgr.Collect(ctx, req.SubscriptionID, m.outputDir(req))
	if err != nil {
		return nil, err
	}

	return registry.Result{
		registry.KeyStatus:  registry.StatusSuccess,
		registry.KeyRunID:   uuid.NewString(),
		registry.KeySummary: summary,
	}, nil
}

// managerFor returns the cached manager when the scope matches, otherwise
// builds a fresh one for the new scope.
func (m *Module) managerFor(ctx context.Context, scopeID string) (*Manager, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.manager != nil && m.managerScope == scopeID {
		return m.manager, nil
	}

	api, err := m.buildAPI(ctx)
	if err != nil {
		return nil, err
	}
	mgr := NewManager(api, m.log, resilience.DefaultPolicy())
	if m.Progress != nil {
		mgr.SetProgress(m.Progress)
	}
	m.manager = mgr
	m.managerScope = scopeID
	return mgr, nil
}

func (m *Module) defaultBuildAPI(context.Context) (API, error) {
	cred, err := m.creds.ARMCredential()
	if err != nil {
		return nil, err
	}
	return NewARMAPI(cred)
}

func (m *Module) outputDir(req registry.Request) string {
	if req.OutputDir != "" {
		return req.OutputDir
	}
	return m.cfg.OutputDir
}
