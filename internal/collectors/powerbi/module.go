package powerbi

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

// ModuleName is the registry name of the Power BI collector.
const ModuleName = "powerbi"

// Module is the registry-facing Power BI collector. It caches its manager
// per tenant: invoking with a different tenant rebuilds the client.
type Module struct {
	log   logger.Logger
	cfg   *config.Config
	creds *credentials.Provider

	// Progress, when set, receives workspace fan-out updates.
	Progress Progress

	buildClient func() *Client

	mu            sync.Mutex
	manager       *Manager
	managerTenant string
}

// NewModule creates the Power BI module.
func NewModule(cfg *config.Config, creds *credentials.Provider) *Module {
	m := &Module{
		log:   logger.New("powerbi"),
		cfg:   cfg,
		creds: creds,
	}
	m.buildClient = m.defaultBuildClient
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
	return "Collects Power BI admin metadata: capacities, workspaces, users, dashboards, dataflows and datasets"
}

// Run implements registry.Runner with the collect operation.
func (m *Module) Run(ctx context.Context, req registry.Request) (registry.Result, error) {
	return m.collect(ctx, req)
}

// Command implements registry.CommandProvider.
func (m *Module) Command(name string) (registry.EntryPoint, bool) {
	if name == "collect" {
		return m.collect, true
	}
	return nil, false
}

func (m *Module) collect(ctx context.Context, req registry.Request) (registry.Result, error) {
	mgr := m.managerFor(req.TenantID)

	summary, err := mgr.Collect(ctx, req.WorkspaceID, m.outputDir(req))
	if err != nil {
		return nil, err
	}

	return registry.Result{
		registry.KeyStatus:  registry.StatusSuccess,
		registry.KeyRunID:   uuid.NewString(),
		registry.KeySummary: summary,
	}, nil
}

// managerFor returns the cached manager when the tenant matches, otherwise
// builds a fresh one for the new tenant.
func (m *Module) managerFor(tenantID string) *Manager {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.manager != nil && m.managerTenant == tenantID {
		return m.manager
	}

	mgr := NewManager(m.buildClient(), m.log, resilience.DefaultPolicy())
	if m.Progress != nil {
		mgr.SetProgress(m.Progress)
	}
	m.manager = mgr
	m.managerTenant = tenantID
	return mgr
}

func (m *Module) defaultBuildClient() *Client {
	return NewClient(m.log, m.cfg.PowerBI, m.creds)
}

func (m *Module) outputDir(req registry.Request) string {
	if req.OutputDir != "" {
		return req.OutputDir
	}
	return m.cfg.OutputDir
}
