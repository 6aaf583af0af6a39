package fabric

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/fabricmgr/fabricmgr/internal/config"
	"github.com/fabricmgr/fabricmgr/internal/credentials"
	"github.com/fabricmgr/fabricmgr/internal/logger"
	"github.com/fabricmgr/fabricmgr/internal/registry"
	"github.com/fabricmgr/fabricmgr/internal/resilience"
	"github.com/fabricmgr/fabricmgr/internal/schema"
	"github.com/fabricmgr/fabricmgr/internal/tabular"
)

// ModuleName is the registry name of the Fabric capacity collector.
const ModuleName = "fabric"

// Manager scans subscription scopes for Fabric capacities.
type Manager struct {
	api API
	log logger.Logger
	res *resilience.Collector
}

// NewManager creates a manager over an API with the given retry policy.
func NewManager(api API, log logger.Logger, policy resilience.Policy) *Manager {
	return &Manager{
		api: api,
		log: log,
		res: resilience.New(log, policy),
	}
}

// Collect enumerates Fabric capacities across subscription scopes and
// writes fabric_capacities.csv under outputDir. scopeID optionally narrows
// the scan to one subscription; a failing scope is skipped, not fatal.
func (m *Manager) Collect(ctx context.Context, scopeID, outputDir string) (map[string]int, error) {
	subsOutcome := resilience.Collect(ctx, m.res, "list subscriptions", resilience.Primary, m.api.ListSubscriptions)
	if subsOutcome.Fatal() {
		return nil, subsOutcome.Err
	}
	subscriptions := m.filterScopes(subsOutcome.Items, scopeID)

	var capacities []Capacity
	for _, sub := range subscriptions {
		outcome := resilience.Collect(ctx, m.res, "list fabric capacities in "+sub.ID, resilience.Primary,
			func(ctx context.Context) ([]Capacity, error) {
				return m.api.ListCapacities(ctx, sub.ID)
			})
		if outcome.Fatal() {
			m.log.Warn("skipping subscription, capacity scan failed",
				logger.String("subscription_id", sub.ID),
				logger.Err(outcome.Err))
			continue
		}
		capacities = append(capacities, outcome.Items...)
	}

	records := make([]tabular.Record, 0, len(capacities))
	for _, c := range capacities {
		records = append(records, c.record())
	}
	if _, err := tabular.WriteDataset(m.log, outputDir, schema.FabricCapacities, records); err != nil {
		return nil, err
	}

	summary := map[string]int{schema.FabricCapacities: len(capacities)}
	m.log.Info("fabric capacity scan complete",
		logger.Int("subscriptions", len(subscriptions)),
		logger.Int("fabric_capacities", len(capacities)))
	return summary, nil
}

func (m *Manager) filterScopes(subscriptions []Subscription, scopeID string) []Subscription {
	if scopeID == "" {
		return subscriptions
	}
	for _, sub := range subscriptions {
		if sub.ID == scopeID {
			return []Subscription{sub}
		}
	}
	m.log.Warn("requested subscription not visible to this credential",
		logger.String("subscription_id", scopeID))
	return nil
}

// Module is the registry-facing Fabric collector. It caches its manager per
// subscription scope, same as the topology module.
type Module struct {
	log   logger.Logger
	cfg   *config.Config
	creds *credentials.Provider

	buildAPI func(ctx context.Context) (API, error)

	mu           sync.Mutex
	manager      *Manager
	managerScope string
}

// NewModule creates the Fabric module.
func NewModule(cfg *config.Config, creds *credentials.Provider) *Module {
	m := &Module{
		log:   logger.New("fabric"),
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
	return "Collects Microsoft Fabric capacity resources across subscriptions"
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
	m.manager = NewManager(api, m.log, resilience.DefaultPolicy())
	m.managerScope = scopeID
	return m.manager, nil
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
