package topology

import (
	"context"

	"github.com/fabricmgr/fabricmgr/internal/logger"
	"github.com/fabricmgr/fabricmgr/internal/resilience"
	"github.com/fabricmgr/fabricmgr/internal/schema"
	"github.com/fabricmgr/fabricmgr/internal/tabular"
)

// Progress reports per-scope fan-out for console display.
type Progress interface {
	Start(total int, description string)
	Step(label string)
	Finish()
}

// Manager walks the control plane for one credential and persists the
// topology datasets.
type Manager struct {
	api      API
	log      logger.Logger
	res      *resilience.Collector
	progress Progress
}

// NewManager creates a manager over an API with the given retry policy.
func NewManager(api API, log logger.Logger, policy resilience.Policy) *Manager {
	return &Manager{
		api: api,
		log: log,
		res: resilience.New(log, policy),
	}
}

// SetProgress attaches a progress sink for scope fan-out.
func (m *Manager) SetProgress(p Progress) {
	m.progress = p
}

// Collect enumerates subscriptions, management groups, and the per-scope
// resource groups and resources, then writes the four topology datasets
// under outputDir. scopeID optionally narrows collection to one
// subscription; an unknown scopeID yields empty datasets, not an error.
// A nested failure inside one scope discards that scope's partial results
// and continues with the rest.
func (m *Manager) Collect(ctx context.Context, scopeID, outputDir string) (map[string]int, error) {
	subsOutcome := resilience.Collect(ctx, m.res, "list subscriptions", resilience.Primary, m.api.ListSubscriptions)
	if subsOutcome.Fatal() {
		return nil, subsOutcome.Err
	}
	subscriptions := m.filterScopes(subsOutcome.Items, scopeID)

	groupsOutcome := resilience.Collect(ctx, m.res, "list management groups", resilience.Secondary, m.api.ListManagementGroups)
	groups := groupsOutcome.Items

	var resourceGroups []ResourceGroup
	var resources []Resource

	if m.progress != nil {
		m.progress.Start(len(subscriptions), "Collecting subscription scopes")
	}
	for _, sub := range subscriptions {
		scopeGroups, scopeResources, ok := m.collectScope(ctx, sub)
		if ok {
			resourceGroups = append(resourceGroups, scopeGroups...)
			resources = append(resources, scopeResources...)
		}
		if m.progress != nil {
			m.progress.Step(sub.DisplayName)
		}
	}
	if m.progress != nil {
		m.progress.Finish()
	}

	summary := map[string]int{
		schema.Subscriptions:    len(subscriptions),
		schema.ManagementGroups: len(groups),
		schema.ResourceGroups:   len(resourceGroups),
		schema.Resources:        len(resources),
	}

	if err := m.persist(subscriptions, groups, resourceGroups, resources, outputDir); err != nil {
		return nil, err
	}

	m.log.Info("topology collection complete",
		logger.Int("subscriptions", summary[schema.Subscriptions]),
		logger.Int("management_groups", summary[schema.ManagementGroups]),
		logger.Int("resource_groups", summary[schema.ResourceGroups]),
		logger.Int("resources", summary[schema.Resources]))
	return summary, nil
}

// collectScope gathers one subscription's resource groups and resources.
// The third return is false when either nested call exhausted its budget,
// in which case the scope's partial results must be discarded.
func (m *Manager) collectScope(ctx context.Context, sub Subscription) ([]ResourceGroup, []Resource, bool) {
	groupsOutcome := resilience.Collect(ctx, m.res, "list resource groups in "+sub.ID, resilience.Primary,
		func(ctx context.Context) ([]ResourceGroup, error) {
			return m.api.ListResourceGroups(ctx, sub.ID)
		})
	if groupsOutcome.Fatal() {
		m.log.Warn("skipping subscription, nested collection failed",
			logger.String("subscription_id", sub.ID),
			logger.Err(groupsOutcome.Err))
		return nil, nil, false
	}

	resourcesOutcome := resilience.Collect(ctx, m.res, "list resources in "+sub.ID, resilience.Primary,
		func(ctx context.Context) ([]Resource, error) {
			return m.api.ListResources(ctx, sub.ID)
		})
	if resourcesOutcome.Fatal() {
		m.log.Warn("skipping subscription, nested collection failed",
			logger.String("subscription_id", sub.ID),
			logger.Err(resourcesOutcome.Err))
		return nil, nil, false
	}

	return groupsOutcome.Items, resourcesOutcome.Items, true
}

// filterScopes applies the optional subscription filter. A filter that
// matches nothing logs a warning and empties the scope list.
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

func (m *Manager) persist(subscriptions []Subscription, groups []ManagementGroup, resourceGroups []ResourceGroup, resources []Resource, outputDir string) error {
	subRecords := make([]tabular.Record, 0, len(subscriptions))
	for _, s := range subscriptions {
		subRecords = append(subRecords, s.record())
	}
	groupRecords := make([]tabular.Record, 0, len(groups))
	for _, g := range groups {
		groupRecords = append(groupRecords, g.record())
	}
	rgRecords := make([]tabular.Record, 0, len(resourceGroups))
	for _, rg := range resourceGroups {
		rgRecords = append(rgRecords, rg.record())
	}
	resourceRecords := make([]tabular.Record, 0, len(resources))
	for _, r := range resources {
		resourceRecords = append(resourceRecords, r.record())
	}

	datasets := []struct {
		name    string
		records []tabular.Record
	}{
		{schema.Subscriptions, subRecords},
		{schema.ManagementGroups, groupRecords},
		{schema.ResourceGroups, rgRecords},
		{schema.Resources, resourceRecords},
	}
	for _, ds := range datasets {
		if _, err := tabular.WriteDataset(m.log, outputDir, ds.name, ds.records); err != nil {
			return err
		}
	}
	return nil
}
