package powerbi

import (
	"context"

	"github.com/fabricmgr/fabricmgr/internal/logger"
	"github.com/fabricmgr/fabricmgr/internal/resilience"
	"github.com/fabricmgr/fabricmgr/internal/schema"
	"github.com/fabricmgr/fabricmgr/internal/tabular"
)

// Progress reports per-workspace fan-out for console display.
type Progress interface {
	Start(total int, description string)
	Step(label string)
	Finish()
}

// Manager walks the admin API for one tenant and persists the Power BI
// datasets.
type Manager struct {
	client   *Client
	log      logger.Logger
	res      *resilience.Collector
	progress Progress
}

// NewManager creates a manager over a client with the given retry policy.
func NewManager(client *Client, log logger.Logger, policy resilience.Policy) *Manager {
	return &Manager{
		client: client,
		log:    log,
		res:    resilience.New(log, policy),
	}
}

// SetProgress attaches a progress sink for workspace fan-out.
func (m *Manager) SetProgress(p Progress) {
	m.progress = p
}

// workspaceArtifacts holds one workspace's nested listings before they are
// merged into the aggregate.
type workspaceArtifacts struct {
	users      []Item
	dashboards []Item
	dataflows  []Item
	datasets   []Item
}

// Collect enumerates capacities, workspaces, and the per-workspace
// artifacts, then writes the six Power BI datasets under outputDir.
// Capacities are permission-gated and degrade to empty. workspaceID
// optionally narrows collection to one workspace; an unknown ID yields
// empty datasets, not an error. A failing nested listing discards that
// workspace's partial results and continues with the rest.
func (m *Manager) Collect(ctx context.Context, workspaceID, outputDir string) (map[string]int, error) {
	capacitiesOutcome := resilience.Collect(ctx, m.res, "list capacities", resilience.Secondary, m.client.Capacities)
	capacities := toRecords(capacitiesOutcome.Items, capacityRecord)

	workspacesOutcome := resilience.Collect(ctx, m.res, "list workspaces", resilience.Primary, m.client.Workspaces)
	if workspacesOutcome.Fatal() {
		return nil, workspacesOutcome.Err
	}
	workspaceItems := m.filterWorkspaces(workspacesOutcome.Items, workspaceID)
	workspaces := toRecords(workspaceItems, workspaceRecord)

	var users, dashboards, dataflows, datasets []tabular.Record

	if m.progress != nil {
		m.progress.Start(len(workspaceItems), "Collecting workspaces")
	}
	for _, ws := range workspaceItems {
		wsID := str(ws, "id")
		artifacts, ok := m.collectWorkspace(ctx, wsID)
		if ok {
			users = append(users, augment(toRecords(artifacts.users, userRecord), wsID)...)
			dashboards = append(dashboards, augment(toRecords(artifacts.dashboards, dashboardRecord), wsID)...)
			dataflows = append(dataflows, augment(toRecords(artifacts.dataflows, dataflowRecord), wsID)...)
			datasets = append(datasets, augment(toRecords(artifacts.datasets, datasetRecord), wsID)...)
		}
		if m.progress != nil {
			m.progress.Step(str(ws, "name"))
		}
	}
	if m.progress != nil {
		m.progress.Finish()
	}

	summary := map[string]int{
		schema.Capacities:      len(capacities),
		schema.Workspaces:      len(workspaces),
		schema.WorkspaceUsers:  len(users),
		schema.Dashboards:      len(dashboards),
		schema.Dataflows:       len(dataflows),
		schema.PowerBIDatasets: len(datasets),
	}

	outputs := []struct {
		name    string
		records []tabular.Record
	}{
		{schema.Capacities, capacities},
		{schema.Workspaces, workspaces},
		{schema.WorkspaceUsers, users},
		{schema.Dashboards, dashboards},
		{schema.Dataflows, dataflows},
		{schema.PowerBIDatasets, datasets},
	}
	for _, out := range outputs {
		if _, err := tabular.WriteDataset(m.log, outputDir, out.name, out.records); err != nil {
			return nil, err
		}
	}

	m.log.Info("powerbi collection complete",
		logger.Int("capacities", summary[schema.Capacities]),
		logger.Int("workspaces", summary[schema.Workspaces]),
		logger.Int("workspace_users", summary[schema.WorkspaceUsers]),
		logger.Int("dashboards", summary[schema.Dashboards]),
		logger.Int("dataflows", summary[schema.Dataflows]),
		logger.Int("datasets", summary[schema.PowerBIDatasets]))
	return summary, nil
}

// collectWorkspace gathers one workspace's nested artifacts. The second
// return is false when any nested call exhausted its budget, in which case
// the workspace's partial results must be discarded.
func (m *Manager) collectWorkspace(ctx context.Context, workspaceID string) (workspaceArtifacts, bool) {
	var artifacts workspaceArtifacts

	listings := []struct {
		operation string
		fetch     func(context.Context) ([]Item, error)
		into      *[]Item
	}{
		{"list users in " + workspaceID, m.nested(m.client.WorkspaceUsers, workspaceID), &artifacts.users},
		{"list dashboards in " + workspaceID, m.nested(m.client.Dashboards, workspaceID), &artifacts.dashboards},
		{"list dataflows in " + workspaceID, m.nested(m.client.Dataflows, workspaceID), &artifacts.dataflows},
		{"list datasets in " + workspaceID, m.nested(m.client.Datasets, workspaceID), &artifacts.datasets},
	}
	for _, l := range listings {
		outcome := resilience.Collect(ctx, m.res, l.operation, resilience.Primary, l.fetch)
		if outcome.Fatal() {
			m.log.Warn("skipping workspace, nested collection failed",
				logger.String("workspace_id", workspaceID),
				logger.Err(outcome.Err))
			return workspaceArtifacts{}, false
		}
		*l.into = outcome.Items
	}
	return artifacts, true
}

func (m *Manager) nested(fetch func(context.Context, string) ([]Item, error), workspaceID string) func(context.Context) ([]Item, error) {
	return func(ctx context.Context) ([]Item, error) {
		return fetch(ctx, workspaceID)
	}
}

// filterWorkspaces applies the optional workspace filter. A filter that
// matches nothing logs a warning and empties the workspace list.
func (m *Manager) filterWorkspaces(workspaces []Item, workspaceID string) []Item {
	if workspaceID == "" {
		return workspaces
	}
	for _, ws := range workspaces {
		if str(ws, "id") == workspaceID {
			return []Item{ws}
		}
	}
	m.log.Warn("requested workspace not visible to this credential",
		logger.String("workspace_id", workspaceID))
	return nil
}

func toRecords(items []Item, build func(Item) tabular.Record) []tabular.Record {
	records := make([]tabular.Record, 0, len(items))
	for _, item := range items {
		records = append(records, build(item))
	}
	return records
}

func augment(records []tabular.Record, workspaceID string) []tabular.Record {
	for _, r := range records {
		r["workspace_id"] = workspaceID
	}
	return records
}
