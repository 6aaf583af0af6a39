// Package schema is the central registry of dataset column layouts. Every
// CSV this tool emits is declared here so that collectors, the tabular
// writer, and the report generator agree on one ordering per dataset.
package schema

import "sort"

// Dataset keys. One key names one CSV file (<key>.csv) and one column set.
const (
	Subscriptions    = "subscriptions"
	ManagementGroups = "management_groups"
	ResourceGroups   = "resource_groups"
	Resources        = "resources"
	Capacities       = "capacities"
	Workspaces       = "workspaces"
	WorkspaceUsers   = "workspace_users"
	Dashboards       = "dashboards"
	Dataflows        = "dataflows"
	PowerBIDatasets  = "datasets"
	FabricCapacities = "fabric_capacities"
)

var columns = map[string][]string{
	Subscriptions:    {"subscription_id", "display_name", "state", "tenant_id"},
	ManagementGroups: {"id", "name", "display_name", "tenant_id", "type"},
	ResourceGroups:   {"id", "name", "location", "subscription_id", "provisioning_state"},
	Resources:        {"id", "name", "type", "location", "resource_group", "subscription_id", "kind", "tags"},
	Capacities:       {"id", "display_name", "sku", "region", "state", "admins"},
	Workspaces:       {"id", "name", "type", "state", "is_on_dedicated_capacity", "capacity_id"},
	WorkspaceUsers:   {"workspace_id", "user_principal_name", "display_name", "access_right", "principal_type"},
	Dashboards:       {"id", "display_name", "is_read_only", "web_url", "workspace_id"},
	Dataflows:        {"id", "name", "description", "configured_by", "workspace_id"},
	PowerBIDatasets:  {"id", "name", "configured_by", "is_refreshable", "web_url", "workspace_id"},
	FabricCapacities: {"id", "name", "location", "sku", "state", "subscription_id", "resource_group"},
}

// Columns returns the ordered column set for a dataset. The second return
// is false for unregistered datasets, in which case the writer falls back
// to deriving columns from the records themselves.
func Columns(dataset string) ([]string, bool) {
	cols, ok := columns[dataset]
	if !ok {
		return nil, false
	}
	out := make([]string, len(cols))
	copy(out, cols)
	return out, true
}

// Datasets returns all registered dataset keys in sorted order.
func Datasets() []string {
	keys := make([]string, 0, len(columns))
	for k := range columns {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Has reports whether a dataset is registered.
func Has(dataset string) bool {
	_, ok := columns[dataset]
	return ok
}
