// Package topology collects the Azure control-plane inventory:
// subscriptions, management groups, resource groups, and resources.
package topology

import (
	"sort"
	"strings"

	"github.com/fabricmgr/fabricmgr/internal/tabular"
)

// Subscription is one enumerable subscription scope.
type Subscription struct {
	ID          string
	DisplayName string
	State       string
	TenantID    string
}

// ManagementGroup is one tenant-level management group.
type ManagementGroup struct {
	ID          string
	Name        string
	DisplayName string
	TenantID    string
	Type        string
}

// ResourceGroup is one resource group inside a subscription.
type ResourceGroup struct {
	ID                string
	Name              string
	Location          string
	SubscriptionID    string
	ProvisioningState string
}

// Resource is one generic resource inside a subscription.
type Resource struct {
	ID             string
	Name           string
	Type           string
	Location       string
	Kind           string
	SubscriptionID string
	Tags           map[string]string
}

// DeriveResourceGroup extracts the resource group name from an ARM resource
// ID, the fifth slash-separated segment:
// /subscriptions/<sub>/resourceGroups/<name>/... Shorter IDs yield "".
func DeriveResourceGroup(resourceID string) string {
	segments := strings.Split(resourceID, "/")
	if len(segments) < 5 {
		return ""
	}
	return segments[4]
}

// FormatTags flattens a tag map to a stable "k=v;k=v" string.
func FormatTags(tags map[string]string) string {
	if len(tags) == 0 {
		return ""
	}
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+tags[k])
	}
	return strings.Join(pairs, ";")
}

func (s Subscription) record() tabular.Record {
	return tabular.Record{
		"subscription_id": s.ID,
		"display_name":    s.DisplayName,
		"state":           s.State,
		"tenant_id":       s.TenantID,
	}
}

func (g ManagementGroup) record() tabular.Record {
	return tabular.Record{
		"id":           g.ID,
		"name":         g.Name,
		"display_name": g.DisplayName,
		"tenant_id":    g.TenantID,
		"type":         g.Type,
	}
}

func (rg ResourceGroup) record() tabular.Record {
	return tabular.Record{
		"id":                 rg.ID,
		"name":               rg.Name,
		"location":           rg.Location,
		"subscription_id":    rg.SubscriptionID,
		"provisioning_state": rg.ProvisioningState,
	}
}

func (r Resource) record() tabular.Record {
	return tabular.Record{
		"id":              r.ID,
		"name":            r.Name,
		"type":            r.Type,
		"location":        r.Location,
		"resource_group":  DeriveResourceGroup(r.ID),
		"subscription_id": r.SubscriptionID,
		"kind":            r.Kind,
		"tags":            FormatTags(r.Tags),
	}
}
