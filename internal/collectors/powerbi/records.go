package powerbi

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fabricmgr/fabricmgr/internal/tabular"
)

// The admin API uses camelCase JSON; these builders map each artifact onto
// its snake_case dataset columns. workspace_id is stamped on nested records
// by the manager during aggregation, not here.

func capacityRecord(item Item) tabular.Record {
	return tabular.Record{
		"id":           str(item, "id"),
		"display_name": str(item, "displayName"),
		"sku":          str(item, "sku"),
		"region":       str(item, "region"),
		"state":        str(item, "state"),
		"admins":       joinList(item, "admins"),
	}
}

func workspaceRecord(item Item) tabular.Record {
	return tabular.Record{
		"id":                       str(item, "id"),
		"name":                     str(item, "name"),
		"type":                     str(item, "type"),
		"state":                    str(item, "state"),
		"is_on_dedicated_capacity": boolStr(item, "isOnDedicatedCapacity"),
		"capacity_id":              str(item, "capacityId"),
	}
}

func userRecord(item Item) tabular.Record {
	return tabular.Record{
		"user_principal_name": str(item, "emailAddress"),
		"display_name":        str(item, "displayName"),
		"access_right":        str(item, "groupUserAccessRight"),
		"principal_type":      str(item, "principalType"),
	}
}

func dashboardRecord(item Item) tabular.Record {
	return tabular.Record{
		"id":           str(item, "id"),
		"display_name": str(item, "displayName"),
		"is_read_only": boolStr(item, "isReadOnly"),
		"web_url":      str(item, "webUrl"),
	}
}

// Dataflows identify themselves by objectId rather than id.
func dataflowRecord(item Item) tabular.Record {
	return tabular.Record{
		"id":            str(item, "objectId"),
		"name":          str(item, "name"),
		"description":   str(item, "description"),
		"configured_by": str(item, "configuredBy"),
	}
}

func datasetRecord(item Item) tabular.Record {
	return tabular.Record{
		"id":             str(item, "id"),
		"name":           str(item, "name"),
		"configured_by":  str(item, "configuredBy"),
		"is_refreshable": boolStr(item, "isRefreshable"),
		"web_url":        str(item, "webUrl"),
	}
}

func str(item Item, key string) string {
	v, ok := item[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func boolStr(item Item, key string) string {
	b, ok := item[key].(bool)
	if !ok {
		return ""
	}
	return strconv.FormatBool(b)
}

func joinList(item Item, key string) string {
	raw, ok := item[key].([]any)
	if !ok {
		return ""
	}
	parts := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ";")
}
