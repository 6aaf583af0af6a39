package powerbi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabricmgr/fabricmgr/internal/apperrors"
	"github.com/fabricmgr/fabricmgr/internal/config"
	"github.com/fabricmgr/fabricmgr/internal/logger"
	"github.com/fabricmgr/fabricmgr/internal/resilience"
	"github.com/fabricmgr/fabricmgr/internal/schema"
	"github.com/fabricmgr/fabricmgr/internal/tabular"
)

const permanentFailures = 1 << 20

// adminServer fakes the admin API. failures maps a URL path to a count of
// 500 responses served before recovery; permanentFailures never recovers.
type adminServer struct {
	capacities []Item
	workspaces []Item
	users      map[string][]Item
	dashboards map[string][]Item
	dataflows  map[string][]Item
	datasets   map[string][]Item

	failures map[string]int
	calls    map[string]int
	srv      *httptest.Server
}

func newAdminServer() *adminServer {
	a := &adminServer{
		users:      make(map[string][]Item),
		dashboards: make(map[string][]Item),
		dataflows:  make(map[string][]Item),
		datasets:   make(map[string][]Item),
		failures:   make(map[string]int),
		calls:      make(map[string]int),
	}
	a.srv = httptest.NewServer(http.HandlerFunc(a.handle))
	return a
}

func (a *adminServer) handle(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	a.calls[path]++
	if a.failures[path] > 0 {
		a.failures[path]--
		http.Error(w, "injected failure", http.StatusInternalServerError)
		return
	}

	var items []Item
	switch {
	case path == "/admin/capacities":
		items = a.capacities
	case path == "/admin/groups":
		items = a.workspaces
	case strings.HasPrefix(path, "/admin/groups/"):
		parts := strings.Split(strings.TrimPrefix(path, "/admin/groups/"), "/")
		if len(parts) == 2 {
			id := parts[0]
			switch parts[1] {
			case "users":
				items = a.users[id]
			case "dashboards":
				items = a.dashboards[id]
			case "dataflows":
				items = a.dataflows[id]
			case "datasets":
				items = a.datasets[id]
			}
		}
	}
	json.NewEncoder(w).Encode(map[string]any{"value": items})
}

func (a *adminServer) close() { a.srv.Close() }

// seedTenant loads two workspaces with one artifact of each kind.
func (a *adminServer) seedTenant() {
	a.capacities = []Item{{
		"id":          "cap-1",
		"displayName": "Premium P1",
		"sku":         "P1",
		"region":      "West Europe",
		"state":       "Active",
		"admins":      []any{"admin@contoso.com", "ops@contoso.com"},
	}}
	for _, id := range []string{"ws-1", "ws-2"} {
		a.workspaces = append(a.workspaces, Item{
			"id":                    id,
			"name":                  "Workspace " + id,
			"type":                  "Workspace",
			"state":                 "Active",
			"isOnDedicatedCapacity": true,
			"capacityId":            "cap-1",
		})
		a.users[id] = []Item{{
			"emailAddress":         "owner@contoso.com",
			"displayName":          "Owner",
			"groupUserAccessRight": "Admin",
			"principalType":        "User",
		}}
		a.dashboards[id] = []Item{{
			"id":          id + "-dash",
			"displayName": "Ops Dashboard",
			"isReadOnly":  false,
			"webUrl":      "https://app.powerbi.com/dashboards/" + id,
		}}
		a.dataflows[id] = []Item{{
			"objectId":     id + "-flow",
			"name":         "Ingest",
			"description":  "Nightly ingest",
			"configuredBy": "owner@contoso.com",
		}}
		a.datasets[id] = []Item{{
			"id":            id + "-ds",
			"name":          "Sales",
			"configuredBy":  "owner@contoso.com",
			"isRefreshable": true,
			"webUrl":        "https://app.powerbi.com/datasets/" + id,
		}}
	}
}

func testManager(a *adminServer) *Manager {
	policy := resilience.Policy{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		Multiplier:   2.0,
		Sleep:        func(context.Context, time.Duration) error { return nil },
	}
	return NewManager(testClient(a.srv.URL), logger.New("test"), policy)
}

func TestManagerCollectHappyPath(t *testing.T) {
	a := newAdminServer()
	defer a.close()
	a.seedTenant()
	dir := t.TempDir()

	summary, err := testManager(a).Collect(context.Background(), "", dir)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{
		schema.Capacities:      1,
		schema.Workspaces:      2,
		schema.WorkspaceUsers:  2,
		schema.Dashboards:      2,
		schema.Dataflows:       2,
		schema.PowerBIDatasets: 2,
	}, summary)

	capacities, err := tabular.ReadDataset(dir, schema.Capacities)
	require.NoError(t, err)
	require.Len(t, capacities, 1)
	assert.Equal(t, "admin@contoso.com;ops@contoso.com", capacities[0]["admins"])

	workspaces, err := tabular.ReadDataset(dir, schema.Workspaces)
	require.NoError(t, err)
	assert.Equal(t, "true", workspaces[0]["is_on_dedicated_capacity"])
	assert.Equal(t, "cap-1", workspaces[0]["capacity_id"])

	users, err := tabular.ReadDataset(dir, schema.WorkspaceUsers)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "owner@contoso.com", users[0]["user_principal_name"])
	assert.Equal(t, "Admin", users[0]["access_right"])
	assert.ElementsMatch(t, []string{"ws-1", "ws-2"},
		[]string{users[0]["workspace_id"], users[1]["workspace_id"]})

	dataflows, err := tabular.ReadDataset(dir, schema.Dataflows)
	require.NoError(t, err)
	ids := []string{dataflows[0]["id"], dataflows[1]["id"]}
	assert.ElementsMatch(t, []string{"ws-1-flow", "ws-2-flow"}, ids)

	datasets, err := tabular.ReadDataset(dir, schema.PowerBIDatasets)
	require.NoError(t, err)
	assert.Equal(t, "true", datasets[0]["is_refreshable"])

	dashboards, err := tabular.ReadDataset(dir, schema.Dashboards)
	require.NoError(t, err)
	assert.Equal(t, "false", dashboards[0]["is_read_only"])
}

func TestManagerCapacitiesDegrade(t *testing.T) {
	a := newAdminServer()
	defer a.close()
	a.seedTenant()
	a.failures["/admin/capacities"] = permanentFailures
	dir := t.TempDir()

	summary, err := testManager(a).Collect(context.Background(), "", dir)
	require.NoError(t, err)
	assert.Equal(t, 0, summary[schema.Capacities])
	assert.Equal(t, 2, summary[schema.Workspaces])
	assert.Equal(t, 3, a.calls["/admin/capacities"])

	capacities, err := tabular.ReadDataset(dir, schema.Capacities)
	require.NoError(t, err)
	assert.Empty(t, capacities)
}

func TestManagerWorkspacesFatal(t *testing.T) {
	a := newAdminServer()
	defer a.close()
	a.seedTenant()
	a.failures["/admin/groups"] = permanentFailures

	_, err := testManager(a).Collect(context.Background(), "", t.TempDir())
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeExternalService))
	assert.Equal(t, 3, a.calls["/admin/groups"])
}

func TestManagerWorkspaceIsolation(t *testing.T) {
	a := newAdminServer()
	defer a.close()
	a.seedTenant()
	// Dashboards for ws-1 never succeed: its users listing must be
	// discarded too, and nothing later is fetched for it.
	a.failures["/admin/groups/ws-1/dashboards"] = permanentFailures
	dir := t.TempDir()

	summary, err := testManager(a).Collect(context.Background(), "", dir)
	require.NoError(t, err)
	assert.Equal(t, 2, summary[schema.Workspaces])
	assert.Equal(t, 1, summary[schema.WorkspaceUsers])
	assert.Equal(t, 1, summary[schema.Dashboards])
	assert.Equal(t, 1, summary[schema.Dataflows])
	assert.Equal(t, 0, a.calls["/admin/groups/ws-1/dataflows"])

	users, err := tabular.ReadDataset(dir, schema.WorkspaceUsers)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "ws-2", users[0]["workspace_id"])
}

func TestManagerTransientNestedRecovers(t *testing.T) {
	a := newAdminServer()
	defer a.close()
	a.seedTenant()
	a.failures["/admin/groups/ws-1/users"] = 2
	dir := t.TempDir()

	summary, err := testManager(a).Collect(context.Background(), "", dir)
	require.NoError(t, err)
	assert.Equal(t, 2, summary[schema.WorkspaceUsers])
	assert.Equal(t, 3, a.calls["/admin/groups/ws-1/users"])
}

func TestManagerWorkspaceFilter(t *testing.T) {
	a := newAdminServer()
	defer a.close()
	a.seedTenant()
	dir := t.TempDir()

	summary, err := testManager(a).Collect(context.Background(), "ws-2", dir)
	require.NoError(t, err)
	assert.Equal(t, 1, summary[schema.Workspaces])
	assert.Equal(t, 1, summary[schema.WorkspaceUsers])
	assert.Equal(t, 0, a.calls["/admin/groups/ws-1/users"])

	workspaces, err := tabular.ReadDataset(dir, schema.Workspaces)
	require.NoError(t, err)
	require.Len(t, workspaces, 1)
	assert.Equal(t, "ws-2", workspaces[0]["id"])
}

func TestManagerWorkspaceFilterUnknown(t *testing.T) {
	a := newAdminServer()
	defer a.close()
	a.seedTenant()
	dir := t.TempDir()

	summary, err := testManager(a).Collect(context.Background(), "ws-missing", dir)
	require.NoError(t, err)
	assert.Equal(t, 0, summary[schema.Workspaces])
	assert.Equal(t, 0, summary[schema.WorkspaceUsers])

	// All six datasets exist even when empty.
	for _, ds := range []string{
		schema.Capacities, schema.Workspaces, schema.WorkspaceUsers,
		schema.Dashboards, schema.Dataflows, schema.PowerBIDatasets,
	} {
		records, err := tabular.ReadDataset(dir, ds)
		require.NoError(t, err, ds)
		if ds == schema.Capacities {
			assert.Len(t, records, 1)
		} else {
			assert.Empty(t, records)
		}
	}
}
