package visualize

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabricmgr/fabricmgr/internal/logger"
	"github.com/fabricmgr/fabricmgr/internal/tabular"
)

func testInputs() Inputs {
	return Inputs{
		Subscriptions: []tabular.Record{
			{"subscription_id": "sub-1", "display_name": "Production", "state": "Enabled", "tenant_id": "ten-1"},
			{"subscription_id": "sub-2", "display_name": "Development", "state": "Enabled", "tenant_id": "ten-1"},
		},
		ManagementGroups: []tabular.Record{
			{"id": "/providers/Microsoft.Management/managementGroups/root", "name": "root", "display_name": "Tenant Root Group", "tenant_id": "ten-1"},
		},
		ResourceGroups: []tabular.Record{
			{"id": "/subscriptions/sub-1/resourceGroups/rg-app", "name": "rg-app", "location": "eastus", "subscription_id": "sub-1"},
		},
		Resources: []tabular.Record{
			{"id": "/subscriptions/sub-1/resourceGroups/rg-app/providers/Microsoft.Web/sites/app", "name": "app", "type": "Microsoft.Web/sites", "resource_group": "rg-app", "subscription_id": "sub-1"},
		},
	}
}

func TestRenderTopologyWritesAllDiagrams(t *testing.T) {
	dir := t.TempDir()
	gen, err := NewGenerator(logger.New("test"), dir)
	require.NoError(t, err)

	paths, err := gen.RenderTopology(testInputs())
	require.NoError(t, err)
	assert.Len(t, paths, 8)

	for _, base := range []string{
		"management_groups_subscriptions",
		"subscriptions_resource_groups",
		"resource_groups_resources",
		"complete_hierarchy",
	} {
		for _, ext := range []string{".dot", ".html"} {
			_, err := os.Stat(filepath.Join(dir, base+ext))
			assert.NoError(t, err, "expected %s%s to exist", base, ext)
		}
	}
}

func TestRenderTopologyDiagramContent(t *testing.T) {
	dir := t.TempDir()
	gen, err := NewGenerator(logger.New("test"), dir)
	require.NoError(t, err)

	_, err = gen.RenderTopology(testInputs())
	require.NoError(t, err)

	dot, err := os.ReadFile(filepath.Join(dir, "subscriptions_resource_groups.dot"))
	require.NoError(t, err)
	assert.Contains(t, string(dot), "digraph hierarchy")
	assert.Contains(t, string(dot), `"Production"`)
	assert.Contains(t, string(dot), `"rg-app"`)
	assert.Contains(t, string(dot), "l0n0 -> l1n0;")

	page, err := os.ReadFile(filepath.Join(dir, "complete_hierarchy.html"))
	require.NoError(t, err)
	assert.Contains(t, string(page), "<svg")
	assert.Contains(t, string(page), "Complete Azure Hierarchy")
	assert.Contains(t, string(page), "Tenant Root Group")
	assert.Contains(t, string(page), "Microsoft.Web/sites/app")
}

func TestRenderTopologyEmptyInputs(t *testing.T) {
	dir := t.TempDir()
	gen, err := NewGenerator(logger.New("test"), dir)
	require.NoError(t, err)

	paths, err := gen.RenderTopology(Inputs{})
	require.NoError(t, err)
	assert.Len(t, paths, 8)

	dot, err := os.ReadFile(filepath.Join(dir, "complete_hierarchy.dot"))
	require.NoError(t, err)
	assert.Contains(t, string(dot), "digraph hierarchy")
	assert.NotContains(t, string(dot), "->")
}

func TestRenderTopologyEscapesLabels(t *testing.T) {
	dir := t.TempDir()
	gen, err := NewGenerator(logger.New("test"), dir)
	require.NoError(t, err)

	in := Inputs{
		Subscriptions: []tabular.Record{
			{"subscription_id": "sub-1", "display_name": "Dev <& Test>", "tenant_id": "ten-1"},
		},
	}
	_, err = gen.RenderTopology(in)
	require.NoError(t, err)

	page, err := os.ReadFile(filepath.Join(dir, "management_groups_subscriptions.html"))
	require.NoError(t, err)
	assert.Contains(t, string(page), "Dev &lt;&amp; Test&gt;")
	assert.NotContains(t, string(page), "Dev <& Test>")
}

func TestRenderTopologyCapsHugeLayers(t *testing.T) {
	dir := t.TempDir()
	gen, err := NewGenerator(logger.New("test"), dir)
	require.NoError(t, err)

	in := Inputs{}
	for i := 0; i < maxNodesPerLayer+25; i++ {
		in.Resources = append(in.Resources, tabular.Record{
			"id":   fmt.Sprintf("/subscriptions/s/resourceGroups/rg/providers/p/t/res-%03d", i),
			"name": fmt.Sprintf("res-%03d", i),
		})
	}
	_, err = gen.RenderTopology(in)
	require.NoError(t, err)

	dot, err := os.ReadFile(filepath.Join(dir, "resource_groups_resources.dot"))
	require.NoError(t, err)
	assert.Contains(t, string(dot), `"+25 more"`)
	assert.Equal(t, maxNodesPerLayer, strings.Count(string(dot), `label="res-`))
}
