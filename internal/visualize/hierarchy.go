// Package visualize renders topology hierarchy diagrams as Graphviz DOT
// text plus self-contained HTML with inline SVG. No external rendering
// engine is required.
package visualize

import (
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fabricmgr/fabricmgr/internal/logger"
	"github.com/fabricmgr/fabricmgr/internal/tabular"
)

// maxNodesPerLayer bounds diagram size; overflow collapses into one
// "+N more" node so huge tenants still render.
const maxNodesPerLayer = 40

// Inputs are the topology datasets read back from disk. Any of them may be
// empty; empty layers render as empty columns.
type Inputs struct {
	Subscriptions    []tabular.Record
	ManagementGroups []tabular.Record
	ResourceGroups   []tabular.Record
	Resources        []tabular.Record
}

// Node is one box in a diagram.
type Node struct {
	ID    string
	Label string
}

// Layer is one column of a diagram.
type Layer struct {
	Title string
	Nodes []Node
}

// Edge connects a node in one layer to a node in the next.
type Edge struct {
	FromLayer int
	From      int
	To        int
}

// Generator writes diagrams under one output directory.
type Generator struct {
	outputDir string
	log       logger.Logger
}

// NewGenerator creates a generator, ensuring the output directory exists.
func NewGenerator(log logger.Logger, outputDir string) (*Generator, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &Generator{outputDir: outputDir, log: log}, nil
}

// RenderTopology renders the four hierarchy diagrams and returns the paths
// of every file written.
func (g *Generator) RenderTopology(in Inputs) ([]string, error) {
	groups := recordLayer("Management Groups", in.ManagementGroups, "id", "display_name", "name")
	subscriptions := recordLayer("Subscriptions", in.Subscriptions, "subscription_id", "display_name", "subscription_id")
	resourceGroups := recordLayer("Resource Groups", in.ResourceGroups, "id", "name", "id")
	resources := recordLayer("Resources", in.Resources, "id", "name", "id")

	groupSubEdges := matchEdges(in.ManagementGroups, in.Subscriptions, 0, func(parent, child tabular.Record) bool {
		return parent["tenant_id"] != "" && parent["tenant_id"] == child["tenant_id"]
	})
	subRGEdges := matchEdges(in.Subscriptions, in.ResourceGroups, 0, func(parent, child tabular.Record) bool {
		return parent["subscription_id"] == child["subscription_id"]
	})
	rgResourceEdges := matchEdges(in.ResourceGroups, in.Resources, 0, func(parent, child tabular.Record) bool {
		return parent["name"] == child["resource_group"] && parent["subscription_id"] == child["subscription_id"]
	})

	diagrams := []struct {
		name   string
		title  string
		layers []Layer
		edges  []Edge
	}{
		{
			name:   "management_groups_subscriptions",
			title:  "Management Groups and Subscriptions",
			layers: []Layer{groups, subscriptions},
			edges:  groupSubEdges,
		},
		{
			name:   "subscriptions_resource_groups",
			title:  "Subscriptions and Resource Groups",
			layers: []Layer{subscriptions, resourceGroups},
			edges:  subRGEdges,
		},
		{
			name:   "resource_groups_resources",
			title:  "Resource Groups and Resources",
			layers: []Layer{resourceGroups, resources},
			edges:  rgResourceEdges,
		},
		{
			name:   "complete_hierarchy",
			title:  "Complete Azure Hierarchy",
			layers: []Layer{groups, subscriptions, resourceGroups, resources},
			edges:  append(append(groupSubEdges, shiftEdges(subRGEdges, 1)...), shiftEdges(rgResourceEdges, 2)...),
		},
	}

	var paths []string
	for _, d := range diagrams {
		written, err := g.render(d.name, d.title, d.layers, d.edges)
		if err != nil {
			return nil, err
		}
		paths = append(paths, written...)
	}
	g.log.Info("hierarchy diagrams rendered",
		logger.Int("files", len(paths)),
		logger.String("output_dir", g.outputDir))
	return paths, nil
}

// render writes <name>.dot and <name>.html for one diagram.
func (g *Generator) render(name, title string, layers []Layer, edges []Edge) ([]string, error) {
	layers, edges = capLayers(layers, edges)

	dotPath := filepath.Join(g.outputDir, name+".dot")
	if err := os.WriteFile(dotPath, []byte(renderDOT(title, layers, edges)), 0644); err != nil {
		return nil, fmt.Errorf("failed to write diagram %s: %w", dotPath, err)
	}

	htmlPath := filepath.Join(g.outputDir, name+".html")
	if err := os.WriteFile(htmlPath, []byte(renderHTML(title, layers, edges)), 0644); err != nil {
		return nil, fmt.Errorf("failed to write diagram %s: %w", htmlPath, err)
	}

	return []string{dotPath, htmlPath}, nil
}

func recordLayer(title string, records []tabular.Record, idField, labelField, fallbackField string) Layer {
	layer := Layer{Title: title}
	for _, record := range records {
		label := record[labelField]
		if label == "" {
			label = record[fallbackField]
		}
		layer.Nodes = append(layer.Nodes, Node{ID: record[idField], Label: label})
	}
	return layer
}

// matchEdges links parent layer nodes to child layer nodes by predicate.
func matchEdges(parents, children []tabular.Record, fromLayer int, match func(parent, child tabular.Record) bool) []Edge {
	var edges []Edge
	for pi, parent := range parents {
		for ci, child := range children {
			if match(parent, child) {
				edges = append(edges, Edge{FromLayer: fromLayer, From: pi, To: ci})
			}
		}
	}
	return edges
}

func shiftEdges(edges []Edge, toLayer int) []Edge {
	out := make([]Edge, len(edges))
	for i, e := range edges {
		out[i] = Edge{FromLayer: toLayer, From: e.From, To: e.To}
	}
	return out
}

// capLayers truncates oversized layers and drops edges touching truncated
// nodes.
func capLayers(layers []Layer, edges []Edge) ([]Layer, []Edge) {
	capped := make([]Layer, len(layers))
	for i, layer := range layers {
		capped[i] = layer
		if len(layer.Nodes) > maxNodesPerLayer {
			hidden := len(layer.Nodes) - maxNodesPerLayer
			nodes := make([]Node, maxNodesPerLayer, maxNodesPerLayer+1)
			copy(nodes, layer.Nodes[:maxNodesPerLayer])
			nodes = append(nodes, Node{ID: fmt.Sprintf("more-%d", i), Label: fmt.Sprintf("+%d more", hidden)})
			capped[i].Nodes = nodes
		}
	}
	var kept []Edge
	for _, e := range edges {
		if e.FromLayer+1 >= len(capped) {
			continue
		}
		if e.From < maxNodesPerLayer && e.To < maxNodesPerLayer {
			kept = append(kept, e)
		}
	}
	return capped, kept
}

func renderDOT(title string, layers []Layer, edges []Edge) string {
	var dot strings.Builder
	dot.WriteString("digraph hierarchy {\n")
	dot.WriteString("    rankdir=LR;\n")
	dot.WriteString("    node [shape=box, style=rounded, fontname=\"Arial\"];\n")
	fmt.Fprintf(&dot, "    label=%q;\n", title)

	for li, layer := range layers {
		fmt.Fprintf(&dot, "    subgraph cluster_%d {\n", li)
		fmt.Fprintf(&dot, "        label=%q;\n", layer.Title)
		for ni, node := range layer.Nodes {
			fmt.Fprintf(&dot, "        %s [label=%q];\n", dotID(li, ni), node.Label)
		}
		dot.WriteString("    }\n")
	}
	for _, e := range edges {
		fmt.Fprintf(&dot, "    %s -> %s;\n", dotID(e.FromLayer, e.From), dotID(e.FromLayer+1, e.To))
	}
	dot.WriteString("}\n")
	return dot.String()
}

func dotID(layer, node int) string {
	return fmt.Sprintf("l%dn%d", layer, node)
}

const (
	columnWidth = 280
	boxWidth    = 220
	boxHeight   = 40
	rowHeight   = 56
)

func renderHTML(title string, layers []Layer, edges []Edge) string {
	svg := renderSVG(title, layers, edges)

	var counts strings.Builder
	for _, layer := range layers {
		fmt.Fprintf(&counts, `            <p><strong>%s:</strong> %d</p>
`, html.EscapeString(layer.Title), len(layer.Nodes))
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>%[1]s</title>
    <style>
        body {
            font-family: Arial, sans-serif;
            margin: 0;
            padding: 20px;
            background-color: #f5f5f5;
        }
        .container {
            max-width: %[2]dpx;
            margin: 0 auto;
            background: white;
            border-radius: 8px;
            box-shadow: 0 2px 10px rgba(0,0,0,0.1);
            padding: 20px;
        }
        .info { color: #555; font-size: 13px; }
        .diagram { overflow: auto; border: 1px solid #ddd; border-radius: 4px; }
    </style>
</head>
<body>
    <div class="container">
        <h1>%[1]s</h1>
        <div class="info">
            <p><strong>Generated:</strong> %[3]s</p>
%[4]s        </div>
        <div class="diagram">
%[5]s
        </div>
    </div>
</body>
</html>
`, html.EscapeString(title), len(layers)*columnWidth+80, time.Now().Format("2006-01-02 15:04:05"), counts.String(), svg)
}

func renderSVG(title string, layers []Layer, edges []Edge) string {
	maxRows := 1
	for _, layer := range layers {
		if len(layer.Nodes) > maxRows {
			maxRows = len(layer.Nodes)
		}
	}
	width := len(layers)*columnWidth + 40
	height := maxRows*rowHeight + 120

	var svg strings.Builder
	fmt.Fprintf(&svg, `<svg width="%d" height="%d" xmlns="http://www.w3.org/2000/svg">
    <defs>
        <style>
            .node { fill: #e3f2fd; stroke: #1976d2; stroke-width: 1.5; }
            .layer-title { font-family: Arial, sans-serif; font-size: 14px; font-weight: bold; }
            .node-label { font-family: Arial, sans-serif; font-size: 12px; }
            .link { stroke: #90a4ae; stroke-width: 1; fill: none; }
        </style>
    </defs>
    <rect width="%d" height="%d" fill="white"/>`, width, height, width, height)

	for li, layer := range layers {
		x := 40 + li*columnWidth
		fmt.Fprintf(&svg, `
    <text x="%d" y="40" class="layer-title">%s (%d)</text>`,
			x, html.EscapeString(layer.Title), len(layer.Nodes))
		for ni, node := range layer.Nodes {
			y := 70 + ni*rowHeight
			fmt.Fprintf(&svg, `
    <rect x="%d" y="%d" width="%d" height="%d" class="node" rx="5"/>
    <text x="%d" y="%d" class="node-label">%s</text>`,
				x, y, boxWidth, boxHeight,
				x+10, y+25, html.EscapeString(truncate(node.Label, 30)))
		}
	}

	for _, e := range edges {
		x1 := 40 + e.FromLayer*columnWidth + boxWidth
		y1 := 70 + e.From*rowHeight + boxHeight/2
		x2 := 40 + (e.FromLayer+1)*columnWidth
		y2 := 70 + e.To*rowHeight + boxHeight/2
		fmt.Fprintf(&svg, `
    <line x1="%d" y1="%d" x2="%d" y2="%d" class="link"/>`, x1, y1, x2, y2)
	}

	svg.WriteString("\n</svg>")
	return svg.String()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
