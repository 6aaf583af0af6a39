// Package reports assembles a single HTML report over every dataset
// collected into an output directory.
package reports

import (
	"context"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/fabricmgr/fabricmgr/internal/apperrors"
	"github.com/fabricmgr/fabricmgr/internal/collectors/topology"
	"github.com/fabricmgr/fabricmgr/internal/config"
	"github.com/fabricmgr/fabricmgr/internal/logger"
	"github.com/fabricmgr/fabricmgr/internal/registry"
	"github.com/fabricmgr/fabricmgr/internal/schema"
	"github.com/fabricmgr/fabricmgr/internal/tabular"
)

// ModuleName is the registry name of the report generator.
const ModuleName = "reports"

// ReportFile is the file name written into the output directory.
const ReportFile = "report.html"

// previewRows caps the per-dataset preview table.
const previewRows = 25

// Module renders report.html from previously collected CSVs. It only has
// the default operation, so any named command falls back to Run.
type Module struct {
	log logger.Logger
	cfg *config.Config

	// Version is stamped into the report header.
	Version string
}

// NewModule creates the reports module.
func NewModule(cfg *config.Config, version string) *Module {
	return &Module{
		log:     logger.New("reports"),
		cfg:     cfg,
		Version: version,
	}
}

// Register creates the module and adds it to reg.
func Register(reg *registry.Registry, cfg *config.Config, version string) *Module {
	m := NewModule(cfg, version)
	reg.Register(m)
	return m
}

// Name implements registry.Module.
func (m *Module) Name() string { return ModuleName }

// Description implements registry.Module.
func (m *Module) Description() string {
	return "Generates an HTML report over all collected datasets"
}

type section struct {
	Dataset string
	Count   int
	Columns []string
	Preview [][]string
}

type diagramLink struct {
	Name string
	Href string
}

type reportData struct {
	RunID     string
	Generated string
	Version   string
	Total     int
	Sections  []section
	Diagrams  []diagramLink
}

// Run implements registry.Runner. Datasets that are missing or empty skip
// their section; a report over nothing is still a valid report.
func (m *Module) Run(ctx context.Context, req registry.Request) (registry.Result, error) {
	dir := m.outputDir(req)

	data := reportData{
		RunID:     uuid.NewString(),
		Generated: time.Now().Format("2006-01-02 15:04:05"),
		Version:   m.Version,
	}

	for _, dataset := range schema.Datasets() {
		records, err := tabular.ReadDataset(dir, dataset)
		if err != nil {
			m.log.Debug("dataset not present, skipping section",
				logger.String("dataset", dataset))
			continue
		}
		if len(records) == 0 {
			continue
		}
		cols, _ := schema.Columns(dataset)
		data.Sections = append(data.Sections, section{
			Dataset: dataset,
			Count:   len(records),
			Columns: cols,
			Preview: preview(records, cols),
		})
		data.Total += len(records)
	}

	data.Diagrams = m.findDiagrams(dir)

	path := filepath.Join(dir, ReportFile)
	if err := m.render(path, data); err != nil {
		return nil, err
	}

	summary := make(map[string]int, len(data.Sections))
	for _, s := range data.Sections {
		summary[s.Dataset] = s.Count
	}
	m.log.Info("report generated",
		logger.String("path", path),
		logger.Int("sections", len(data.Sections)),
		logger.Int("records", data.Total))

	return registry.Result{
		registry.KeyStatus:  registry.StatusSuccess,
		registry.KeyRunID:   data.RunID,
		registry.KeySummary: summary,
		"report":            path,
	}, nil
}

func preview(records []tabular.Record, cols []string) [][]string {
	limit := len(records)
	if limit > previewRows {
		limit = previewRows
	}
	rows := make([][]string, 0, limit)
	for _, record := range records[:limit] {
		row := make([]string, len(cols))
		for i, col := range cols {
			row[i] = record[col]
		}
		rows = append(rows, row)
	}
	return rows
}

// findDiagrams links any diagram pages rendered next to the datasets.
func (m *Module) findDiagrams(dir string) []diagramLink {
	matches, err := filepath.Glob(filepath.Join(dir, topology.DiagramsDir, "*.html"))
	if err != nil {
		return nil
	}
	sort.Strings(matches)
	links := make([]diagramLink, 0, len(matches))
	for _, match := range matches {
		name := filepath.Base(match)
		links = append(links, diagramLink{
			Name: name,
			Href: filepath.ToSlash(filepath.Join(topology.DiagramsDir, name)),
		})
	}
	return links
}

func (m *Module) render(path string, data reportData) error {
	file, err := os.Create(path)
	if err != nil {
		return apperrors.WrapWriteFailure(err, path)
	}
	if err := reportTemplate.Execute(file, data); err != nil {
		file.Close()
		return fmt.Errorf("failed to render report: %w", err)
	}
	if err := file.Close(); err != nil {
		return apperrors.WrapWriteFailure(err, path)
	}
	return nil
}

func (m *Module) outputDir(req registry.Request) string {
	if req.OutputDir != "" {
		return req.OutputDir
	}
	return m.cfg.OutputDir
}

var reportTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>Tenant Inventory Report</title>
    <style>
        body {
            font-family: Arial, sans-serif;
            margin: 0;
            padding: 20px;
            background-color: #f5f5f5;
        }
        .container {
            max-width: 1200px;
            margin: 0 auto;
            background: white;
            border-radius: 8px;
            box-shadow: 0 2px 10px rgba(0,0,0,0.1);
            padding: 20px 30px;
        }
        h1 { margin-bottom: 4px; }
        .meta { color: #666; font-size: 13px; margin-bottom: 24px; }
        h2 { border-bottom: 2px solid #1976d2; padding-bottom: 4px; }
        .count { color: #666; font-weight: normal; font-size: 14px; }
        table { border-collapse: collapse; width: 100%; font-size: 13px; }
        th { background: #e3f2fd; text-align: left; }
        th, td { border: 1px solid #ddd; padding: 6px 8px; }
        tr:nth-child(even) { background: #fafafa; }
        .diagrams a { display: inline-block; margin-right: 16px; }
        .empty { color: #999; font-style: italic; }
    </style>
</head>
<body>
    <div class="container">
        <h1>Tenant Inventory Report</h1>
        <div class="meta">
            Run {{.RunID}} &middot; generated {{.Generated}} &middot; fabricmgr {{.Version}} &middot; {{.Total}} records
        </div>
{{if .Diagrams}}        <h2>Hierarchy Diagrams</h2>
        <div class="diagrams">
{{range .Diagrams}}            <a href="{{.Href}}">{{.Name}}</a>
{{end}}        </div>
{{end}}{{range .Sections}}        <h2>{{.Dataset}} <span class="count">({{.Count}} records)</span></h2>
        <table>
            <tr>{{range .Columns}}<th>{{.}}</th>{{end}}</tr>
{{range .Preview}}            <tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
{{end}}        </table>
{{end}}{{if not .Sections}}        <p class="empty">No datasets found in the output directory.</p>
{{end}}    </div>
</body>
</html>
`))
