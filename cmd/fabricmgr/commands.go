package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/fabricmgr/fabricmgr/internal/collectors/reports"
	"github.com/fabricmgr/fabricmgr/internal/collectors/topology"
	"github.com/fabricmgr/fabricmgr/internal/credentials"
)

func handleVisualize(args []string) {
	a := mustApp(parseOptions(args))

	result, err := a.reg.Invoke(context.Background(), topology.ModuleName, a.request(), "visualize")
	if err != nil {
		fatal(err)
	}

	paths, _ := result["diagrams"].([]string)
	a.con.Successf("✓ rendered %d diagram files", len(paths))
	for _, path := range paths {
		a.con.Printf("  %s", path)
	}
}

func handleReport(args []string) {
	a := mustApp(parseOptions(args))

	result, err := a.reg.Invoke(context.Background(), reports.ModuleName, a.request(), "")
	if err != nil {
		fatal(err)
	}

	a.con.Successf("✓ report written to %v", result["report"])
}

func handleAuth(args []string) {
	a := mustApp(parseOptions(args))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	ok := true
	planes := []struct {
		label string
		scope string
	}{
		{"Azure Resource Manager", credentials.ARMScope},
		{"Power BI admin API", credentials.PowerBIScope},
	}
	for _, plane := range planes {
		if _, err := a.creds.Token(ctx, []string{plane.scope}); err != nil {
			a.con.Check(plane.label, false, err.Error())
			ok = false
			continue
		}
		a.con.Check(plane.label, true, "")
	}
	if !ok {
		os.Exit(1)
	}
}

func handleModules(args []string) {
	a := mustApp(parseOptions(args))

	modules := a.reg.List()
	rows := make([][]string, 0, len(modules))
	for _, m := range modules {
		rows = append(rows, []string{m.Name(), m.Description()})
	}
	a.con.Table([]string{"Module", "Description"}, rows)
}
