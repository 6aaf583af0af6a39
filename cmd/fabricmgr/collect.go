package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/fabricmgr/fabricmgr/internal/collectors/fabric"
	"github.com/fabricmgr/fabricmgr/internal/collectors/powerbi"
	"github.com/fabricmgr/fabricmgr/internal/collectors/topology"
)

func handleCollect(args []string) {
	opts := parseOptions(args)
	a := mustApp(opts)

	selected, err := modulesFor(opts.module)
	if err != nil {
		fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a.con.Infof("fabricmgr %s collecting %s into %s", version, strings.Join(selected, ", "), a.cfg.OutputDir)

	totals := make(map[string]int)
	failed := false
	for _, name := range selected {
		result, err := a.reg.Invoke(ctx, name, a.request(), "collect")
		if err != nil {
			a.con.Errorf("✗ %s failed: %v", name, err)
			failed = true
			continue
		}
		a.con.Successf("✓ %s complete (run %v)", name, result["run_id"])
		for dataset, count := range result.Summary() {
			totals[dataset] += count
		}
	}

	if len(totals) > 0 {
		a.con.Printf("")
		a.con.SummaryTable(totals)
	}
	if failed {
		os.Exit(1)
	}
}

func modulesFor(module string) ([]string, error) {
	switch module {
	case "", "all":
		return []string{topology.ModuleName, powerbi.ModuleName, fabric.ModuleName}, nil
	case topology.ModuleName, powerbi.ModuleName, fabric.ModuleName:
		return []string{module}, nil
	default:
		return nil, fmt.Errorf("unknown module %q (expected azure, powerbi, fabric or all)", module)
	}
}
