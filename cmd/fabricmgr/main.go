// fabricmgr enumerates Azure topology and Power BI admin metadata into CSV
// datasets, renders hierarchy diagrams, and assembles an HTML report.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/fabricmgr/fabricmgr/internal/collectors/fabric"
	"github.com/fabricmgr/fabricmgr/internal/collectors/powerbi"
	"github.com/fabricmgr/fabricmgr/internal/collectors/reports"
	"github.com/fabricmgr/fabricmgr/internal/collectors/topology"
	"github.com/fabricmgr/fabricmgr/internal/config"
	"github.com/fabricmgr/fabricmgr/internal/console"
	"github.com/fabricmgr/fabricmgr/internal/credentials"
	"github.com/fabricmgr/fabricmgr/internal/logger"
	"github.com/fabricmgr/fabricmgr/internal/registry"
)

const version = "0.4.1"

func main() {
	if len(os.Args) < 2 {
		showHelp()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "collect":
		handleCollect(os.Args[2:])
	case "visualize":
		handleVisualize(os.Args[2:])
	case "report":
		handleReport(os.Args[2:])
	case "auth":
		handleAuth(os.Args[2:])
	case "modules":
		handleModules(os.Args[2:])
	case "version", "--version", "-v":
		fmt.Printf("fabricmgr %s\n", version)
	case "help", "--help", "-h":
		showHelp()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		showHelp()
		os.Exit(1)
	}
}

func showHelp() {
	fmt.Println("fabricmgr - Azure and Power BI tenant inventory")
	fmt.Println()
	fmt.Println("Usage: fabricmgr <command> [flags]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  collect     Collect datasets into CSV files")
	fmt.Println("  visualize   Render hierarchy diagrams from collected data")
	fmt.Println("  report      Generate an HTML report over collected data")
	fmt.Println("  auth        Check credential acquisition for both planes")
	fmt.Println("  modules     List registered collector modules")
	fmt.Println("  version     Print the tool version")
	fmt.Println("  help        Show this help")
	fmt.Println()
	fmt.Println("Flags:")
	fmt.Println("  --module <name>           Module to collect: azure, powerbi, fabric, all (default: all)")
	fmt.Println("  --subscription-id <id>    Limit Azure collection to one subscription")
	fmt.Println("  --workspace-id <id>       Limit Power BI collection to one workspace")
	fmt.Println("  --tenant-id <id>          Tenant for credential acquisition")
	fmt.Println("  --output-dir <dir>        Dataset output directory (default: data)")
	fmt.Println("  --config <path>           Config file (default: ~/.fabricmgr/config.yaml)")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  fabricmgr collect --module azure --subscription-id 00000000-0000-0000-0000-000000000000")
	fmt.Println("  fabricmgr collect --module all --output-dir ./inventory")
	fmt.Println("  fabricmgr visualize --output-dir ./inventory")
	fmt.Println("  fabricmgr report --output-dir ./inventory")
}

// options are the flags shared by every command.
type options struct {
	configPath     string
	outputDir      string
	subscriptionID string
	workspaceID    string
	tenantID       string
	module         string
}

func parseOptions(args []string) options {
	var opts options
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--config":
			if i+1 < len(args) {
				opts.configPath = args[i+1]
				i++
			}
		case "--output-dir":
			if i+1 < len(args) {
				opts.outputDir = args[i+1]
				i++
			}
		case "--subscription-id":
			if i+1 < len(args) {
				opts.subscriptionID = args[i+1]
				i++
			}
		case "--workspace-id":
			if i+1 < len(args) {
				opts.workspaceID = args[i+1]
				i++
			}
		case "--tenant-id":
			if i+1 < len(args) {
				opts.tenantID = args[i+1]
				i++
			}
		case "--module":
			if i+1 < len(args) {
				opts.module = args[i+1]
				i++
			}
		default:
			fmt.Fprintf(os.Stderr, "Ignoring unknown flag: %s\n", args[i])
		}
	}
	return opts
}

// app wires config, credentials, console and the module registry for one
// command invocation.
type app struct {
	cfg   *config.Config
	con   *console.Console
	creds *credentials.Provider
	reg   *registry.Registry
}

func newApp(opts options) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	// Flags take precedence over file and environment.
	if opts.outputDir != "" {
		cfg.OutputDir = opts.outputDir
	}
	if opts.subscriptionID != "" {
		cfg.SubscriptionID = opts.subscriptionID
	}
	if opts.workspaceID != "" {
		cfg.WorkspaceID = opts.workspaceID
	}
	if opts.tenantID != "" {
		cfg.TenantID = opts.tenantID
	}

	logger.Initialize(cfg.Log)
	con := console.New()
	creds := credentials.NewProvider(logger.New("credentials"), cfg.TenantID, cfg.ClientID)

	reg := registry.NewRegistry(logger.New("registry"))
	topo := topology.Register(reg, cfg, creds)
	topo.Progress = con.Progress()
	pbi := powerbi.Register(reg, cfg, creds)
	pbi.Progress = con.Progress()
	fabric.Register(reg, cfg, creds)
	reports.Register(reg, cfg, version)

	return &app{cfg: cfg, con: con, creds: creds, reg: reg}, nil
}

func mustApp(opts options) *app {
	a, err := newApp(opts)
	if err != nil {
		fatal(err)
	}
	return a
}

func (a *app) request() registry.Request {
	return registry.Request{
		SubscriptionID: a.cfg.SubscriptionID,
		WorkspaceID:    a.cfg.WorkspaceID,
		TenantID:       a.cfg.TenantID,
		OutputDir:      a.cfg.OutputDir,
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, color.RedString("Error: %v", err))
	os.Exit(1)
}
