// Package console renders user-facing terminal output: colored status
// lines, summary tables, and progress bars. Collectors log through the
// structured logger; everything a human is meant to read goes through here.
package console

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/schollz/progressbar/v3"
)

// Console writes human-facing output to one writer.
type Console struct {
	out io.Writer
}

// New creates a console over stdout.
func New() *Console {
	return &Console{out: os.Stdout}
}

// NewWithOutput creates a console over w; tests capture output this way.
func NewWithOutput(w io.Writer) *Console {
	return &Console{out: w}
}

// Successf prints a green status line.
func (c *Console) Successf(format string, args ...any) {
	fmt.Fprintln(c.out, color.GreenString(format, args...))
}

// Errorf prints a red status line.
func (c *Console) Errorf(format string, args ...any) {
	fmt.Fprintln(c.out, color.RedString(format, args...))
}

// Warnf prints a yellow status line.
func (c *Console) Warnf(format string, args ...any) {
	fmt.Fprintln(c.out, color.YellowString(format, args...))
}

// Infof prints a cyan status line.
func (c *Console) Infof(format string, args ...any) {
	fmt.Fprintln(c.out, color.CyanString(format, args...))
}

// Printf prints an uncolored line.
func (c *Console) Printf(format string, args ...any) {
	fmt.Fprintf(c.out, format+"\n", args...)
}

// Check prints a ✓/✗ line for one probe.
func (c *Console) Check(label string, ok bool, detail string) {
	if ok {
		fmt.Fprintln(c.out, color.GreenString("✓ %s", label))
		return
	}
	if detail != "" {
		fmt.Fprintln(c.out, color.RedString("✗ %s: %s", label, detail))
		return
	}
	fmt.Fprintln(c.out, color.RedString("✗ %s", label))
}

// Table prints a left-aligned borderless table.
func (c *Console) Table(headers []string, rows [][]string) {
	table := tablewriter.NewWriter(c.out)
	table.SetHeader(headers)
	table.SetBorder(false)
	table.SetHeaderLine(false)
	table.SetColumnSeparator(" ")
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, row := range rows {
		table.Append(row)
	}
	table.Render()
}

// SummaryTable prints per-dataset record counts in dataset order plus a
// total row.
func (c *Console) SummaryTable(summary map[string]int) {
	datasets := make([]string, 0, len(summary))
	for dataset := range summary {
		datasets = append(datasets, dataset)
	}
	sort.Strings(datasets)

	total := 0
	rows := make([][]string, 0, len(datasets)+1)
	for _, dataset := range datasets {
		rows = append(rows, []string{dataset, strconv.Itoa(summary[dataset])})
		total += summary[dataset]
	}
	rows = append(rows, []string{"total", strconv.Itoa(total)})
	c.Table([]string{"Dataset", "Records"}, rows)
}

// Progress returns a progress sink rendering a terminal bar. It satisfies
// the collectors' progress interfaces.
func (c *Console) Progress() *ProgressBar {
	return &ProgressBar{out: c.out}
}

// ProgressBar renders scope fan-out as a terminal progress bar.
type ProgressBar struct {
	out io.Writer
	bar *progressbar.ProgressBar
}

// Start begins a bar over total steps.
func (p *ProgressBar) Start(total int, description string) {
	if total <= 0 {
		return
	}
	p.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(p.out),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowBytes(false),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(50),
		progressbar.OptionSetDescription("[cyan]"+description+"[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(p.out)
		}),
	)
}

// Step advances the bar by one.
func (p *ProgressBar) Step(string) {
	if p.bar == nil {
		return
	}
	_ = p.bar.Add(1)
}

// Finish completes and clears the bar.
func (p *ProgressBar) Finish() {
	if p.bar == nil {
		return
	}
	_ = p.bar.Finish()
	p.bar = nil
}
