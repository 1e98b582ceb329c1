// Package report writes the user facing progress of a command, it is
// not a log.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"utprint/lib/configstore"
	"utprint/lib/jobstore"
	"utprint/lib/pharos"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

type Reporter struct {
	out io.Writer
}

func New(out io.Writer) Reporter {
	return Reporter{out: out}
}

func Money(f float64) string {
	return fmt.Sprintf("$%.2f", f)
}

func (r Reporter) newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(r.out)
	return t
}

func (r Reporter) Settings(opts pharos.PrintOptions) {
	fmt.Fprintln(r.out, "Print settings:")
	if opts.Color == pharos.ColorMono {
		fmt.Fprintln(r.out, "  - Mono")
	} else {
		fmt.Fprintln(r.out, "  - Full color")
	}
	if opts.Sides == pharos.Duplex {
		fmt.Fprintln(r.out, "  - Duplex")
	} else {
		fmt.Fprintln(r.out, "  - Simplex")
	}
	if opts.TwoPagesPerSide {
		fmt.Fprintln(r.out, "  - 2 pages per side")
	}
	fmt.Fprintf(r.out, "  - Copies: %d\n", opts.Copies)
	if opts.PageRange == "" {
		fmt.Fprintln(r.out, "  - Page range: all")
	} else {
		fmt.Fprintf(r.out, "  - Page range: %s\n", opts.PageRange)
	}
}

// Begin starts a status line, it is finished by End.
func (r Reporter) Begin(status string) {
	fmt.Fprintf(r.out, "%s ... ", status)
}

func (r Reporter) End(result string) {
	fmt.Fprintln(r.out, result)
}

func (r Reporter) Finances(balance, cost float64, addFundsUrl string) {
	fmt.Fprintln(r.out, "Finances:")

	t := r.newTable()
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
	})
	t.AppendRow(table.Row{"Available balance", Money(balance)})
	t.AppendRow(table.Row{"Cost to print", Money(cost)})
	if cost <= balance {
		t.AppendSeparator()
		t.AppendRow(table.Row{"Remaining balance", Money(balance - cost)})
	}
	t.Render()

	if cost > balance {
		fmt.Fprintf(r.out, "* Insufficient funds -- add funds at %s\n", addFundsUrl)
	}
}

func (r Reporter) Balance(balance float64) {
	fmt.Fprintf(r.out, "Available balance: %s\n", Money(balance))
}

func (r Reporter) Jobs(jobs []pharos.Job) {
	if len(jobs) == 0 {
		fmt.Fprintln(r.out, "No queued print jobs.")
		return
	}

	t := r.newTable()
	t.AppendHeader(table.Row{"ID", "Name", "State", "Pages", "Cost"})
	for _, job := range jobs {
		pages := "-"
		if job.Pages > 0 {
			pages = fmt.Sprint(job.Pages)
		}
		t.AppendRow(table.Row{job.ID, job.Name, job.State, pages, Money(job.Cost)})
	}
	t.Render()
}

// Options summarizes print options in a single cell.
func Options(opts pharos.PrintOptions) string {
	parts := []string{string(opts.Color)}
	if opts.Sides == pharos.Duplex {
		parts = append(parts, "duplex")
	} else {
		parts = append(parts, "simplex")
	}
	if opts.TwoPagesPerSide {
		parts = append(parts, "2pps")
	}
	parts = append(parts, fmt.Sprintf("x%d", opts.Copies))
	if opts.PageRange != "" {
		parts = append(parts, "pages "+opts.PageRange)
	}
	return strings.Join(parts, ", ")
}

func (r Reporter) History(entries []jobstore.Entry, totalSpent float64) {
	if len(entries) == 0 {
		fmt.Fprintln(r.out, "No print history.")
		return
	}

	t := r.newTable()
	t.AppendHeader(table.Row{"Submitted", "Document", "State", "Cost", "Options"})
	for _, entry := range entries {
		t.AppendRow(table.Row{
			entry.SubmittedAt.Format(time.DateTime),
			entry.Document,
			entry.State,
			Money(entry.Cost),
			Options(entry.Options),
		})
	}
	t.AppendFooter(table.Row{"", "", "Total spent", Money(totalSpent), ""})
	t.Render()
}

// Config prints the stored defaults, the session token is never shown.
func (r Reporter) Config(path string, config configstore.Config) {
	session := "none"
	if config.Token != "" {
		session = "saved (redacted)"
	}

	fmt.Fprintf(r.out, "Config file: %s\n", path)
	t := r.newTable()
	t.AppendHeader(table.Row{"Key", "Value"})
	t.AppendRow(table.Row{"color", string(config.Color)})
	t.AppendRow(table.Row{"sides", int(config.Sides)})
	t.AppendRow(table.Row{"session", session})
	t.Render()
}
