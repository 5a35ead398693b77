// Package cli implements the interactive terminal menu.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/FranksOps/leadfinder/internal/leadstore"
	"github.com/FranksOps/leadfinder/internal/pipeline"
	"github.com/FranksOps/leadfinder/internal/serp"
)

const (
	ansiBold  = "\033[1m"
	ansiRed   = "\033[91m"
	ansiReset = "\033[0m"
)

// Runner runs one search-and-append.
type Runner interface {
	Run(ctx context.Context, query string, mode serp.Mode) (pipeline.Report, error)
}

// Store is the part of the lead store the menu needs.
type Store interface {
	ExportAndReset(ctx context.Context) (leadstore.ExportResult, error)
	Count(ctx context.Context) (int, bool, error)
}

// Menu is the numbered prompt loop.
type Menu struct {
	In     io.Reader
	Out    io.Writer
	Runner Runner
	Store  Store
	Mode   serp.Mode
	// Color enables the ANSI header styling.
	Color  bool
	Logger *slog.Logger
}

// Run shows the header and loops until the user exits, input ends or ctx is
// cancelled. Failed actions are reported and the loop continues.
func (m *Menu) Run(ctx context.Context) error {
	logger := m.Logger
	if logger == nil {
		logger = slog.Default()
	}
	in := bufio.NewScanner(m.In)

	m.header()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		fmt.Fprintln(m.Out, "\nMenu:")
		fmt.Fprintln(m.Out, "1. Run new search and add leads")
		fmt.Fprintln(m.Out, "2. Export to Excel and reset database")
		fmt.Fprintln(m.Out, "3. View database size")
		fmt.Fprintln(m.Out, "4. Exit")
		choice, ok := m.prompt(in, "Enter your choice: ")
		if !ok {
			return in.Err()
		}

		switch choice {
		case "1":
			query, ok := m.prompt(in, "Enter your search query: ")
			if !ok {
				return in.Err()
			}
			m.search(ctx, logger, query)
		case "2":
			m.export(ctx, logger)
		case "3":
			m.count(ctx, logger)
		case "4":
			fmt.Fprintln(m.Out, "Goodbye!")
			return nil
		default:
			fmt.Fprintln(m.Out, "Invalid choice. Try again.")
		}
	}
}

func (m *Menu) header() {
	if m.Color {
		fmt.Fprintf(m.Out, "%sLeads Finder%s\n", ansiBold, ansiReset)
		fmt.Fprintf(m.Out, "%sPowered by Proto Trading%s\n", ansiRed, ansiReset)
		return
	}
	fmt.Fprintln(m.Out, "Leads Finder")
	fmt.Fprintln(m.Out, "Powered by Proto Trading")
}

func (m *Menu) prompt(in *bufio.Scanner, label string) (string, bool) {
	fmt.Fprint(m.Out, label)
	if !in.Scan() {
		fmt.Fprintln(m.Out)
		return "", false
	}
	return strings.TrimSpace(in.Text()), true
}

func (m *Menu) search(ctx context.Context, logger *slog.Logger, query string) {
	if query == "" {
		fmt.Fprintln(m.Out, "Query cannot be empty.")
		return
	}
	rep, err := m.Runner.Run(ctx, query, m.Mode)
	if err != nil {
		logger.Error("search failed", "query", query, "err", err)
		fmt.Fprintf(m.Out, "Search failed: %v\n", err)
		return
	}
	fmt.Fprintf(m.Out, "Database now contains %d unique leads.\n", len(rep.Rows))
}

func (m *Menu) export(ctx context.Context, logger *slog.Logger) {
	res, err := m.Store.ExportAndReset(ctx)
	if err != nil {
		logger.Error("export failed", "err", err)
		fmt.Fprintf(m.Out, "Export failed: %v\n", err)
		return
	}
	if res.Path == "" {
		fmt.Fprintln(m.Out, "No data found to export.")
		return
	}
	fmt.Fprintf(m.Out, "Exported %d leads to %s\n", res.Count, res.Path)
	fmt.Fprintln(m.Out, "Lead database reset. Ready for new searches.")
}

func (m *Menu) count(ctx context.Context, logger *slog.Logger) {
	n, ok, err := m.Store.Count(ctx)
	if err != nil {
		logger.Warn("could not read lead store", "err", err)
	}
	if err != nil || !ok {
		fmt.Fprintln(m.Out, "Database is empty.")
		return
	}
	fmt.Fprintf(m.Out, "Current database has %d leads.\n", n)
}
