package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"dgcat/internal/catalog"
	"dgcat/internal/faults"
)

// Generator renders catalog state as a markdown report.
type Generator struct {
	store   *catalog.Store
	printer *message.Printer
	now     func() time.Time
}

// New builds a report generator over the catalog store.
func New(store *catalog.Store) *Generator {
	return &Generator{
		store:   store,
		printer: message.NewPrinter(language.English),
		now:     time.Now,
	}
}

// Markdown renders the full catalog report.
func (g *Generator) Markdown(ctx context.Context) (string, error) {
	snap, err := g.store.Statistics(ctx)
	if err != nil {
		return "", faults.Wrap(faults.ErrCatalog, "report", "markdown", "load statistics", err)
	}
	byMonth, err := g.store.BreakdownByYearMonth(ctx)
	if err != nil {
		return "", faults.Wrap(faults.ErrCatalog, "report", "markdown", "load calendar breakdown", err)
	}
	byProject, err := g.store.BreakdownByProject(ctx)
	if err != nil {
		return "", faults.Wrap(faults.ErrCatalog, "report", "markdown", "load project breakdown", err)
	}
	byStatus, err := g.store.StatusBreakdown(ctx)
	if err != nil {
		return "", faults.Wrap(faults.ErrCatalog, "report", "markdown", "load status breakdown", err)
	}

	var b strings.Builder
	b.WriteString("# Video Catalog Report\n\n")
	fmt.Fprintf(&b, "*Generated: %s*\n\n", g.now().UTC().Format(time.RFC3339))
	b.WriteString("---\n\n")

	b.WriteString("## Summary\n\n")
	g.bullet(&b, "Total Videos Cataloged", g.printer.Sprintf("%d", snap.TotalFiles))
	g.bullet(&b, "Unique Videos", g.countPct(snap.UniqueFiles, snap.TotalFiles))
	g.bullet(&b, "Duplicate Videos", g.countPct(snap.DuplicateFiles, snap.TotalFiles))
	g.bullet(&b, "Duplicate Groups", g.printer.Sprintf("%d", snap.DuplicateGroups))
	g.bullet(&b, "Total Storage", humanize.IBytes(uint64(snap.TotalBytes)))
	g.bullet(&b, "Space Saved (Deduplication)", fmt.Sprintf("%s (%.2f%%)", humanize.IBytes(uint64(snap.SpaceSavedBytes)), snap.SpaceSavedPct))
	g.bullet(&b, "Files Consolidated", g.printer.Sprintf("%d", snap.FilesConsolidated))
	g.bullet(&b, "Symlinks Created", g.printer.Sprintf("%d", snap.SymlinksCreated))
	if snap.LastScan != "" {
		g.bullet(&b, "Last Scan", snap.LastScan)
	}
	b.WriteString("\n")

	if len(byMonth) > 0 {
		b.WriteString("## Breakdown by Month\n\n")
		b.WriteString("| Year | Month | Files | Total Size |\n")
		b.WriteString("|------|-------|-------|------------|\n")
		for _, row := range byMonth {
			year, month := row.Year, row.Month
			if year == "" {
				year, month = "(undated)", "-"
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
				year, month,
				g.printer.Sprintf("%d", row.Files),
				humanize.IBytes(uint64(row.Bytes)))
		}
		b.WriteString("\n")
	}

	if len(byProject) > 0 {
		b.WriteString("## Top Projects by Total Size\n\n")
		b.WriteString("| Project | Files | Total Size |\n")
		b.WriteString("|---------|-------|------------|\n")
		limit := len(byProject)
		if limit > 10 {
			limit = 10
		}
		for _, row := range byProject[:limit] {
			name := row.Project
			if name == "" {
				name = "(none)"
			}
			fmt.Fprintf(&b, "| %s | %s | %s |\n",
				name,
				g.printer.Sprintf("%d", row.Files),
				humanize.IBytes(uint64(row.Bytes)))
		}
		b.WriteString("\n")
	}

	if len(byStatus) > 0 {
		b.WriteString("## Files by Consolidation Status\n\n")
		b.WriteString("| Status | Count |\n")
		b.WriteString("|--------|-------|\n")
		for _, status := range []catalog.ConsolidationStatus{
			catalog.StatusUnscanned,
			catalog.StatusScanned,
			catalog.StatusConsolidated,
			catalog.StatusLinked,
		} {
			if count, ok := byStatus[status]; ok {
				fmt.Fprintf(&b, "| %s | %s |\n", status, g.printer.Sprintf("%d", count))
			}
		}
		b.WriteString("\n")
	}

	return b.String(), nil
}

func (g *Generator) bullet(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, "- **%s**: %s\n", label, value)
}

func (g *Generator) countPct(count, total int64) string {
	if total == 0 {
		return "0 (0.00%)"
	}
	return g.printer.Sprintf("%d (%.2f%%)", count, float64(count)/float64(total)*100)
}
