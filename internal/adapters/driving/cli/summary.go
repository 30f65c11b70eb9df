package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/ledgersync/internal/core/domain"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#A6E3A1"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F9E2AF"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F38BA8"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086"))
)

// renderSummary formats a run report for the terminal.
func renderSummary(r *domain.RunReport, dryRun bool) string {
	var b strings.Builder

	title := "Export " + r.RunID
	if dryRun {
		title += " (dry run)"
	}
	b.WriteString(titleStyle.Render(title) + "\n")
	if r.TenantID != "" {
		b.WriteString(mutedStyle.Render("tenant "+r.TenantID) + "\n")
	}

	for _, res := range r.Resources {
		b.WriteString(renderResource(res))
	}

	footer := fmt.Sprintf("%d resources, %d failed in %s",
		len(r.Resources), r.FailedCount(), r.Duration().Round(time.Millisecond))
	switch {
	case r.Aborted != nil:
		b.WriteString(errorStyle.Render("Aborted: "+r.Aborted.Error()) + "\n")
	case r.Failed():
		b.WriteString(warningStyle.Render(footer) + "\n")
	default:
		b.WriteString(successStyle.Render(footer) + "\n")
	}
	return b.String()
}

func renderResource(res domain.ResourceResult) string {
	var b strings.Builder

	switch {
	case res.Err != nil:
		fmt.Fprintf(&b, "%s %s: %s\n", errorStyle.Render("✗"), res.Resource, res.Err)
		return b.String()
	case res.Failed():
		fmt.Fprintf(&b, "%s %s", errorStyle.Render("✗"), res.Resource)
	case res.Truncated:
		fmt.Fprintf(&b, "%s %s", warningStyle.Render("!"), res.Resource)
	default:
		fmt.Fprintf(&b, "%s %s", successStyle.Render("✓"), res.Resource)
	}
	fmt.Fprintf(&b, " %s\n", mutedStyle.Render(fmt.Sprintf("%d items, %d pages", res.Items, res.Pages)))
	if res.Truncated {
		b.WriteString("    " + warningStyle.Render("partial: pagination stopped early") + "\n")
	}

	for _, t := range res.Tables {
		switch t.Status {
		case domain.TableWritten:
			fmt.Fprintf(&b, "    %s → %s (%d rows)\n", t.Table, t.Destination, t.Rows)
		case domain.TableSkipped:
			fmt.Fprintf(&b, "    %s\n", mutedStyle.Render(t.Table+" skipped by "+t.Sink))
		case domain.TableFailed:
			fmt.Fprintf(&b, "    %s\n", errorStyle.Render(fmt.Sprintf("%s → %s failed: %v", t.Table, t.Sink, t.Err)))
		}
	}
	return b.String()
}
