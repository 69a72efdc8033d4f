package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Serdar715/pathguard/internal/config"
	"github.com/Serdar715/pathguard/internal/payloads"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
)

const maxCellWidth = 60

// PrintCases writes one table row per case
func PrintCases(w io.Writer, result *config.RunResult) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"#", "Case", "Kind", "Status", "Failure", "Elapsed"})
	table.SetBorder(true)
	table.SetAutoWrapText(false)

	rows := make([][]string, 0, len(result.Cases))
	for i, c := range result.Cases {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			truncate(c.Name, maxCellWidth),
			string(c.Kind),
			StatusLabel(c.Status),
			c.Failure,
			fmt.Sprintf("%dms", c.ElapsedMs),
		})
	}
	table.AppendBulk(rows)
	table.Render()
}

// PrintSummary prints the final run summary
func PrintSummary(w io.Writer, result *config.RunResult) {
	yellow := color.New(color.FgYellow)
	yellow.Fprintln(w, "\n┌─────────────────────────────────────────────────┐")
	yellow.Fprintln(w, "│                  RUN SUMMARY                    │")
	yellow.Fprintln(w, "└─────────────────────────────────────────────────┘")

	fmt.Fprintf(w, "  Run ID:      %s\n", result.RunID)
	fmt.Fprintf(w, "  Target:      %s\n", result.Target)
	if result.WAFDetected != "" {
		yellow.Fprintf(w, "  WAF:         %s\n", result.WAFDetected)
	}
	fmt.Fprintf(w, "  Duration:    %s\n", result.Duration)
	fmt.Fprintf(w, "  Passed:      %s\n", color.GreenString("%d", result.Passed))

	if result.Failed > 0 {
		color.New(color.FgRed).Fprintf(w, "  Failed:      %d\n", result.Failed)
	} else {
		fmt.Fprintf(w, "  Failed:      0\n")
	}
	if result.Errored > 0 {
		yellow.Fprintf(w, "  Errors:      %d\n", result.Errored)
	}
	if result.Skipped > 0 {
		fmt.Fprintf(w, "  Skipped:     %d\n", result.Skipped)
	}
	if result.Aborted {
		color.New(color.FgRed, color.Bold).Fprintf(w, "  Aborted:     %s\n", result.AbortReason)
	}

	yellow.Fprintln(w, "─────────────────────────────────────────────────")
}

// PrintCatalog lists every probe the harness runs
func PrintCatalog(w io.Writer, guardOrigin string) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Kind", "Case", "Request", "Expectation"})
	table.SetBorder(true)
	table.SetAutoWrapText(false)

	table.Append([]string{string(config.KindMalformed), "malformed request-target", "GET " + payloads.MalformedPath,
		"400 twice or connection refused"})
	for _, pc := range payloads.ProbeCases() {
		table.Append([]string{string(config.KindBrowser), pc.Name, truncate(pc.Path, maxCellWidth),
			"marker never rendered"})
	}
	for _, exp := range payloads.RedirectExpectations() {
		table.Append([]string{string(config.KindRedirect), exp.Name, exp.RequestPath,
			fmt.Sprintf("%d %s %s", exp.ExpectedStatus, exp.ExpectedHostname, exp.ExpectedPathname)})
	}
	fx := payloads.Origin()
	table.Append([]string{string(config.KindOrigin), fx.Name, fx.NavigationPath,
		fmt.Sprintf("#%s[%s] = %s%s, no request", fx.ElementID, fx.Attribute, guardOrigin, fx.EmbedPath)})

	table.Render()
}

// StatusLabel returns the colored status label for a case
func StatusLabel(s config.CaseStatus) string {
	label := strings.ToUpper(string(s))
	switch s {
	case config.StatusPass:
		return color.New(color.FgGreen).Sprint(label)
	case config.StatusFail:
		return color.New(color.FgRed, color.Bold).Sprint(label)
	case config.StatusError:
		return color.New(color.FgYellow).Sprint(label)
	default:
		return color.New(color.FgCyan).Sprint(label)
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
