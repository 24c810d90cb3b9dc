package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"dbdoc/internal/errs"
	"dbdoc/internal/ports"
	"dbdoc/internal/usecase/reconcile"
)

const (
	outputLine  = "line"
	outputTable = "table"
	outputJSON  = "json"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	failStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

func validateOutput(format string) error {
	switch format {
	case outputLine, outputTable, outputJSON:
		return nil
	default:
		return fmt.Errorf("unsupported output %q (want line, table or json)", format)
	}
}

func renderReport(w io.Writer, format string, report reconcile.Report) error {
	switch format {
	case outputJSON:
		return writeJSON(w, reportView(report))
	case outputTable:
		return renderReportTable(w, report)
	default:
		return renderReportLines(w, report)
	}
}

// renderReportLines prints one line per object action, e.g.
// "CLOSE EI-981 Missing COMMENT on sales.orders".
func renderReportLines(w io.Writer, report reconcile.Report) error {
	for _, out := range report.Outcomes {
		if out.Status == reconcile.StatusUnchanged {
			continue
		}
		key := out.IssueKey
		if key == "" {
			key = "-"
		}
		line := fmt.Sprintf("%s %s %s", out.Decision.Action, key, out.Decision.Summary)
		if out.Status != reconcile.StatusApplied {
			line += " [" + string(out.Status)
			if out.Err != nil {
				line += ": " + out.Err.Error()
			}
			line += "]"
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return errs.Wrap(err, "write report line")
		}
	}
	return nil
}

func renderReportTable(w io.Writer, report reconcile.Report) error {
	title := fmt.Sprintf("%s run %s", report.Mode, report.RunID)
	if report.DryRun {
		title += " (dry run)"
	}
	if _, err := fmt.Fprintln(w, titleStyle.Render(title)); err != nil {
		return errs.Wrap(err, "write report title")
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"#", "Action", "Status", "Issue", "Summary", "Assignee", "Detail"})
	for i, out := range report.Outcomes {
		detail := ""
		if out.Err != nil {
			detail = out.Err.Error()
		}
		status := string(out.Status)
		if out.Status == reconcile.StatusFailed {
			status = failStyle.Render(status)
		}
		t.AppendRow(table.Row{i + 1, out.Decision.Action, status, out.IssueKey, out.Decision.Summary, out.Decision.Assignee, detail})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 5, WidthMax: 60},
		{Number: 7, WidthMax: 50, Transformer: text.Transformer(func(val any) string {
			return dimStyle.Render(fmt.Sprint(val))
		})},
	})
	t.AppendFooter(table.Row{"", "", "", "", summaryLine(report), "", ""})

	if _, err := fmt.Fprintln(w, t.Render()); err != nil {
		return errs.Wrap(err, "write report table")
	}
	return nil
}

func summaryLine(report reconcile.Report) string {
	return fmt.Sprintf("findings %d, applied %d, planned %d, unchanged %d, skipped %d, failed %d",
		report.Findings,
		report.Count(reconcile.StatusApplied),
		report.Count(reconcile.StatusPlanned),
		report.Count(reconcile.StatusUnchanged),
		report.Count(reconcile.StatusSkipped),
		report.Count(reconcile.StatusFailed),
	)
}

type outcomeJSON struct {
	Action   string `json:"action"`
	Status   string `json:"status"`
	Summary  string `json:"summary"`
	IssueKey string `json:"issue_key,omitempty"`
	Owner    string `json:"owner,omitempty"`
	Assignee string `json:"assignee,omitempty"`
	Attempts int    `json:"attempts,omitempty"`
	Error    string `json:"error,omitempty"`
}

type reportJSON struct {
	RunID      string        `json:"run_id"`
	Mode       string        `json:"mode"`
	DryRun     bool          `json:"dry_run"`
	StartedAt  string        `json:"started_at"`
	FinishedAt string        `json:"finished_at"`
	Findings   int           `json:"findings"`
	Issues     int           `json:"issues"`
	Error      string        `json:"error,omitempty"`
	Outcomes   []outcomeJSON `json:"outcomes"`
}

func reportView(report reconcile.Report) reportJSON {
	view := reportJSON{
		RunID:      report.RunID,
		Mode:       string(report.Mode),
		DryRun:     report.DryRun,
		StartedAt:  report.StartedAt.Format(time.RFC3339),
		FinishedAt: report.FinishedAt.Format(time.RFC3339),
		Findings:   report.Findings,
		Issues:     report.Issues,
		Outcomes:   make([]outcomeJSON, 0, len(report.Outcomes)),
	}
	if report.Err != nil {
		view.Error = report.Err.Error()
	}
	for _, out := range report.Outcomes {
		o := outcomeJSON{
			Action:   string(out.Decision.Action),
			Status:   string(out.Status),
			Summary:  out.Decision.Summary,
			IssueKey: out.IssueKey,
			Owner:    out.Decision.Owner,
			Assignee: out.Decision.Assignee,
			Attempts: out.Attempts,
		}
		if out.Err != nil {
			o.Error = out.Err.Error()
		}
		view.Outcomes = append(view.Outcomes, o)
	}
	return view
}

func renderTransitions(w io.Writer, format string, key string, transitions []ports.Transition) error {
	switch format {
	case outputJSON:
		return writeJSON(w, transitions)
	case outputTable:
		t := table.NewWriter()
		t.SetStyle(table.StyleRounded)
		t.SetTitle(key)
		t.AppendHeader(table.Row{"ID", "Name", "To status"})
		for _, tr := range transitions {
			t.AppendRow(table.Row{tr.ID, tr.Name, tr.ToStatus})
		}
		_, err := fmt.Fprintln(w, t.Render())
		return errs.Wrap(err, "write transitions table")
	default:
		for _, tr := range transitions {
			if _, err := fmt.Fprintf(w, "%s\t%s\t-> %s\n", tr.ID, tr.Name, tr.ToStatus); err != nil {
				return errs.Wrap(err, "write transition")
			}
		}
		return nil
	}
}

func renderRuns(w io.Writer, format string, runs []ports.Run) error {
	switch format {
	case outputJSON:
		return writeJSON(w, runs)
	case outputTable:
		t := table.NewWriter()
		t.SetStyle(table.StyleRounded)
		t.AppendHeader(table.Row{"Run", "Mode", "Dry run", "Started", "Findings", "Applied", "Skipped", "Failed", "Error"})
		for _, r := range runs {
			t.AppendRow(table.Row{r.RunID, r.Mode, r.DryRun, r.StartedAt, r.Findings, r.Applied, r.Skipped, r.Failed, r.Error})
		}
		_, err := fmt.Fprintln(w, t.Render())
		return errs.Wrap(err, "write runs table")
	default:
		for _, r := range runs {
			mode := r.Mode
			if r.DryRun {
				mode += " (dry run)"
			}
			line := fmt.Sprintf("%s %s %s applied=%d skipped=%d failed=%d", r.RunID, r.StartedAt, mode, r.Applied, r.Skipped, r.Failed)
			if r.Error != "" {
				line += " error=" + strconv.Quote(r.Error)
			}
			if _, err := fmt.Fprintln(w, line); err != nil {
				return errs.Wrap(err, "write run")
			}
		}
		return nil
	}
}

func renderRun(w io.Writer, format string, run ports.Run, actions []ports.RunAction) error {
	if format == outputJSON {
		return writeJSON(w, struct {
			Run     ports.Run         `json:"run"`
			Actions []ports.RunAction `json:"actions"`
		}{Run: run, Actions: actions})
	}

	header := fmt.Sprintf("%s run %s  %s .. %s", run.Mode, run.RunID, run.StartedAt, run.FinishedAt)
	if run.DryRun {
		header += " (dry run)"
	}
	if _, err := fmt.Fprintln(w, titleStyle.Render(header)); err != nil {
		return errs.Wrap(err, "write run header")
	}
	if run.Error != "" {
		if _, err := fmt.Fprintln(w, failStyle.Render("aborted: "+run.Error)); err != nil {
			return errs.Wrap(err, "write run error")
		}
	}

	if format == outputTable {
		t := table.NewWriter()
		t.SetStyle(table.StyleRounded)
		t.AppendHeader(table.Row{"#", "Action", "Status", "Issue", "Summary", "Attempts", "Detail"})
		for _, a := range actions {
			t.AppendRow(table.Row{a.Seq, a.Action, a.Status, a.IssueKey, a.Summary, a.Attempts, a.Detail})
		}
		_, err := fmt.Fprintln(w, t.Render())
		return errs.Wrap(err, "write run table")
	}

	for _, a := range actions {
		key := a.IssueKey
		if key == "" {
			key = "-"
		}
		line := strings.Join([]string{a.Action, key, a.Summary, "[" + a.Status + "]"}, " ")
		if a.Detail != "" {
			line += " " + dimStyle.Render(a.Detail)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return errs.Wrap(err, "write run action")
		}
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errs.Wrap(enc.Encode(v), "encode json output")
}
