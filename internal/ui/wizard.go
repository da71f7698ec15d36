package ui

import (
	"strconv"
	"strings"
	"time"

	"github.com/kode4food/signwiz/pkg/api"
)

const maxErrorWidth = 60

// Status renders a step status in its color
func Status(s api.StepStatus) string {
	switch s {
	case api.StatusSuccess:
		return SuccessStyle.Render(string(s))
	case api.StatusError:
		return ErrorStyle.Render(string(s))
	case api.StatusRunning:
		return WarnStyle.Render(string(s))
	default:
		return MutedStyle.Render(string(s))
	}
}

// StepTable renders one row per workflow step, marking the current one
func StepTable(st *api.WizardState) string {
	rows := make([][]string, 0, len(api.StepOrder))
	for i, id := range api.StepOrder {
		step := st.Step(id)
		marker := ""
		if id == st.Current {
			marker = "▸"
		}
		rows = append(rows, []string{
			marker,
			strconv.Itoa(i + 1),
			string(id),
			Status(step.Status),
			pollSummary(step.Polling),
			truncate(step.Error),
		})
	}
	return Table(
		[]string{"", "#", "Step", "Status", "Events", "Error"}, rows,
	)
}

// StateSummary renders the identifiers collected so far
func StateSummary(st *api.WizardState) string {
	file := "-"
	if st.File != nil {
		file = st.File.Name + " (" + strconv.Itoa(st.File.Pages) + " pages)"
	}
	return KeyValues("  ",
		KV("Environment", orDash(st.Environment)),
		KV("Action", string(st.Action)),
		KV("File", file),
		KV("File ID", orDash(st.FileID)),
		KV("Document ID", orDash(st.DocumentID)),
		KV("Recipients", orDash(strings.Join(st.RecipientEmails(), ", "))),
	)
}

// HistoryTable renders persisted run summaries, most recent first
func HistoryTable(runs []*api.RunSummary) string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		result := SuccessStyle.Render("ok")
		if !run.Succeeded() {
			result = ErrorStyle.Render("failed")
		}
		rows = append(rows, []string{
			run.StartedAt.Local().Format(time.DateTime),
			run.CompletedAt.Sub(run.StartedAt).Round(time.Millisecond).
				String(),
			run.Environment,
			string(run.Action),
			orDash(run.DocumentID),
			result,
		})
	}
	return Table(
		[]string{
			"Started", "Duration", "Environment", "Action", "Document",
			"Result",
		},
		rows,
	)
}

func pollSummary(p *api.PollingState) string {
	if p == nil {
		return ""
	}
	last := "-"
	if p.Last != nil {
		last = p.Last.Status
	}
	res := strconv.Itoa(len(p.Logs)) + " / " + last
	if p.IsActive {
		res += " " + WarnStyle.Render("polling")
	}
	return res
}

func truncate(s string) string {
	if len(s) <= maxErrorWidth {
		return s
	}
	return s[:maxErrorWidth-3] + "..."
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
