package formatter

import (
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexanderramin/scanflow/internal/app"
	"github.com/alexanderramin/scanflow/internal/domain"
	"github.com/alexanderramin/scanflow/internal/stagegraph"
)

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

func stripANSI(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}

func TestParseTableFormat(t *testing.T) {
	tests := []struct {
		in   string
		want TableFormat
	}{
		{"plain", TablePlain},
		{"Markdown", TableMarkdown},
		{"md", TableMarkdown},
		{" csv ", TableCSV},
	}
	for _, tt := range tests {
		got, err := ParseTableFormat(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseTableFormat("xml")
	assert.ErrorContains(t, err, `unknown format "xml"`)
}

func TestRenderTableAs_CSV(t *testing.T) {
	out := RenderTableAs(TableCSV, []string{"A", "B"}, [][]string{{"1", "2"}, {"3"}})
	assert.Equal(t, "A,B\n1,2\n3,", out)
}

func TestRenderTableAs_Markdown(t *testing.T) {
	out := RenderTableAs(TableMarkdown, []string{"A", "B"}, [][]string{{"1", "2"}})
	assert.Contains(t, out, "| A | B |")
	assert.Contains(t, out, "| 1 | 2 |")
}

func TestRenderTable_EmptyHeaders(t *testing.T) {
	assert.Empty(t, RenderTable(nil, nil))
}

func TestRenderProgress(t *testing.T) {
	assert.Equal(t, "[█████░░░░░] 2/4", stripANSI(RenderProgress(2, 4, 10)))
	assert.Equal(t, "[░░░░] 0/0", stripANSI(RenderProgress(0, 0, 4)))
	assert.Equal(t, "[████] 5/4", stripANSI(RenderProgress(5, 4, 4)))
}

func TestChapterList(t *testing.T) {
	assert.Equal(t, "01, 02", ChapterList([]string{"01", "02"}))

	var long []string
	for i := 1; i <= 20; i++ {
		long = append(long, string(rune('a'+i-1)))
	}
	assert.Equal(t, "a, b, c, d, e, f … o, p, q, r, s, t (20 chapters)", ChapterList(long))
}

func TestHumanTimestampFrom(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "Just now", HumanTimestampFrom(now.Add(-10*time.Second), now))
	assert.Equal(t, "5m ago", HumanTimestampFrom(now.Add(-5*time.Minute), now))
	assert.Equal(t, "3h ago", HumanTimestampFrom(now.Add(-3*time.Hour), now))
	assert.Equal(t, "Feb 1, 2026 12:00", HumanTimestampFrom(now.AddDate(0, -1, 0), now))
}

func TestFormatIntake(t *testing.T) {
	graph := stagegraph.Default()
	res := &app.IntakeResult{
		Title:             "Solo",
		CreatedChapters:   []string{"01", "02"},
		DuplicateChapters: []string{"03"},
		RejectedTokens:    []string{"x"},
		Tasks: []*domain.Task{
			{Title: "Solo", Chapter: "01", Stage: domain.StageTranslate},
			{Title: "Solo", Chapter: "01", Stage: domain.StageClean},
			{Title: "Solo", Chapter: "02", Stage: domain.StageTranslate},
			{Title: "Solo", Chapter: "02", Stage: domain.StageClean},
		},
	}
	out := stripANSI(FormatIntake(res, graph))
	assert.Contains(t, out, "Added Solo, chapters 01, 02")
	assert.Contains(t, out, "Created 4 tasks at Translate + Clean")
	assert.Contains(t, out, "Already admitted: 03")
	assert.Contains(t, out, "Ignored: x")

	out = stripANSI(FormatIntake(&app.IntakeResult{Title: "Solo", DuplicateChapters: []string{"01"}}, graph))
	assert.Contains(t, out, "Nothing added: every chapter is already in Solo.")
}

func TestFormatBatch(t *testing.T) {
	graph := stagegraph.Default()
	res := &app.BatchAdvanceResult{
		Title:     "Solo",
		Stage:     domain.StageEdit,
		Completed: []string{"01", "02", "03"},
		Unmatched: []string{"09"},
		Results: []app.AdvanceResult{
			{Chapter: "01", Outcome: app.OutcomeAdvanced, Created: []*domain.Task{{Stage: domain.StageTypeset}}},
			{Chapter: "02", Outcome: app.OutcomeAdvanced, WaitingOn: domain.StageClean},
			{Chapter: "03", Outcome: app.OutcomeAdvanced, Archived: true},
			{Chapter: "09", Outcome: app.OutcomeNoMatchingTask},
		},
	}
	out := stripANSI(FormatBatch(res, graph))
	assert.Contains(t, out, "Finished Edit for Solo, chapters 01, 02, 03")
	assert.Contains(t, out, "01 → Typeset")
	assert.Contains(t, out, "02 waiting for Clean")
	assert.Contains(t, out, "03 archived")
	assert.Contains(t, out, "No active task: 09")
}

func TestFormatActive(t *testing.T) {
	out := stripANSI(FormatActive("Edit", nil))
	assert.Equal(t, "No active Edit tasks.\n", out)

	out = stripANSI(FormatActive("Edit", []app.ActiveGroup{{Title: "Solo", Chapters: []string{"01", "02"}}}))
	assert.Contains(t, out, "EDIT")
	assert.Contains(t, out, "Solo")
	assert.Contains(t, out, "01, 02")
}

func TestFormatReport(t *testing.T) {
	graph := stagegraph.Default()
	progress := []app.TitleProgress{{
		Title:    "Solo",
		Admitted: 4,
		Active:   map[domain.Stage]int{domain.StageEdit: 2},
		Done:     map[domain.Stage]int{},
		Archived: 1,
	}}
	stages := []domain.Stage{domain.StageTranslate, domain.StageEdit}

	csv := FormatReport(progress, stages, graph, TableCSV)
	assert.Equal(t, "TITLE,ADMITTED,TRANSLATE,EDIT,ARCHIVED\nSolo,4,0,2,1\n", csv)

	plain := stripANSI(FormatReport(progress, stages, graph, TablePlain))
	assert.Contains(t, plain, "1/4")

	assert.Equal(t, "No titles yet.\n", stripANSI(FormatReport(nil, stages, graph, TablePlain)))
	assert.Empty(t, FormatReport(nil, stages, graph, TableCSV))
}

func TestRoleNames(t *testing.T) {
	graph := stagegraph.Default()
	out := stripANSI(RoleNames([]domain.Role{domain.RoleCoordinator, domain.StageRole(domain.StageReview)}, graph))
	assert.Equal(t, "Coordinator, Review", out)
	assert.Equal(t, "none", stripANSI(RoleNames(nil, graph)))
}

func TestFormatShellReply(t *testing.T) {
	out := stripANSI(FormatShellReply("Choose an action.", []string{"My tasks", "Back"}))
	assert.Equal(t, "Choose an action.\n\n  1. My tasks\n  2. Back", out)

	assert.Equal(t, "Error: boom", stripANSI(FormatShellError(errors.New("boom"))))
}

func TestShellHint(t *testing.T) {
	assert.Equal(t, "↑/↓ history · Ctrl+C quit", stripANSI(ShellHint(1, 0)))
	assert.Equal(t, "1-3 pick · ↑/↓ history · Ctrl+C quit", stripANSI(ShellHint(3, 0)))

	cut := stripANSI(ShellHint(3, 12))
	assert.LessOrEqual(t, lipgloss.Width(cut), 12)
	assert.True(t, strings.HasPrefix(cut, "1-3 pick"))
}
