package formatter

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/scanflow/internal/app"
	"github.com/alexanderramin/scanflow/internal/domain"
)

const reportProgressWidth = 10

// FormatReport renders per-title progress with one active-count column per
// stage. Plain output carries an archive progress bar; markdown and csv keep
// plain numbers.
func FormatReport(progress []app.TitleProgress, stages []domain.Stage, labels Labeler, format TableFormat) string {
	if len(progress) == 0 {
		if format == TablePlain {
			return Dim("No titles yet.") + "\n"
		}
		return ""
	}

	headers := []string{"TITLE", "ADMITTED"}
	for _, s := range stages {
		headers = append(headers, strings.ToUpper(labels.Label(s)))
	}
	headers = append(headers, "ARCHIVED")

	right := make([]int, 0, len(headers)-1)
	for i := 1; i < len(headers); i++ {
		right = append(right, i)
	}

	rows := make([][]string, 0, len(progress))
	for _, p := range progress {
		row := []string{p.Title, fmt.Sprint(p.Admitted)}
		for _, s := range stages {
			row = append(row, fmt.Sprint(p.Active[s]))
		}
		archived := fmt.Sprint(p.Archived)
		if format == TablePlain {
			archived = RenderProgress(p.Archived, p.Admitted, reportProgressWidth)
		}
		rows = append(rows, append(row, archived))
	}

	out := RenderTableAs(format, headers, rows, right...)
	if !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	return out
}
