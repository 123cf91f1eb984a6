package cli

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/alexanderramin/scanflow/internal/app"
	"github.com/alexanderramin/scanflow/internal/chapters"
	"github.com/alexanderramin/scanflow/internal/cli/formatter"
	"github.com/alexanderramin/scanflow/internal/domain"
)

// scanflowHuhTheme returns a huh theme using the formatter palette.
func scanflowHuhTheme() *huh.Theme {
	t := huh.ThemeBase()

	t.Focused.Title = lipgloss.NewStyle().Foreground(formatter.ColorHeader).Bold(true)
	t.Focused.SelectSelector = lipgloss.NewStyle().Foreground(formatter.ColorHeader)
	t.Focused.SelectedOption = lipgloss.NewStyle().Foreground(formatter.ColorGreen)
	t.Focused.UnselectedOption = lipgloss.NewStyle().Foreground(formatter.ColorFg)
	t.Focused.FocusedButton = lipgloss.NewStyle().Foreground(formatter.ColorFg).Background(formatter.ColorHeader).Padding(0, 1)
	t.Focused.BlurredButton = lipgloss.NewStyle().Foreground(formatter.ColorDim).Padding(0, 1)
	t.Focused.TextInput.Prompt = lipgloss.NewStyle().Foreground(formatter.ColorHeader)
	t.Focused.TextInput.Text = lipgloss.NewStyle().Foreground(formatter.ColorFg)
	t.Focused.TextInput.Placeholder = lipgloss.NewStyle().Foreground(formatter.ColorDim)
	t.Focused.Description = lipgloss.NewStyle().Foreground(formatter.ColorDim)

	t.Blurred.Title = lipgloss.NewStyle().Foreground(formatter.ColorDim)
	t.Blurred.SelectSelector = lipgloss.NewStyle().Foreground(formatter.ColorDim)
	t.Blurred.TextInput.Prompt = lipgloss.NewStyle().Foreground(formatter.ColorDim)
	t.Blurred.TextInput.Text = lipgloss.NewStyle().Foreground(formatter.ColorDim)

	return t
}

// intakeValues backs the intake form fields.
type intakeValues struct {
	Title    string
	Chapters string
	Stage    string
}

func validateTitle(s string) error {
	if domain.NormalizeTitle(s) == "" {
		return errors.New("title is required")
	}
	return nil
}

func validateChapters(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("enter at least one chapter")
	}
	if len(chapters.Normalize(s).IDs) == 0 {
		return errors.New("no chapter numbers found")
	}
	return nil
}

// intakeForm builds the wizard. Known titles are offered as suggestions.
func intakeForm(values *intakeValues, titles []string, entry []huh.Option[string]) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Title").
				Suggestions(titles).
				Value(&values.Title).
				Validate(validateTitle),
			huh.NewInput().
				Title("Chapters").
				Description("Numbers and ranges, e.g. 1-5, 7").
				Placeholder("1-5").
				Value(&values.Chapters).
				Validate(validateChapters),
			huh.NewSelect[string]().
				Title("Start at").
				Options(entry...).
				Value(&values.Stage),
		),
	).WithTheme(scanflowHuhTheme()).WithShowHelp(false)
}

func runIntakeWizard(ctx context.Context, a *App, req app.IntakeRequest) (app.IntakeRequest, error) {
	titles, err := a.Sections.Titles(ctx)
	if err != nil {
		return req, err
	}

	var options []huh.Option[string]
	for _, s := range a.Graph.EntryStages() {
		options = append(options, huh.NewOption(a.Graph.Label(s), string(s)))
	}

	values := &intakeValues{Title: req.Title, Chapters: req.RawChapters, Stage: string(req.EntryStage)}
	if err := intakeForm(values, titles, options).Run(); err != nil {
		return req, err
	}

	req.Title = values.Title
	req.RawChapters = values.Chapters
	req.EntryStage = domain.Stage(values.Stage)
	return req, nil
}
