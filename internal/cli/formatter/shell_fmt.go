package formatter

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// FormatShellWelcome renders the banner shown when the shell starts.
func FormatShellWelcome(actor string) string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(StylePurple.Render("  scanflow") + "\n")
	b.WriteString(StyleDim.Render("  ─────────────────────────────") + "\n")
	fmt.Fprintf(&b, "  %s %s\n", Dim("Signed in as"), Bold(actor))
	b.WriteString("\n")
	b.WriteString(StyleDim.Render("  Type an option or its number. /start begins, /menu returns to the menu,") + "\n")
	b.WriteString(StyleDim.Render("  Ctrl+C quits.") + "\n")
	return b.String()
}

// FormatShellInput echoes what the user typed.
func FormatShellInput(line string) string {
	return StyleBlue.Render("› ") + line
}

// FormatShellReply renders a reply followed by its numbered options.
func FormatShellReply(text string, options []string) string {
	var b strings.Builder
	b.WriteString(StyleFg.Render(text))
	if len(options) > 0 {
		b.WriteString("\n")
		for i, opt := range options {
			fmt.Fprintf(&b, "\n  %s %s", StyleGreen.Render(fmt.Sprintf("%d.", i+1)), opt)
		}
	}
	return b.String()
}

// FormatShellError renders a failed step.
func FormatShellError(err error) string {
	return StyleRed.Render("Error: ") + err.Error()
}

// ShellHint is the key help under the prompt. It mentions number picks when
// the latest reply offers a choice and is cut to width when width is known.
func ShellHint(options, width int) string {
	hint := "↑/↓ history · Ctrl+C quit"
	if options > 1 {
		hint = fmt.Sprintf("1-%d pick · %s", options, hint)
	}
	if width > 0 {
		hint = lipgloss.NewStyle().MaxWidth(width).Render(hint)
	}
	return Dim(hint)
}
