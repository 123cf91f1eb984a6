package cli

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/alexanderramin/scanflow/internal/cli/formatter"
	"github.com/alexanderramin/scanflow/internal/session"
)

// replyMsg carries the session's answer to one line of input.
type replyMsg struct {
	input string
	reply session.Reply
	err   error
}

// shellModel is the bubbletea Model for the interactive shell. Each line is
// handed to the session manager; its reply and options are printed above
// the prompt.
type shellModel struct {
	input textinput.Model
	width int

	ctx      context.Context
	app      *App
	sessions *session.Manager
	actor    string
	logger   *slog.Logger

	// options of the latest reply; numbers typed at the prompt pick from them
	options []string
	// print writes a finished line above the prompt
	print func(string) tea.Cmd

	history     []string
	historyIdx  int
	historyPath string

	quitting bool
}

func newShellModel(ctx context.Context, a *App, sessions *session.Manager, actor string) shellModel {
	ti := textinput.New()
	ti.Focus()
	ti.Prompt = ""
	ti.CharLimit = 500
	ti.Cursor.SetMode(cursor.CursorStatic)
	ti.KeyMap.NextSuggestion = key.NewBinding(key.WithKeys("ctrl+n"))
	ti.KeyMap.PrevSuggestion = key.NewBinding(key.WithKeys("ctrl+p"))

	hist := loadHistoryFromPath(a.HistoryPath)

	return shellModel{
		input:       ti,
		ctx:         ctx,
		app:         a,
		sessions:    sessions,
		actor:       actor,
		logger:      a.logger(),
		history:     hist,
		historyIdx:  len(hist),
		historyPath: a.HistoryPath,
		print:       func(line string) tea.Cmd { return tea.Println(line) },
	}
}

func (m shellModel) Init() tea.Cmd {
	return tea.Batch(
		m.print(formatter.FormatShellWelcome(m.actor)),
		m.handle(session.CmdStart),
	)
}

// handle runs one line through the session manager off the update loop.
func (m shellModel) handle(line string) tea.Cmd {
	ctx, sessions, actor := m.ctx, m.sessions, m.actor
	return func() tea.Msg {
		reply, err := sessions.Handle(ctx, actor, line)
		return replyMsg{input: line, reply: reply, err: err}
	}
}

func (m shellModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = msg.Width - 3
		return m, nil

	case replyMsg:
		var out string
		if msg.err != nil {
			m.logger.Error("shell step failed", "input", msg.input, "error", msg.err)
			out = formatter.FormatShellError(FriendlyError(msg.err))
		} else {
			m.options = msg.reply.Options
			out = formatter.FormatShellReply(msg.reply.Text, msg.reply.Options)
		}
		return m, m.print(out + "\n")

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyCtrlD:
			m.quitting = true
			return m, tea.Quit
		case tea.KeyEnter:
			return m.submit()
		case tea.KeyUp:
			m.recall(-1)
			return m, nil
		case tea.KeyDown:
			m.recall(1)
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m shellModel) submit() (tea.Model, tea.Cmd) {
	line := strings.TrimSpace(m.input.Value())
	m.input.SetValue("")
	if line == "" {
		return m, nil
	}

	m.history = append(m.history, line)
	m.historyIdx = len(m.history)
	appendHistoryToPath(m.historyPath, line)

	switch strings.ToLower(line) {
	case "exit", "quit":
		m.quitting = true
		return m, tea.Quit
	}

	resolved := m.resolveOption(line)
	return m, tea.Batch(
		m.print(formatter.FormatShellInput(line)),
		m.handle(resolved),
	)
}

// resolveOption maps a typed number to the option it labels. Numbers are
// only taken as picks when the reply offers a real choice, so chapter
// numbers typed at a prompt with just "Back" pass through unchanged.
func (m shellModel) resolveOption(line string) string {
	if len(m.options) < 2 {
		return line
	}
	n, err := strconv.Atoi(line)
	if err != nil || n < 1 || n > len(m.options) {
		return line
	}
	return m.options[n-1]
}

func (m *shellModel) recall(delta int) {
	if len(m.history) == 0 {
		return
	}
	m.historyIdx = min(max(m.historyIdx+delta, 0), len(m.history))
	if m.historyIdx == len(m.history) {
		m.input.SetValue("")
		return
	}
	m.input.SetValue(m.history[m.historyIdx])
	m.input.CursorEnd()
}

func (m shellModel) View() string {
	if m.quitting {
		return formatter.Dim("Goodbye.") + "\n"
	}
	return formatter.StyleBlue.Render("› ") + m.input.View() + "\n" +
		formatter.ShellHint(len(m.options), m.width)
}
