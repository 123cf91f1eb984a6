package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexanderramin/scanflow/internal/access"
	"github.com/alexanderramin/scanflow/internal/domain"
	"github.com/alexanderramin/scanflow/internal/session"
	"github.com/alexanderramin/scanflow/internal/teatest"
)

// shellDriver records every line the shell prints above its prompt.
type shellDriver struct {
	*teatest.Driver
	printed *[]string
}

func newShellDriver(t *testing.T, a *App, actor string) shellDriver {
	t.Helper()
	printed := &[]string{}
	m := newShellModel(context.Background(), a, newSessionManager(a), actor)
	m.print = func(line string) tea.Cmd {
		*printed = append(*printed, ansiPattern.ReplaceAllString(line, ""))
		return nil
	}
	d := teatest.New(t, m, teatest.WithCmdTimeout(2*time.Second), teatest.WithSize(100, 30))
	d.DrainInit()
	return shellDriver{Driver: d, printed: printed}
}

func shellState(t *testing.T, d shellDriver) shellModel {
	t.Helper()
	m, ok := d.Model.(shellModel)
	require.True(t, ok, "model is %T", d.Model)
	return m
}

// lastReply is the newest printed line that is not an echo of input.
func lastReply(t *testing.T, d shellDriver) string {
	t.Helper()
	lines := *d.printed
	for i := len(lines) - 1; i >= 0; i-- {
		if !strings.HasPrefix(lines[i], "› ") {
			return strings.TrimSuffix(lines[i], "\n")
		}
	}
	require.Fail(t, "the shell printed no reply")
	return ""
}

func TestShell_StartsWithWelcome(t *testing.T) {
	a := enforcedApp(t)
	d := newShellDriver(t, a, "boss")

	assert.Contains(t, lastReply(t, d), "Welcome back! Your roles: Coordinator.")
	assert.Contains(t, shellState(t, d).options, session.OptAddChapters)
}

func TestShell_NewActorChoosesRoles(t *testing.T) {
	a := enforcedApp(t)
	d := newShellDriver(t, a, "7")

	assert.Contains(t, lastReply(t, d), "Who are you?")
	d.Submit("Edit")
	assert.Contains(t, lastReply(t, d), "Role added: Edit.")
	d.Submit(session.OptDone)
	assert.Contains(t, lastReply(t, d), "Roles saved: Edit.")
}

func TestShell_IntakeByNumbers(t *testing.T) {
	a := enforcedApp(t)
	d := newShellDriver(t, a, "boss")
	sessions := shellState(t, d).sessions

	// menu: My tasks, My roles, Choose roles, Finish chapters, Add chapters
	d.Submit("5")
	assert.Equal(t, session.StepIntakeTitle, sessions.Step("boss"))

	d.Submit("1")
	assert.Equal(t, session.StepIntakeNewTitle, sessions.Step("boss"))

	d.Submit("Solo Leveling")
	assert.Equal(t, session.StepIntakeChapters, sessions.Step("boss"))

	// A lone "Back" option does not turn chapter numbers into picks.
	d.Submit("1")
	assert.Contains(t, lastReply(t, d), "New for Solo Leveling: chapters 01.")

	d.Submit(session.OptFromScratch)
	assert.Contains(t, lastReply(t, d), "Tasks created for Solo Leveling, chapters 01, starting at Translate.")

	groups, err := a.Pipeline.QueryActive(context.Background(), domain.StageClean)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, []string{"01"}, groups[0].Chapters)
}

func TestShell_UnknownOption(t *testing.T) {
	a := testApp(t, access.Policy{})
	d := newShellDriver(t, a, "7")
	d.Submit(session.OptDone)
	d.Submit("/menu")

	d.Submit("dance")
	assert.True(t, strings.HasPrefix(lastReply(t, d), "Unknown option."))
}

func TestShell_HistoryRecall(t *testing.T) {
	a := testApp(t, access.Policy{})
	a.HistoryPath = filepath.Join(t.TempDir(), "shell_history")
	d := newShellDriver(t, a, "boss")

	d.Submit("/menu")
	d.Submit(session.OptMyRoles)

	d.PressUp()
	assert.Equal(t, session.OptMyRoles, shellState(t, d).input.Value())
	d.PressUp()
	assert.Equal(t, "/menu", shellState(t, d).input.Value())
	d.PressDown()
	d.PressDown()
	assert.Empty(t, shellState(t, d).input.Value())

	data, err := os.ReadFile(a.HistoryPath)
	require.NoError(t, err)
	assert.Equal(t, "/menu\nMy roles\n", string(data))
}

func TestShell_EchoesInputAndHintsPicks(t *testing.T) {
	a := enforcedApp(t)
	d := newShellDriver(t, a, "boss")

	assert.Contains(t, d.View(), "1-5 pick")
	d.Submit("/menu")
	assert.Contains(t, *d.printed, "› /menu")
}

func TestShell_ExitQuits(t *testing.T) {
	a := testApp(t, access.Policy{})
	d := newShellDriver(t, a, "boss")

	d.Submit("exit")
	assert.True(t, d.Quitting)
	assert.Contains(t, d.View(), "Goodbye.")
}

func TestShell_CtrlCQuits(t *testing.T) {
	a := testApp(t, access.Policy{})
	d := newShellDriver(t, a, "boss")

	d.PressCtrlC()
	assert.True(t, d.Quitting)
}

func TestShellCmd_RequiresActor(t *testing.T) {
	a := testApp(t, access.Policy{})

	_, err := executeCmd(t, a, "shell")
	assert.ErrorContains(t, err, "the shell needs an actor")
}

func TestShellHistory_Load(t *testing.T) {
	dir := t.TempDir()
	assert.Nil(t, loadHistoryFromPath(filepath.Join(dir, "missing")))
	assert.Nil(t, loadHistoryFromPath(""))

	path := filepath.Join(dir, "shell_history")
	require.NoError(t, os.WriteFile(path, []byte("a\n\n  b  \n"), 0o644))
	assert.Equal(t, []string{"a", "b"}, loadHistoryFromPath(path))

	var b strings.Builder
	for i := 0; i < maxHistoryLines+100; i++ {
		b.WriteString("line\n")
	}
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	assert.Len(t, loadHistoryFromPath(path), maxHistoryLines)
}

func TestShellHistory_AppendSkipsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "shell_history")
	appendHistoryToPath(path, "  ")
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	appendHistoryToPath(path, "first")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "first\n", string(data))
}

func TestDefaultHistoryPath(t *testing.T) {
	assert.Empty(t, DefaultHistoryPath(":memory:"))
	assert.Equal(t, filepath.Join("/data", "shell_history"), DefaultHistoryPath("/data/scanflow.db"))
}
