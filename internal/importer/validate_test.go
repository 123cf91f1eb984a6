package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexanderramin/scanflow/internal/stagegraph"
)

func TestValidateBundle_Valid(t *testing.T) {
	bundle := &LegacyBundle{
		Tasks:     map[string]LegacyTask{"1": {Title: "A", Chapter: "01", Role: "🧩 Тайп", Status: "в роботі"}},
		Sections:  map[string][]string{"A": {"01"}},
		Completed: map[string][]string{"A": {"01"}},
		Users:     map[string]LegacyUser{"5": {Roles: []string{"👁 Бета"}}},
	}
	assert.Empty(t, ValidateBundle(bundle, stagegraph.Default()))
}

func TestValidateBundle_CollectsAllErrors(t *testing.T) {
	bundle := &LegacyBundle{
		Tasks: map[string]LegacyTask{
			"0": {Title: " ", Chapter: "1-2", Role: "🎨 Колор", Status: "paused"},
		},
		Sections:  map[string][]string{"A": {"x"}},
		Completed: map[string][]string{"": {"01"}},
		Users:     map[string]LegacyUser{"5": {Roles: []string{"boss"}}},
	}

	errs := ValidateBundle(bundle, stagegraph.Default())
	require.Len(t, errs, 8)

	var msgs []string
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}
	assert.Contains(t, msgs, "tasks[0]: id must be a positive integer")
	assert.Contains(t, msgs, "tasks[0].title is required")
	assert.Contains(t, msgs, `tasks[0].status: unknown status "paused"`)
	assert.Contains(t, msgs, `users.json[5]: unknown role "boss"`)
	assert.Contains(t, msgs, "completed.json: empty title")
}

func TestValidateBundle_CustomGraphDropsLegacyStage(t *testing.T) {
	graph, err := stagegraph.Parse([]byte(`
stages:
  - stage: translate
    entry: true
    next: review
  - stage: review
    terminal: true
`))
	require.NoError(t, err)

	bundle := &LegacyBundle{Tasks: map[string]LegacyTask{
		"1": {Title: "A", Chapter: "01", Role: "🧼 Клін", Status: "в роботі"},
	}}
	errs := ValidateBundle(bundle, graph)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "unknown stage")
}
