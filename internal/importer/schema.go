package importer

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// File names of the legacy chat-bot database directory.
const (
	TasksFile     = "tasks.json"
	SectionsFile  = "sections.json"
	CompletedFile = "completed.json"
	UsersFile     = "users.json"
)

// Legacy status strings.
const (
	LegacyStatusActive = "в роботі"
	LegacyStatusDone   = "готово"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// LegacyTask is one entry of tasks.json, keyed by its numeric id.
type LegacyTask struct {
	Title   string `json:"title"`
	Chapter string `json:"chapter"`
	Role    string `json:"role"`
	Status  string `json:"status"`
}

// LegacyUser is one entry of users.json, keyed by chat user id.
type LegacyUser struct {
	Roles []string `json:"roles"`
}

// LegacyBundle is the full content of a legacy database directory.
type LegacyBundle struct {
	Tasks     map[string]LegacyTask
	Sections  map[string][]string
	Completed map[string][]string
	Users     map[string]LegacyUser
}

var schemaFiles = map[string]string{
	TasksFile:     "schemas/tasks.json",
	SectionsFile:  "schemas/chapters.json",
	CompletedFile: "schemas/chapters.json",
	UsersFile:     "schemas/users.json",
}

var compileSchemas = sync.OnceValues(func() (map[string]*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiled := make(map[string]*jsonschema.Schema, len(schemaFiles))
	for file, path := range schemaFiles {
		if _, ok := compiled[path]; ok {
			continue
		}
		raw, err := fs.ReadFile(schemaFS, path)
		if err != nil {
			return nil, err
		}
		if err := compiler.AddResource(path, bytes.NewReader(raw)); err != nil {
			return nil, fmt.Errorf("loading schema for %s: %w", file, err)
		}
		schema, err := compiler.Compile(path)
		if err != nil {
			return nil, fmt.Errorf("compiling schema for %s: %w", file, err)
		}
		compiled[path] = schema
	}
	return compiled, nil
})

// LoadDir reads a legacy database directory. Missing files count as empty;
// a file that is not valid JSON or does not match its schema is an error.
func LoadDir(dir string) (*LegacyBundle, error) {
	bundle := &LegacyBundle{}
	targets := []struct {
		file string
		dst  any
	}{
		{TasksFile, &bundle.Tasks},
		{SectionsFile, &bundle.Sections},
		{CompletedFile, &bundle.Completed},
		{UsersFile, &bundle.Users},
	}
	for _, target := range targets {
		if err := loadFile(filepath.Join(dir, target.file), target.file, target.dst); err != nil {
			return nil, err
		}
	}
	return bundle, nil
}

func loadFile(path, name string, dst any) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", name, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	if err := validateDocument(name, data); err != nil {
		return err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("parsing %s: %w", name, err)
	}
	return nil
}

func validateDocument(name string, data []byte) error {
	schemas, err := compileSchemas()
	if err != nil {
		return err
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parsing %s: %w", name, err)
	}
	if err := schemas[schemaFiles[name]].Validate(doc); err != nil {
		return fmt.Errorf("%s does not match the legacy format: %w", name, err)
	}
	return nil
}
