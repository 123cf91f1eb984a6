package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

const sampleHeader = `# scanflow configuration
# Every key can be overridden with SCANFLOW_<SECTION>_<KEY>, e.g.
# SCANFLOW_LOGGING_LEVEL=debug. SCANFLOW_DB overrides database.path.
#
# [stages.labels] renames stages for display and input, for example:
#   translate = "✍️ Переклад"
#   clean = "🧼 Клін"

`

// Sample renders the default configuration as TOML.
func Sample() ([]byte, error) {
	data, err := toml.Marshal(Default())
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return append([]byte(sampleHeader), data...), nil
}

// WriteSample writes the default configuration to path. It refuses to
// replace an existing file unless overwrite is set.
func WriteSample(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config %s already exists", path)
		}
	}
	data, err := Sample()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
