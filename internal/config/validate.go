package config

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

var (
	validLevels  = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	validFormats = map[string]bool{"console": true, "json": true}
)

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Database.Path) == "" {
		errs = append(errs, errors.New("database.path is required"))
	}
	if !validLevels[c.Logging.Level] {
		errs = append(errs, fmt.Errorf("logging.level %q must be one of debug, info, warn, error", c.Logging.Level))
	}
	if !validFormats[c.Logging.Format] {
		errs = append(errs, fmt.Errorf("logging.format %q must be console or json", c.Logging.Format))
	}
	if c.Display.Collation != "" {
		if _, err := language.Parse(c.Display.Collation); err != nil {
			errs = append(errs, fmt.Errorf("display.collation %q: %w", c.Display.Collation, err))
		}
	}
	for key, label := range c.Stages.Labels {
		if strings.TrimSpace(label) == "" {
			errs = append(errs, fmt.Errorf("stages.labels.%s must not be empty", key))
		}
	}
	return errors.Join(errs...)
}

// CollationTag returns the configured collation language, or language.Und
// when none is set.
func (c *Config) CollationTag() language.Tag {
	if c.Display.Collation == "" {
		return language.Und
	}
	tag, err := language.Parse(c.Display.Collation)
	if err != nil {
		return language.Und
	}
	return tag
}
