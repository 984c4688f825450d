package gmail

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Rules narrows which of a sender's messages a deletion run may touch.
type Rules struct {
	SkipStarred     bool     `yaml:"skip_starred"`
	SkipImportant   bool     `yaml:"skip_important"`
	OlderThanDays   int      `yaml:"older_than_days"`
	ProtectedLabels []string `yaml:"protected_labels"`
	ExtraTerms      []string `yaml:"extra_terms"`
}

// LoadRules reads a rules file. An empty path yields nil rules, meaning no
// narrowing at all.
func LoadRules(path string) (*Rules, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path) // #nosec G304
	if err != nil {
		return nil, fmt.Errorf("read rules %s: %w", path, err)
	}
	var rules Rules
	if err := yaml.Unmarshal(raw, &rules); err != nil {
		return nil, fmt.Errorf("parse rules %s: %w", path, err)
	}
	if rules.OlderThanDays < 0 {
		return nil, fmt.Errorf("rules %s: older_than_days must not be negative", path)
	}
	return &rules, nil
}
