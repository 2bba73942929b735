package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads path, merging its contents over Defaults(). Mirrors the
// teacher's defaults-then-file merge ordering (internal/config/merge*.go in
// the reference repo), simplified to the core's needs — the full env/CLI
// overlay is the external CLI collaborator's responsibility (spec.md §1).
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}
