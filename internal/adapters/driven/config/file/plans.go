package file

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/docsync-cli/internal/core/ports/driving"
)

// SeedFilename is the declarative plan configuration file name.
const SeedFilename = "plans.toml"

// DefaultSeedPath returns the plans.toml path inside configDir, defaulting
// to ~/.docsync when configDir is empty.
func DefaultSeedPath(configDir string) (string, error) {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, ".docsync")
	}
	return filepath.Join(configDir, SeedFilename), nil
}

// LoadSeed decodes a plans.toml file into a declarative plan seed.
// A missing file is not an error: it decodes to an empty seed, so a fresh
// installation starts with no plans rather than a failure.
func LoadSeed(path string) (*driving.PlanSeed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &driving.PlanSeed{}, nil
		}
		return nil, fmt.Errorf("reading plan seed: %w", err)
	}

	var seed driving.PlanSeed
	if err := toml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parsing plan seed %s: %w", path, err)
	}
	return &seed, nil
}
