package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"empty-jar/internal/ledger"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

const (
	identityFile = "identity.yaml"
	databaseFile = "profile.db"
)

// profileFile is the signed-in identity and the device id, kept next to
// the profile database.
type profileFile struct {
	DeviceID string           `yaml:"device_id"`
	Identity *ledger.Identity `yaml:"identity,omitempty"`
}

// loadProfileFile reads dir/identity.yaml. A missing file yields a fresh
// device id and no identity.
func loadProfileFile(dir string) (profileFile, error) {
	var p profileFile
	raw, err := os.ReadFile(filepath.Join(dir, identityFile))
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return p, fmt.Errorf("failed to read identity: %w", err)
	default:
		if err := yaml.Unmarshal(raw, &p); err != nil {
			return p, fmt.Errorf("failed to parse identity: %w", err)
		}
	}
	if p.DeviceID == "" {
		p.DeviceID = uuid.NewString()
	}
	return p, nil
}

func saveProfileFile(dir string, p profileFile) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create profile directory: %w", err)
	}
	raw, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode identity: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, identityFile), raw, 0o600); err != nil {
		return fmt.Errorf("failed to write identity: %w", err)
	}
	return nil
}
