package plugin

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Manifest is the optional plugins.yaml next to the binary.
type Manifest struct {
	Disabled []string `yaml:"disabled"`
}

// LoadManifest reads path. A missing file is an empty manifest.
func LoadManifest(path string) (Manifest, error) {
	var m Manifest
	if path == "" {
		return m, nil
	}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return m, nil
	}
	if err != nil {
		return m, errors.Wrapf(err, "read plugin manifest %s", path)
	}
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return m, errors.Wrapf(err, "parse plugin manifest %s", path)
	}
	return m, nil
}

func (m Manifest) IsDisabled(unit string) bool {
	for _, name := range m.Disabled {
		if name == unit {
			return true
		}
	}
	return false
}
