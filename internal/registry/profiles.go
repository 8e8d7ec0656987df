package registry

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Profile is one entry of the static profile configuration. Fields other
// than the name are carried for callers and ignored by the store.
type Profile struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

type profilesFile struct {
	Profiles []Profile `yaml:"profiles"`
}

// LoadProfiles reads the profile list from path. Both YAML and JSON are
// accepted, either as {"profiles": [...]} or as a bare list.
func LoadProfiles(path string) ([]Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profiles %s: %w", path, err)
	}
	return ParseProfiles(data)
}

func ParseProfiles(data []byte) ([]Profile, error) {
	var profiles []Profile
	var wrapped profilesFile
	if err := yaml.Unmarshal(data, &wrapped); err == nil && wrapped.Profiles != nil {
		profiles = wrapped.Profiles
	} else if err := yaml.Unmarshal(data, &profiles); err != nil {
		return nil, fmt.Errorf("decode profiles: %w", err)
	}
	if len(profiles) == 0 {
		return nil, errors.New("no profiles configured")
	}

	seen := make(map[string]bool, len(profiles))
	for i := range profiles {
		name := strings.TrimSpace(profiles[i].Name)
		if name == "" {
			return nil, fmt.Errorf("profile #%d has no name", i+1)
		}
		if strings.ContainsAny(name, `/\`) {
			return nil, fmt.Errorf("profile name %q contains a path separator", name)
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate profile %q", name)
		}
		seen[name] = true
		profiles[i].Name = name
	}
	return profiles, nil
}
