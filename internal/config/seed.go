package config

import (
	_ "embed"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var defaultSeed []byte

// SeedUser is one entry of the demo directory.
type SeedUser struct {
	ID          string        `yaml:"id"`
	Name        string        `yaml:"name"`
	AnonymousID string        `yaml:"anonymous_id"`
	Online      bool          `yaml:"online"`
	LastSeenAgo time.Duration `yaml:"last_seen_ago"`
}

type seedFile struct {
	Users []SeedUser `yaml:"users"`
}

// LoadSeed returns the embedded demo directory.
func LoadSeed() ([]SeedUser, error) {
	return ParseSeed(defaultSeed)
}

// ParseSeed decodes a seed document. Every user needs an id and a name.
func ParseSeed(data []byte) ([]SeedUser, error) {
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	for i, u := range f.Users {
		if u.ID == "" || u.Name == "" {
			return nil, fmt.Errorf("seed user %d: id and name are required", i)
		}
	}
	return f.Users, nil
}
