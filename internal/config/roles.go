package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/policypal/internal/core/domain"
)

// Roles are the descriptions given to the two experts and the coordinator
type Roles struct {
	IT          domain.RoleDescription `yaml:"it"`
	HR          domain.RoleDescription `yaml:"hr"`
	Coordinator domain.RoleDescription `yaml:"coordinator"`
}

// DefaultRoles returns the built-in role descriptions
func DefaultRoles() Roles {
	return Roles{
		IT:          domain.DefaultExpertRole(domain.AreaIT),
		HR:          domain.DefaultExpertRole(domain.AreaHR),
		Coordinator: domain.DefaultCoordinatorRole(),
	}
}

// LoadRoles reads role overrides from a YAML file of the form
//
//	it:
//	  title: IT Policy Expert
//	  summary: ...
//	  guidelines: [...]
//	hr: ...
//	coordinator: ...
//
// Roles left out of the file keep their defaults. An empty path returns the
// defaults.
func LoadRoles(path string) (Roles, error) {
	roles := DefaultRoles()
	if path == "" {
		return roles, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Roles{}, fmt.Errorf("read roles file: %w", err)
	}

	var overrides Roles
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return Roles{}, fmt.Errorf("parse roles file %s: %w", path, err)
	}

	if !overrides.IT.IsZero() {
		roles.IT = overrides.IT
	}
	if !overrides.HR.IsZero() {
		roles.HR = overrides.HR
	}
	if !overrides.Coordinator.IsZero() {
		roles.Coordinator = overrides.Coordinator
	}
	return roles, nil
}
