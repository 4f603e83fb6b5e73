package plugin

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	semverPattern = regexp.MustCompile(`^\d+\.\d+\.\d+$`)
	apiverPattern = regexp.MustCompile(`^\d+\.x$`)
)

// Metadata describes a resource kind.
type Metadata struct {
	// Name is the value of `type:` that selects this kind.
	Name        string
	Version     string
	APIVersion  string
	Description string
}

// Validate ensures metadata is well-formed.
func (m Metadata) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("kind metadata requires a non-empty Name")
	}
	if strings.TrimSpace(m.Version) == "" {
		return fmt.Errorf("kind '%s' metadata requires Version", m.Name)
	}
	if !semverPattern.MatchString(m.Version) {
		return fmt.Errorf("kind '%s' has invalid Version '%s' (expected format: X.Y.Z)", m.Name, m.Version)
	}
	if strings.TrimSpace(m.APIVersion) == "" {
		return fmt.Errorf("kind '%s' metadata requires APIVersion", m.Name)
	}
	if !apiverPattern.MatchString(m.APIVersion) {
		return fmt.Errorf("kind '%s' has invalid APIVersion '%s' (expected format: N.x)", m.Name, m.APIVersion)
	}
	return nil
}
