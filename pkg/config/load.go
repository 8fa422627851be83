package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var (
	// ErrDuplicateSite is returned when two sites share an ID
	ErrDuplicateSite = errors.New("duplicate site ID")
	// ErrPeerIsSelf is returned when the peer list contains this site
	ErrPeerIsSelf = errors.New("peer list contains this site")

	validate = validator.New()
)

// Load reads path over DefaultConfig and validates the result
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML over DefaultConfig and validates the result
func Parse(data []byte) (*Config, error) {
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks struct tags, then rules spanning several fields
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return formatValidationError(err)
	}

	seen := make(map[int]bool, len(c.Sites))
	for _, site := range c.Sites {
		if site.ID == c.SiteID {
			return fmt.Errorf("%w: %d", ErrPeerIsSelf, site.ID)
		}
		if seen[site.ID] {
			return fmt.Errorf("%w: %d", ErrDuplicateSite, site.ID)
		}
		seen[site.ID] = true
	}
	return nil
}

// formatValidationError turns the first validator failure into a readable error
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) || len(validationErrs) == 0 {
		return err
	}

	e := validationErrs[0]
	switch e.Tag() {
	case "required":
		return fmt.Errorf("%s: is required", e.Namespace())
	case "oneof":
		return fmt.Errorf("%s: must be one of [%s], got '%v'", e.Namespace(), e.Param(), e.Value())
	case "gt", "gte", "lte":
		return fmt.Errorf("%s: must be %s %s, got %v", e.Namespace(), e.Tag(), e.Param(), e.Value())
	case "gtfield":
		return fmt.Errorf("%s: must be greater than %s", e.Namespace(), e.Param())
	default:
		return fmt.Errorf("%s: failed '%s' validation", e.Namespace(), e.Tag())
	}
}
