package persona

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrNameRequired is returned when a persona file omits the character name.
var ErrNameRequired = errors.New("persona name is required")

// Load reads a persona from a YAML file. An empty path or a missing file
// falls back to Default.
func Load(path string) (Persona, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		log.Printf("[persona] warning: persona file %s not found, using built-in persona %q", path, Default().Name)
		return Default(), nil
	}
	if err != nil {
		return Persona{}, fmt.Errorf("read persona file %s: %w", path, err)
	}

	var p Persona
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Persona{}, fmt.Errorf("parse persona file %s: %w", path, err)
	}
	if strings.TrimSpace(p.Name) == "" {
		return Persona{}, ErrNameRequired
	}

	p.NonRespondingTopics = append([]string(nil), p.NonRespondingTopics...)
	return p, nil
}
