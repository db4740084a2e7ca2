package models

import (
	"errors"
	"fmt"
	"sort"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"gopkg.in/yaml.v3"
)

const (
	OverrideReplace = "replace"
	OverrideMerge   = "merge"

	StartupEnabled  = "enabled"
	StartupDisabled = "disabled"
)

var ErrInvalidOverride = errors.New("invalid service override")

/**
 * One service entry of a supervisor layer
 * @property {string} override - replace/merge, how the entry combines with earlier layers
 * @property {string} summary - Short description
 * @property {string} command - Command line, split on whitespace
 * @property {string} startup - enabled/disabled, enabled services start with the supervisor
 * @property {map[string]string} environment - Extra process environment
 */
type Service struct {
	Override    string            `yaml:"override,omitempty" json:"override,omitempty"`
	Summary     string            `yaml:"summary,omitempty" json:"summary,omitempty"`
	Command     string            `yaml:"command,omitempty" json:"command,omitempty"`
	Startup     string            `yaml:"startup,omitempty" json:"startup,omitempty"`
	Environment map[string]string `yaml:"environment,omitempty" json:"environment,omitempty"`
}

func (s Service) clone() Service {
	c := s
	if s.Environment != nil {
		c.Environment = make(map[string]string, len(s.Environment))
		for k, v := range s.Environment {
			c.Environment[k] = v
		}
	}
	return c
}

// merge overlays the non-empty fields of other on top of s
func (s Service) merge(other Service) Service {
	m := s.clone()
	if other.Override != "" {
		m.Override = other.Override
	}
	if other.Summary != "" {
		m.Summary = other.Summary
	}
	if other.Command != "" {
		m.Command = other.Command
	}
	if other.Startup != "" {
		m.Startup = other.Startup
	}
	if len(other.Environment) > 0 && m.Environment == nil {
		m.Environment = make(map[string]string, len(other.Environment))
	}
	for k, v := range other.Environment {
		m.Environment[k] = v
	}
	return m
}

// Layer is a declarative fragment of supervisor configuration.
type Layer struct {
	Summary     string             `yaml:"summary,omitempty" json:"summary,omitempty"`
	Description string             `yaml:"description,omitempty" json:"description,omitempty"`
	Services    map[string]Service `yaml:"services,omitempty" json:"services,omitempty"`
}

// ParseLayer decodes a YAML layer document
func ParseLayer(data []byte) (Layer, error) {
	var layer Layer
	if err := yaml.Unmarshal(data, &layer); err != nil {
		return Layer{}, fmt.Errorf("parse layer failed: %w", err)
	}
	return layer, nil
}

func (l Layer) ToYAML() (string, error) {
	data, err := yaml.Marshal(l)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

/**
 * Combine overlay into base, the result keeps base's label position
 * @param {Layer} base - Existing layer
 * @param {Layer} overlay - Layer being added
 * @returns {Layer} Combined layer
 * @returns {error} ErrInvalidOverride when a service has no valid override
 * @description
 * - Summary and description are taken from overlay when set
 * - "replace" services replace the whole entry
 * - "merge" services overlay non-empty fields and merge environment maps
 * - Services only present in base are kept untouched
 */
func CombineLayer(base, overlay Layer) (Layer, error) {
	out := Layer{
		Summary:     base.Summary,
		Description: base.Description,
		Services:    make(map[string]Service, len(base.Services)+len(overlay.Services)),
	}
	if overlay.Summary != "" {
		out.Summary = overlay.Summary
	}
	if overlay.Description != "" {
		out.Description = overlay.Description
	}
	for name, svc := range base.Services {
		out.Services[name] = svc.clone()
	}
	for _, name := range sortedNames(overlay.Services) {
		svc := overlay.Services[name]
		switch svc.Override {
		case OverrideReplace:
			out.Services[name] = svc.clone()
		case OverrideMerge:
			if existing, ok := out.Services[name]; ok {
				out.Services[name] = existing.merge(svc)
			} else {
				out.Services[name] = svc.clone()
			}
		default:
			return Layer{}, fmt.Errorf("%w: service %q has override %q", ErrInvalidOverride, name, svc.Override)
		}
	}
	return out, nil
}

// Plan is the combined view of every layer known to the supervisor.
type Plan struct {
	Services map[string]Service `yaml:"services,omitempty" json:"services"`
}

// CombineLayers flattens layers in order into a plan
func CombineLayers(layers ...Layer) (Plan, error) {
	combined := Layer{}
	for _, l := range layers {
		var err error
		combined, err = CombineLayer(combined, l)
		if err != nil {
			return Plan{}, err
		}
	}
	return Plan{Services: combined.Services}, nil
}

// ToYAML renders the plan, an empty plan renders as "{}\n"
func (p Plan) ToYAML() (string, error) {
	out := p
	if len(out.Services) == 0 {
		out.Services = nil
	}
	data, err := yaml.Marshal(out)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ServicesEqual reports whether two service maps are structurally equal, nil and empty maps compare equal.
func ServicesEqual(a, b map[string]Service) bool {
	return cmp.Equal(a, b, cmpopts.EquateEmpty())
}

// ServicesDiff is the human readable difference used in debug logs
func ServicesDiff(a, b map[string]Service) string {
	return cmp.Diff(a, b, cmpopts.EquateEmpty())
}

func sortedNames(services map[string]Service) []string {
	names := make([]string, 0, len(services))
	for name := range services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (p Plan) ServiceNames() []string {
	return sortedNames(p.Services)
}
