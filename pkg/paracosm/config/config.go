// Package config loads engine limits and whole knowledge bases from
// YAML files.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/paracosm/pkg/paracosm/internalerr"
)

// Limits are the engine's termination and caching ceilings.
type Limits struct {
	MaxDepth     int `yaml:"max_depth"`
	MaxSolutions int `yaml:"max_solutions"`
	CacheSize    int `yaml:"cache_size"`
}

// DefaultLimits returns the stock ceilings.
func DefaultLimits() Limits {
	return Limits{
		MaxDepth:     100,
		MaxSolutions: 100,
		CacheSize:    256,
	}
}

// LoadLimits loads limits from a YAML file, filling omitted fields from
// the defaults.
func LoadLimits(path string) (Limits, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Limits{}, err
	}

	l := DefaultLimits()
	if err := yaml.Unmarshal(data, &l); err != nil {
		return Limits{}, fmt.Errorf("%w: %v", internalerr.ErrInvalidConfig, err)
	}
	if l.MaxDepth <= 0 || l.MaxSolutions <= 0 {
		return Limits{}, fmt.Errorf("%w: limits must be positive", internalerr.ErrInvalidConfig)
	}
	return l, nil
}

// Rule is one rule in a knowledge file: a head pattern and the body
// sub-goals as fact-key strings.
type Rule struct {
	Head string   `yaml:"head"`
	Body []string `yaml:"body"`
}

// Cause is one causal edge in a knowledge file; the mechanism is named
// and resolved through the causal registry at apply time.
type Cause struct {
	Cause     string `yaml:"cause"`
	Effect    string `yaml:"effect"`
	Mechanism string `yaml:"mechanism"`
}

// Knowledge is a declarative knowledge base: facts, rules, causal
// edges, and state-space declarations for one reality.
type Knowledge struct {
	Reality     string           `yaml:"reality"`
	Facts       map[string]any   `yaml:"facts"`
	Rules       []Rule           `yaml:"rules"`
	Causes      []Cause          `yaml:"causes"`
	StateSpaces map[string][]any `yaml:"state_spaces"`
}

// LoadKnowledge loads a knowledge base from a YAML file.
func LoadKnowledge(path string) (*Knowledge, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var k Knowledge
	if err := yaml.Unmarshal(data, &k); err != nil {
		return nil, fmt.Errorf("%w: %v", internalerr.ErrInvalidConfig, err)
	}
	for _, r := range k.Rules {
		if r.Head == "" {
			return nil, fmt.Errorf("%w: rule with empty head", internalerr.ErrInvalidConfig)
		}
	}
	for _, c := range k.Causes {
		if c.Cause == "" || c.Effect == "" || c.Mechanism == "" {
			return nil, fmt.Errorf("%w: cause needs cause, effect and mechanism", internalerr.ErrInvalidConfig)
		}
	}
	return &k, nil
}
