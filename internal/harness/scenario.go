// Package harness runs criteria conformance scenarios: YAML files pairing a
// record fixture with criteria and the names they must match, in order.
// Scenarios exercise the whole pipeline (grammar, resolution, coercion,
// compilation, sorting) without writing Go per case.
package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario is one conformance scenario: a shared record fixture and the
// cases evaluated against it.
type Scenario struct {
	// Name uniquely identifies the scenario; golden files are stored
	// under it.
	Name string `yaml:"name"`

	// Description explains what the scenario validates.
	Description string `yaml:"description,omitempty"`

	// Records is the fixture every case runs against.
	Records []Record `yaml:"records"`

	// Cases are the criteria under test.
	Cases []Case `yaml:"cases"`
}

// Record is the fixed conformance schema. It covers the shapes the engine
// distinguishes: scalars of several types, a scalar collection and two
// struct collections for quantifier semantics.
type Record struct {
	Name     string    `yaml:"name"`
	Age      int       `yaml:"age"`
	Active   bool      `yaml:"active"`
	Tags     []string  `yaml:"tags,omitempty"`
	Roles    []Role    `yaml:"roles,omitempty"`
	Projects []Project `yaml:"projects,omitempty"`
}

type Role struct {
	Name string `yaml:"name"`
}

type Project struct {
	Status string `yaml:"status"`
}

// Case is one criteria evaluation: the filter and sort expressions and the
// record names expected back, in expected order.
type Case struct {
	Filter string `yaml:"filter,omitempty"`
	Sort   string `yaml:"sort,omitempty"`

	// Expect lists the matching record names in result order. An empty
	// list asserts that nothing matches.
	Expect []string `yaml:"expect"`

	// Error, when set, asserts that compilation fails and the error
	// message contains this substring. Expect must be empty.
	Error string `yaml:"error,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected so typos fail loudly instead of silently skipping assertions.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var s Scenario
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}
	return &s, nil
}

func (s *Scenario) validate() error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Cases) == 0 {
		return fmt.Errorf("at least one case is required")
	}
	for i, c := range s.Cases {
		if c.Error != "" && len(c.Expect) > 0 {
			return fmt.Errorf("case %d: error and expect are mutually exclusive", i)
		}
	}
	seen := make(map[string]bool, len(s.Records))
	for _, r := range s.Records {
		if r.Name == "" {
			return fmt.Errorf("every record needs a name")
		}
		if seen[r.Name] {
			return fmt.Errorf("duplicate record name %q", r.Name)
		}
		seen[r.Name] = true
	}
	return nil
}
