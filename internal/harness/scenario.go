package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines one conformance run: a rule program, the inputs to feed
// it, and what the run is expected to produce.
type Scenario struct {
	// Name uniquely identifies this scenario. It doubles as the golden
	// file name.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Program is the rule-program file to compile, relative to the
	// scenario file location.
	Program string `yaml:"program"`

	// Inputs are the sources fed to the engine, in order. Text is inline
	// so the scenario is self-contained.
	Inputs []Input `yaml:"inputs"`

	// Expect holds optional inline expectations. A scenario without an
	// Expect clause is only useful with a golden snapshot.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Input is one named in-memory source.
type Input struct {
	Name string `yaml:"name"`
	Text string `yaml:"text"`
}

// Expect lists the inline expectations checked by Verify.
type Expect struct {
	// Output is the exact expected sink output.
	Output *string `yaml:"output,omitempty"`

	// RuleHits maps rule labels to expected hit counts. Subset match:
	// rules not listed are unchecked.
	RuleHits map[string]int64 `yaml:"rule_hits,omitempty"`

	// Records is the expected total record count, when non-nil.
	Records *int64 `yaml:"records,omitempty"`
}

// LoadScenario reads and parses a scenario file. Program paths resolve
// relative to the scenario file's directory. Unknown fields are rejected
// so a typo like "expects:" fails at load time.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}

	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}

	if s.Program != "" && !filepath.IsAbs(s.Program) {
		s.Program = filepath.Join(filepath.Dir(path), s.Program)
	}

	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}
	return &s, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Program == "" {
		return fmt.Errorf("program is required")
	}
	if _, err := os.Stat(s.Program); err != nil {
		return fmt.Errorf("program file: %w", err)
	}
	if len(s.Inputs) == 0 {
		return fmt.Errorf("inputs list is required and must be non-empty")
	}
	for i, in := range s.Inputs {
		if in.Name == "" {
			return fmt.Errorf("inputs[%d]: name is required", i)
		}
	}
	return nil
}
