package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario. Golden files are named after it.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Schema is the directory of CUE mapping files.
	Schema string `yaml:"schema"`

	// Fixture is an optional SQL script that creates and fills the tables
	// the compiled SQL runs against.
	Fixture string `yaml:"fixture,omitempty"`

	Options Options `yaml:"options,omitempty"`

	// Query is kept as a node so the source can be recorded verbatim.
	Query yaml.Node `yaml:"query"`

	Expect Expect `yaml:"expect"`

	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Options mirror the compiler options a scenario may set.
type Options struct {
	CaseSensitive bool    `yaml:"case_sensitive,omitempty"`
	RootAlias     *string `yaml:"root_alias,omitempty"`
	NoRootAlias   bool    `yaml:"no_root_alias,omitempty"`
	AliasPrefix   string  `yaml:"alias_prefix,omitempty"`
}

// Expect specifies the compilation outcome.
type Expect struct {
	// Error is the expected error code. Empty means compilation succeeds.
	Error string `yaml:"error,omitempty"`

	// Aliases maps every expected alias path to its name. When set, the
	// created aliases must match exactly.
	Aliases map[string]string `yaml:"aliases,omitempty"`

	// SQL is the exact expected SQL.
	SQL string `yaml:"sql,omitempty"`

	// Params are the expected bound parameters, compared after YAML
	// decoding (ints as int, decimals as strings).
	Params []any `yaml:"params,omitempty"`
}

// Assertion validates one aspect of a successful compilation.
type Assertion struct {
	// Type specifies the assertion type:
	// - "alias": path has alias name
	// - "alias_count": exactly count aliases
	// - "sql_contains", "sql_not_contains": substring of the SQL
	// - "rows": first column of the fixture query result
	// - "portable": criteria validate as portable
	Type string `yaml:"type"`

	Path   string   `yaml:"path,omitempty"`
	Name   string   `yaml:"name,omitempty"`
	Count  int      `yaml:"count,omitempty"`
	Text   string   `yaml:"text,omitempty"`
	Values []string `yaml:"values,omitempty"`
}

// Assertion type constants.
const (
	AssertAlias          = "alias"
	AssertAliasCount     = "alias_count"
	AssertSQLContains    = "sql_contains"
	AssertSQLNotContains = "sql_not_contains"
	AssertRows           = "rows"
	AssertPortable       = "portable"
)

// LoadScenario reads and parses a scenario YAML file, resolving schema
// and fixture paths relative to the file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving schema and fixture paths relative to basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if basePath != "" {
		scenario.Schema = resolvePath(basePath, scenario.Schema)
		scenario.Fixture = resolvePath(basePath, scenario.Fixture)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// LoadDir loads every .yaml scenario in dir, sorted by file name.
func LoadDir(dir string) ([]*Scenario, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no scenarios found in %s", dir)
	}
	scenarios := make([]*Scenario, 0, len(matches))
	for _, m := range matches {
		s, err := LoadScenario(m)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(m), err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

func resolvePath(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Schema == "" {
		return fmt.Errorf("schema is required")
	}
	if _, err := os.Stat(s.Schema); os.IsNotExist(err) {
		return fmt.Errorf("schema directory not found: %s", s.Schema)
	}

	if s.Fixture != "" {
		if _, err := os.Stat(s.Fixture); os.IsNotExist(err) {
			return fmt.Errorf("fixture not found: %s", s.Fixture)
		}
	}

	if s.Query.Kind != yaml.MappingNode {
		return fmt.Errorf("query is required and must be a mapping")
	}

	if s.Expect.Error != "" && (s.Expect.SQL != "" || len(s.Expect.Aliases) > 0 || len(s.Assertions) > 0) {
		return fmt.Errorf("expect.error excludes sql, aliases and assertions")
	}

	if s.Options.NoRootAlias && s.Options.RootAlias != nil {
		return fmt.Errorf("options: root_alias and no_root_alias are exclusive")
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion, s.Fixture != ""); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, hasFixture bool) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertAlias:
		if a.Path == "" || a.Name == "" {
			return fmt.Errorf("assertions[%d]: path and name are required for alias", index)
		}
	case AssertAliasCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for alias_count", index)
		}
	case AssertSQLContains, AssertSQLNotContains:
		if a.Text == "" {
			return fmt.Errorf("assertions[%d]: text is required for %s", index, a.Type)
		}
	case AssertRows:
		if !hasFixture {
			return fmt.Errorf("assertions[%d]: rows needs a fixture", index)
		}
	case AssertPortable:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
