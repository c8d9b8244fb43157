// Package quality runs data-quality checks against the warehouse tables and
// validates RFM input before scoring.
//
// A check is a scalar SQL query whose single value is compared against an
// expected value. Suites ship as Go (DefaultChecks) or YAML (LoadChecks).
package quality

import (
	"math"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Category groups checks in reports.
type Category string

// Check categories.
const (
	CategoryPrimaryKeys  Category = "primary_keys"
	CategoryForeignKeys  Category = "foreign_keys"
	CategoryValidValues  Category = "valid_values"
	CategoryCompleteness Category = "completeness"
	CategoryConsistency  Category = "consistency"
	CategoryVolumetry    Category = "volumetry"
	CategoryCustom       Category = "custom"
)

// Operator compares an actual value against an expected one.
type Operator string

// Supported operators.
const (
	OpEqual        Operator = "=="
	OpGreater      Operator = ">"
	OpLess         Operator = "<"
	OpLessEqual    Operator = "<="
	OpGreaterEqual Operator = ">="
)

// Valid reports whether op is a supported operator.
func (op Operator) Valid() bool {
	switch op {
	case OpEqual, OpGreater, OpLess, OpLessEqual, OpGreaterEqual:
		return true
	}
	return false
}

// Compare evaluates "actual op expected". Equality tolerates float noise
// from percentage queries.
func (op Operator) Compare(actual, expected float64) bool {
	switch op {
	case OpEqual:
		return math.Abs(actual-expected) <= 1e-9
	case OpGreater:
		return actual > expected
	case OpLess:
		return actual < expected
	case OpLessEqual:
		return actual <= expected
	case OpGreaterEqual:
		return actual >= expected
	}
	return false
}

// Check is one validation query.
type Check struct {
	Name     string   `yaml:"name"`
	Category Category `yaml:"category"`
	Query    string   `yaml:"query"`
	Expected float64  `yaml:"expected"`
	Operator Operator `yaml:"operator"`
}

func (c Check) validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return eris.New("quality: check has no name")
	}
	if strings.TrimSpace(c.Query) == "" {
		return eris.Errorf("quality: check %q has no query", c.Name)
	}
	if !c.Operator.Valid() {
		return eris.Errorf("quality: check %q has unsupported operator %q", c.Name, c.Operator)
	}
	return nil
}

// LoadChecks reads a suite from a YAML file:
//
//	checks:
//	  - name: orders not empty
//	    category: volumetry
//	    query: SELECT COUNT(*) FROM orders
//	    expected: 0
//	    operator: ">"
//
// Operator defaults to "==" and category to "custom".
func LoadChecks(path string) ([]Check, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "quality: read checks %s", path)
	}

	var suite struct {
		Checks []Check `yaml:"checks"`
	}
	if err := yaml.Unmarshal(data, &suite); err != nil {
		return nil, eris.Wrap(err, "quality: parse checks")
	}
	if len(suite.Checks) == 0 {
		return nil, eris.Errorf("quality: %s defines no checks", path)
	}

	for i := range suite.Checks {
		c := &suite.Checks[i]
		if c.Operator == "" {
			c.Operator = OpEqual
		}
		if c.Category == "" {
			c.Category = CategoryCustom
		}
		if err := c.validate(); err != nil {
			return nil, err
		}
	}
	return suite.Checks, nil
}
