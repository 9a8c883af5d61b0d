// Package analyzer provides the heuristic analysis tools the review agent
// can invoke. Each analyzer declares its keyword tables and severity
// mappings as data, so new checks are configuration rather than new code.
package analyzer

import "fmt"

// Schema describes the JSON input an analyzer accepts. It mirrors the
// shape the Anthropic tool-use API expects for tool input schemas.
type Schema struct {
	Properties map[string]interface{}
	Required   []string
}

// Analyzer is a single heuristic check exposed to the model as a tool.
type Analyzer interface {
	// Name is the tool name the model calls.
	Name() string
	// Description tells the model when to use this tool.
	Description() string
	// InputSchema declares the tool's input parameters.
	InputSchema() Schema
	// Analyze runs the check. The result is marshaled to JSON and
	// returned to the model as a tool result. Domain-level problems
	// (e.g. an unknown pattern type) are reported inside the result,
	// not as an error; errors are reserved for malformed input.
	Analyze(input map[string]interface{}) (interface{}, error)
}

// Registry holds the analyzers available to the agent, in registration
// order. Order matters: tool definitions are presented to the model in
// the same order every time.
type Registry struct {
	order  []string
	byName map[string]Analyzer
}

// NewRegistry creates a registry containing the given analyzers.
func NewRegistry(analyzers ...Analyzer) (*Registry, error) {
	r := &Registry{byName: make(map[string]Analyzer)}
	for _, a := range analyzers {
		if err := r.Register(a); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds an analyzer. Duplicate names are rejected.
func (r *Registry) Register(a Analyzer) error {
	name := a.Name()
	if name == "" {
		return fmt.Errorf("analyzer has empty name")
	}
	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("analyzer %q already registered", name)
	}
	r.order = append(r.order, name)
	r.byName[name] = a
	return nil
}

// Get returns the analyzer with the given name.
func (r *Registry) Get(name string) (Analyzer, bool) {
	a, ok := r.byName[name]
	return a, ok
}

// All returns the analyzers in registration order.
func (r *Registry) All() []Analyzer {
	out := make([]Analyzer, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}

// Default returns a registry with the three built-in analyzers:
// security pattern matching, complexity metrics, and quality metrics.
func Default() *Registry {
	r, err := NewRegistry(
		NewSecurityAnalyzer(),
		NewComplexityAnalyzer(),
		NewQualityAnalyzer(),
	)
	if err != nil {
		// The built-in set has unique names; this cannot happen.
		panic(err)
	}
	return r
}

// codeInput extracts the required "code" argument from tool input.
func codeInput(input map[string]interface{}) (string, error) {
	code, _ := input["code"].(string)
	if code == "" {
		return "", fmt.Errorf("code is required")
	}
	return code, nil
}
