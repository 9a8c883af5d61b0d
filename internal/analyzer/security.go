package analyzer

import (
	"fmt"
	"sort"
	"strings"
)

// SecurityPattern is one row of the security pattern table: a set of
// indicator substrings plus the severity and description reported when
// any of them match.
type SecurityPattern struct {
	Indicators  []string `yaml:"indicators" json:"indicators"`
	Severity    string   `yaml:"severity" json:"severity"`
	Description string   `yaml:"description" json:"description"`
}

// SecurityFinding reports a single matched indicator.
type SecurityFinding struct {
	Indicator   string `json:"indicator"`
	Severity    string `json:"severity"`
	Description string `json:"description"`
	Found       bool   `json:"found"`
}

// SecurityReport is the tool result for a security pattern scan.
type SecurityReport struct {
	PatternType   string            `json:"pattern_type"`
	Findings      []SecurityFinding `json:"findings"`
	TotalFindings int               `json:"total_findings"`
	Severity      string            `json:"severity"`
}

// securityError is returned inside the tool result so the model sees
// what went wrong instead of the call failing outright.
type securityError struct {
	Error string `json:"error"`
}

// defaultSecurityPatterns is the built-in pattern table. Matching is a
// case-insensitive substring check against the submitted code.
func defaultSecurityPatterns() map[string]SecurityPattern {
	return map[string]SecurityPattern{
		"sql_injection": {
			Indicators:  []string{"execute(", "query(", "raw(", "filter(", "SELECT", "INSERT", "UPDATE", "DELETE"},
			Severity:    "Critical",
			Description: "Potential SQL injection vulnerability detected",
		},
		"xss": {
			Indicators:  []string{"innerHTML", "dangerouslySetInnerHTML", "document.write", "eval("},
			Severity:    "High",
			Description: "Potential XSS vulnerability detected",
		},
		"auth": {
			Indicators:  []string{"password", "token", "session", "auth", "login", "credential"},
			Severity:    "High",
			Description: "Authentication/Authorization pattern detected",
		},
		"secrets": {
			Indicators:  []string{"api_key", "secret", "password =", "token =", "AWS_", "SECRET_KEY"},
			Severity:    "Critical",
			Description: "Potential hardcoded secrets detected",
		},
		"csrf": {
			Indicators:  []string{"POST", "PUT", "DELETE", "form", "csrf"},
			Severity:    "Medium",
			Description: "CSRF protection check required",
		},
		"input_validation": {
			Indicators:  []string{"input(", "request.", "params", "query", "body"},
			Severity:    "High",
			Description: "Input validation required",
		},
	}
}

// SecurityAnalyzer scans code for indicator substrings from a pattern
// table, one pattern type per call.
type SecurityAnalyzer struct {
	patterns map[string]SecurityPattern
}

// NewSecurityAnalyzer creates a security analyzer with the built-in
// pattern table.
func NewSecurityAnalyzer() *SecurityAnalyzer {
	return &SecurityAnalyzer{patterns: defaultSecurityPatterns()}
}

// Extend merges additional pattern types into the table. An entry whose
// key already exists replaces the built-in row, so operators can tighten
// or relax individual checks from configuration.
func (a *SecurityAnalyzer) Extend(pack map[string]SecurityPattern) {
	for name, p := range pack {
		a.patterns[name] = p
	}
}

// PatternTypes returns the known pattern type names, sorted.
func (a *SecurityAnalyzer) PatternTypes() []string {
	names := make([]string, 0, len(a.patterns))
	for name := range a.patterns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (a *SecurityAnalyzer) Name() string { return "analyze_security_patterns" }

func (a *SecurityAnalyzer) Description() string {
	return "Analyzes code for specific security vulnerability patterns. " +
		"Call once per pattern type: " + strings.Join(a.PatternTypes(), ", ") + "."
}

func (a *SecurityAnalyzer) InputSchema() Schema {
	return Schema{
		Properties: map[string]interface{}{
			"code":         map[string]interface{}{"type": "string", "description": "The code snippet to analyze"},
			"pattern_type": map[string]interface{}{"type": "string", "enum": a.PatternTypes(), "description": "Type of security pattern to check"},
		},
		Required: []string{"code", "pattern_type"},
	}
}

// Analyze checks the code against the indicators of one pattern type.
func (a *SecurityAnalyzer) Analyze(input map[string]interface{}) (interface{}, error) {
	code, err := codeInput(input)
	if err != nil {
		return nil, err
	}
	patternType, _ := input["pattern_type"].(string)

	pattern, ok := a.patterns[patternType]
	if !ok {
		return securityError{Error: fmt.Sprintf("Unknown pattern type: %s", patternType)}, nil
	}

	lowered := strings.ToLower(code)
	findings := []SecurityFinding{}
	for _, indicator := range pattern.Indicators {
		if strings.Contains(lowered, strings.ToLower(indicator)) {
			findings = append(findings, SecurityFinding{
				Indicator:   indicator,
				Severity:    pattern.Severity,
				Description: pattern.Description,
				Found:       true,
			})
		}
	}

	severity := "None"
	if len(findings) > 0 {
		severity = pattern.Severity
	}

	return SecurityReport{
		PatternType:   patternType,
		Findings:      findings,
		TotalFindings: len(findings),
		Severity:      severity,
	}, nil
}
