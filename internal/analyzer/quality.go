package analyzer

import (
	"math"
	"strings"
	"unicode/utf8"
)

// QualityReport is the tool result for a readability/maintainability scan.
type QualityReport struct {
	TotalLines        int      `json:"total_lines"`
	CommentLines      int      `json:"comment_lines"`
	CommentRatio      float64  `json:"comment_ratio"`
	LongLines         int      `json:"long_lines"`
	FunctionCount     int      `json:"function_count"`
	AvgFunctionLength float64  `json:"avg_function_length"`
	HasErrorHandling  bool     `json:"has_error_handling"`
	HasDocumentation  bool     `json:"has_documentation"`
	NamingIssues      []string `json:"naming_issues"`
	QualityScore      float64  `json:"quality_score"`
	QualityLevel      string   `json:"quality_level"`
}

// QualityAnalyzer assesses readability and maintainability with flat
// keyword heuristics: comment ratio, line length, function density,
// naming, and the presence of error handling and documentation.
type QualityAnalyzer struct {
	functionKeywords []string
	shortNames       []string
	docMarkers       []string
	longLineLimit    int
}

// NewQualityAnalyzer creates a quality analyzer with the default tables.
func NewQualityAnalyzer() *QualityAnalyzer {
	return &QualityAnalyzer{
		functionKeywords: []string{"def ", "function ", "const ", "let ", "var "},
		shortNames:       []string{"a=", "b=", "x=", "y=", "temp=", "tmp="},
		docMarkers:       []string{`"""`, "///", "/**"},
		longLineLimit:    100,
	}
}

func (a *QualityAnalyzer) Name() string { return "assess_code_quality_metrics" }

func (a *QualityAnalyzer) Description() string {
	return "Assesses readability and maintainability metrics: comments, " +
		"line length, function size, naming, error handling, and documentation."
}

func (a *QualityAnalyzer) InputSchema() Schema {
	return Schema{
		Properties: map[string]interface{}{
			"code": map[string]interface{}{"type": "string", "description": "The code to analyze"},
		},
		Required: []string{"code"},
	}
}

// Analyze computes the quality metrics and the 0-100 weighted score.
func (a *QualityAnalyzer) Analyze(input map[string]interface{}) (interface{}, error) {
	code, err := codeInput(input)
	if err != nil {
		return nil, err
	}

	lines := strings.Split(code, "\n")
	lowered := strings.ToLower(code)

	totalLines := 0
	commentLines := 0
	longLines := 0
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			totalLines++
		}
		if strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "//") {
			commentLines++
		}
		if utf8.RuneCountInString(line) > a.longLineLimit {
			longLines++
		}
	}

	functionCount := 0
	for _, kw := range a.functionKeywords {
		functionCount += strings.Count(lowered, kw)
	}
	avgFunctionLength := float64(totalLines) / float64(max(functionCount, 1))

	var namingIssues []string
	for _, name := range a.shortNames {
		if strings.Contains(code, name) {
			namingIssues = append(namingIssues, "Short/unclear variable names detected")
			break
		}
	}

	hasErrorHandling := strings.Contains(lowered, "try") &&
		(strings.Contains(lowered, "catch") || strings.Contains(lowered, "except"))
	hasDocumentation := false
	for _, marker := range a.docMarkers {
		if strings.Contains(code, marker) {
			hasDocumentation = true
			break
		}
	}

	commentRatio := float64(commentLines) / float64(max(totalLines, 1)) * 100

	score := math.Min(30, commentRatio*3)
	if hasErrorHandling {
		score += 20
	}
	if hasDocumentation {
		score += 15
	}
	switch {
	case avgFunctionLength < 30:
		score += 20
	case avgFunctionLength < 50:
		score += 10
	}
	if float64(longLines) < float64(totalLines)*0.1 {
		score += 15
	} else {
		score += 5
	}

	level := "Low"
	switch {
	case score > 70:
		level = "High"
	case score > 40:
		level = "Medium"
	}

	return QualityReport{
		TotalLines:        totalLines,
		CommentLines:      commentLines,
		CommentRatio:      round2(commentRatio),
		LongLines:         longLines,
		FunctionCount:     functionCount,
		AvgFunctionLength: round2(avgFunctionLength),
		HasErrorHandling:  hasErrorHandling,
		HasDocumentation:  hasDocumentation,
		NamingIssues:      namingIssues,
		QualityScore:      round2(score),
		QualityLevel:      level,
	}, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
