package analyzer

import "strings"

// ComplexityWeights are the score contributions of each metric. They are
// data so a custom deployment can re-weight the scorer without touching
// the scan loop.
type ComplexityWeights struct {
	NestedLoop int `yaml:"nested_loop" json:"nested_loop"`
	DBQuery    int `yaml:"db_query" json:"db_query"`
	Blocking   int `yaml:"blocking" json:"blocking"`
	MaxNesting int `yaml:"max_nesting" json:"max_nesting"`
}

// ComplexityReport is the tool result for a complexity scan.
type ComplexityReport struct {
	TotalLines         int    `json:"total_lines"`
	NestedLoops        int    `json:"nested_loops"`
	DatabaseQueries    int    `json:"database_queries"`
	AsyncOperations    int    `json:"async_operations"`
	BlockingOperations int    `json:"blocking_operations"`
	MaxNestingLevel    int    `json:"max_nesting_level"`
	ComplexityScore    int    `json:"complexity_score"`
	ComplexityLevel    string `json:"complexity_level"`
	PerformanceImpact  string `json:"performance_impact"`
}

// ComplexityAnalyzer scores code with a line-based nesting counter and
// keyword counts. The keyword tables and weights are data.
type ComplexityAnalyzer struct {
	loopKeywords     []string
	dbKeywords       []string
	asyncKeywords    []string
	blockingKeywords []string
	weights          ComplexityWeights
}

// NewComplexityAnalyzer creates a complexity analyzer with the default
// keyword tables and weights.
func NewComplexityAnalyzer() *ComplexityAnalyzer {
	return &ComplexityAnalyzer{
		loopKeywords:     []string{"for ", "while ", "foreach"},
		dbKeywords:       []string{"query", "select", "find("},
		asyncKeywords:    []string{"async", "await", "promise"},
		blockingKeywords: []string{"sleep", "thread.", "lock"},
		weights:          ComplexityWeights{NestedLoop: 3, DBQuery: 2, Blocking: 4, MaxNesting: 2},
	}
}

func (a *ComplexityAnalyzer) Name() string { return "calculate_complexity_metrics" }

func (a *ComplexityAnalyzer) Description() string {
	return "Calculates code complexity metrics for performance analysis: " +
		"nesting depth, nested loops, database queries, async and blocking operations."
}

func (a *ComplexityAnalyzer) InputSchema() Schema {
	return Schema{
		Properties: map[string]interface{}{
			"code": map[string]interface{}{"type": "string", "description": "The code to analyze"},
		},
		Required: []string{"code"},
	}
}

// Analyze computes the complexity metrics and the weighted score.
func (a *ComplexityAnalyzer) Analyze(input map[string]interface{}) (interface{}, error) {
	code, err := codeInput(input)
	if err != nil {
		return nil, err
	}

	lines := strings.Split(code, "\n")
	lowered := strings.ToLower(code)

	dbQueries := 0
	for _, kw := range a.dbKeywords {
		dbQueries += strings.Count(lowered, kw)
	}
	asyncOps := 0
	for _, kw := range a.asyncKeywords {
		asyncOps += strings.Count(lowered, kw)
	}
	blockingOps := 0
	for _, kw := range a.blockingKeywords {
		blockingOps += strings.Count(lowered, kw)
	}

	// Line-based nesting counter: loop keywords indent, '}' or "end"
	// dedent. Crude, but language-agnostic.
	nestedLoops := 0
	nesting := 0
	maxNesting := 0
	for _, line := range lines {
		low := strings.ToLower(line)
		for _, kw := range a.loopKeywords {
			if strings.Contains(low, kw) {
				nesting++
				if nesting > maxNesting {
					maxNesting = nesting
				}
				if nesting > 1 {
					nestedLoops++
				}
				break
			}
		}
		if strings.Contains(line, "}") || strings.Contains(low, "end") {
			if nesting > 0 {
				nesting--
			}
		}
	}

	score := nestedLoops*a.weights.NestedLoop +
		dbQueries*a.weights.DBQuery +
		blockingOps*a.weights.Blocking +
		maxNesting*a.weights.MaxNesting

	level := "Low"
	impact := "Good performance characteristics"
	switch {
	case score > 20:
		level = "High"
		impact = "Significant performance issues likely"
	case score > 10:
		level = "Medium"
		impact = "Moderate performance concerns"
	}

	return ComplexityReport{
		TotalLines:         len(lines),
		NestedLoops:        nestedLoops,
		DatabaseQueries:    dbQueries,
		AsyncOperations:    asyncOps,
		BlockingOperations: blockingOps,
		MaxNestingLevel:    maxNesting,
		ComplexityScore:    score,
		ComplexityLevel:    level,
		PerformanceImpact:  impact,
	}, nil
}
