package analyzer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func analyzeQuality(t *testing.T, code string) QualityReport {
	t.Helper()
	a := NewQualityAnalyzer()
	result, err := a.Analyze(map[string]interface{}{"code": code})
	require.NoError(t, err)
	report, ok := result.(QualityReport)
	require.True(t, ok, "expected QualityReport, got %T", result)
	return report
}

func TestQualityAnalyzer_CountsCommentsAndBlankLines(t *testing.T) {
	code := "# adds two numbers\n" +
		"def add(first, second):\n" +
		"\n" +
		"    return first + second\n"

	report := analyzeQuality(t, code)

	assert.Equal(t, 3, report.TotalLines, "blank lines are not counted")
	assert.Equal(t, 1, report.CommentLines)
	assert.InDelta(t, 33.33, report.CommentRatio, 0.01)
	assert.Equal(t, 1, report.FunctionCount)
}

func TestQualityAnalyzer_LongLines(t *testing.T) {
	long := strings.Repeat("x", 120)
	report := analyzeQuality(t, long+"\nshort\n")
	assert.Equal(t, 1, report.LongLines)
}

func TestQualityAnalyzer_ErrorHandlingAndDocs(t *testing.T) {
	code := "def load():\n" +
		"    \"\"\"Loads the config.\"\"\"\n" +
		"    try:\n" +
		"        read()\n" +
		"    except IOError:\n" +
		"        pass\n"

	report := analyzeQuality(t, code)

	assert.True(t, report.HasErrorHandling)
	assert.True(t, report.HasDocumentation)
}

func TestQualityAnalyzer_NamingIssues(t *testing.T) {
	report := analyzeQuality(t, "tmp=compute()\n")
	require.Len(t, report.NamingIssues, 1)
	assert.Equal(t, "Short/unclear variable names detected", report.NamingIssues[0])

	clean := analyzeQuality(t, "total = compute()\n")
	assert.Empty(t, clean.NamingIssues)
}

func TestQualityAnalyzer_Levels(t *testing.T) {
	// Comments, docs, error handling, and short functions push the
	// score over the High threshold.
	good := "# well documented\n" +
		"# with comments\n" +
		"def run():\n" +
		"    \"\"\"Runs the thing.\"\"\"\n" +
		"    try:\n" +
		"        step()\n" +
		"    except ValueError:\n" +
		"        recover()\n"

	report := analyzeQuality(t, good)
	assert.Equal(t, "High", report.QualityLevel)
	assert.Greater(t, report.QualityScore, 70.0)

	// A single bare statement: no comments, no docs, no error handling.
	bare := analyzeQuality(t, "do_something_without_any_structure_at_all()\n")
	assert.Equal(t, "Low", bare.QualityLevel)
}
