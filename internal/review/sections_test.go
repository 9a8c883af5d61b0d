package review

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wellFormed = `## SECURITY ANALYSIS
No injection risks found.

## PERFORMANCE ANALYSIS
The nested loop is O(n^2).

## READABILITY ANALYSIS
Names are clear.

## COMPREHENSIVE SUMMARY
Overall score: 7/10.
`

func TestParse_WellFormed(t *testing.T) {
	result := Parse(wellFormed)

	assert.Empty(t, result.Missing)
	assert.Equal(t, "No injection risks found.", result.Content(SectionSecurity))
	assert.Equal(t, "The nested loop is O(n^2).", result.Content(SectionPerformance))
	assert.Equal(t, "Names are clear.", result.Content(SectionReadability))
	assert.Equal(t, "Overall score: 7/10.", result.Content(SectionSummary))
}

func TestParse_IgnoresPreamble(t *testing.T) {
	result := Parse("Here is my analysis of your code:\n\n" + wellFormed)
	assert.Empty(t, result.Missing)
	assert.Equal(t, "No injection risks found.", result.Content(SectionSecurity))
}

func TestParse_CaseInsensitiveMarkers(t *testing.T) {
	input := "## Security Analysis\nlooks fine\n## comprehensive summary\nall good\n"
	result := Parse(input)

	assert.Equal(t, "looks fine", result.Content(SectionSecurity))
	assert.Equal(t, "all good", result.Content(SectionSummary))
}

func TestParse_MissingSectionsRecover(t *testing.T) {
	input := "## SECURITY ANALYSIS\nchecked\n## COMPREHENSIVE SUMMARY\nshort review\n"
	result := Parse(input)

	require.Len(t, result.Missing, 2)
	assert.Equal(t, []Section{SectionPerformance, SectionReadability}, result.Missing)
	assert.Equal(t, "", result.Content(SectionPerformance))
	assert.Equal(t, "", result.Content(SectionReadability))
	assert.Equal(t, "checked", result.Content(SectionSecurity))
}

func TestParse_EmptyInput(t *testing.T) {
	result := Parse("")
	assert.Len(t, result.Missing, 4)
	for _, s := range Order() {
		assert.Equal(t, "", result.Content(s))
	}
}

func TestParse_DuplicateMarkerLastWins(t *testing.T) {
	input := "## SECURITY ANALYSIS\nfirst pass\n## SECURITY ANALYSIS\nsecond pass\n"
	result := Parse(input)
	assert.Equal(t, "second pass", result.Content(SectionSecurity))
}

func TestParse_FlexibleWhitespace(t *testing.T) {
	input := "##   SECURITY    ANALYSIS\nbody\n"
	result := Parse(input)
	assert.Equal(t, "body", result.Content(SectionSecurity))
}

func TestOrderIsStable(t *testing.T) {
	assert.Equal(t,
		[]Section{SectionSecurity, SectionPerformance, SectionReadability, SectionSummary},
		Order())
}

func TestHeadings(t *testing.T) {
	assert.Equal(t, "## SECURITY ANALYSIS", SectionSecurity.Heading())
	assert.Equal(t, "## COMPREHENSIVE SUMMARY", SectionSummary.Heading())
}
