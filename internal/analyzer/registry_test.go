package analyzer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistryOrder(t *testing.T) {
	r := Default()

	all := r.All()
	require.Len(t, all, 3)
	assert.Equal(t, "analyze_security_patterns", all[0].Name())
	assert.Equal(t, "calculate_complexity_metrics", all[1].Name())
	assert.Equal(t, "assess_code_quality_metrics", all[2].Name())

	got, ok := r.Get("calculate_complexity_metrics")
	require.True(t, ok)
	assert.Equal(t, "calculate_complexity_metrics", got.Name())

	_, ok = r.Get("does_not_exist")
	assert.False(t, ok)
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	_, err := NewRegistry(NewSecurityAnalyzer(), NewSecurityAnalyzer())
	assert.Error(t, err)
}

func TestLoadPatternPack(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pack.yaml")
	content := `patterns:
  deserialization:
    indicators: ["pickle.loads", "yaml.load("]
    severity: Critical
    description: Unsafe deserialization detected
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	pack, err := LoadPatternPack(path)
	require.NoError(t, err)
	require.NotNil(t, pack)
	require.Contains(t, pack.Patterns, "deserialization")
	assert.Equal(t, "Critical", pack.Patterns["deserialization"].Severity)
	assert.Len(t, pack.Patterns["deserialization"].Indicators, 2)
}

func TestLoadPatternPack_EmptyPath(t *testing.T) {
	pack, err := LoadPatternPack("")
	assert.NoError(t, err)
	assert.Nil(t, pack)
}

func TestLoadPatternPack_Invalid(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
	}{
		{
			name: "missing indicators",
			content: `patterns:
  empty:
    severity: High
    description: nothing to match
`,
		},
		{
			name: "unknown severity",
			content: `patterns:
  bad:
    indicators: ["x"]
    severity: Catastrophic
    description: bad severity
`,
		},
		{
			name: "unknown field",
			content: `patterns:
  typo:
    indicator: ["x"]
    severity: High
    description: field name misspelled
`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))
			_, err := LoadPatternPack(path)
			assert.Error(t, err)
		})
	}
}
