package severity

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSeverityString tests the string form of every level.
func TestSeverityString(t *testing.T) {
	tests := []struct {
		sev  Severity
		want string
	}{
		{SeverityInfo, "info"},
		{SeverityWarning, "warning"},
		{SeverityCritical, "critical"},
		{Severity(99), "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.sev.String())
		})
	}
}

// TestSeverityOrdering tests that levels compare from least to most severe.
func TestSeverityOrdering(t *testing.T) {
	assert.Less(t, SeverityInfo, SeverityWarning)
	assert.Less(t, SeverityWarning, SeverityCritical)
}

// TestSeverityJSON tests that severities encode by name.
func TestSeverityJSON(t *testing.T) {
	data, err := json.Marshal(map[string]Severity{"s": SeverityCritical})
	require.NoError(t, err)
	assert.JSONEq(t, `{"s":"critical"}`, string(data))

	var out map[string]Severity
	require.NoError(t, json.Unmarshal([]byte(`{"s":"warning"}`), &out))
	assert.Equal(t, SeverityWarning, out["s"])

	assert.Error(t, json.Unmarshal([]byte(`{"s":"fatal"}`), &out))
}
