package ingest_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/warp/payroll-engine/ingest"
)

func TestFileIdentifier(t *testing.T) {
	assert.Equal(t, "time-report-42", ingest.FileIdentifier("time-report-42.csv"))
	assert.Equal(t, "report.CSV", ingest.FileIdentifier("report.CSV"))
	assert.Equal(t, "a.csv", ingest.FileIdentifier("a.csv.csv"))
	assert.Equal(t, "noext", ingest.FileIdentifier("noext"))
	assert.Equal(t, "", ingest.FileIdentifier(".csv"))
}

func TestIsDuplicateIdentifier(t *testing.T) {
	tests := []struct {
		candidate string
		existing  string
		want      bool
	}{
		{"march", "march", true},
		{"march_v2", "march", true},
		{"mar", "march", true},
		{"MARCH", "march", true},
		{"Report-March", "march", true},
		{"april", "march", false},
		{"marc h", "march", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ingest.IsDuplicateIdentifier(tt.candidate, tt.existing),
			"%q vs %q", tt.candidate, tt.existing)
	}
}

func TestFindDuplicate(t *testing.T) {
	existing, dup := ingest.FindDuplicate("march_v2", []string{"january", "march"})
	assert.True(t, dup)
	assert.Equal(t, "march", existing)

	_, dup = ingest.FindDuplicate("june", []string{"january", "march"})
	assert.False(t, dup)

	_, dup = ingest.FindDuplicate("june", nil)
	assert.False(t, dup)
}
