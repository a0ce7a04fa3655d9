package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyTerm(t *testing.T) {
	acquired := time.Date(2022, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		disposedAt time.Time
		expected   HoldingTerm
	}{
		{"same day", acquired, ShortTerm},
		{"one day", acquired.AddDate(0, 0, 1), ShortTerm},
		{"exactly 365 days", acquired.AddDate(0, 0, 365), ShortTerm},
		{"365 days and a second", acquired.AddDate(0, 0, 365).Add(time.Second), LongTerm},
		{"two years", acquired.AddDate(2, 0, 0), LongTerm},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ClassifyTerm(acquired, tt.disposedAt))
		})
	}
}

func TestHoldingTermJSON(t *testing.T) {
	long, err := json.Marshal(LongTerm)
	require.NoError(t, err)
	assert.Equal(t, `"long"`, string(long))

	short, err := json.Marshal(ShortTerm)
	require.NoError(t, err)
	assert.Equal(t, `"short"`, string(short))
}
