package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestampLayouts(t *testing.T) {
	for _, input := range []string{
		"2022-01-05T10:00:00Z",
		"2022-01-05 10:00:00 UTC",
		"2022-01-05 10:00:00",
		"2022-01-05T10:00:00",
	} {
		got, err := ParseTimestamp(input)
		require.NoError(t, err, "input %q", input)
		assert.Equal(t, 2022, got.Year())
		assert.Equal(t, time.January, got.Month())
		assert.Equal(t, 10, got.Hour())
	}
}

func TestParseTimestampDateOnly(t *testing.T) {
	got, err := ParseTimestamp("2022-01-05")
	require.NoError(t, err)
	assert.Equal(t, 5, got.Day())
}

func TestParseTimestampInvalid(t *testing.T) {
	_, err := ParseTimestamp("next tuesday")
	assert.Error(t, err)
}
