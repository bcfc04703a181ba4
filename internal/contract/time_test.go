package contract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRelativeTime(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		input    string
		expected time.Time
		wantErr  bool
	}{
		{input: "2 years ago", expected: now.AddDate(-2, 0, 0)},
		{input: "1 month ago", expected: now.AddDate(0, -1, 0)},
		{input: "3 weeks ago", expected: now.Add(-21 * 24 * time.Hour)},
		{input: "  5 Days Ago ", expected: now.Add(-5 * 24 * time.Hour)},
		{input: "4 hours ago", expected: now.Add(-4 * time.Hour)},
		{input: "10 minutes ago", expected: now.Add(-10 * time.Minute)},
		{input: "yesterday", wantErr: true},
		{input: "5 days", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseRelativeTime(tt.input, now)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		input    string
		expected time.Duration
		wantErr  bool
	}{
		{input: "10m", expected: 10 * time.Minute},
		{input: "24h", expected: 24 * time.Hour},
		{input: "0s", expected: 0},
		{input: "3 days", expected: 72 * time.Hour},
		{input: "1 week", expected: 7 * 24 * time.Hour},
		{input: "-5m", wantErr: true},
		{input: "soon", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDuration(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestParseTimeBound(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	got, err := ParseTimeBound("", now)
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	got, err = ParseTimeBound("2024-03-01", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), got)

	got, err = ParseTimeBound("2024-03-01T10:00:00Z", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), got)

	got, err = ParseTimeBound("2 days ago", now)
	require.NoError(t, err)
	assert.Equal(t, now.Add(-48*time.Hour), got)

	_, err = ParseTimeBound("last tuesday", now)
	assert.Error(t, err)
}
