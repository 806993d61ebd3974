package collector

import (
	"testing"
	"time"

	"github.com/hirokisan/bybit/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertIntervalToBybit(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		expected  string
		shouldErr bool
	}{
		{name: "1 minute", input: "1m", expected: "1"},
		{name: "15 minutes", input: "15m", expected: "15"},
		{name: "1 hour", input: "1h", expected: "60"},
		{name: "4 hours", input: "4h", expected: "240"},
		{name: "1 day", input: "1d", expected: "D"},
		{name: "1 week", input: "1w", expected: "W"},
		{name: "empty", input: "", shouldErr: true},
		{name: "no unit", input: "1", shouldErr: true},
		{name: "unsupported unit", input: "1x", shouldErr: true},
		{name: "no number", input: "m", shouldErr: true},
		{name: "zero", input: "0h", shouldErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := convertIntervalToBybit(tt.input)
			if tt.shouldErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestParseIntervalToDuration(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		expected  time.Duration
		shouldErr bool
	}{
		{name: "minutes", input: "5m", expected: 5 * time.Minute},
		{name: "hours", input: "4h", expected: 4 * time.Hour},
		{name: "day", input: "1d", expected: 24 * time.Hour},
		{name: "week", input: "1w", expected: 7 * 24 * time.Hour},
		{name: "unknown unit", input: "3y", shouldErr: true},
		{name: "negative", input: "-1h", shouldErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseIntervalToDuration(tt.input)
			if tt.shouldErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestParseTimestamp(t *testing.T) {
	got, err := parseTimestamp("1672531200000")
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)))

	_, err = parseTimestamp("")
	assert.Error(t, err)

	_, err = parseTimestamp("abc")
	assert.Error(t, err)
}

func TestParseCandle(t *testing.T) {
	c, err := parseCandle("100.5", "101", "99", "100", "12.25")
	require.NoError(t, err)
	assert.Equal(t, "100.5", c.Open.String())
	assert.Equal(t, "12.25", c.Volume.String())

	_, err = parseCandle("100", "x", "99", "100", "1")
	assert.Error(t, err)
}

func TestPageEnd(t *testing.T) {
	tests := []struct {
		name      string
		startTime string
		want      int64
		wantErr   bool
	}{
		{name: "one millisecond before the oldest bar", startTime: "1672531200000", want: 1672531199999},
		{name: "not a number", startTime: "yesterday", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			end, err := pageEnd(tt.startTime)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			param := bybit.V5GetKlineParam{End: end}
			require.NotNil(t, param.End)
			assert.Equal(t, tt.want, *param.End)
		})
	}
}
