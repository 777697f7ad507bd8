package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeUnit(t *testing.T) {
	tests := []struct {
		input    string
		expected time.Duration
		wantErr  bool
	}{
		{input: "0", expected: 0},
		{input: "90", expected: 90 * time.Second},
		{input: "30s", expected: 30 * time.Second},
		{input: "15m", expected: 15 * time.Minute},
		{input: "1h", expected: time.Hour},
		{input: "1d", expected: 24 * time.Hour},
		{input: "1w", expected: 7 * 24 * time.Hour},
		{input: "99999999999w", wantErr: true},
		{input: "9223372036854775807", wantErr: true},
		{input: "9223372036s", expected: 9223372036 * time.Second},
		{input: " 15m ", expected: 15 * time.Minute},
		{input: "PT15M", expected: 15 * time.Minute},
		{input: "P1D", expected: 24 * time.Hour},
		{input: "1h30m", expected: 90 * time.Minute},
		{input: "", wantErr: true},
		{input: "15x", wantErr: true},
		{input: "fifteen minutes", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			parsed, err := ParseTimeUnit(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, parsed)
		})
	}
}

func TestNormalizeTimeUnit(t *testing.T) {
	tests := []struct {
		input    string
		expected string
		wantErr  bool
	}{
		{input: "15m", expected: "15m"},
		{input: "30s", expected: "30s"},
		{input: "0", expected: "0"},
		{input: "PT15M", expected: "900"},
		{input: "PT1H", expected: "3600"},
		{input: "2m30s", expected: "150"},
		{input: "1500ms", wantErr: true},
		{input: "soon", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			normalized, err := NormalizeTimeUnit(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, normalized)
		})
	}
}

func TestValidateTimeUnitRange(t *testing.T) {
	// Zabbix autologout: 0 or 90 seconds up to one day
	assert.NoError(t, ValidateTimeUnitRange("0", 90*time.Second, 24*time.Hour, true))
	assert.NoError(t, ValidateTimeUnitRange("15m", 90*time.Second, 24*time.Hour, true))
	assert.NoError(t, ValidateTimeUnitRange("1d", 90*time.Second, 24*time.Hour, true))
	assert.Error(t, ValidateTimeUnitRange("30s", 90*time.Second, 24*time.Hour, true))
	assert.Error(t, ValidateTimeUnitRange("2d", 90*time.Second, 24*time.Hour, true))
	assert.Error(t, ValidateTimeUnitRange("0", 90*time.Second, 24*time.Hour, false))
	assert.Error(t, ValidateTimeUnitRange("bogus", 0, time.Hour, true))
	assert.Error(t, ValidateTimeUnitRange("99999999999w", 90*time.Second, 24*time.Hour, true))
}
