package tests

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDefaults(t *testing.T) {
	test := Test{Name: "smoke", Test: "echo ok"}
	require.NoError(t, test.Normalize())

	assert.Equal(t, "/smoke", test.Name)
	assert.Empty(t, test.Framework)
	assert.Equal(t, "5m", test.Duration)
}

func TestNormalizeKeepsExplicitValues(t *testing.T) {
	test := Test{
		Name:      "/tests/journal",
		Test:      "./runtest.sh",
		Framework: "beakerlib",
		Duration:  "1h",
	}
	require.NoError(t, test.Normalize())

	assert.Equal(t, "/tests/journal", test.Name)
	assert.Equal(t, "beakerlib", test.Framework)
	assert.Equal(t, "1h", test.Duration)
}

func TestNormalizeRejectsIncompleteRecords(t *testing.T) {
	missingName := Test{Test: "echo ok"}
	err := missingName.Normalize()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing a name")

	missingCommand := Test{Name: "/empty"}
	err = missingCommand.Normalize()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing the test command")
}

func TestNormalizeRejectsBadDuration(t *testing.T) {
	test := Test{Name: "/slow", Test: "sleep 1", Duration: "eventually"}
	err := test.Normalize()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid duration")
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		spec string
		want time.Duration
	}{
		{"300", 300 * time.Second},
		{"45s", 45 * time.Second},
		{"5m", 5 * time.Minute},
		{"2h", 2 * time.Hour},
		{"1d", 24 * time.Hour},
		{"1h 30m", 90 * time.Minute},
		{"1m 30s", 90 * time.Second},
	}

	for _, test := range tests {
		t.Run(test.spec, func(t *testing.T) {
			got, err := ParseDuration(test.spec)
			require.NoError(t, err)
			assert.Equal(t, test.want, got)
		})
	}

	for _, invalid := range []string{"", "soon", "5x", "h"} {
		t.Run("invalid "+invalid, func(t *testing.T) {
			_, err := ParseDuration(invalid)
			require.Error(t, err)
		})
	}
}
