package results

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOutcome(t *testing.T) {
	tests := []struct {
		raw   string
		want  Outcome
		valid bool
	}{
		{"pass", OutcomePass, true},
		{"fail", OutcomeFail, true},
		{"info", OutcomeInfo, true},
		{"warn", OutcomeWarn, true},
		{"error", OutcomeError, true},
		{"PASSED", OutcomeError, false},
		{"", OutcomeError, false},
		{"aborted", OutcomeError, false},
	}

	for _, test := range tests {
		t.Run(test.raw, func(t *testing.T) {
			outcome, ok := ParseOutcome(test.raw)
			assert.Equal(t, test.want, outcome)
			assert.Equal(t, test.valid, ok)
		})
	}
}

func TestOutcomeSuccessful(t *testing.T) {
	assert.True(t, OutcomePass.Successful())
	assert.True(t, OutcomeInfo.Successful())
	assert.False(t, OutcomeFail.Successful())
	assert.False(t, OutcomeWarn.Successful())
	assert.False(t, OutcomeError.Successful())
}

func TestInterpret(t *testing.T) {
	tests := []struct {
		name      string
		outcome   Outcome
		directive string
		want      Outcome
		note      string
	}{
		{"respect keeps outcome", OutcomeFail, "respect", OutcomeFail, ""},
		{"empty directive keeps outcome", OutcomePass, "", OutcomePass, ""},
		{"xfail swaps pass to fail", OutcomePass, "xfail", OutcomeFail, "xfail"},
		{"xfail swaps fail to pass", OutcomeFail, "xfail", OutcomePass, "xfail"},
		{"xfail keeps error", OutcomeError, "xfail", OutcomeError, "xfail"},
		{"xfail keeps warn", OutcomeWarn, "xfail", OutcomeWarn, "xfail"},
		{"fixed outcome wins over pass", OutcomePass, "fail", OutcomeFail, "fail"},
		{"fixed outcome wins over error", OutcomeError, "info", OutcomeInfo, "info"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			outcome, note, err := Interpret(test.outcome, test.directive)
			require.NoError(t, err)
			assert.Equal(t, test.want, outcome)
			assert.Equal(t, test.note, note)
		})
	}

	t.Run("invalid directive is rejected", func(t *testing.T) {
		_, _, err := Interpret(OutcomePass, "sometimes")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sometimes")
	})
}

func TestAppendNote(t *testing.T) {
	assert.Equal(t, "timeout", AppendNote("", "timeout"))
	assert.Equal(t, "timeout, xfail", AppendNote("timeout", "xfail"))
	assert.Equal(t, "timeout", AppendNote("timeout", ""))
}

func TestSummary(t *testing.T) {
	tests := []struct {
		name    string
		results []Result
		want    string
	}{
		{
			name:    "empty",
			results: nil,
			want:    "no results found",
		},
		{
			name:    "single pass",
			results: []Result{{Outcome: OutcomePass}},
			want:    "1 test passed",
		},
		{
			name: "passes and fails",
			results: []Result{
				{Outcome: OutcomePass}, {Outcome: OutcomePass}, {Outcome: OutcomeFail},
			},
			want: "2 tests passed and 1 test failed",
		},
		{
			name: "full mix",
			results: []Result{
				{Outcome: OutcomePass}, {Outcome: OutcomePass},
				{Outcome: OutcomeFail},
				{Outcome: OutcomeInfo},
				{Outcome: OutcomeWarn}, {Outcome: OutcomeWarn},
				{Outcome: OutcomeError},
			},
			want: "2 tests passed, 1 test failed, 1 info, 2 warns and 1 error",
		},
		{
			name:    "errors only",
			results: []Result{{Outcome: OutcomeError}, {Outcome: OutcomeError}},
			want:    "2 errors",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.want, Summary(test.results))
		})
	}
}

func TestFailed(t *testing.T) {
	assert.False(t, Failed(nil))
	assert.False(t, Failed([]Result{{Outcome: OutcomePass}, {Outcome: OutcomeInfo}}))
	assert.True(t, Failed([]Result{{Outcome: OutcomePass}, {Outcome: OutcomeWarn}}))
	assert.True(t, Failed([]Result{{Outcome: OutcomeFail}}))
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.yaml")

	saved := []Result{
		{
			Name:     "/tests/smoke",
			Outcome:  OutcomePass,
			Log:      []string{"data/tests/smoke/output.txt"},
			Duration: "00:00:03",
		},
		{
			Name:    "/tests/full",
			Outcome: OutcomeError,
			Log: []string{
				"data/tests/full/output.txt",
				"data/tests/full/journal.txt",
			},
			Duration: "00:01:12",
			Note:     "timeout",
		},
		{
			Name:    "/tests/last",
			Outcome: OutcomeFail,
		},
	}
	require.NoError(t, Save(path, saved))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Len(t, loaded, 3)

	// Insertion order survives the round trip.
	assert.Equal(t, "/tests/smoke", loaded[0].Name)
	assert.Equal(t, "/tests/full", loaded[1].Name)
	assert.Equal(t, "/tests/last", loaded[2].Name)

	assert.Equal(t, saved[0], loaded[0])
	assert.Equal(t, saved[1], loaded[1])
	assert.Equal(t, saved[2], loaded[2])
}

func TestSaveSingleLogAsScalar(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.yaml")

	require.NoError(t, Save(path, []Result{
		{Name: "/tests/one", Outcome: OutcomePass, Log: []string{"data/tests/one/output.txt"}},
	}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "log: data/tests/one/output.txt")
	assert.NotContains(t, string(data), "- data/tests/one/output.txt")
}

func TestLoadAcceptsScalarAndSequenceLogs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.yaml")
	content := `
/tests/shell:
    result: pass
    log: data/tests/shell/output.txt
    duration: 00:00:01
/tests/beakerlib:
    result: fail
    log:
        - data/tests/beakerlib/output.txt
        - data/tests/beakerlib/journal.txt
    duration: 00:00:09
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, []string{"data/tests/shell/output.txt"}, loaded[0].Log)
	assert.Equal(t, []string{
		"data/tests/beakerlib/output.txt",
		"data/tests/beakerlib/journal.txt",
	}, loaded[1].Log)
}

func TestLoadInvalidOutcomeBecomesError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.yaml")
	content := `
/tests/odd:
    result: exploded
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, OutcomeError, loaded[0].Outcome)
	assert.Contains(t, loaded[0].Note, "invalid result 'exploded'")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.True(t, os.IsNotExist(err))
}
