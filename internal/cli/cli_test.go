package cli

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xtxerr/cardiowatch/internal/errors"
	"github.com/xtxerr/cardiowatch/internal/export"
	"github.com/xtxerr/cardiowatch/internal/store"
)

// execute runs the root command against a store in a temp directory and
// returns its stdout.
func execute(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCommand("test")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)

	base := []string{
		"--config", filepath.Join(dir, "missing.yaml"),
		"--db", filepath.Join(dir, "db.json"),
	}
	cmd.SetArgs(append(args, base...))

	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand("1.2.3")
	require.NotNil(t, cmd)
	assert.Equal(t, "cardiowatch", cmd.Use)
	assert.Equal(t, "1.2.3", cmd.Version)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand("test")
	commands := [][]string{
		{"init"}, {"sensor"}, {"dashboard"}, {"run"},
		{"report"}, {"export"}, {"profile", "show"}, {"profile", "set"},
	}

	for _, path := range commands {
		t.Run(path[len(path)-1], func(t *testing.T) {
			sub, _, err := cmd.Find(path)
			require.NoError(t, err)
			assert.Equal(t, path[len(path)-1], sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand("test")

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, DefaultConfigPath, configFlag.DefValue)

	verbose := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verbose)
	assert.Equal(t, "v", verbose.Shorthand)

	require.NotNil(t, cmd.PersistentFlags().Lookup("db"))

	for _, name := range []string{"dashboard", "run"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err)
		assert.NotNil(t, sub.Flags().Lookup("listen"), name)
	}
}

func TestInitKeepsExistingCapacity(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(t, dir, "init", "--capacity", "50")
	require.NoError(t, err)
	assert.Contains(t, out, "10 readings, capacity 50")

	out, err = execute(t, dir, "init", "--capacity", "7")
	require.NoError(t, err)
	assert.Contains(t, out, "capacity 50")
}

func TestInitRejectsBadCapacity(t *testing.T) {
	_, err := execute(t, t.TempDir(), "init", "--capacity=-3")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidCapacity))
	assert.Equal(t, ExitCommandError, ExitCode(err))
}

func TestInvalidConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "cardiowatch.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("monitor:\n  min_samples: 0\n"), 0o644))

	cmd := NewRootCommand("test")
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"init", "--config", cfgPath, "--db", filepath.Join(dir, "db.json")})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, ExitCode(err))
	assert.Contains(t, err.Error(), "monitor.min_samples")
	assert.NoFileExists(t, filepath.Join(dir, "db.json"))
}

func TestProfileSetAndShow(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(t, dir, "profile", "set", "name=Maria Silva", "age=72", `conditions=["Diabetes"]`)
	require.NoError(t, err)
	assert.Contains(t, out, "updated 3 field(s)")

	out, err = execute(t, dir, "profile", "show")
	require.NoError(t, err)
	assert.Contains(t, out, `"name": "Maria Silva"`)
	assert.Contains(t, out, `"age": 72`)
	assert.Contains(t, out, `"Diabetes"`)
	assert.NotContains(t, out, "Hypertension")
}

func TestProfileSetRejectsMalformed(t *testing.T) {
	_, err := execute(t, t.TempDir(), "profile", "set", "novalue")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, ExitCode(err))
}

func TestParseAssignments(t *testing.T) {
	got, err := parseAssignments([]string{"name=Ana", "age=41", "active=true", "notes=a=b", "tags=[1,2]"})
	require.NoError(t, err)
	assert.Equal(t, store.Profile{
		"name":   "Ana",
		"age":    float64(41),
		"active": true,
		"notes":  "a=b",
		"tags":   []any{float64(1), float64(2)},
	}, got)

	_, err = parseAssignments([]string{"=x"})
	assert.True(t, errors.IsValidation(err))
}

func TestReportCommand(t *testing.T) {
	dir := t.TempDir()
	pdf := filepath.Join(dir, "report.pdf")

	out, err := execute(t, dir, "report", "-o", pdf)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote "+pdf)

	data, err := os.ReadFile(pdf)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}

func TestExportCommand(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "history.parquet")

	_, err := execute(t, dir, "export", "-o", file)
	require.NoError(t, err)

	rows, err := export.ReadFile(file)
	require.NoError(t, err)
	assert.Len(t, rows, 10)
	for _, r := range rows {
		assert.False(t, r.Anomaly)
	}
}

func TestExportUploadWithoutArchive(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "history.parquet")

	_, err := execute(t, dir, "export", "-o", file, "--upload")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotConfigured))
	assert.FileExists(t, file)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, ExitCode(nil))
	assert.Equal(t, ExitFailure, ExitCode(errors.New("boom")))
	assert.Equal(t, ExitCommandError, ExitCode(errors.NewMissingField("x")))
	assert.Equal(t, 7, ExitCode(errors.Wrap(WrapExitError(7, "custom", nil), "outer")))
}
