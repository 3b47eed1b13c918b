package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/msgledger/internal/ledger"
	"github.com/roach88/msgledger/internal/message"
)

// chdir moves into an empty temp dir so no stray msgledger.yaml is picked up.
func chdir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })
	t.Setenv("HOME", dir)
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadDefaults(t *testing.T) {
	dir := chdir(t)

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.Ledger.Driver)
	assert.Equal(t, "msgledger.db", cfg.Ledger.Path)
	assert.Equal(t, message.DefaultProgramID, cfg.Program.ID)
	assert.Equal(t, message.DefaultSpace, cfg.Program.RecordSpace)
	assert.Equal(t, ledger.DefaultRent(), cfg.LedgerRent())
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, filepath.Join(dir, ".config", "msgledger", "id.json"), cfg.Keypair)
}

func TestLoadFileInWorkingDir(t *testing.T) {
	dir := chdir(t)
	writeFile(t, filepath.Join(dir, "msgledger.yaml"), `
ledger:
  driver: badger
program:
  record_space: 256
log:
  level: debug
`)

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, DriverBadger, cfg.Ledger.Driver)
	assert.Equal(t, "msgledger.badger", cfg.Ledger.Path, "path defaults per driver")
	assert.Equal(t, int64(256), cfg.Program.RecordSpace)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadExplicitFile(t *testing.T) {
	dir := chdir(t)
	path := filepath.Join(dir, "custom.yaml")
	writeFile(t, path, "ledger:\n  path: /tmp/elsewhere.db\n")

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/elsewhere.db", cfg.Ledger.Path)

	_, err = Load(filepath.Join(dir, "missing.yaml"), nil)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestPrecedence(t *testing.T) {
	dir := chdir(t)
	writeFile(t, filepath.Join(dir, "msgledger.yaml"), "log:\n  level: warn\nrent:\n  exemption_years: 3\n")

	t.Setenv("MSGLEDGER_LOG_LEVEL", "error")
	t.Setenv("MSGLEDGER_RENT_LAMPORTS_PER_BYTE_YEAR", "10")

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Log.Level, "env beats file")
	assert.Equal(t, ledger.Rent{LamportsPerByteYear: 10, ExemptionYears: 3}, cfg.LedgerRent())

	cfg, err = Load("", map[string]any{"log.level": "debug"})
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level, "overrides beat env")
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name      string
		overrides map[string]any
		want      string
	}{
		{"bad driver", map[string]any{"ledger.driver": "postgres"}, "ledger.driver must be one of"},
		{"bad program id", map[string]any{"program.id": "not-a-key"}, "program.id must be a base58 public key"},
		{"record space below header", map[string]any{"program.record_space": 10}, "program.record_space must be at least 52"},
		{"negative rent", map[string]any{"rent.exemption_years": -1}, "rent.exemption_years must be at least 0"},
		{"bad log level", map[string]any{"log.level": "loud"}, "log.level must be one of"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chdir(t)
			_, err := Load("", tt.overrides)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrConfiguration)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSlogLevel(t *testing.T) {
	for level, want := range map[string]string{
		"debug": "DEBUG", "info": "INFO", "warn": "WARN", "error": "ERROR",
	} {
		cfg := &Config{Log: LogConfig{Level: level}}
		assert.Equal(t, want, cfg.SlogLevel().String())
	}
}
