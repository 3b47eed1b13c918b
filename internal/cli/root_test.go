package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "msgledger", cmd.Use)
	assert.Contains(t, cmd.Long, "replayed")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"keygen", "airdrop", "balance", "create", "update", "show", "log", "replay", "idl", "test"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	for _, name := range []string{"config", "db", "driver", "keypair"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), name)
	}
	assert.Equal(t, "k", cmd.PersistentFlags().Lookup("keypair").Shorthand)
}

func TestInvalidFormat(t *testing.T) {
	env := newTestEnv(t)

	_, _, err := env.run("balance", "--format", "yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), `invalid format "yaml"`)
}

func TestInvalidDriver(t *testing.T) {
	env := newTestEnv(t)

	_, _, err := env.run("balance", "--driver", "postgres")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "ledger.driver must be one of")
}

func TestConfigFile(t *testing.T) {
	env := newTestEnv(t)
	kp := filepath.Join(env.home, "custom.json")
	cfgPath := filepath.Join(env.home, "msgledger.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("keypair: "+kp+"\nlog:\n  level: error\n"), 0644))

	out := env.mustRun("keygen", "--config", cfgPath)
	assert.Contains(t, out, "Wrote keypair to "+kp)
	assert.FileExists(t, kp)

	_, _, err := env.run("balance", "--config", filepath.Join(env.home, "missing.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestVerboseLogsToStderr(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun("keygen")

	out, errOut, err := env.run("airdrop", "100", "--verbose", "--format", "json")
	require.NoError(t, err)

	resp := decodeResponse(t, out)
	assert.Equal(t, "ok", resp.Status)
	assert.Contains(t, errOut, "transaction committed")
	assert.Contains(t, errOut, "airdrop committed")
}
