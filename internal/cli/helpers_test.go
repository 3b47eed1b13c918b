package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// testEnv runs CLI commands against a ledger in a temporary HOME.
type testEnv struct {
	t    *testing.T
	home string
	db   string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return &testEnv{t: t, home: home, db: filepath.Join(home, "ledger.db")}
}

// run executes the root command with --db set and returns stdout, stderr and
// the command error.
func (e *testEnv) run(args ...string) (string, string, error) {
	e.t.Helper()
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}

	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(append([]string{"--db", e.db}, args...))

	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

// mustRun executes a command that must succeed.
func (e *testEnv) mustRun(args ...string) string {
	e.t.Helper()
	out, errOut, err := e.run(args...)
	require.NoError(e.t, err, "stderr: %s", errOut)
	return out
}

// jsonResponse decodes a --format json response.
type jsonResponse struct {
	Status string                 `json:"status"`
	Data   map[string]interface{} `json:"data"`
	Error  *CLIError              `json:"error"`
}

func decodeResponse(t *testing.T, out string) jsonResponse {
	t.Helper()
	var resp jsonResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), "output: %s", out)
	return resp
}

// fundedSigner generates the default keypair and airdrops lamports to it.
func (e *testEnv) fundedSigner(lamports string) string {
	e.t.Helper()
	resp := decodeResponse(e.t, e.mustRun("keygen", "--format", "json"))
	e.mustRun("airdrop", lamports)
	return resp.Data["address"].(string)
}
