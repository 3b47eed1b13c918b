package cli

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/msgledger/internal/ir"
	"github.com/roach88/msgledger/internal/ledger"
)

func TestCreateShowUpdate(t *testing.T) {
	env := newTestEnv(t)
	author := env.fundedSigner("10000000")
	msgPath := filepath.Join(env.home, "msg.json")

	resp := decodeResponse(t, env.mustRun("create", "hello", "--save", msgPath, "--format", "json"))
	assert.Equal(t, "ok", resp.Status)
	address := resp.Data["address"].(string)
	assert.Equal(t, author, resp.Data["author"])
	assert.Equal(t, "hello", resp.Data["content"])
	assert.Equal(t, msgPath, resp.Data["keypair"])
	assert.Equal(t, float64(2), resp.Data["seq"])

	saved, err := ledger.LoadKeypair(msgPath)
	require.NoError(t, err)
	assert.Equal(t, address, saved.Address())

	// Rent for the default 1000-byte record.
	out := env.mustRun("balance")
	assert.Contains(t, out, ": 2149120 lamports")

	out = env.mustRun("show", address)
	assert.Contains(t, out, "Address:   "+address)
	assert.Contains(t, out, "Author:    "+author)
	assert.Contains(t, out, "Content:   hello")

	resp = decodeResponse(t, env.mustRun("update", address, "world", "--format", "json"))
	assert.Equal(t, "world", resp.Data["content"])
	assert.Equal(t, float64(3), resp.Data["seq"])

	resp = decodeResponse(t, env.mustRun("show", address, "--format", "json"))
	assert.Equal(t, "world", resp.Data["content"])
	assert.Nil(t, resp.Data["transaction_id"])
}

func TestCreateWithSeparatePayer(t *testing.T) {
	env := newTestEnv(t)
	author := env.fundedSigner("1")
	payerPath := filepath.Join(env.home, "payer.json")

	payer := decodeResponse(t, env.mustRun("keygen", "--outfile", payerPath, "--format", "json"))
	payerAddr := payer.Data["address"].(string)
	env.mustRun("airdrop", "8000000", payerAddr)

	resp := decodeResponse(t, env.mustRun("create", "paid by someone else", "--payer", payerPath, "--format", "json"))
	assert.Equal(t, author, resp.Data["author"])

	out := env.mustRun("balance", payerAddr)
	assert.Contains(t, out, ": 149120 lamports")
	out = env.mustRun("balance")
	assert.Contains(t, out, ": 1 lamports")
}

func TestCreateWithExistingMessageKeypair(t *testing.T) {
	env := newTestEnv(t)
	env.fundedSigner("20000000")
	msgPath := filepath.Join(env.home, "msg.json")
	msg := decodeResponse(t, env.mustRun("keygen", "--outfile", msgPath, "--format", "json"))

	resp := decodeResponse(t, env.mustRun("create", "first", "--message-keypair", msgPath, "--format", "json"))
	assert.Equal(t, msg.Data["address"], resp.Data["address"])

	// The address is now in use.
	out, _, err := env.run("create", "second", "--message-keypair", msgPath, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.True(t, ledger.IsAllocationError(err))

	failed := decodeResponse(t, out)
	assert.Equal(t, "error", failed.Status)
	assert.Equal(t, "AllocationError", failed.Error.Code)
	assert.Equal(t, "address already in use", failed.Error.Message)

	_, _, err = env.run("create", "x", "--message-keypair", msgPath, "--save", msgPath)
	require.Error(t, err)
}

func TestCreateFailures(t *testing.T) {
	env := newTestEnv(t)
	env.fundedSigner("1000")

	t.Run("oversize", func(t *testing.T) {
		out, _, err := env.run("create", strings.Repeat("x", 949), "--format", "json")
		require.Error(t, err)
		assert.Equal(t, ExitFailure, GetExitCode(err))

		resp := decodeResponse(t, out)
		assert.Equal(t, "CapacityError", resp.Error.Code)
		assert.Equal(t, "content needs 949 bytes, capacity is 948", resp.Error.Message)
	})

	t.Run("insufficient funds", func(t *testing.T) {
		out, _, err := env.run("create", "hello")
		require.Error(t, err)
		assert.Equal(t, ExitFailure, GetExitCode(err))
		assert.Contains(t, out, "Error [AllocationError]: insufficient funds for rent")
	})

	t.Run("missing payer keypair", func(t *testing.T) {
		_, _, err := env.run("create", "hello", "--payer", filepath.Join(env.home, "nope.json"))
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
	})

	out := env.mustRun("balance")
	assert.Contains(t, out, ": 1000 lamports", "failed creates charge nothing")
}

func TestUpdateFailures(t *testing.T) {
	env := newTestEnv(t)
	author := env.fundedSigner("10000000")

	t.Run("missing record", func(t *testing.T) {
		kp, err := ledger.GenerateKeypair()
		require.NoError(t, err)

		out, _, err := env.run("update", kp.Address(), "hi", "--format", "json")
		require.Error(t, err)
		assert.True(t, ledger.IsNotFoundError(err))

		resp := decodeResponse(t, out)
		assert.Equal(t, "NotFoundError", resp.Error.Code)
	})

	t.Run("wallet is not a record", func(t *testing.T) {
		_, _, err := env.run("update", author, "hi")
		require.Error(t, err)
		assert.True(t, ledger.IsNotFoundError(err))
	})

	t.Run("invalid address", func(t *testing.T) {
		_, _, err := env.run("update", "0OIl", "hi")
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
	})

	t.Run("show missing", func(t *testing.T) {
		_, _, err := env.run("show", author)
		require.Error(t, err)
		assert.Equal(t, ExitFailure, GetExitCode(err))
		assert.True(t, ledger.IsNotFoundError(err))
	})
}

func TestUpdateByAnotherSigner(t *testing.T) {
	env := newTestEnv(t)
	env.fundedSigner("10000000")

	resp := decodeResponse(t, env.mustRun("create", "mine", "--format", "json"))
	address := resp.Data["address"].(string)

	otherPath := filepath.Join(env.home, "other.json")
	other := decodeResponse(t, env.mustRun("keygen", "--outfile", otherPath, "--format", "json"))

	// Any signer may overwrite a record and becomes its author.
	resp = decodeResponse(t, env.mustRun("update", address, "theirs", "--keypair", otherPath, "--format", "json"))
	assert.Equal(t, other.Data["address"], resp.Data["author"])
	assert.Equal(t, "theirs", resp.Data["content"])
}

func TestLogFailedReceipt(t *testing.T) {
	var buf bytes.Buffer
	out := &OutputFormatter{Format: "text", Writer: &buf, Verbose: true}

	logFailedReceipt(out, "create", ir.Receipt{})
	assert.Equal(t, "create rejected before logging\n", buf.String())
	assert.NotContains(t, buf.String(), "seq 0")

	buf.Reset()
	logFailedReceipt(out, "update", ir.Receipt{ID: "r1", TransactionID: "tx1", Seq: 7})
	assert.Equal(t, "update failed at seq 7 (transaction tx1)\n", buf.String())
}

func TestCreateVerboseFailure(t *testing.T) {
	env := newTestEnv(t)
	env.fundedSigner("1000")

	_, stderr, err := env.run("create", "hello", "--verbose")
	require.Error(t, err)
	assert.Contains(t, stderr, "create failed at seq 2")
}
