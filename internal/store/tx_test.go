package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/msgledger/internal/ir"
)

func TestTx_PutAccountVisibleAfterCommit(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	btx, err := s.Begin(ctx)
	require.NoError(t, err)

	acct := ir.Account{Address: testWallet, Owner: "11111111111111111111111111111111", Lamports: 500, Seq: 1}
	require.NoError(t, btx.PutAccount(acct))

	// Visible inside the transaction.
	got, ok, err := btx.Account(testWallet)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(500), got.Lamports)
	assert.Equal(t, []byte{}, got.Data)

	require.NoError(t, btx.Commit())

	got, ok, err = s.Account(ctx, testWallet)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(500), got.Lamports)
}

func TestTx_RollbackDiscardsWrites(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	btx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, btx.PutAccount(ir.Account{Address: testMessage, Owner: testProgram, Space: 4, Data: []byte{1, 2, 3, 4}, Seq: 1}))
	require.NoError(t, btx.Rollback())

	_, ok, err := s.Account(ctx, testMessage)
	require.NoError(t, err)
	assert.False(t, ok, "rolled back account must not exist")
}

func TestTx_RollbackAfterCommitIsNoop(t *testing.T) {
	s := createTestStore(t)

	btx, err := s.Begin(context.Background())
	require.NoError(t, err)
	require.NoError(t, btx.Commit())
	assert.NoError(t, btx.Rollback())
}

func TestTx_PutAccountOverwrites(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	btx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, btx.PutAccount(ir.Account{Address: testMessage, Owner: testProgram, Space: 2, Data: []byte{1, 2}, Seq: 1}))
	require.NoError(t, btx.PutAccount(ir.Account{Address: testMessage, Owner: testProgram, Space: 2, Data: []byte{3, 4}, Seq: 2}))
	require.NoError(t, btx.Commit())

	got, ok, err := s.Account(ctx, testMessage)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte{3, 4}, got.Data)
	assert.Equal(t, int64(2), got.Seq)
}

func TestTx_HasTransaction(t *testing.T) {
	s := createTestStore(t)
	tx, rc := createTestEntry("n-1", 1, ir.OutcomeSuccess)
	appendEntry(t, s, tx, rc)

	btx, err := s.Begin(context.Background())
	require.NoError(t, err)
	defer btx.Rollback()

	found, err := btx.HasTransaction(tx.ID)
	require.NoError(t, err)
	assert.True(t, found)

	found, err = btx.HasTransaction("missing")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestTx_AppendTransactionRejectsDuplicateID(t *testing.T) {
	s := createTestStore(t)
	tx, rc := createTestEntry("n-1", 1, ir.OutcomeSuccess)
	appendEntry(t, s, tx, rc)

	btx, err := s.Begin(context.Background())
	require.NoError(t, err)
	defer btx.Rollback()

	tx.Seq = 2
	assert.Error(t, btx.AppendTransaction(tx, rc))
}
