package badgerstore

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/msgledger/internal/ir"
	"github.com/roach88/msgledger/internal/queryir"
)

const (
	testProgram = "8LyUD5qQzYLBYPVa4JYBm4GapUffLg9MGfQuJwCEQWtR"
	testWallet  = "4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testEntry(nonce string, seq int64) (ir.Transaction, ir.Receipt) {
	ix := ir.Instruction{
		ProgramID: testProgram,
		Name:      "update_message",
		Accounts:  []ir.AccountMeta{{Role: "author", Address: testWallet}},
		Args:      ir.IRObject{"content": ir.IRString("world")},
	}
	tx := ir.Transaction{
		ID:            ir.MustTransactionID(ix, nonce),
		Instruction:   ix,
		Nonce:         nonce,
		Signatures:    []ir.Signature{{Signer: testWallet, Value: "sig"}},
		Seq:           seq,
		EngineVersion: ir.EngineVersion,
		IRVersion:     ir.IRVersion,
	}
	rc := ir.Receipt{
		ID:            "receipt-" + nonce,
		TransactionID: tx.ID,
		Outcome:       ir.OutcomeSuccess,
		Result:        ir.IRObject{"timestamp": ir.IRInt(1700000000)},
		UnixTimestamp: 1700000000,
		Seq:           seq,
	}
	return tx, rc
}

func appendEntry(t *testing.T, s *Store, tx ir.Transaction, rc ir.Receipt) {
	t.Helper()
	btx, err := s.Begin(context.Background())
	require.NoError(t, err)
	require.NoError(t, btx.AppendTransaction(tx, rc))
	require.NoError(t, btx.Commit())
}

func TestAccountRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	btx, err := s.Begin(ctx)
	require.NoError(t, err)
	acct := ir.Account{Address: testWallet, Owner: testProgram, Lamports: 42, Space: 3, Data: []byte{7, 8, 9}, Seq: 1}
	require.NoError(t, btx.PutAccount(acct))

	inTx, ok, err := btx.Account(testWallet)
	require.NoError(t, err)
	require.True(t, ok, "writes are visible inside the transaction")
	assert.Equal(t, acct, inTx)

	_, ok, err = s.Account(ctx, testWallet)
	require.NoError(t, err)
	assert.False(t, ok, "uncommitted writes are not visible outside")

	require.NoError(t, btx.Commit())

	got, ok, err := s.Account(ctx, testWallet)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, acct, got)
}

func TestRollbackDiscardsWrites(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	btx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, btx.PutAccount(ir.Account{Address: testWallet, Owner: testProgram}))
	require.NoError(t, btx.Rollback())

	_, ok, err := s.Account(ctx, testWallet)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEmptyAccountDataIsNonNil(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	btx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, btx.PutAccount(ir.Account{Address: testWallet, Owner: testProgram, Lamports: 1}))
	require.NoError(t, btx.Commit())

	accounts, err := s.Accounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, []byte{}, accounts[0].Data)
}

func TestLogOrderedBySeq(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Seq 10 sorts after 9 only because keys are zero-padded.
	tx10, rc10 := testEntry("n-10", 10)
	tx9, rc9 := testEntry("n-9", 9)
	appendEntry(t, s, tx10, rc10)
	appendEntry(t, s, tx9, rc9)

	entries, err := s.Log(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(9), entries[0].Transaction.Seq)
	assert.Equal(t, int64(10), entries[1].Transaction.Seq)
	assert.Equal(t, tx9, entries[0].Transaction)
	assert.Equal(t, rc9, entries[0].Receipt)

	last, err := s.LastSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(10), last)
}

func TestLastSeqEmpty(t *testing.T) {
	s := newTestStore(t)

	last, err := s.LastSeq(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), last)
}

func TestDuplicateTransaction(t *testing.T) {
	s := newTestStore(t)
	tx, rc := testEntry("n-1", 1)
	appendEntry(t, s, tx, rc)

	btx, err := s.Begin(context.Background())
	require.NoError(t, err)
	defer btx.Rollback()

	found, err := btx.HasTransaction(tx.ID)
	require.NoError(t, err)
	assert.True(t, found)

	tx.Seq = 2
	assert.Error(t, btx.AppendTransaction(tx, rc))
}

func TestLogEntry(t *testing.T) {
	s := newTestStore(t)
	tx, rc := testEntry("n-1", 1)
	appendEntry(t, s, tx, rc)

	got, ok, err := s.LogEntry(context.Background(), tx.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, rc, got.Receipt)

	_, ok, err = s.LogEntry(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInMemory(t *testing.T) {
	s, err := OpenInMemory()
	require.NoError(t, err)
	defer s.Close()

	tx, rc := testEntry("n-1", 1)
	appendEntry(t, s, tx, rc)

	entries, err := s.Log(context.Background())
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestQueryLog(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for seq, outcome := range []string{ir.OutcomeSuccess, "AuthenticationError", ir.OutcomeSuccess} {
		tx, rc := testEntry(fmt.Sprintf("n%d", seq), int64(seq+1))
		rc.Outcome = outcome
		appendEntry(t, s, tx, rc)
	}

	entries, err := s.QueryLog(ctx, queryir.Select{
		Filter: queryir.NotEquals{Field: queryir.FieldOutcome, Value: ir.IRString(ir.OutcomeSuccess)},
	})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(2), entries[0].Transaction.Seq)

	entries, err = s.QueryLog(ctx, queryir.Select{Filter: queryir.SignedBy{Address: testWallet}, Last: 2})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(2), entries[0].Transaction.Seq)
	assert.Equal(t, int64(3), entries[1].Transaction.Seq)
}
