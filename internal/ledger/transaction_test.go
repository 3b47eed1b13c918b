package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/msgledger/internal/ir"
)

func testInstruction(author string) ir.Instruction {
	return ir.Instruction{
		ProgramID: "8LyUD5qQzYLBYPVa4JYBm4GapUffLg9MGfQuJwCEQWtR",
		Name:      "update_message",
		Accounts:  []ir.AccountMeta{{Role: "author", Address: author}},
		Args:      ir.IRObject{"content": ir.IRString("hi")},
	}
}

func TestNewTransactionSetsIDAndVersions(t *testing.T) {
	kp := seededKeypair(t, "alice")

	tx, err := NewTransaction(testInstruction(kp.Address()), "n-1")
	require.NoError(t, err)

	assert.Equal(t, ir.MustTransactionID(tx.Instruction, "n-1"), tx.ID)
	assert.Equal(t, ir.EngineVersion, tx.EngineVersion)
	assert.Equal(t, ir.IRVersion, tx.IRVersion)
	assert.Empty(t, tx.Signatures)
}

func TestSignAndVerify(t *testing.T) {
	alice := seededKeypair(t, "alice")
	bob := seededKeypair(t, "bob")

	tx, err := NewTransaction(testInstruction(alice.Address()), "n-1")
	require.NoError(t, err)
	require.NoError(t, Sign(&tx, alice, bob))

	signers, err := VerifySignatures(tx)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{alice.Address(): true, bob.Address(): true}, signers)
}

func TestSignReplacesExistingSignature(t *testing.T) {
	alice := seededKeypair(t, "alice")

	tx, err := NewTransaction(testInstruction(alice.Address()), "n-1")
	require.NoError(t, err)
	require.NoError(t, Sign(&tx, alice))
	require.NoError(t, Sign(&tx, alice))

	assert.Len(t, tx.Signatures, 1)
}

func TestSignatureIDIndependence(t *testing.T) {
	alice := seededKeypair(t, "alice")

	tx, err := NewTransaction(testInstruction(alice.Address()), "n-1")
	require.NoError(t, err)
	id := tx.ID
	require.NoError(t, Sign(&tx, alice))

	assert.Equal(t, id, tx.ID, "signing never changes the transaction ID")
}

func TestVerifyRejectsTamperedArgs(t *testing.T) {
	alice := seededKeypair(t, "alice")

	tx, err := NewTransaction(testInstruction(alice.Address()), "n-1")
	require.NoError(t, err)
	require.NoError(t, Sign(&tx, alice))

	tx.Instruction.Args = ir.IRObject{"content": ir.IRString("tampered")}
	_, err = VerifySignatures(tx)
	require.Error(t, err)
	assert.True(t, IsAuthenticationError(err))
}

func TestVerifyRejectsForgedSigner(t *testing.T) {
	alice := seededKeypair(t, "alice")
	mallory := seededKeypair(t, "mallory")

	tx, err := NewTransaction(testInstruction(alice.Address()), "n-1")
	require.NoError(t, err)
	require.NoError(t, Sign(&tx, mallory))

	// Mallory's signature relabelled as Alice's.
	tx.Signatures[0].Signer = alice.Address()
	_, err = VerifySignatures(tx)
	assert.True(t, IsAuthenticationError(err))
}

func TestVerifyRejectsGarbageSignature(t *testing.T) {
	alice := seededKeypair(t, "alice")

	tx, err := NewTransaction(testInstruction(alice.Address()), "n-1")
	require.NoError(t, err)
	tx.Signatures = []ir.Signature{{Signer: alice.Address(), Value: "0OIl"}}

	_, err = VerifySignatures(tx)
	assert.True(t, IsAuthenticationError(err))
}
