package testutil

import (
	"crypto/sha256"

	"github.com/roach88/msgledger/internal/ledger"
)

// Keypair derives a deterministic keypair from a human-readable alias.
// The same alias always yields the same address, so tests and scenario
// files can name identities ("alice", "msg-1") instead of embedding keys.
func Keypair(alias string) *ledger.Keypair {
	seed := sha256.Sum256([]byte("msgledger/harness/" + alias))
	kp, err := ledger.KeypairFromSeed(seed[:])
	if err != nil {
		// A 32-byte digest is always a valid seed.
		panic(err)
	}
	return kp
}
