package ledger

import (
	"fmt"

	"github.com/mr-tron/base58"

	"github.com/roach88/msgledger/internal/ir"
)

// NewTransaction wraps an instruction into an unsigned transaction.
func NewTransaction(ix ir.Instruction, nonce string) (ir.Transaction, error) {
	id, err := ir.TransactionID(ix, nonce)
	if err != nil {
		return ir.Transaction{}, err
	}
	return ir.Transaction{
		ID:            id,
		Instruction:   ix,
		Nonce:         nonce,
		EngineVersion: ir.EngineVersion,
		IRVersion:     ir.IRVersion,
	}, nil
}

// Sign adds a signature by each keypair over the transaction message.
// A keypair that already signed has its signature replaced.
func Sign(tx *ir.Transaction, keypairs ...*Keypair) error {
	msg, err := ir.SigningMessage(tx.Instruction, tx.Nonce)
	if err != nil {
		return fmt.Errorf("sign: %w", err)
	}

	for _, kp := range keypairs {
		sig := ir.Signature{
			Signer: kp.Address(),
			Value:  base58.Encode(kp.Sign(msg)),
		}
		replaced := false
		for i := range tx.Signatures {
			if tx.Signatures[i].Signer == sig.Signer {
				tx.Signatures[i] = sig
				replaced = true
			}
		}
		if !replaced {
			tx.Signatures = append(tx.Signatures, sig)
		}
	}
	return nil
}

// VerifySignatures checks every signature on the transaction and returns the
// set of verified signer addresses.
//
// A single bad signature rejects the whole transaction with AuthenticationError.
func VerifySignatures(tx ir.Transaction) (map[string]bool, error) {
	msg, err := ir.SigningMessage(tx.Instruction, tx.Nonce)
	if err != nil {
		return nil, NewInvalidInstructionError("signing message: %v", err)
	}

	signers := make(map[string]bool, len(tx.Signatures))
	for _, s := range tx.Signatures {
		raw, err := base58.Decode(s.Value)
		if err != nil {
			return nil, NewAuthenticationError("", s.Signer, "signature is not valid base58")
		}
		if !Verify(s.Signer, msg, raw) {
			return nil, NewAuthenticationError("", s.Signer, "signature verification failed")
		}
		signers[s.Signer] = true
	}
	return signers, nil
}
