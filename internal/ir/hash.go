package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainTransaction = "msgledger/transaction/v1"
	DomainReceipt     = "msgledger/receipt/v1"
	DomainState       = "msgledger/state/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// SigningMessage returns the canonical bytes every signer of a transaction
// signs: the instruction plus the nonce.
//
// Signatures are not part of the message, so the same instruction and nonce
// always yield the same message regardless of who signed it.
func SigningMessage(ix Instruction, nonce string) ([]byte, error) {
	accounts := make(IRArray, len(ix.Accounts))
	for i, meta := range ix.Accounts {
		accounts[i] = IRObject{
			"role":    IRString(meta.Role),
			"address": IRString(meta.Address),
		}
	}

	args := ix.Args
	if args == nil {
		args = IRObject{}
	}

	obj := IRObject{
		"program_id":  IRString(ix.ProgramID),
		"instruction": IRString(ix.Name),
		"accounts":    accounts,
		"args":        args,
		"nonce":       IRString(nonce),
	}

	data, err := MarshalCanonical(obj)
	if err != nil {
		return nil, fmt.Errorf("SigningMessage: %w", err)
	}
	return data, nil
}

// TransactionID computes the content-addressed ID of a transaction.
// Stable across restarts and replays given the same instruction and nonce.
func TransactionID(ix Instruction, nonce string) (string, error) {
	msg, err := SigningMessage(ix, nonce)
	if err != nil {
		return "", fmt.Errorf("TransactionID: %w", err)
	}
	return hashWithDomain(DomainTransaction, msg), nil
}

// ReceiptID computes the content-addressed ID of a receipt.
func ReceiptID(transactionID, outcome string, result IRObject, unixTimestamp, seq int64) (string, error) {
	if result == nil {
		result = IRObject{}
	}
	obj := IRObject{
		"transaction_id": IRString(transactionID),
		"outcome":        IRString(outcome),
		"result":         result,
		"unix_timestamp": IRInt(unixTimestamp),
		"seq":            IRInt(seq),
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("ReceiptID: %w", err)
	}
	return hashWithDomain(DomainReceipt, canonical), nil
}

// StateHash digests a set of accounts independent of their order.
// Seq is excluded: two ledgers holding the same balances and data hash equal.
func StateHash(accounts []Account) (string, error) {
	sorted := make([]Account, len(accounts))
	copy(sorted, accounts)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Address < sorted[j].Address })

	arr := make(IRArray, len(sorted))
	for i, a := range sorted {
		arr[i] = IRObject{
			"address":  IRString(a.Address),
			"owner":    IRString(a.Owner),
			"lamports": IRInt(a.Lamports),
			"space":    IRInt(a.Space),
			"data":     IRString(hex.EncodeToString(a.Data)),
		}
	}

	canonical, err := MarshalCanonical(arr)
	if err != nil {
		return "", fmt.Errorf("StateHash: %w", err)
	}
	return hashWithDomain(DomainState, canonical), nil
}

// MustTransactionID is like TransactionID but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustTransactionID(ix Instruction, nonce string) string {
	id, err := TransactionID(ix, nonce)
	if err != nil {
		panic(err)
	}
	return id
}
