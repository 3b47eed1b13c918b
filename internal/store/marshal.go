package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/msgledger/internal/ir"
)

// marshalArgs converts IRObject to canonical JSON TEXT for storage.
// Uses RFC 8785 canonical JSON for deterministic serialization.
func marshalArgs(args ir.IRObject) (string, error) {
	data, err := ir.MarshalCanonical(args)
	if err != nil {
		return "", fmt.Errorf("marshal args: %w", err)
	}
	return string(data), nil
}

// marshalResult converts IRObject to canonical JSON TEXT for storage.
// Uses RFC 8785 canonical JSON for deterministic serialization.
func marshalResult(result ir.IRObject) (string, error) {
	data, err := ir.MarshalCanonical(result)
	if err != nil {
		return "", fmt.Errorf("marshal result: %w", err)
	}
	return string(data), nil
}

// marshalAccountMetas converts the instruction's account bindings to
// canonical JSON TEXT. Order is significant and preserved.
func marshalAccountMetas(metas []ir.AccountMeta) (string, error) {
	arr := make(ir.IRArray, len(metas))
	for i, m := range metas {
		arr[i] = ir.IRObject{
			"role":    ir.IRString(m.Role),
			"address": ir.IRString(m.Address),
		}
	}
	data, err := ir.MarshalCanonical(arr)
	if err != nil {
		return "", fmt.Errorf("marshal accounts: %w", err)
	}
	return string(data), nil
}

// marshalSignatures converts signatures to JSON TEXT.
// Uses json.Encoder with HTML escaping disabled for RFC 8785 compliance.
func marshalSignatures(sigs []ir.Signature) (string, error) {
	if sigs == nil {
		sigs = []ir.Signature{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(sigs); err != nil {
		return "", fmt.Errorf("marshal signatures: %w", err)
	}
	// Encoder adds a trailing newline, remove it
	return strings.TrimSpace(buf.String()), nil
}

// unmarshalArgs parses canonical JSON TEXT to IRObject.
// Uses ir.IRObject.UnmarshalJSON which properly handles large integers via json.Number
// to avoid float64 precision loss for values > 2^53.
func unmarshalArgs(data string) (ir.IRObject, error) {
	if data == "" || data == "{}" {
		return ir.IRObject{}, nil
	}
	var obj ir.IRObject
	if err := json.Unmarshal([]byte(data), &obj); err != nil {
		return nil, fmt.Errorf("unmarshal args: %w", err)
	}
	return obj, nil
}

// unmarshalResult parses canonical JSON TEXT to IRObject.
func unmarshalResult(data string) (ir.IRObject, error) {
	if data == "" || data == "{}" {
		return ir.IRObject{}, nil
	}
	var obj ir.IRObject
	if err := json.Unmarshal([]byte(data), &obj); err != nil {
		return nil, fmt.Errorf("unmarshal result: %w", err)
	}
	return obj, nil
}

// unmarshalAccountMetas parses the stored account bindings.
func unmarshalAccountMetas(data string) ([]ir.AccountMeta, error) {
	var metas []ir.AccountMeta
	if err := json.Unmarshal([]byte(data), &metas); err != nil {
		return nil, fmt.Errorf("unmarshal accounts: %w", err)
	}
	if metas == nil {
		metas = []ir.AccountMeta{}
	}
	return metas, nil
}

// unmarshalSignatures parses stored signatures.
func unmarshalSignatures(data string) ([]ir.Signature, error) {
	var sigs []ir.Signature
	if err := json.Unmarshal([]byte(data), &sigs); err != nil {
		return nil, fmt.Errorf("unmarshal signatures: %w", err)
	}
	if sigs == nil {
		sigs = []ir.Signature{}
	}
	return sigs, nil
}
