// Package harness runs conformance scenarios against a real msgledger
// runtime.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: author_lifecycle
//	description: "What this scenario validates"
//	clock: { start: 1700000000, step: 1 }
//	setup:
//	  - action: airdrop
//	    accounts: { recipient: alice }
//	    args: { lamports: 10000000 }
//	flow:
//	  - invoke: create_message
//	    accounts: { message: msg, author: alice, payer: alice }
//	    args: { content: hello }
//	    expect:
//	      case: Success
//	      result: { author: alice, content: hello }
//	  - invoke: update_message
//	    accounts: { message: msg, author: alice }
//	    args: { content: x }
//	    signers: [bob]
//	    expect: { case: AuthenticationError }
//	assertions:
//	  - type: record
//	    account: msg
//	    expect: { author: alice, content: hello }
//	  - type: balance
//	    account: alice
//	    lamports: 2149120
//
// Identities are aliases. Each alias maps to an ed25519 keypair derived from
// its name, and addresses in receipts are written back as aliases in the
// trace and in expect clauses.
//
// # Signers
//
// By default every alias bound to a signer role of the instruction signs.
// signers replaces that list; forge adds signatures made by an unrelated key
// and relabelled as the named alias.
//
// # Assertion Types
//
//   - trace_contains: an instruction appears in the trace with matching args
//   - trace_order: instructions appear in the specified order
//   - trace_count: an instruction appears exactly N times
//   - record: the message record at an alias has the expected fields
//   - balance: an alias holds exactly N lamports
//   - absent: no account exists at an alias
//
// # Deterministic Testing
//
// Every scenario runs on a fresh in-memory SQLite ledger with a manual clock
// (start plus step per transaction), nonces "<name>-1", "<name>-2", ... and
// alias-derived keys, so the trace is byte-identical across runs and can be
// compared with a golden file.
package harness
