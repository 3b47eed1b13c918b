package idl

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/msgledger/internal/ir"
)

const counterIDL = `
program: counter: {
	purpose: "Count things."
	account: Counter: {
		owner: string @pubkey()
		count: int
	}
	instruction: increment: {
		accounts: [
			{name: "counter", writable: true},
			{name: "owner", signer: true},
		]
		args: by: int
		outputs: [
			{case: "Success", fields: {count: int}},
			{case: "NotFoundError", fields: {message: string}},
		]
	}
	instruction: reset: {
		accounts: [{name: "counter", writable: true}]
		outputs: [{case: "Success"}]
	}
}
`

func TestCompileSource(t *testing.T) {
	spec, err := CompileSource("counter.cue", []byte(counterIDL))
	require.NoError(t, err)

	assert.Equal(t, "counter", spec.Name)
	assert.Equal(t, "Count things.", spec.Purpose)

	require.Len(t, spec.Accounts, 1)
	assert.Equal(t, "Counter", spec.Accounts[0].Name)
	assert.Equal(t, []ir.NamedArg{
		{Name: "owner", Type: "pubkey"},
		{Name: "count", Type: "int"},
	}, spec.Accounts[0].Fields, "fields keep declaration order")

	require.Len(t, spec.Instructions, 2)
	inc := spec.Instructions[0]
	assert.Equal(t, "increment", inc.Name)
	assert.Equal(t, []ir.AccountRole{
		{Name: "counter", Writable: true},
		{Name: "owner", Signer: true},
	}, inc.Accounts)
	assert.Equal(t, []ir.NamedArg{{Name: "by", Type: "int"}}, inc.Args)
	require.Len(t, inc.Outputs, 2)
	assert.Equal(t, "Success", inc.Outputs[0].Case)
	assert.Equal(t, map[string]string{"count": "int"}, inc.Outputs[0].Fields)

	reset := spec.Instructions[1]
	assert.Empty(t, reset.Args)
	assert.Empty(t, reset.Outputs[0].Fields)
}

func TestCompileFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "counter.cue")
	require.NoError(t, os.WriteFile(path, []byte(counterIDL), 0o644))

	spec, err := CompileFile(path)
	require.NoError(t, err)
	assert.Equal(t, "counter", spec.Name)

	_, err = CompileFile(filepath.Join(t.TempDir(), "missing.cue"))
	assert.Error(t, err)
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		field string
	}{
		{
			name:  "no program",
			src:   `other: 1`,
			field: "program",
		},
		{
			name:  "missing purpose",
			src:   `program: p: instruction: x: outputs: [{case: "Success"}]`,
			field: "purpose",
		},
		{
			name:  "no instructions",
			src:   `program: p: purpose: "x"`,
			field: "instruction",
		},
		{
			name:  "missing outputs",
			src:   `program: p: {purpose: "x", instruction: x: args: a: int}`,
			field: "instruction.x.outputs",
		},
		{
			name:  "float arg",
			src:   `program: p: {purpose: "x", instruction: x: {args: a: float, outputs: [{case: "Success"}]}}`,
			field: "type",
		},
		{
			name:  "duplicate role",
			src:   `program: p: {purpose: "x", instruction: x: {accounts: [{name: "a"}, {name: "a"}], outputs: [{case: "Success"}]}}`,
			field: "x.accounts[1].name",
		},
		{
			name: "two programs",
			src: `program: a: {purpose: "x", instruction: x: outputs: [{case: "Success"}]}
program: b: {purpose: "y", instruction: y: outputs: [{case: "Success"}]}`,
			field: "program.b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompileSource("test.cue", []byte(tt.src))
			require.Error(t, err)

			var ce *CompileError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestCompileSyntaxErrorHasPosition(t *testing.T) {
	_, err := CompileSource("broken.cue", []byte("program: {\n  purpose: \n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.cue")
}
