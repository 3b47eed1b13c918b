package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIRValueSealed(t *testing.T) {
	var _ IRValue = IRNull{}
	var _ IRValue = IRString("test")
	var _ IRValue = IRInt(42)
	var _ IRValue = IRBool(true)
	var _ IRValue = IRArray{IRString("a"), IRInt(1)}
	var _ IRValue = IRObject{"key": IRString("value")}
}

func TestIRObjectSortedKeysRFC8785Order(t *testing.T) {
	obj := IRObject{
		"a":  IRInt(1),
		"A":  IRInt(2),
		"aa": IRInt(3),
		"aA": IRInt(4),
		"Aa": IRInt(5),
		"AA": IRInt(6),
	}

	// 'A' = 65, 'a' = 97
	assert.Equal(t, []string{"A", "AA", "Aa", "a", "aA", "aa"}, obj.SortedKeys())
}

func TestCompareKeysRFC8785_SurrogatePairs(t *testing.T) {
	// U+1F600 encodes as surrogates D83D DE00 in UTF-16, which sorts before
	// U+FFFD even though its UTF-8 encoding sorts after.
	emoji := "\U0001F600"
	replacement := "\uFFFD"

	assert.Equal(t, -1, compareKeysRFC8785(emoji, replacement))
	assert.Equal(t, 1, compareKeysRFC8785(replacement, emoji))
	assert.Equal(t, 0, compareKeysRFC8785(emoji, emoji))
	assert.Equal(t, -1, compareKeysRFC8785("a", "ab"))
}

func TestIRObjectAccessors(t *testing.T) {
	obj := NewIRObject(O("content", IRString("hello")), O("lamports", IRInt(5)))

	s, ok := obj.String("content")
	assert.True(t, ok)
	assert.Equal(t, "hello", s)

	_, ok = obj.String("lamports")
	assert.False(t, ok, "int is not a string")

	n, ok := obj.Int("lamports")
	assert.True(t, ok)
	assert.Equal(t, int64(5), n)

	_, ok = obj.Int("missing")
	assert.False(t, ok)
}

func TestIRObjectClone(t *testing.T) {
	obj := IRObject{"a": IRInt(1)}
	clone := obj.Clone()
	clone["b"] = IRInt(2)

	assert.Len(t, obj, 1)
	assert.Len(t, clone, 2)
}

func TestUnmarshalIRValue_RejectsFloatsAndNull(t *testing.T) {
	for _, input := range []string{`1.5`, `{"a":2.0}`, `[1e3]`, `null`, `{"a":null}`} {
		t.Run(input, func(t *testing.T) {
			_, err := UnmarshalIRValue([]byte(input))
			assert.Error(t, err)
		})
	}
}

func TestUnmarshalIRValue_Valid(t *testing.T) {
	v, err := UnmarshalIRValue([]byte(`{"content":"hi","n":9007199254740993,"ok":true,"list":[1,"x"]}`))
	require.NoError(t, err)

	obj, ok := v.(IRObject)
	require.True(t, ok)
	assert.Equal(t, IRString("hi"), obj["content"])
	assert.Equal(t, IRInt(9007199254740993), obj["n"], "large ints keep precision")
	assert.Equal(t, IRBool(true), obj["ok"])
	assert.Equal(t, IRArray{IRInt(1), IRString("x")}, obj["list"])
}

func TestIRObjectJSONRoundTrip(t *testing.T) {
	original := IRObject{
		"content": IRString("hello"),
		"nested":  IRObject{"n": IRInt(-3)},
		"list":    IRArray{IRBool(false), IRNull{}},
	}

	data, err := json.Marshal(original)
	require.NoError(t, err)
	assert.Equal(t, `{"content":"hello","list":[false,null],"nested":{"n":-3}}`, string(data))

	var decoded IRObject
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, original, decoded)
}

func TestToIRValue_YAMLShapes(t *testing.T) {
	v, err := ToIRValue(map[string]any{
		"content":  "hello",
		"lamports": 1000,
		"big":      uint64(7),
		"tags":     []any{"a", true},
	})
	require.NoError(t, err)

	obj := v.(IRObject)
	assert.Equal(t, IRInt(1000), obj["lamports"])
	assert.Equal(t, IRInt(7), obj["big"])
	assert.Equal(t, IRArray{IRString("a"), IRBool(true)}, obj["tags"])

	_, err = ToIRValue(map[string]any{"f": 1.5})
	assert.Error(t, err)

	_, err = ToIRValue(uint64(1 << 63))
	assert.Error(t, err)
}

func TestToIRObject(t *testing.T) {
	obj, err := ToIRObject(map[string]any{"content": "x"})
	require.NoError(t, err)
	assert.Equal(t, IRObject{"content": IRString("x")}, obj)

	_, err = ToIRObject(map[string]any{"content": nil})
	assert.Error(t, err)
}
