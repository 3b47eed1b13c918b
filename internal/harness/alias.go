package harness

import (
	"sort"

	"github.com/roach88/msgledger/internal/ir"
	"github.com/roach88/msgledger/internal/ledger"
	"github.com/roach88/msgledger/internal/testutil"
)

// aliasBook maps scenario aliases to keypairs and back.
type aliasBook struct {
	keys      map[string]*ledger.Keypair
	byAddress map[string]string
}

func newAliasBook() *aliasBook {
	return &aliasBook{
		keys:      make(map[string]*ledger.Keypair),
		byAddress: make(map[string]string),
	}
}

func (b *aliasBook) keypair(alias string) *ledger.Keypair {
	if kp, ok := b.keys[alias]; ok {
		return kp
	}
	kp := testutil.Keypair(alias)
	b.keys[alias] = kp
	b.byAddress[kp.Address()] = alias
	return kp
}

func (b *aliasBook) address(alias string) string {
	return b.keypair(alias).Address()
}

// aliasObject returns a copy of obj with every string equal to a known
// address replaced by its alias.
func (b *aliasBook) aliasObject(obj ir.IRObject) ir.IRObject {
	out := make(ir.IRObject, len(obj))
	for k, v := range obj {
		out[k] = b.aliasValue(v)
	}
	return out
}

func (b *aliasBook) aliasValue(v ir.IRValue) ir.IRValue {
	switch val := v.(type) {
	case ir.IRString:
		if alias, ok := b.byAddress[string(val)]; ok {
			return ir.IRString(alias)
		}
		return val
	case ir.IRObject:
		return b.aliasObject(val)
	case ir.IRArray:
		arr := make(ir.IRArray, len(val))
		for i, elem := range val {
			arr[i] = b.aliasValue(elem)
		}
		return arr
	default:
		return v
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
