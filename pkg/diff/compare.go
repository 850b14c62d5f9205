package diff

import (
	"math/big"
	"sort"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Comparer builds diff trees. Excluded field names are ignored at any depth,
// including inside list elements.
type Comparer struct {
	excluded map[string]struct{}
}

// Option configures a Comparer.
type Option func(*Comparer)

// Exclude ignores the given field names wherever they appear.
func Exclude(fields ...string) Option {
	return func(c *Comparer) {
		for _, f := range fields {
			c.excluded[f] = struct{}{}
		}
	}
}

// New creates a Comparer.
func New(opts ...Option) *Comparer {
	c := &Comparer{excluded: make(map[string]struct{})}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compare diffs two documents. It returns nil when they are equivalent.
func (c *Comparer) Compare(before, after map[string]types.AttributeValue) *NestedChanged {
	return c.compareMaps(before, after)
}

// Equal reports whether two values are equivalent, ignoring excluded fields.
func (c *Comparer) Equal(a, b types.AttributeValue) bool {
	return c.canonical(a) == c.canonical(b)
}

func (c *Comparer) compareMaps(before, after map[string]types.AttributeValue) *NestedChanged {
	keys := make([]string, 0, len(before)+len(after))
	seen := make(map[string]struct{}, len(before)+len(after))
	for _, m := range []map[string]types.AttributeValue{before, after} {
		for k := range m {
			if _, skip := c.excluded[k]; skip {
				continue
			}
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var fields []FieldDiff
	for _, k := range keys {
		o, inOld := before[k]
		n, inNew := after[k]

		var ch Change
		switch {
		case !inOld:
			ch = FieldChanged{New: n}
		case !inNew:
			ch = FieldChanged{Old: o}
		default:
			ch = c.compareValues(o, n)
		}
		if ch != nil {
			fields = append(fields, FieldDiff{Name: k, Change: ch})
		}
	}

	if len(fields) == 0 {
		return nil
	}
	return &NestedChanged{Fields: fields}
}

func (c *Comparer) compareValues(o, n types.AttributeValue) Change {
	switch ov := o.(type) {
	case *types.AttributeValueMemberM:
		if nv, ok := n.(*types.AttributeValueMemberM); ok {
			if nested := c.compareMaps(ov.Value, nv.Value); nested != nil {
				return nested
			}
			return nil
		}
	case *types.AttributeValueMemberL:
		if nv, ok := n.(*types.AttributeValueMemberL); ok {
			return c.compareLists(ov.Value, nv.Value)
		}
	}

	if c.Equal(o, n) {
		return nil
	}
	return FieldChanged{Old: o, New: n}
}

// compareLists treats lists as multisets. Elements are matched by value
// first, so reordering is not a change. The list is replaced whole unless every
// unmatched element sits at the same index in both lists and differs from its
// counterpart in a single field, in which case those elements are addressed
// in place.
func (c *Comparer) compareLists(o, n []types.AttributeValue) Change {
	if len(o) != len(n) {
		return ListReplaced{Old: o, New: n}
	}
	leftOld := c.unmatched(o, n)
	leftNew := c.unmatched(n, o)
	if len(leftOld) == 0 && len(leftNew) == 0 {
		return nil
	}
	if len(leftOld) != len(leftNew) {
		return ListReplaced{Old: o, New: n}
	}

	elements := make([]ElementDiff, 0, len(leftOld))
	for k, i := range leftOld {
		if leftNew[k] != i {
			return ListReplaced{Old: o, New: n}
		}
		ch := c.singleFieldChange(o[i], n[i])
		if ch == nil {
			return ListReplaced{Old: o, New: n}
		}
		elements = append(elements, ElementDiff{Index: i, Change: ch})
	}
	return ElementsChanged{Elements: elements}
}

// unmatched returns, in order, the indexes of a whose value has no unused
// equal in b.
func (c *Comparer) unmatched(a, b []types.AttributeValue) []int {
	counts := make(map[string]int, len(b))
	for _, v := range b {
		counts[c.canonical(v)]++
	}
	var out []int
	for i, v := range a {
		key := c.canonical(v)
		if counts[key] > 0 {
			counts[key]--
			continue
		}
		out = append(out, i)
	}
	return out
}

// singleFieldChange returns the diff of two map elements that differ in
// exactly one field, or nil.
func (c *Comparer) singleFieldChange(o, n types.AttributeValue) Change {
	om, ok := o.(*types.AttributeValueMemberM)
	if !ok {
		return nil
	}
	nm, ok := n.(*types.AttributeValueMemberM)
	if !ok {
		return nil
	}
	nested := c.compareMaps(om.Value, nm.Value)
	if nested == nil || len(nested.Fields) != 1 {
		return nil
	}
	return nested
}

// canonical renders a value as a string that is equal for equivalent values.
func (c *Comparer) canonical(v types.AttributeValue) string {
	var b strings.Builder
	c.writeCanonical(&b, v)
	return b.String()
}

func (c *Comparer) writeCanonical(b *strings.Builder, v types.AttributeValue) {
	switch tv := v.(type) {
	case nil:
		b.WriteString("<nil>")
	case *types.AttributeValueMemberS:
		b.WriteString("S")
		b.WriteString(strconv.Quote(tv.Value))
	case *types.AttributeValueMemberN:
		b.WriteString("N")
		b.WriteString(strconv.Quote(canonicalNumber(tv.Value)))
	case *types.AttributeValueMemberBOOL:
		b.WriteString("BOOL")
		b.WriteString(strconv.FormatBool(tv.Value))
	case *types.AttributeValueMemberNULL:
		b.WriteString("NULL")
	case *types.AttributeValueMemberB:
		b.WriteString("B")
		b.WriteString(strconv.Quote(string(tv.Value)))
	case *types.AttributeValueMemberSS:
		writeSet(b, "SS", tv.Value)
	case *types.AttributeValueMemberNS:
		members := make([]string, len(tv.Value))
		for i, m := range tv.Value {
			members[i] = canonicalNumber(m)
		}
		writeSet(b, "NS", members)
	case *types.AttributeValueMemberBS:
		members := make([]string, len(tv.Value))
		for i, m := range tv.Value {
			members[i] = string(m)
		}
		writeSet(b, "BS", members)
	case *types.AttributeValueMemberL:
		b.WriteString("L[")
		for i, e := range tv.Value {
			if i > 0 {
				b.WriteByte(',')
			}
			c.writeCanonical(b, e)
		}
		b.WriteByte(']')
	case *types.AttributeValueMemberM:
		keys := make([]string, 0, len(tv.Value))
		for k := range tv.Value {
			if _, skip := c.excluded[k]; skip {
				continue
			}
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString("M{")
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.Quote(k))
			b.WriteByte(':')
			c.writeCanonical(b, tv.Value[k])
		}
		b.WriteByte('}')
	default:
		b.WriteString("?")
	}
}

func writeSet(b *strings.Builder, tag string, members []string) {
	sorted := append([]string(nil), members...)
	sort.Strings(sorted)
	b.WriteString(tag)
	b.WriteByte('(')
	for i, m := range sorted {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Quote(m))
	}
	b.WriteByte(')')
}

// canonicalNumber renders a DynamoDB number so that 1.5, 1.50 and 15e-1 agree.
// Text that does not parse is kept as is.
func canonicalNumber(v string) string {
	r, ok := new(big.Rat).SetString(strings.TrimSpace(v))
	if !ok {
		return v
	}
	return r.RatString()
}
