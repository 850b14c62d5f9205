package diff

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// reservedNames are top level attribute names that collide with DynamoDB
// reserved words. They get the "#attr_" placeholder prefix. Every name is
// addressed through a placeholder either way, so the prefix only keeps
// expressions readable.
var reservedNames = map[string]struct{}{
	"active":   {},
	"address":  {},
	"comment":  {},
	"count":    {},
	"date":     {},
	"end":      {},
	"location": {},
	"name":     {},
	"order":    {},
	"size":     {},
	"source":   {},
	"start":    {},
	"status":   {},
	"time":     {},
	"type":     {},
	"value":    {},
}

// IsReserved reports whether a top level attribute name gets the "#attr_"
// placeholder prefix.
func IsReserved(name string) bool {
	_, ok := reservedNames[strings.ToLower(name)]
	return ok
}

// UpdateExpression is a partial update: the expression text plus its name and
// value placeholders.
type UpdateExpression struct {
	Expression string
	Names      map[string]string
	Values     map[string]types.AttributeValue

	sets    []string
	removes []string
}

// IsEmpty reports whether the expression changes nothing.
func (u *UpdateExpression) IsEmpty() bool {
	return u == nil || len(u.sets)+len(u.removes) == 0
}

// Prepend returns a copy with "SET #attr = :attr" as the first clause.
func (u *UpdateExpression) Prepend(attr string, value types.AttributeValue) *UpdateExpression {
	out := &UpdateExpression{
		Names:   make(map[string]string, len(u.Names)+1),
		Values:  make(map[string]types.AttributeValue, len(u.Values)+1),
		sets:    make([]string, 0, len(u.sets)+1),
		removes: append([]string(nil), u.removes...),
	}
	for k, v := range u.Names {
		out.Names[k] = v
	}
	for k, v := range u.Values {
		out.Values[k] = v
	}
	out.Names["#"+attr] = attr
	out.Values[":"+attr] = value
	out.sets = append(out.sets, fmt.Sprintf("#%s = :%s", attr, attr))
	out.sets = append(out.sets, u.sets...)
	out.render()
	return out
}

func (u *UpdateExpression) render() {
	var parts []string
	if len(u.sets) > 0 {
		parts = append(parts, "SET "+strings.Join(u.sets, ", "))
	}
	if len(u.removes) > 0 {
		parts = append(parts, "REMOVE "+strings.Join(u.removes, ", "))
	}
	u.Expression = strings.Join(parts, " ")
}

// ToUpdateExpression converts a diff tree into an update expression.
//
// Nested map changes address only the changed leaves, in-place list element
// changes are index addressed, and list insertions or removals replace the
// whole list. A removed field becomes a REMOVE clause while a field set to
// NULL is written as a NULL value.
func ToUpdateExpression(changes *NestedChanged) *UpdateExpression {
	b := &expressionBuilder{
		out: &UpdateExpression{
			Names:  make(map[string]string),
			Values: make(map[string]types.AttributeValue),
		},
	}
	if changes != nil {
		for _, f := range changes.Fields {
			b.walk(b.topLevelName(f.Name), f.Change)
		}
	}
	b.out.render()
	return b.out
}

type expressionBuilder struct {
	out  *UpdateExpression
	next int
}

func (b *expressionBuilder) walk(path string, ch Change) {
	switch c := ch.(type) {
	case FieldChanged:
		if c.New == nil {
			b.out.removes = append(b.out.removes, path)
			return
		}
		b.out.sets = append(b.out.sets, path+" = "+b.value(c.New))
	case ListReplaced:
		list := make([]types.AttributeValue, len(c.New))
		copy(list, c.New)
		b.out.sets = append(b.out.sets, path+" = "+b.value(&types.AttributeValueMemberL{Value: list}))
	case *NestedChanged:
		for _, f := range c.Fields {
			b.walk(path+"."+b.name("", f.Name), f.Change)
		}
	case ElementsChanged:
		for _, e := range c.Elements {
			b.walk(fmt.Sprintf("%s[%d]", path, e.Index), e.Change)
		}
	}
}

func (b *expressionBuilder) topLevelName(field string) string {
	if IsReserved(field) {
		return b.name("attr_", field)
	}
	return b.name("", field)
}

// name registers a placeholder for field. Characters that are not valid in a
// placeholder are replaced, and a numeric suffix keeps placeholders unique.
func (b *expressionBuilder) name(prefix, field string) string {
	base := "#" + prefix + sanitise(field)
	placeholder := base
	for i := 1; ; i++ {
		existing, taken := b.out.Names[placeholder]
		if !taken || existing == field {
			break
		}
		placeholder = fmt.Sprintf("%s_%d", base, i)
	}
	b.out.Names[placeholder] = field
	return placeholder
}

func (b *expressionBuilder) value(v types.AttributeValue) string {
	placeholder := fmt.Sprintf(":val_%d", b.next)
	b.next++
	b.out.Values[placeholder] = v
	return placeholder
}

func sanitise(field string) string {
	var sb strings.Builder
	for _, r := range field {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteRune('_')
		}
	}
	return sb.String()
}
