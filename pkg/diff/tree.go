// Package diff compares DynamoDB documents field by field and turns the
// difference into a partial update expression.
//
// Documents are compared in their marshalled form (attributevalue maps) so the
// comparison sees exactly what is stored. The result is a typed tree:
//
//	FieldChanged     a value was added, removed or replaced
//	ListReplaced     list elements were inserted or removed
//	NestedChanged    some fields of a map changed
//	ElementsChanged  some elements of a same-length list changed in place
package diff

import "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

// Change is a node of a diff tree.
type Change interface {
	isChange()
}

// FieldChanged replaces a value. Old is nil for an added field and New is nil
// for a removed one.
type FieldChanged struct {
	Old types.AttributeValue
	New types.AttributeValue
}

// ListReplaced replaces a whole list.
type ListReplaced struct {
	Old []types.AttributeValue
	New []types.AttributeValue
}

// NestedChanged holds the changed fields of a map in name order.
type NestedChanged struct {
	Fields []FieldDiff
}

// FieldDiff is the change of one named field.
type FieldDiff struct {
	Name   string
	Change Change
}

// ElementsChanged holds the elements of a list that changed in place.
type ElementsChanged struct {
	Elements []ElementDiff
}

// ElementDiff is the change of one list element.
type ElementDiff struct {
	Index  int
	Change Change
}

func (FieldChanged) isChange()    {}
func (ListReplaced) isChange()    {}
func (*NestedChanged) isChange()  {}
func (ElementsChanged) isChange() {}

// IsEmpty reports whether the tree holds no change.
func (n *NestedChanged) IsEmpty() bool {
	return n == nil || len(n.Fields) == 0
}

// Field returns the change of a direct child field.
func (n *NestedChanged) Field(name string) (Change, bool) {
	if n == nil {
		return nil, false
	}
	for _, f := range n.Fields {
		if f.Name == name {
			return f.Change, true
		}
	}
	return nil, false
}

// Names returns the changed direct child field names.
func (n *NestedChanged) Names() []string {
	if n == nil {
		return nil
	}
	names := make([]string, 0, len(n.Fields))
	for _, f := range n.Fields {
		names = append(names, f.Name)
	}
	return names
}
