package diff

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Apply evaluates an update expression of the form produced by
// ToUpdateExpression ("SET p = :v, ... REMOVE p, ...") against a copy of item.
// The input item is not modified.
func Apply(
	item map[string]types.AttributeValue,
	expression string,
	names map[string]string,
	values map[string]types.AttributeValue,
) (map[string]types.AttributeValue, error) {
	sets, removes, err := parseUpdate(expression)
	if err != nil {
		return nil, err
	}

	doc := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		doc[k] = v
	}

	for _, s := range sets {
		path, err := parsePath(s.path, names)
		if err != nil {
			return nil, err
		}
		v, ok := values[s.value]
		if !ok {
			return nil, fmt.Errorf("undefined value placeholder %s", s.value)
		}
		if err := setPath(doc, path, v); err != nil {
			return nil, fmt.Errorf("failed to set %s: %w", s.path, err)
		}
	}

	for _, r := range removes {
		path, err := parsePath(r, names)
		if err != nil {
			return nil, err
		}
		if err := removePath(doc, path); err != nil {
			return nil, fmt.Errorf("failed to remove %s: %w", r, err)
		}
	}

	return doc, nil
}

type setClause struct {
	path  string
	value string
}

func parseUpdate(expression string) ([]setClause, []string, error) {
	expr := strings.TrimSpace(expression)
	var setPart, removePart string

	switch {
	case strings.HasPrefix(expr, "SET "):
		setPart = expr[len("SET "):]
		if i := strings.Index(setPart, " REMOVE "); i >= 0 {
			removePart = setPart[i+len(" REMOVE "):]
			setPart = setPart[:i]
		}
	case strings.HasPrefix(expr, "REMOVE "):
		removePart = expr[len("REMOVE "):]
	default:
		return nil, nil, fmt.Errorf("unsupported update expression %q", expression)
	}

	var sets []setClause
	for _, clause := range splitClauses(setPart) {
		path, value, ok := strings.Cut(clause, "=")
		if !ok {
			return nil, nil, fmt.Errorf("malformed SET clause %q", clause)
		}
		sets = append(sets, setClause{path: strings.TrimSpace(path), value: strings.TrimSpace(value)})
	}
	return sets, splitClauses(removePart), nil
}

func splitClauses(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// step is one element of a document path: a map key or a list index.
type step struct {
	key   string
	index int
	isIdx bool
}

func parsePath(raw string, names map[string]string) ([]step, error) {
	var path []step
	for _, segment := range strings.Split(raw, ".") {
		name := segment
		var indexes []int
		if i := strings.IndexByte(segment, '['); i >= 0 {
			name = segment[:i]
			rest := segment[i:]
			for rest != "" {
				end := strings.IndexByte(rest, ']')
				if rest[0] != '[' || end < 0 {
					return nil, fmt.Errorf("malformed path %q", raw)
				}
				n, err := strconv.Atoi(rest[1:end])
				if err != nil {
					return nil, fmt.Errorf("malformed index in %q: %w", raw, err)
				}
				indexes = append(indexes, n)
				rest = rest[end+1:]
			}
		}
		if strings.HasPrefix(name, "#") {
			resolved, ok := names[name]
			if !ok {
				return nil, fmt.Errorf("undefined name placeholder %s", name)
			}
			name = resolved
		}
		path = append(path, step{key: name})
		for _, n := range indexes {
			path = append(path, step{index: n, isIdx: true})
		}
	}
	if len(path) == 0 || path[0].isIdx {
		return nil, fmt.Errorf("malformed path %q", raw)
	}
	return path, nil
}

func setPath(doc map[string]types.AttributeValue, path []step, v types.AttributeValue) error {
	head := path[0].key
	if len(path) == 1 {
		doc[head] = v
		return nil
	}
	current, ok := doc[head]
	if !ok {
		return fmt.Errorf("attribute %s does not exist", head)
	}
	updated, err := setValue(current, path[1:], v)
	if err != nil {
		return err
	}
	doc[head] = updated
	return nil
}

// setValue returns a copy of current with v written at path.
func setValue(current types.AttributeValue, path []step, v types.AttributeValue) (types.AttributeValue, error) {
	s := path[0]
	if s.isIdx {
		list, ok := current.(*types.AttributeValueMemberL)
		if !ok {
			return nil, fmt.Errorf("index [%d] on a non-list value", s.index)
		}
		elems := append([]types.AttributeValue(nil), list.Value...)
		switch {
		case s.index < len(elems) && len(path) == 1:
			elems[s.index] = v
		case s.index < len(elems):
			updated, err := setValue(elems[s.index], path[1:], v)
			if err != nil {
				return nil, err
			}
			elems[s.index] = updated
		case len(path) == 1:
			elems = append(elems, v)
		default:
			return nil, fmt.Errorf("index [%d] out of range", s.index)
		}
		return &types.AttributeValueMemberL{Value: elems}, nil
	}

	m, ok := current.(*types.AttributeValueMemberM)
	if !ok {
		return nil, fmt.Errorf("field %s on a non-map value", s.key)
	}
	fields := make(map[string]types.AttributeValue, len(m.Value)+1)
	for k, val := range m.Value {
		fields[k] = val
	}
	if len(path) == 1 {
		fields[s.key] = v
	} else {
		child, ok := fields[s.key]
		if !ok {
			return nil, fmt.Errorf("attribute %s does not exist", s.key)
		}
		updated, err := setValue(child, path[1:], v)
		if err != nil {
			return nil, err
		}
		fields[s.key] = updated
	}
	return &types.AttributeValueMemberM{Value: fields}, nil
}

func removePath(doc map[string]types.AttributeValue, path []step) error {
	head := path[0].key
	if len(path) == 1 {
		delete(doc, head)
		return nil
	}
	current, ok := doc[head]
	if !ok {
		return nil
	}
	updated, err := removeValue(current, path[1:])
	if err != nil {
		return err
	}
	doc[head] = updated
	return nil
}

// removeValue returns a copy of current without the value at path. Removing
// something that does not exist is not an error.
func removeValue(current types.AttributeValue, path []step) (types.AttributeValue, error) {
	s := path[0]
	if s.isIdx {
		list, ok := current.(*types.AttributeValueMemberL)
		if !ok {
			return nil, fmt.Errorf("index [%d] on a non-list value", s.index)
		}
		if s.index >= len(list.Value) {
			return current, nil
		}
		elems := append([]types.AttributeValue(nil), list.Value...)
		if len(path) == 1 {
			elems = append(elems[:s.index], elems[s.index+1:]...)
		} else {
			updated, err := removeValue(elems[s.index], path[1:])
			if err != nil {
				return nil, err
			}
			elems[s.index] = updated
		}
		return &types.AttributeValueMemberL{Value: elems}, nil
	}

	m, ok := current.(*types.AttributeValueMemberM)
	if !ok {
		return nil, fmt.Errorf("field %s on a non-map value", s.key)
	}
	fields := make(map[string]types.AttributeValue, len(m.Value))
	for k, val := range m.Value {
		fields[k] = val
	}
	if len(path) == 1 {
		delete(fields, s.key)
	} else if child, ok := fields[s.key]; ok {
		updated, err := removeValue(child, path[1:])
		if err != nil {
			return nil, err
		}
		fields[s.key] = updated
	}
	return &types.AttributeValueMemberM{Value: fields}, nil
}
