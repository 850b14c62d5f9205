package memory

import (
	"fmt"
	"strings"

	"data-migration/pkg/diff"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

var equality = diff.New()

// evaluate checks a condition expression against the current item, which is
// nil when the item does not exist. It understands the forms the migration
// writes: attribute_exists, attribute_not_exists, = and <> joined by AND,
// optionally parenthesised as the expression builder renders them.
func evaluate(expr string, item map[string]types.AttributeValue, names map[string]string, values map[string]types.AttributeValue) (bool, error) {
	if strings.TrimSpace(expr) == "" {
		return true, nil
	}
	for _, term := range splitAnd(expr) {
		ok, err := evaluateTerm(unwrap(term), item, names, values)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func evaluateTerm(term string, item map[string]types.AttributeValue, names map[string]string, values map[string]types.AttributeValue) (bool, error) {
	if arg, ok := function(term, "attribute_not_exists"); ok {
		_, found, err := resolve(item, arg, names)
		return !found, err
	}
	if arg, ok := function(term, "attribute_exists"); ok {
		_, found, err := resolve(item, arg, names)
		return found, err
	}

	for _, op := range []string{"<>", "="} {
		left, right, ok := strings.Cut(term, op)
		if !ok {
			continue
		}
		right = strings.TrimSpace(right)
		want, ok := values[right]
		if !ok {
			return false, fmt.Errorf("undefined value placeholder %s", right)
		}
		got, found, err := resolve(item, strings.TrimSpace(left), names)
		if err != nil {
			return false, err
		}
		equal := found && equality.Equal(got, want)
		if op == "<>" {
			return found && !equal, nil
		}
		return equal, nil
	}
	return false, fmt.Errorf("unsupported condition %q", term)
}

// function returns the argument of a call to name, tolerating a space
// before the parenthesis.
func function(term, name string) (string, bool) {
	if !strings.HasPrefix(term, name) {
		return "", false
	}
	rest := strings.TrimSpace(term[len(name):])
	if !strings.HasPrefix(rest, "(") || !strings.HasSuffix(rest, ")") {
		return "", false
	}
	return strings.TrimSpace(rest[1 : len(rest)-1]), true
}

// resolve reads a dotted attribute path from item.
func resolve(item map[string]types.AttributeValue, path string, names map[string]string) (types.AttributeValue, bool, error) {
	if item == nil {
		return nil, false, nil
	}
	var current types.AttributeValue = &types.AttributeValueMemberM{Value: item}
	for _, segment := range strings.Split(path, ".") {
		name := strings.TrimSpace(segment)
		if strings.HasPrefix(name, "#") {
			resolved, ok := names[name]
			if !ok {
				return nil, false, fmt.Errorf("undefined name placeholder %s", name)
			}
			name = resolved
		}
		m, ok := current.(*types.AttributeValueMemberM)
		if !ok {
			return nil, false, nil
		}
		if current, ok = m.Value[name]; !ok {
			return nil, false, nil
		}
	}
	return current, true, nil
}

// splitAnd splits on AND outside parentheses.
func splitAnd(expr string) []string {
	var terms []string
	depth, start := 0, 0
	upper := strings.ToUpper(expr)
	for i := 0; i < len(expr); i++ {
		switch expr[i] {
		case '(':
			depth++
		case ')':
			depth--
		case ' ':
			if depth == 0 && strings.HasPrefix(upper[i:], " AND ") {
				terms = append(terms, expr[start:i])
				start = i + len(" AND ")
				i += len(" AND ") - 1
			}
		}
	}
	return append(terms, expr[start:])
}

// unwrap removes parentheses enclosing a whole term.
func unwrap(term string) string {
	term = strings.TrimSpace(term)
	for strings.HasPrefix(term, "(") && strings.HasSuffix(term, ")") && enclosed(term) {
		term = strings.TrimSpace(term[1 : len(term)-1])
	}
	return term
}

func enclosed(term string) bool {
	depth := 0
	for i := 0; i < len(term); i++ {
		switch term[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 && i < len(term)-1 {
				return false
			}
		}
	}
	return depth == 0
}
