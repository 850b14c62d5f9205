package diff

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// PathChange is the decoded before and after value of a changed path. The
// missing side of an added or removed field is nil.
type PathChange struct {
	Old interface{}
	New interface{}
}

// Detector flattens the difference of two documents into human readable
// paths such as "telecom.email" or "endpoints[0].status".
type Detector struct {
	comparer *Comparer
	decoder  *attributevalue.Decoder
}

// NewDetector creates a Detector that ignores the given field names at any
// depth.
func NewDetector(excluded ...string) *Detector {
	return &Detector{
		comparer: New(Exclude(excluded...)),
		decoder: attributevalue.NewDecoder(func(o *attributevalue.DecoderOptions) {
			o.UseNumber = true
		}),
	}
}

// Detect returns the changed paths of two documents. It returns an empty map
// when either document is empty or they are equivalent. Values that cannot be
// decoded are reported in their raw form.
func (d *Detector) Detect(before, after map[string]types.AttributeValue) map[string]PathChange {
	changes := make(map[string]PathChange)
	if len(before) == 0 || len(after) == 0 {
		return changes
	}
	d.flatten("", d.comparer.Compare(before, after), changes)
	return changes
}

// DetectMaps marshals two plain documents field by field and detects their
// changes. A top-level field that cannot be marshalled on either side is
// compared in its plain form and reported whole when it differs.
func (d *Detector) DetectMaps(before, after map[string]interface{}) map[string]PathChange {
	changes := make(map[string]PathChange)
	if len(before) == 0 || len(after) == 0 {
		return changes
	}

	b := make(map[string]types.AttributeValue, len(before))
	a := make(map[string]types.AttributeValue, len(after))
	for _, k := range fieldNames(before, after) {
		if _, skip := d.comparer.excluded[k]; skip {
			continue
		}
		ov, inOld := before[k]
		nv, inNew := after[k]
		oav, oerr := marshalField(ov, inOld)
		nav, nerr := marshalField(nv, inNew)
		if oerr != nil || nerr != nil {
			if !reflect.DeepEqual(ov, nv) {
				changes[k] = PathChange{Old: ov, New: nv}
			}
			continue
		}
		if oav != nil {
			b[k] = oav
		}
		if nav != nil {
			a[k] = nav
		}
	}

	if nested := d.comparer.Compare(b, a); nested != nil {
		d.flatten("", nested, changes)
	}
	return changes
}

func marshalField(v interface{}, present bool) (types.AttributeValue, error) {
	if !present {
		return nil, nil
	}
	return attributevalue.Marshal(v)
}

func fieldNames(maps ...map[string]interface{}) []string {
	seen := make(map[string]struct{})
	var names []string
	for _, m := range maps {
		for k := range m {
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			names = append(names, k)
		}
	}
	sort.Strings(names)
	return names
}

func (d *Detector) flatten(prefix string, ch Change, out map[string]PathChange) {
	switch c := ch.(type) {
	case *NestedChanged:
		if c == nil {
			return
		}
		for _, f := range c.Fields {
			path := f.Name
			if prefix != "" {
				path = prefix + "." + f.Name
			}
			d.flatten(path, f.Change, out)
		}
	case ElementsChanged:
		for _, e := range c.Elements {
			d.flatten(fmt.Sprintf("%s[%d]", prefix, e.Index), e.Change, out)
		}
	case FieldChanged:
		out[prefix] = PathChange{Old: d.decode(c.Old), New: d.decode(c.New)}
	case ListReplaced:
		out[prefix] = PathChange{
			Old: d.decode(&types.AttributeValueMemberL{Value: c.Old}),
			New: d.decode(&types.AttributeValueMemberL{Value: c.New}),
		}
	}
}

func (d *Detector) decode(av types.AttributeValue) interface{} {
	if av == nil {
		return nil
	}
	var v interface{}
	if err := d.decoder.Decode(av, &v); err != nil {
		return av
	}
	return v
}
