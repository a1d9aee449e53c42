// Package diff builds partial-update payloads from the fields a user actually
// changed. Rules map form fields to backend keys; a rule fires only when one
// of its source fields is dirty, and a dirty chain parent forces every
// descendant backend key to an explicit null.
package diff

import (
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"
)

// Values are the current form values keyed by form field.
type Values map[string]string

// Payload maps backend keys to values. A nil value encodes as JSON null.
type Payload map[string]any

// Keys returns the payload keys in sorted order.
func (p Payload) Keys() []string {
	return slices.Sorted(maps.Keys(p))
}

// DirtySet holds the form fields whose value differs from the value present
// when the form was initialized.
type DirtySet map[string]struct{}

// NewDirtySet returns a set holding keys.
func NewDirtySet(keys ...string) DirtySet {
	d := make(DirtySet, len(keys))
	for _, k := range keys {
		d.Add(k)
	}
	return d
}

func (d DirtySet) Add(key string) { d[key] = struct{}{} }

func (d DirtySet) Has(key string) bool {
	_, ok := d[key]
	return ok
}

// Keys returns the dirty fields in sorted order.
func (d DirtySet) Keys() []string {
	return slices.Sorted(maps.Keys(d))
}

// Number is the result of a total string → number conversion.
type Number struct {
	Value float64
	Valid bool
}

// ToNumber converts s. Blank, malformed and non-finite input yield an
// invalid Number.
func ToNumber(s string) Number {
	s = strings.TrimSpace(s)
	if s == "" {
		return Number{}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return Number{}
	}
	return Number{Value: f, Valid: true}
}

// Any returns the payload representation: nil when invalid, an int64 for
// integral values and a float64 otherwise.
func (n Number) Any() any {
	if !n.Valid {
		return nil
	}
	if math.Abs(n.Value) < 1<<53 && n.Value == math.Trunc(n.Value) {
		return int64(n.Value)
	}
	return n.Value
}

// SplitFullName splits on whitespace and takes the last token as the surname.
// A single token is the given name with an empty surname.
func SplitFullName(full string) (given, surname string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	}
	return strings.Join(parts[:len(parts)-1], " "), parts[len(parts)-1]
}

// Rule maps one or more source fields to backend keys.
type Rule struct {
	Sources   []string
	Nullifies []string
	apply     func(v Values, p Payload)
}

// Nullifying returns a copy of r that sets keys to null whenever r fires.
func (r Rule) Nullifying(keys ...string) Rule {
	r.Nullifies = append(slices.Clone(r.Nullifies), keys...)
	return r
}

// Direct copies field verbatim to key.
func Direct(field, key string) Rule {
	return Rule{
		Sources: []string{field},
		apply: func(v Values, p Payload) {
			p[key] = v[field]
		},
	}
}

// Nullable copies field to key, sending null when the field is blank.
func Nullable(field, key string) Rule {
	return Rule{
		Sources: []string{field},
		apply: func(v Values, p Payload) {
			if strings.TrimSpace(v[field]) == "" {
				p[key] = nil
				return
			}
			p[key] = v[field]
		},
	}
}

// Numeric converts field to a number, or null when conversion fails.
func Numeric(field, key string) Rule {
	return Rule{
		Sources: []string{field},
		apply: func(v Values, p Payload) {
			p[key] = ToNumber(v[field]).Any()
		},
	}
}

// FullName splits field into given name and surname keys.
func FullName(field, givenKey, surnameKey string) Rule {
	return Rule{
		Sources: []string{field},
		apply: func(v Values, p Payload) {
			p[givenKey], p[surnameKey] = SplitFullName(v[field])
		},
	}
}

// Choice computes key from an enum field and its free-text elaboration: when
// the enum holds other and the elaboration is present the elaboration wins.
func Choice(field, elaboration, other, key string) Rule {
	return Rule{
		Sources: []string{field, elaboration},
		apply: func(v Values, p Payload) {
			p[key] = ChoiceValue(v[field], v[elaboration], other)
		},
	}
}

// ChoiceValue is the value Choice writes.
func ChoiceValue(value, elaboration, other string) string {
	if value == other && strings.TrimSpace(elaboration) != "" {
		return strings.TrimSpace(elaboration)
	}
	return value
}

// Computed writes fn(values) to key when any source is dirty.
func Computed(key string, fn func(Values) any, sources ...string) Rule {
	return Rule{
		Sources: sources,
		apply: func(v Values, p Payload) {
			p[key] = fn(v)
		},
	}
}

// Rules is an ordered rule set.
type Rules []Rule

// BuildPartialPayload returns only the keys implied by dirty. Nulls required
// by dirty chain parents are applied last and override any value a dirty
// descendant produced.
func (rs Rules) BuildPartialPayload(values Values, dirty DirtySet) Payload {
	out := Payload{}
	var nulls []string
	for _, r := range rs {
		if !r.fires(dirty) {
			continue
		}
		r.apply(values, out)
		nulls = append(nulls, r.Nullifies...)
	}
	for _, k := range nulls {
		out[k] = nil
	}
	return out
}

func (r Rule) fires(dirty DirtySet) bool {
	for _, s := range r.Sources {
		if dirty.Has(s) {
			return true
		}
	}
	return false
}

// Overridden lists dirty fields whose non-null value BuildPartialPayload
// replaced with a chain parent's null. Those values were never sent.
func (rs Rules) Overridden(values Values, dirty DirtySet) []string {
	nulls := map[string]bool{}
	for _, r := range rs {
		if r.fires(dirty) {
			for _, k := range r.Nullifies {
				nulls[k] = true
			}
		}
	}
	var out []string
	for _, r := range rs {
		if !r.fires(dirty) {
			continue
		}
		p := Payload{}
		r.apply(values, p)
		lost := false
		for k, v := range p {
			if nulls[k] && v != nil && v != "" {
				lost = true
			}
		}
		if !lost {
			continue
		}
		for _, s := range r.Sources {
			if dirty.Has(s) && !slices.Contains(out, s) {
				out = append(out, s)
			}
		}
	}
	return out
}
