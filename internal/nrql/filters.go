package nrql

import (
	"fmt"
	"strings"

	"github.com/valyala/fastjson"
)

// Filter is a single field equality filter.
type Filter struct {
	Field string
	Value string
}

// Filters is an insertion-ordered set of equality filters. Order matters
// because conditions are emitted in the order the caller supplied them.
type Filters []Filter

// Set adds or replaces the value for field. A replaced field keeps its
// original position.
func (f *Filters) Set(field, value string) {
	for i := range *f {
		if (*f)[i].Field == field {
			(*f)[i].Value = value
			return
		}
	}
	*f = append(*f, Filter{Field: field, Value: value})
}

// Get returns the value for field.
func (f Filters) Get(field string) (string, bool) {
	for _, flt := range f {
		if flt.Field == field {
			return flt.Value, true
		}
	}
	return "", false
}

// UnmarshalJSON decodes a JSON object, keeping key order. String values are
// taken as-is; numbers and booleans use their JSON text.
func (f *Filters) UnmarshalJSON(data []byte) error {
	var p fastjson.Parser
	v, err := p.ParseBytes(data)
	if err != nil {
		return fmt.Errorf("filters: %w", err)
	}

	if v.Type() == fastjson.TypeNull {
		*f = nil
		return nil
	}

	obj, err := v.Object()
	if err != nil {
		return fmt.Errorf("filters must be an object of field/value pairs")
	}

	var out Filters
	var visitErr error
	obj.Visit(func(key []byte, val *fastjson.Value) {
		if visitErr != nil {
			return
		}
		var s string
		switch val.Type() {
		case fastjson.TypeString:
			s = string(val.GetStringBytes())
		case fastjson.TypeNumber, fastjson.TypeTrue, fastjson.TypeFalse:
			s = val.String()
		default:
			visitErr = fmt.Errorf("filter %q: value must be a string, got %s", key, val.Type())
			return
		}
		out.Set(string(key), s)
	})
	if visitErr != nil {
		return visitErr
	}

	*f = out
	return nil
}

// MarshalJSON encodes the filters as a JSON object in insertion order.
func (f Filters) MarshalJSON() ([]byte, error) {
	var a fastjson.Arena
	obj := a.NewObject()
	for _, flt := range f {
		obj.Set(flt.Field, a.NewString(flt.Value))
	}
	return obj.MarshalTo(nil), nil
}

// ParseFilterArgs parses "field=value" arguments in order.
func ParseFilterArgs(args []string) (Filters, error) {
	var out Filters
	for _, arg := range args {
		field, value, ok := strings.Cut(arg, "=")
		field = strings.TrimSpace(field)
		if !ok || field == "" {
			return nil, fmt.Errorf("invalid filter %q (expected field=value)", arg)
		}
		out.Set(field, value)
	}
	return out, nil
}
