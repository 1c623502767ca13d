package api

import (
	"encoding"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"
	"unicode/utf8"
)

// Response safety layer. Every outgoing JSON body passes through Sanitize
// before marshalling so a pathological object graph (cycles, functions,
// huge strings, NaN floats) degrades to placeholder values instead of a
// broken response.

const (
	maxStringLen     = 1000
	maxDepth         = 32
	circularSentinel = "[Circular]"
	truncationMark   = "...[Truncated]"
)

// fallbackBody is the minimal valid error body emitted when serialization
// itself fails.
var fallbackBody = []byte(`{"success":false,"error":{"message":"Response serialization failed","code":"SERIALIZATION_ERROR"}}`)

// SafeMarshal marshals v after sanitizing it. It never returns invalid
// JSON: any marshal error or panic degrades to a minimal error body.
func SafeMarshal(v interface{}) (out []byte) {
	defer func() {
		if r := recover(); r != nil {
			out = fallbackBody
		}
	}()

	b, err := json.Marshal(Sanitize(v))
	if err != nil {
		return fallbackBody
	}
	return b
}

// Sanitize deep-copies v into plain maps, slices and scalars that are
// guaranteed to marshal. Circular references are replaced with a sentinel
// string, unsupported kinds with type-tagged placeholders, oversized
// strings are truncated and time values become RFC 3339 strings.
func Sanitize(v interface{}) interface{} {
	if v == nil {
		return nil
	}
	return sanitizeValue(reflect.ValueOf(v), map[uintptr]struct{}{}, 0)
}

func sanitizeValue(v reflect.Value, ancestors map[uintptr]struct{}, depth int) interface{} {
	if !v.IsValid() {
		return nil
	}
	if depth > maxDepth {
		return "[MaxDepth]"
	}

	switch v.Kind() {
	case reflect.Interface, reflect.Pointer:
		if v.IsNil() {
			return nil
		}
		if v.Kind() == reflect.Pointer {
			ptr := v.Pointer()
			if _, ok := ancestors[ptr]; ok {
				return circularSentinel
			}
			ancestors[ptr] = struct{}{}
			defer delete(ancestors, ptr)
		}
		return sanitizeValue(v.Elem(), ancestors, depth+1)

	case reflect.String:
		return sanitizeString(v.String())

	case reflect.Bool:
		return v.Bool()

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int()

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint()

	case reflect.Float32, reflect.Float64:
		f := v.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		return f

	case reflect.Slice:
		if v.IsNil() {
			return nil
		}
		if v.Type().Elem().Kind() == reflect.Uint8 {
			if out, ok := marshalSelf(v); ok {
				return out
			}
			return fmt.Sprintf("[Buffer %d bytes]", v.Len())
		}
		ptr := v.Pointer()
		if _, ok := ancestors[ptr]; ok {
			return circularSentinel
		}
		ancestors[ptr] = struct{}{}
		defer delete(ancestors, ptr)
		return sanitizeSeq(v, ancestors, depth)

	case reflect.Array:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			if out, ok := marshalSelf(v); ok {
				return out
			}
			return fmt.Sprintf("[Buffer %d bytes]", v.Len())
		}
		return sanitizeSeq(v, ancestors, depth)

	case reflect.Map:
		if v.IsNil() {
			return nil
		}
		ptr := v.Pointer()
		if _, ok := ancestors[ptr]; ok {
			return circularSentinel
		}
		ancestors[ptr] = struct{}{}
		defer delete(ancestors, ptr)

		out := make(map[string]interface{}, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out[keyString(iter.Key())] = sanitizeValue(iter.Value(), ancestors, depth+1)
		}
		return out

	case reflect.Struct:
		if t, ok := v.Interface().(time.Time); ok {
			return t.UTC().Format(time.RFC3339)
		}
		if out, ok := marshalSelf(v); ok {
			return out
		}
		return sanitizeStruct(v, ancestors, depth)

	case reflect.Func, reflect.Chan, reflect.UnsafePointer, reflect.Complex64, reflect.Complex128:
		return "[" + v.Kind().String() + "]"

	default:
		return "[" + v.Kind().String() + "]"
	}
}

func sanitizeSeq(v reflect.Value, ancestors map[uintptr]struct{}, depth int) []interface{} {
	out := make([]interface{}, v.Len())
	for i := 0; i < v.Len(); i++ {
		out[i] = sanitizeValue(v.Index(i), ancestors, depth+1)
	}
	return out
}

func sanitizeStruct(v reflect.Value, ancestors map[uintptr]struct{}, depth int) map[string]interface{} {
	t := v.Type()
	out := make(map[string]interface{}, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		name := field.Name
		omitempty := false
		if tag, ok := field.Tag.Lookup("json"); ok {
			parts := strings.Split(tag, ",")
			if parts[0] == "-" && len(parts) == 1 {
				continue
			}
			if parts[0] != "" {
				name = parts[0]
			}
			for _, opt := range parts[1:] {
				if opt == "omitempty" {
					omitempty = true
				}
			}
		}

		fv := v.Field(i)
		if omitempty && fv.IsZero() {
			continue
		}
		if field.Anonymous && fv.Kind() == reflect.Struct && field.Tag.Get("json") == "" {
			// Embedded struct without an explicit tag inlines its fields,
			// matching encoding/json.
			for k, val := range sanitizeStruct(fv, ancestors, depth+1) {
				if _, exists := out[k]; !exists {
					out[k] = val
				}
			}
			continue
		}
		out[name] = sanitizeValue(fv, ancestors, depth+1)
	}
	return out
}

// marshalSelf honors a value's own JSON or text marshaller, so types like
// uuid.UUID render as their canonical string form instead of falling into
// the buffer or struct branches.
func marshalSelf(v reflect.Value) (interface{}, bool) {
	if !v.CanInterface() {
		return nil, false
	}
	switch m := v.Interface().(type) {
	case json.Marshaler:
		b, err := m.MarshalJSON()
		if err != nil {
			return nil, false
		}
		var out interface{}
		if json.Unmarshal(b, &out) != nil {
			return nil, false
		}
		if s, ok := out.(string); ok {
			return sanitizeString(s), true
		}
		return out, true
	case encoding.TextMarshaler:
		b, err := m.MarshalText()
		if err != nil {
			return nil, false
		}
		return sanitizeString(string(b)), true
	}
	return nil, false
}

func sanitizeString(s string) string {
	if len(s) <= maxStringLen {
		return s
	}
	// Never split a multi-byte rune at the cut point.
	cut := maxStringLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + truncationMark
}

func keyString(k reflect.Value) string {
	switch k.Kind() {
	case reflect.String:
		return k.String()
	default:
		return fmt.Sprintf("%v", k.Interface())
	}
}
