package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"time"

	"github.com/gowebpki/jcs"
)

// Sanitize returns a JSON-safe copy of v. Non-finite floats become nil, map
// keys are stringified, and values the encoder cannot represent are replaced
// by their string form.
func Sanitize(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case string, bool, json.Number,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return x
	case float64:
		return finite(x)
	case float32:
		return finite(float64(x))
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	case error:
		return x.Error()
	case Evidence:
		return sanitizeMap(x)
	case map[string]any:
		return sanitizeMap(x)
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = Sanitize(item)
		}
		return out
	}
	return sanitizeReflect(reflect.ValueOf(v))
}

func finite(f float64) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return f
}

func sanitizeMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = Sanitize(v)
	}
	return out
}

func sanitizeReflect(rv reflect.Value) any {
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return Sanitize(rv.Elem().Interface())
	case reflect.Map:
		if rv.IsNil() {
			return nil
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[fmt.Sprint(iter.Key().Interface())] = Sanitize(iter.Value().Interface())
		}
		return out
	case reflect.Slice:
		if rv.IsNil() {
			return []any{}
		}
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return rv.Interface()
		}
		fallthrough
	case reflect.Array:
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out[i] = Sanitize(rv.Index(i).Interface())
		}
		return out
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint()
	case reflect.Float32, reflect.Float64:
		return finite(rv.Float())
	case reflect.Struct:
		return roundTrip(rv.Interface())
	}
	return fmt.Sprint(rv.Interface())
}

// roundTrip converts a struct into its generic JSON form so json tags are
// honored before sanitizing the result.
func roundTrip(v any) any {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return string(data)
	}
	return Sanitize(generic)
}

// Sanitized returns a copy of the result whose evidence and stats are
// JSON-safe. Section and check order is preserved.
func (r *ReviewResult) Sanitized() *ReviewResult {
	out := &ReviewResult{
		DACFile:         r.DACFile,
		GeneratedAt:     r.GeneratedAt,
		OverallStatus:   r.OverallStatus,
		Sections:        make([]SectionResult, len(r.Sections)),
		Recommendations: append([]string{}, r.Recommendations...),
		Stats:           sanitizeMap(r.Stats),
	}
	if out.Stats == nil {
		out.Stats = map[string]any{}
	}
	for i, s := range r.Sections {
		checks := make([]CheckResult, len(s.Checks))
		for j, c := range s.Checks {
			c.Evidence = Evidence(sanitizeMap(c.Evidence))
			if c.Evidence == nil {
				c.Evidence = Evidence{}
			}
			checks[j] = c
		}
		out.Sections[i] = SectionResult{SectionID: s.SectionID, Name: s.Name, Status: s.Status, Checks: checks}
	}
	return out
}

// Canonical renders v as RFC 8785 canonical JSON: sorted keys, no
// insignificant whitespace, normalized numbers.
func Canonical(v any) ([]byte, error) {
	if r, ok := v.(*ReviewResult); ok {
		v = r.Sanitized()
	} else {
		v = Sanitize(v)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	out, err := jcs.Transform(data)
	if err != nil {
		return nil, fmt.Errorf("canonicalize: %w", err)
	}
	return out, nil
}
