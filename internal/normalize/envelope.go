package normalize

import (
	"errors"
	"fmt"
)

// RawRecord is a single remote resource object as decoded from JSON.
type RawRecord map[string]any

// Envelope is the canonical result of unwrapping a remote list response.
// Total is nil when the response did not carry a usable count.
type Envelope struct {
	Records []RawRecord
	Total   *int
}

var ErrUnknownShape = errors.New("normalize: unrecognized response shape")

// envelopeExtractor tries to unwrap one known response shape.
// Extractors are tried in order; the first match wins.
type envelopeExtractor struct {
	name string
	fn   func(payload any) (Envelope, bool)
}

// The remote platform answers list calls with one of these shapes:
// a bare array, {resource_data:[...], total}, {data:[...], total|count},
// or {items:[...], total}. Order matters: resource_data before data.
var envelopeExtractors = []envelopeExtractor{
	{name: "bare_array", fn: extractBareArray},
	{name: "resource_data", fn: keyedExtractor("resource_data", "total")},
	{name: "data", fn: keyedExtractor("data", "total", "count")},
	{name: "items", fn: keyedExtractor("items", "total")},
}

// Normalize unwraps a decoded remote list response into an Envelope.
// Unknown shapes yield an empty envelope and ErrUnknownShape; callers
// log the diagnostic and continue, they never abort a batch on it.
func Normalize(payload any) (Envelope, error) {
	if payload == nil {
		return Envelope{Records: []RawRecord{}}, fmt.Errorf("%w: nil payload", ErrUnknownShape)
	}
	for _, ex := range envelopeExtractors {
		if env, ok := ex.fn(payload); ok {
			return env, nil
		}
	}
	return Envelope{Records: []RawRecord{}}, fmt.Errorf("%w: no array field among resource_data, data, items", ErrUnknownShape)
}

func extractBareArray(payload any) (Envelope, bool) {
	arr, ok := payload.([]any)
	if !ok {
		return Envelope{}, false
	}
	return Envelope{Records: toRecords(arr)}, true
}

func keyedExtractor(field string, countKeys ...string) func(any) (Envelope, bool) {
	return func(payload any) (Envelope, bool) {
		obj, ok := payload.(map[string]any)
		if !ok {
			return Envelope{}, false
		}
		arr, ok := obj[field].([]any)
		if !ok {
			return Envelope{}, false
		}
		env := Envelope{Records: toRecords(arr)}
		for _, k := range countKeys {
			if n, ok := toInt(obj[k]); ok {
				env.Total = &n
				break
			}
		}
		return env, true
	}
}

func toRecords(arr []any) []RawRecord {
	out := make([]RawRecord, 0, len(arr))
	for _, v := range arr {
		if m, ok := v.(map[string]any); ok {
			out = append(out, RawRecord(m))
		}
	}
	return out
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case int64:
		return int(n), true
	default:
		return 0, false
	}
}
