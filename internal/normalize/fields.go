package normalize

import "strconv"

// StringExtractor attempts to pull one field variant out of a raw
// record. Per-field extraction is an explicit ordered list of these,
// tried until one returns ok, so the fallback contract is data rather
// than scattered branching.
type StringExtractor func(r RawRecord) (string, bool)

// FirstString runs a chain of extractors and returns the first hit.
func FirstString(r RawRecord, chain ...StringExtractor) string {
	for _, ex := range chain {
		if s, ok := ex(r); ok && s != "" {
			return s
		}
	}
	return ""
}

// Key extracts a top-level field coerced to its display string.
func Key(name string) StringExtractor {
	return func(r RawRecord) (string, bool) {
		v, ok := r[name]
		if !ok || v == nil {
			return "", false
		}
		s := Display(v)
		return s, s != ""
	}
}

// IDKey extracts a top-level field as an opaque identifier string.
func IDKey(name string) StringExtractor {
	return func(r RawRecord) (string, bool) {
		v, ok := r[name]
		if !ok || v == nil {
			return "", false
		}
		s := ExtractID(v)
		return s, s != ""
	}
}

// Path extracts a nested field, walking object keys in order.
func Path(names ...string) StringExtractor {
	return func(r RawRecord) (string, bool) {
		var cur any = map[string]any(r)
		for _, name := range names {
			obj, ok := cur.(map[string]any)
			if !ok {
				return "", false
			}
			cur, ok = obj[name]
			if !ok || cur == nil {
				return "", false
			}
		}
		s := Display(cur)
		return s, s != ""
	}
}

// FirstElem extracts a sub-field of the first element of an array
// field. Some remote payloads wrap a single object in an array.
func FirstElem(name, sub string) StringExtractor {
	return func(r RawRecord) (string, bool) {
		arr, ok := r[name].([]any)
		if !ok || len(arr) == 0 {
			return "", false
		}
		obj, ok := arr[0].(map[string]any)
		if !ok {
			return "", false
		}
		v, ok := obj[sub]
		if !ok || v == nil {
			return "", false
		}
		s := Display(v)
		return s, s != ""
	}
}

// FirstNumber returns the first numeric value among the named keys.
func FirstNumber(r RawRecord, keys ...string) (float64, bool) {
	for _, k := range keys {
		switch n := r[k].(type) {
		case float64:
			return n, true
		case int:
			return float64(n), true
		case int64:
			return float64(n), true
		case string:
			if f, err := strconv.ParseFloat(n, 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

// Display coerces an arbitrary JSON value into a display string.
func Display(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	case bool:
		return strconv.FormatBool(s)
	default:
		return ""
	}
}
