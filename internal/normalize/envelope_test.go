package normalize

import (
	"encoding/json"
	"errors"
	"testing"
)

func decode(t *testing.T, s string) any {
	t.Helper()
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		t.Fatalf("bad fixture: %v", err)
	}
	return v
}

func TestNormalize_AllKnownShapesYieldSameRecords(t *testing.T) {
	shapes := map[string]string{
		"bare_array":    `[{"id":1},{"id":2}]`,
		"resource_data": `{"resource_data":[{"id":1},{"id":2}],"total":2}`,
		"data_total":    `{"data":[{"id":1},{"id":2}],"total":2}`,
		"data_count":    `{"data":[{"id":1},{"id":2}],"count":2}`,
		"items":         `{"items":[{"id":1},{"id":2}],"total":2}`,
	}
	for name, fixture := range shapes {
		env, err := Normalize(decode(t, fixture))
		if err != nil {
			t.Fatalf("%s: unexpected err: %v", name, err)
		}
		if len(env.Records) != 2 {
			t.Fatalf("%s: expected 2 records, got %d", name, len(env.Records))
		}
		if ExtractID(env.Records[0]["id"]) != "1" {
			t.Fatalf("%s: wrong first record: %+v", name, env.Records[0])
		}
	}
}

func TestNormalize_TotalCount(t *testing.T) {
	env, err := Normalize(decode(t, `{"data":[{"id":1}],"total":41}`))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if env.Total == nil || *env.Total != 41 {
		t.Fatalf("expected total 41, got %v", env.Total)
	}

	env, err = Normalize(decode(t, `[{"id":1}]`))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if env.Total != nil {
		t.Fatalf("bare array must not invent a total")
	}
}

func TestNormalize_UnknownShapeIsDiagnosticNotPanic(t *testing.T) {
	env, err := Normalize(decode(t, `{"weird":{"nested":true}}`))
	if !errors.Is(err, ErrUnknownShape) {
		t.Fatalf("expected ErrUnknownShape, got %v", err)
	}
	if env.Records == nil || len(env.Records) != 0 {
		t.Fatalf("expected empty record list, got %v", env.Records)
	}

	if _, err := Normalize(nil); !errors.Is(err, ErrUnknownShape) {
		t.Fatalf("nil payload must surface a diagnostic")
	}
}

func TestNormalize_SkipsNonObjectElements(t *testing.T) {
	env, err := Normalize(decode(t, `{"data":[{"id":1},"junk",3],"total":3}`))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(env.Records) != 1 {
		t.Fatalf("expected 1 object record, got %d", len(env.Records))
	}
}
