package normalize

import "testing"

func TestFirstString_OrderedFallback(t *testing.T) {
	r := RawRecord{
		"agent_name": "Support Bot",
		"agent":      map[string]any{"name": "Nested Bot"},
	}

	got := FirstString(r, Key("missing"), Key("agent_name"), Path("agent", "name"))
	if got != "Support Bot" {
		t.Fatalf("expected first hit to win, got %q", got)
	}

	got = FirstString(r, Key("missing"), Path("agent", "name"))
	if got != "Nested Bot" {
		t.Fatalf("expected nested fallback, got %q", got)
	}

	if got := FirstString(r, Key("missing"), Path("nope", "name")); got != "" {
		t.Fatalf("expected empty on exhausted chain, got %q", got)
	}
}

func TestFirstElem_UnwrapsSingleElementArrays(t *testing.T) {
	r := RawRecord{"numbers": []any{map[string]any{"number": "+15550001111"}}}
	got := FirstString(r, Key("number"), FirstElem("numbers", "number"))
	if got != "+15550001111" {
		t.Fatalf("expected unwrapped array element, got %q", got)
	}
}

func TestIDKey_CoercesNumericIdentifiers(t *testing.T) {
	r := RawRecord{"agent_id": float64(314)}
	if got := FirstString(r, IDKey("agent_id")); got != "314" {
		t.Fatalf("expected numeric id coerced to string, got %q", got)
	}
}

func TestFirstNumber(t *testing.T) {
	r := RawRecord{"cost": "1.25", "price": float64(2)}
	if n, ok := FirstNumber(r, "price", "cost"); !ok || n != 2 {
		t.Fatalf("expected 2, got (%v, %v)", n, ok)
	}
	if n, ok := FirstNumber(r, "cost"); !ok || n != 1.25 {
		t.Fatalf("expected string float parsed, got (%v, %v)", n, ok)
	}
	if _, ok := FirstNumber(r, "missing"); ok {
		t.Fatalf("expected miss on absent keys")
	}
}

func TestNormalizePhone(t *testing.T) {
	p := NormalizePhone("+1 (555) 010-4477")
	if p.LastTen != "5550104477" {
		t.Fatalf("expected last-10 form, got %q", p.LastTen)
	}
	// Unparseable numbers degrade to digit stripping.
	p = NormalizePhone("ext. 104477")
	if p.E164 != "" || p.LastTen != "104477" {
		t.Fatalf("expected digit fallback, got %+v", p)
	}
	if LastTenDigits("+445550104477") != "5550104477" {
		t.Fatalf("LastTenDigits mismatch")
	}
}
