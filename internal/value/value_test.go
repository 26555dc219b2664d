package value

import (
	"encoding/json"
	"testing"
)

func TestParse(t *testing.T) {
	cases := []struct {
		text string
		kind Kind
	}{
		{"null", KindNull},
		{"true", KindBoolean},
		{"false", KindBoolean},
		{"42", KindInteger},
		{"-7", KindInteger},
		{"3.14", KindFloat},
		{`"hello"`, KindString},
	}

	for _, c := range cases {
		v, err := Parse(c.text)
		if err != nil {
			t.Fatalf("Parse(%q): %v", c.text, err)
		}
		if v.Kind != c.kind {
			t.Errorf("Parse(%q) kind = %v, want %v", c.text, v.Kind, c.kind)
		}
	}
}

func TestParseInvalid(t *testing.T) {
	_, err := Parse("not-a-value")
	if err == nil {
		t.Fatal("expected error")
	}
	if _, ok := err.(*InvalidValueError); !ok {
		t.Fatalf("got %T, want *InvalidValueError", err)
	}
}

func TestRenderForWALRoundTrip(t *testing.T) {
	v := String("alice")
	rendered := v.RenderForWAL()
	if rendered != `"alice"` {
		t.Fatalf("RenderForWAL() = %q", rendered)
	}

	parsed, err := Parse(rendered)
	if err != nil {
		t.Fatal(err)
	}
	if parsed.Kind != KindString || parsed.Str != "alice" {
		t.Fatalf("round trip mismatch: %+v", parsed)
	}
}

func TestMarshalJSONUntagged(t *testing.T) {
	v := Integer(5)
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "5" {
		t.Fatalf("MarshalJSON = %s, want 5", b)
	}

	sv := String("hi")
	b, err = json.Marshal(sv)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `"hi"` {
		t.Fatalf("MarshalJSON = %s, want \"hi\"", b)
	}
}
