package jsonx

import (
	"testing"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			"json code fence",
			"```json\n{\"a\": 1}\n```",
			`{"a": 1}`,
		},
		{
			"bare code fence",
			"```\n{\"a\": 1}\n```",
			`{"a": 1}`,
		},
		{
			"surrounding prose",
			"Here is the analysis you asked for:\n{\"a\": 1}\nLet me know if you need more.",
			`{"a": 1}`,
		},
		{
			"clean input unchanged",
			`{"a": 1}`,
			`{"a": 1}`,
		},
		{
			"no braces left alone",
			"no json here",
			"no json here",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sanitize(tt.in); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestDecodeRepairChain(t *testing.T) {
	type payload struct {
		Items []string `json:"items"`
		Note  string   `json:"note"`
	}

	tests := []struct {
		name string
		in   string
	}{
		{
			"trailing comma",
			`{"items": ["a", "b",], "note": "x",}`,
		},
		{
			"curly quotes",
			`{“items”: [“a”, “b”], “note”: “x”}`,
		},
		{
			"missing string separator",
			"{\"items\": [\"a\"\n\"b\"], \"note\": \"x\"}",
		},
		{
			"ellipsis placeholder entry",
			`{"items": ["a", "…", "b"], "note": "x"}`,
		},
		{
			"fenced with trailing comma",
			"```json\n{\"items\": [\"a\",], \"note\": \"x\"}\n```",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out payload
			if err := Decode(tt.in, &out, nil); err != nil {
				t.Fatalf("Decode(%q): %v", tt.in, err)
			}
			if len(out.Items) == 0 {
				t.Errorf("Decode(%q) produced no items", tt.in)
			}
		})
	}
}

func TestDecodeMissingObjectSeparator(t *testing.T) {
	in := `{"items": [{"a": 1} {"a": 2}]}`
	var out map[string][]map[string]int
	if err := Decode(in, &out, nil); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(out["items"]) != 2 {
		t.Errorf("items = %d, want 2", len(out["items"]))
	}
}

func TestDecodeSchemaValidation(t *testing.T) {
	schema := Schema{
		"subject": {"text", "is_valid"},
		"content": nil,
	}

	var out map[string]interface{}

	good := `{"subject": {"text": "hi", "is_valid": true}, "content": {}}`
	if err := Decode(good, &out, schema); err != nil {
		t.Fatalf("valid payload rejected: %v", err)
	}

	missingSection := `{"subject": {"text": "hi", "is_valid": true}}`
	if err := Decode(missingSection, &out, schema); err == nil {
		t.Error("payload missing a section was accepted")
	}

	missingField := `{"subject": {"text": "hi"}, "content": {}}`
	if err := Decode(missingField, &out, schema); err == nil {
		t.Error("payload missing a required field was accepted")
	}

	wrongShape := `{"subject": "not an object", "content": {}}`
	if err := Decode(wrongShape, &out, schema); err == nil {
		t.Error("non-object section was accepted")
	}
}

func TestDecodeUnrepairable(t *testing.T) {
	var out map[string]interface{}
	if err := Decode("this is not json at all", &out, nil); err == nil {
		t.Error("expected error for unrepairable input")
	}
}
