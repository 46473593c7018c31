// Package jsonx decodes the JSON-shaped text that generative models return.
// Output frequently arrives wrapped in markdown fences, padded with prose, or
// slightly malformed, so decoding is a chain: sanitize, parse, validate
// against a schema, then one bounded repair pass before giving up.
package jsonx

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Schema lists the required top-level sections of a decoded object and, for
// sections that are themselves objects, their required fields. A nil field
// list only checks section presence.
type Schema map[string][]string

// Sanitize strips markdown code fences and any prose around the outermost
// JSON object, returning the substring from the first '{' to the last '}'.
func Sanitize(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```json") {
		s = s[len("```json"):]
	} else if strings.HasPrefix(s, "```") {
		s = s[len("```"):]
	}
	if strings.HasSuffix(s, "```") {
		s = s[:len(s)-len("```")]
	}
	s = strings.TrimSpace(s)

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		s = s[start : end+1]
	}
	return s
}

var (
	missingArraySep = regexp.MustCompile(`\}\s*\{`)
	// Valid JSON strings cannot contain raw newlines, so a quote-newline-quote
	// run is a missing separator between two string elements.
	missingStringSep = regexp.MustCompile(`"(\s*\n\s*)"`)
	trailingComma    = regexp.MustCompile(`,\s*([}\]])`)
	ellipsisEntry    = regexp.MustCompile(`"\.{3,}"|"…"`)
)

var quoteReplacer = strings.NewReplacer(
	"“", `"`, "”", `"`, // curly double quotes
	"‘", "'", "’", "'", // curly single quotes
)

// Repair applies a bounded set of heuristics to near-JSON text: normalize
// quote characters, insert missing separators between adjacent array
// elements, drop literal ellipsis placeholders, strip trailing commas.
func Repair(s string) string {
	s = quoteReplacer.Replace(s)
	s = missingArraySep.ReplaceAllString(s, "}, {")
	s = missingStringSep.ReplaceAllString(s, `", "`)
	s = ellipsisEntry.ReplaceAllString(s, `""`)
	s = strings.ReplaceAll(s, "…", "")
	s = strings.ReplaceAll(s, "...", "")
	s = trailingComma.ReplaceAllString(s, "$1")
	return s
}

// Decode sanitizes raw, parses it into out and checks the schema. If the
// first parse fails it retries once on the repaired text. The error reports
// the last failure in the chain.
func Decode(raw string, out interface{}, schema Schema) error {
	clean := Sanitize(raw)

	err := parse(clean, out, schema)
	if err == nil {
		return nil
	}

	if repairErr := parse(Repair(clean), out, schema); repairErr == nil {
		return nil
	}
	return err
}

func parse(s string, out interface{}, schema Schema) error {
	if err := json.Unmarshal([]byte(s), out); err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	if schema == nil {
		return nil
	}
	return schema.check(s)
}

func (sc Schema) check(s string) error {
	var sections map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &sections); err != nil {
		return fmt.Errorf("parse sections: %w", err)
	}

	for section, fields := range sc {
		raw, ok := sections[section]
		if !ok {
			return fmt.Errorf("missing section %q", section)
		}
		if len(fields) == 0 {
			continue
		}

		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			return fmt.Errorf("section %q is not an object: %w", section, err)
		}
		for _, field := range fields {
			if _, ok := obj[field]; !ok {
				return fmt.Errorf("section %q missing field %q", section, field)
			}
		}
	}
	return nil
}
