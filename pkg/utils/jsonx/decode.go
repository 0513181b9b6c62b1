// Package jsonx decodes structured data out of LLM responses. Models
// frequently wrap JSON in fenced code blocks or prepend prose, and no
// schema is enforced upstream, so every caller must treat the payload as
// untrusted text.
package jsonx

import (
	"encoding/json"
	"strings"
)

// Result is the outcome of a tolerant decode. Exactly one of OK or
// Malformed holds: when OK is false, Raw carries the original text so the
// caller can fall back on it.
type Result struct {
	OK  bool
	Raw string
	err error
}

// Err returns the underlying unmarshal error for a malformed result.
func (r *Result) Err() error {
	return r.err
}

// Decode extracts JSON from raw and unmarshals it into out. Fenced code
// blocks (```json ... ``` or ``` ... ```) are stripped before parsing.
// Decode never returns an error: a malformed payload yields a Result with
// OK=false and the raw text preserved.
func Decode(raw string, out any) *Result {
	text := Extract(raw)

	if err := json.Unmarshal([]byte(text), out); err != nil {
		return &Result{OK: false, Raw: raw, err: err}
	}

	return &Result{OK: true, Raw: raw}
}

// Extract strips a fenced code block wrapper from raw, if present, and
// returns the inner text. Text without a fence is returned trimmed.
func Extract(raw string) string {
	text := strings.TrimSpace(raw)

	if idx := strings.Index(text, "```json"); idx >= 0 {
		rest := text[idx+len("```json"):]
		if end := strings.Index(rest, "```"); end >= 0 {
			return strings.TrimSpace(rest[:end])
		}
		return strings.TrimSpace(rest)
	}

	if idx := strings.Index(text, "```"); idx >= 0 {
		rest := text[idx+3:]
		if end := strings.Index(rest, "```"); end >= 0 {
			return strings.TrimSpace(rest[:end])
		}
		return strings.TrimSpace(rest)
	}

	return text
}
