// Package ai implements the LLM-backed resume scorer and entity extractor,
// including defensive parsing of model output.
package ai

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// The repair chain recovers usable JSON from malformed model responses.
// Stages run in order until one produces a parseable document:
// strict parse, fence-stripped parse, brace-span extraction with
// truncation repair, then field-level regex rescue in the caller.
// Each stage is a plain function so it can be tested on its own.

// StripMarkdownFences removes ```json / ``` markers wrapping a response.
func StripMarkdownFences(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, "```json"); i != -1 {
		s = s[i+len("```json"):]
		if j := strings.Index(s, "```"); j != -1 {
			s = s[:j]
		}
		return strings.TrimSpace(s)
	}
	if i := strings.Index(s, "```"); i != -1 {
		s = s[i+len("```"):]
		if j := strings.Index(s, "```"); j != -1 {
			s = s[:j]
		}
		return strings.TrimSpace(s)
	}
	return s
}

// ExtractJSONObject returns the outermost balanced {...} span in s.
// A truncated document is repaired by trimming back to the last position
// where the braces balanced. Returns "" when no object is present.
func ExtractJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start == -1 {
		return ""
	}
	depth := 0
	lastBalanced := -1
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
			if depth > 0 {
				lastBalanced = i
			}
		}
	}
	// Truncated mid-object: trim to the last closed inner brace.
	if lastBalanced > start {
		return s[start : lastBalanced+1]
	}
	return ""
}

// ParseJSONObject runs the repair chain and unmarshals into v.
// Returns false when no stage yields a parseable document.
func ParseJSONObject(raw string, v any) bool {
	for _, candidate := range []string{
		raw,
		StripMarkdownFences(raw),
		ExtractJSONObject(StripMarkdownFences(raw)),
	} {
		if candidate == "" {
			continue
		}
		if json.Unmarshal([]byte(candidate), v) == nil {
			return true
		}
	}
	return false
}

// Regex rescue patterns for scoring responses. Two variants for the
// overall score because models drift on key formatting.
var (
	overallScoreRe     = regexp.MustCompile(`"overall_score"\s*:\s*(\d+\.?\d*)`)
	overallScoreAltRe  = regexp.MustCompile(`(?i)overall[_\s]*score[:\s]*(\d+\.?\d*)`)
	criterionTupleRe   = regexp.MustCompile(`"criterion_name"\s*:\s*"([^"]+)"\s*,\s*"score"\s*:\s*(\d+\.?\d*)`)
	justificationRe    = regexp.MustCompile(`"justification"\s*:\s*"([^"]+)"`)
	justificationAltRe = regexp.MustCompile(`"justification"\s*:\s*([^,}]+)`)
)

// RescueOverallScore pulls an overall score out of unparseable text.
func RescueOverallScore(s string) (float64, bool) {
	m := overallScoreRe.FindStringSubmatch(s)
	if m == nil {
		m = overallScoreAltRe.FindStringSubmatch(s)
	}
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// RescueCriterionScores pulls repeated criterion/score tuples out of
// unparseable text, preserving their order of appearance.
func RescueCriterionScores(s string) []RescuedCriterion {
	var out []RescuedCriterion
	for _, m := range criterionTupleRe.FindAllStringSubmatch(s, -1) {
		v, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			continue
		}
		out = append(out, RescuedCriterion{Name: m[1], Score: v})
	}
	return out
}

// RescuedCriterion is one criterion/score pair recovered by regex.
type RescuedCriterion struct {
	Name  string
	Score float64
}

// RescueJustification pulls the justification text out of unparseable text.
func RescueJustification(s string) (string, bool) {
	if m := justificationRe.FindStringSubmatch(s); m != nil {
		return m[1], true
	}
	if m := justificationAltRe.FindStringSubmatch(s); m != nil {
		return strings.Trim(strings.TrimSpace(m[1]), `"`), true
	}
	return "", false
}

// ClampScore bounds a score to [0,10].
func ClampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 10 {
		return 10
	}
	return v
}
