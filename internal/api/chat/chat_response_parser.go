package chat

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/havenai/go-estate-assistant/internal/types"
)

// toolOutputMarker prefixes transcript lines that echo raw tool output.
// Such lines are internal plumbing and must never reach the user.
const toolOutputMarker = "TOOL_RESULT"

var (
	analysisTagRe = regexp.MustCompile(`(?s)<analysis>(.*?)</analysis>`)
	jsonFenceRe   = regexp.MustCompile("(?s)```json.*?```")
	// Flat bracketed runs. Property arrays hold objects, not nested
	// arrays, so excluding inner brackets is enough to delimit them.
	flatArrayRe      = regexp.MustCompile(`(?s)\[[^\[\]]*\]`)
	resultsKeyRe     = regexp.MustCompile(`(?s)"results"\s*:\s*(\[[^\[\]]*\])`)
	resultsWrapperRe = regexp.MustCompile(`(?s)\{\s*"results"\s*:\s*\[[^\[\]]*\]\s*\}`)
)

// ExtractAnalysis splits a raw model reply into the structured intent from
// the trailing <analysis> tag, the user-facing text with all machine
// residue removed, and any property rows the model embedded as JSON.
// A missing or malformed tag yields the default General intent rather
// than an error: parsing failures must never break the conversation.
func ExtractAnalysis(raw string) (types.Intent, string, []types.PropertyResultRow) {
	intent := parseAnalysisTag(raw)
	properties := extractPropertyRows(raw)
	cleaned := cleanResponse(raw)
	return intent, cleaned, properties
}

func parseAnalysisTag(raw string) types.Intent {
	m := analysisTagRe.FindStringSubmatch(raw)
	if m == nil {
		return types.DefaultIntent()
	}

	var parsed any
	if err := json.Unmarshal([]byte(strings.TrimSpace(m[1])), &parsed); err != nil {
		return types.DefaultIntent()
	}
	// Some models wrap the object in a single-element list.
	if list, ok := parsed.([]any); ok {
		if len(list) == 0 {
			return types.DefaultIntent()
		}
		parsed = list[0]
	}
	obj, ok := parsed.(map[string]any)
	if !ok {
		return types.DefaultIntent()
	}

	intent := types.Intent{Category: snapCategory(obj["category"])}
	if loc, ok := obj["location"].(string); ok && !isNullMarker(loc) {
		intent.Location = loc
	}
	if budget, ok := obj["budget"]; ok && budget != nil {
		if s, isStr := budget.(string); !isStr || !isNullMarker(s) {
			intent.Budget = budget
		}
	}
	if bhk, ok := asBHK(obj["bhk"]); ok {
		intent.BHK = &bhk
	}
	return intent
}

// snapCategory maps free-form category text onto the known set by keyword.
// "Buying", "buy/rent", "I want to Rent" all land on a real category.
func snapCategory(v any) string {
	if v == nil {
		return types.CategoryGeneral
	}
	text := strings.ToLower(fmt.Sprintf("%v", v))
	for _, cat := range []string{types.CategoryBuy, types.CategoryRent, types.CategorySell} {
		if strings.Contains(text, strings.ToLower(cat)) {
			return cat
		}
	}
	return types.CategoryGeneral
}

func asBHK(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case string:
		if isNullMarker(n) {
			return 0, false
		}
		var f float64
		if err := json.Unmarshal([]byte(strings.TrimSpace(n)), &f); err == nil {
			return int(f), true
		}
	}
	return 0, false
}

func isNullMarker(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "null", "none", "nil", "n/a":
		return true
	}
	return false
}

// extractPropertyRows recovers property rows the model echoed back as JSON,
// either as a bare array or under a "results" key. The first candidate
// that decodes into at least one row wins.
func extractPropertyRows(raw string) []types.PropertyResultRow {
	for _, candidate := range flatArrayRe.FindAllString(raw, -1) {
		var rows []types.PropertyResultRow
		if err := json.Unmarshal([]byte(candidate), &rows); err == nil && len(rows) > 0 {
			return rows
		}
	}
	if m := resultsKeyRe.FindStringSubmatch(raw); m != nil {
		var rows []types.PropertyResultRow
		if err := json.Unmarshal([]byte(m[1]), &rows); err == nil && len(rows) > 0 {
			return rows
		}
	}
	return nil
}

// cleanResponse strips everything the user should not see: the analysis
// tag and anything after it, tool-output echo lines, fenced JSON blocks,
// and raw property arrays left inline by the model.
func cleanResponse(raw string) string {
	if idx := strings.Index(raw, "<analysis>"); idx >= 0 {
		raw = raw[:idx]
	}
	raw = jsonFenceRe.ReplaceAllString(raw, "")
	// Drop whole {"results": [...]} wrappers before bare arrays so no
	// dangling object shell survives the array removal.
	raw = resultsWrapperRe.ReplaceAllStringFunc(raw, func(candidate string) string {
		var wrapper struct {
			Results []map[string]any `json:"results"`
		}
		if err := json.Unmarshal([]byte(candidate), &wrapper); err == nil && len(wrapper.Results) > 0 {
			return ""
		}
		return candidate
	})
	raw = flatArrayRe.ReplaceAllStringFunc(raw, func(candidate string) string {
		var rows []map[string]any
		if err := json.Unmarshal([]byte(candidate), &rows); err == nil && len(rows) > 0 {
			return ""
		}
		return candidate
	})

	var kept []string
	for _, line := range strings.Split(raw, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), toolOutputMarker) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}
