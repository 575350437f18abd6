package inquiry

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// currencyNoise is removed before suffix detection. Order matters only for
// readability; none of the tokens overlap the unit suffixes after removal.
var currencyNoise = []string{"₹", "rs", "$", ","}

// NormalizeBudget converts a raw budget value ("2cr", "50L", "80k", 1500000,
// nil, "null") into a number of currency units. Suffixes are detected in
// priority order cr > l/lakh > k. Anything unparseable normalizes to 0;
// this function never fails.
func NormalizeBudget(raw any) float64 {
	switch v := raw.(type) {
	case nil:
		return 0
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0
		}
		return f
	}

	s := strings.ToLower(strings.TrimSpace(fmt.Sprintf("%v", raw)))
	if s == "" || s == "null" || s == "none" {
		return 0
	}
	for _, noise := range currencyNoise {
		s = strings.ReplaceAll(s, noise, "")
	}
	s = strings.TrimSpace(s)

	multiplier := 1.0
	switch {
	case strings.Contains(s, "cr"):
		multiplier = 10_000_000
		s = strings.ReplaceAll(s, "cr", "")
	case strings.Contains(s, "l"):
		multiplier = 100_000
		s = strings.ReplaceAll(s, "lakh", "")
		s = strings.ReplaceAll(s, "l", "")
	case strings.Contains(s, "k"):
		multiplier = 1_000
		s = strings.ReplaceAll(s, "k", "")
	}

	value, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return value * multiplier
}
