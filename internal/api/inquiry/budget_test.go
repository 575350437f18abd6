package inquiry

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeBudget(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want float64
	}{
		{"crore shorthand", "2cr", 20000000},
		{"crore with space", "1.5 Cr", 15000000},
		{"lakh shorthand", "50L", 5000000},
		{"lakh word", "50 lakh", 5000000},
		{"thousand shorthand", "80k", 80000},
		{"rupee prefix and commas", "₹1,50,000", 150000},
		{"rs prefix", "Rs 5000", 5000},
		{"plain numeric string", "1500000", 1500000},
		{"float64 passthrough", 1500000.0, 1500000},
		{"int passthrough", 750000, 750000},
		{"json number", json.Number("2500000"), 2500000},
		{"nil", nil, 0},
		{"null string", "null", 0},
		{"empty string", "", 0},
		{"garbage", "call me maybe", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeBudget(tt.raw))
		})
	}
}
