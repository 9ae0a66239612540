package subscription

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// The full 2x2x2 price table. These values are reconciled against
// payment receipts, so they are pinned exactly.
func TestCalculateCostTable(t *testing.T) {
	tests := []struct {
		voice        string
		deliveryType string
		frequency    string
		want         float64
	}{
		{"aria", "unfinished", "weekly", 9.99},
		{"aria", "unfinished", "daily", 14.99},
		{"aria", "whole", "weekly", 12.99},
		{"aria", "whole", "daily", 19.49},
		{"heartsease", "unfinished", "weekly", 11.99},
		{"heartsease", "unfinished", "daily", 17.99},
		{"heartsease", "whole", "weekly", 14.99},
		{"heartsease", "whole", "daily", 22.49},
	}

	for _, tt := range tests {
		got := CalculateCost(tt.voice, tt.deliveryType, tt.frequency)
		assert.InDelta(t, tt.want, got, 1e-9,
			"CalculateCost(%s, %s, %s)", tt.voice, tt.deliveryType, tt.frequency)
	}
}

func TestCalculateCostIsPure(t *testing.T) {
	first := CalculateCost("heartsease", "whole", "daily")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, CalculateCost("heartsease", "whole", "daily"))
	}
}
