package services

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPurchaseCost(t *testing.T) {
	tests := []struct {
		name     string
		price    int64
		quantity int64
		cost     int64
		ok       bool
	}{
		{"simple", 4, 3, 12, true},
		{"free", 0, 1 << 62, 0, true},
		{"largest", math.MaxInt64, 1, math.MaxInt64, true},
		{"wraps to zero", 4, 1 << 62, 0, false},
		{"past int64", 1 << 32, 1 << 31, 0, false},
		{"negative price", -1, 1, 0, false},
		{"negative quantity", 1, -1, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cost, ok := purchaseCost(tt.price, tt.quantity)
			require.Equal(t, tt.ok, ok)
			require.Equal(t, tt.cost, cost)
		})
	}
}
