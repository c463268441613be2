package risk

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRequiresManualConfirmation(t *testing.T) {
	svc := NewService(Config{
		BlacklistedAddresses:  []string{"bad-addr"},
		ManualReviewThreshold: decimal.NewFromInt(10000),
	})

	tests := []struct {
		name        string
		fromAddress string
		amount      decimal.Decimal
		want        bool
	}{
		{"blacklisted address", "bad-addr", decimal.NewFromInt(1), true},
		{"above threshold", "clean-addr", decimal.NewFromInt(10001), true},
		{"at threshold passes", "clean-addr", decimal.NewFromInt(10000), false},
		{"clean small deposit", "clean-addr", decimal.NewFromInt(5), false},
		{"blacklist beats small amount", "bad-addr", decimal.NewFromFloat(0.0001), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, svc.RequiresManualConfirmation(tt.fromAddress, tt.amount))
		})
	}
}

func TestZeroThresholdDisablesAmountCheck(t *testing.T) {
	svc := NewService(Config{})
	assert.False(t, svc.RequiresManualConfirmation("any", decimal.NewFromInt(1_000_000)))
}
