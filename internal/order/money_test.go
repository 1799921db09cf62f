package order_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/lauraedgell33/autoscout-sub002/internal/order"
)

func TestSplitCommission(t *testing.T) {
	type testCase struct {
		name           string
		amount         int64
		rate           string
		wantCommission int64
		wantNet        int64
	}

	tests := []testCase{
		{
			name:           "FivePercentOfTenThousandEuros",
			amount:         1_000_000,
			rate:           "0.05",
			wantCommission: 50_000,
			wantNet:        950_000,
		},
		{
			name:           "RoundsHalfUp",
			amount:         999,
			rate:           "0.05",
			wantCommission: 50, // 49.95 rounds up
			wantNet:        949,
		},
		{
			name:           "ZeroRate",
			amount:         123_456,
			rate:           "0",
			wantCommission: 0,
			wantNet:        123_456,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			commission, net := order.SplitCommission(tt.amount, decimal.RequireFromString(tt.rate))

			assert.Equal(t, tt.wantCommission, commission)
			assert.Equal(t, tt.wantNet, net)

			// The split must always reassemble exactly.
			assert.Equal(t, tt.amount, commission+net)
		})
	}
}

func TestValidateCurrency(t *testing.T) {
	assert.NoError(t, order.ValidateCurrency("EUR"))
	assert.NoError(t, order.ValidateCurrency("USD"))
	assert.Error(t, order.ValidateCurrency("NOPE"))
	assert.Error(t, order.ValidateCurrency(""))
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "12345.67", order.FormatAmount(1_234_567))
	assert.Equal(t, "0.05", order.FormatAmount(5))
	assert.Equal(t, "10.00", order.FormatAmount(1000))
}

func TestNewOrderCode(t *testing.T) {
	now := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	code := order.NewOrderCode(now)
	assert.Regexp(t, `^ORD-2026-[A-Z2-9]{8}$`, code)

	assert.NotEqual(t, code, order.NewOrderCode(now))
}

func TestNewPaymentReference(t *testing.T) {
	assert.Regexp(t, `^PAY-[A-Z2-9]{12}$`, order.NewPaymentReference())
}
