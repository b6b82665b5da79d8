package usecase_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestQuote(t *testing.T) {
	pricing := testPricing()

	tests := []struct {
		name     string
		subtotal string
		tax      string
		shipping string
		total    string
	}{
		{"送料あり", "50", "5", "10", "65"},
		{"しきい値ちょうどは送料あり", "100", "10", "10", "120"},
		{"しきい値超えで送料無料", "100.01", "10.001", "0", "110.011"},
		{"税が割り切れる金額", "130", "13", "0", "143"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tax, shipping, total := pricing.Quote(decimal.RequireFromString(tt.subtotal))

			require.True(t, tax.Equal(decimal.RequireFromString(tt.tax)), "tax = %s", tax)
			require.True(t, shipping.Equal(decimal.RequireFromString(tt.shipping)), "shipping = %s", shipping)
			require.True(t, total.Equal(decimal.RequireFromString(tt.total)), "total = %s", total)
		})
	}
}
