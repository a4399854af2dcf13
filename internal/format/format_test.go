package format

import (
	"testing"

	"github.com/aristath/folio/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCurrency(t *testing.T) {
	tests := []struct {
		name   string
		amount string
		code   string
		want   string
	}{
		{"thousands", "1234.56", "USD", "$1,234.56"},
		{"rounds to cents", "1234.567", "USD", "$1,234.57"},
		{"half cent rounds up", "0.005", "USD", "$0.01"},
		{"zero", "0", "USD", "$0.00"},
		{"lower case code", "10", "usd", "$10.00"},
		{"unknown code falls back", "10", "XXXX", "$10.00"},
		{"empty code falls back", "10", "", "$10.00"},
		{"beyond int64 minor units", "100000000000000000", "USD", "$100,000,000,000,000,000.00"},
		{"largest int64 minor units", "92233720368547758.07", "USD", "$92,233,720,368,547,758.07"},
		{"beyond int64 rounds", "92233720368547758.075", "USD", "$92,233,720,368,547,758.08"},
		{"beyond int64 negative", "-100000000000000000", "USD", "-$100,000,000,000,000,000.00"},
		{"beyond int64 suffix template", "100000000000000000", "BYN", "100 000 000 000 000 000,00 p."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Currency(decimal.RequireFromString(tt.amount), tt.code))
		})
	}
}

func TestValidCurrency(t *testing.T) {
	assert.True(t, ValidCurrency("EUR"))
	assert.True(t, ValidCurrency("usd"))
	assert.False(t, ValidCurrency("EURO"))
}

func TestPercent(t *testing.T) {
	assert.Equal(t, "25.00%", Percent(domain.Some(decimal.RequireFromString("0.25"))))
	assert.Equal(t, "33.33%", Percent(domain.Some(decimal.NewFromInt(1).Div(decimal.NewFromInt(3)))))
	assert.Equal(t, "300.00%", Percent(domain.Some(decimal.NewFromInt(3))))
	assert.Equal(t, Undefined, Percent(domain.None[decimal.Decimal]()))
}

func TestIndex(t *testing.T) {
	assert.Equal(t, "0.59", Index(domain.Some(0.5918)))
	assert.Equal(t, Undefined, Index(domain.None[float64]()))
}
