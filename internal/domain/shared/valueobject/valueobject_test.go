package valueobject

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCurrency(t *testing.T) {
	t.Run("normalizes case and whitespace", func(t *testing.T) {
		c, err := ParseCurrency(" usd ")
		require.NoError(t, err)
		assert.Equal(t, Currency("USD"), c)
	})

	t.Run("rejects empty code", func(t *testing.T) {
		_, err := ParseCurrency("")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "currency cannot be empty")
	})

	t.Run("rejects unknown code", func(t *testing.T) {
		_, err := ParseCurrency("ZZZ")
		assert.Error(t, err)
	})
}

func TestMoney(t *testing.T) {
	t.Run("requires a currency", func(t *testing.T) {
		_, err := NewMoney(decimal.NewFromInt(1), "")
		assert.Error(t, err)
	})

	t.Run("convert applies rate", func(t *testing.T) {
		m, err := NewMoney(decimal.NewFromInt(100), "USD")
		require.NoError(t, err)
		converted := m.Convert(decimal.NewFromInt(30), "EGP")
		assert.Equal(t, Currency("EGP"), converted.Currency())
		assert.True(t, converted.Amount().Equal(decimal.NewFromInt(3000)))
	})

	t.Run("convert to same currency is identity", func(t *testing.T) {
		m, _ := NewMoney(decimal.NewFromInt(100), "USD")
		assert.True(t, m.Convert(decimal.NewFromInt(30), "USD").Amount().Equal(decimal.NewFromInt(100)))
	})

	t.Run("format uses ISO code and grouping", func(t *testing.T) {
		m, _ := NewMoney(decimal.RequireFromString("1234.5"), "USD")
		assert.Equal(t, "USD 1,234.50", m.Format())
	})
}

func TestReciprocal(t *testing.T) {
	tests := []struct {
		name string
		rate string
		want string
	}{
		{"thirty", "30", "0.033333333"},
		{"two", "2", "0.5"},
		{"fractional", "0.25", "4"},
		{"zero", "0", "0"},
		{"negative", "-5", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Reciprocal(decimal.RequireFromString(tt.rate))
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s", got)
		})
	}
}

func TestNearlyEqual(t *testing.T) {
	a := decimal.RequireFromString("0.033333333")
	assert.True(t, NearlyEqual(a, decimal.RequireFromString("0.0333333331")))
	assert.False(t, NearlyEqual(a, decimal.RequireFromString("0.033333334")))
}
