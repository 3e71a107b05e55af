package money

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		cents    int64
		currency string
		want     int64
	}{
		{"positive paise", 1234, INR, 1234},
		{"zero", 0, INR, 0},
		{"negative paise", -5000, INR, -5000},
		{"large amount", 999999999, INR, 999999999},
		{"dollar", 1000, USD, 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New(tt.cents, tt.currency)
			assert.Equal(t, tt.want, m.Amount())
			assert.Equal(t, tt.currency, m.Currency())
		})
	}
}

func TestNewFromString(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int64
		wantErr bool
	}{
		{"plain", "45.20", 4520, false},
		{"comma thousands", "1,234.56", 123456, false},
		{"indian grouping", "1,00,000.00", 10000000, false},
		{"rupee symbol", "₹500.00", 50000, false},
		{"rs prefix", "Rs.2,500.00", 250000, false},
		{"negative sign", "-45.20", -4520, false},
		{"parenthesized negative", "(45.20)", -4520, false},
		{"whole number", "100", 10000, false},
		{"empty", "", 0, true},
		{"garbage", "abc", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewFromString(tt.input, INR)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, m.Amount())
			assert.Equal(t, INR, m.Currency())
		})
	}
}

func TestNewFromDecimal(t *testing.T) {
	tests := []struct {
		name   string
		amount string
		want   int64
	}{
		{"precise decimal", "123.45", 12345},
		{"many decimals", "99.999", 10000},
		{"whole number", "500", 50000},
		{"negative", "-25.50", -2550},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := decimal.NewFromString(tt.amount)
			require.NoError(t, err)
			m := NewFromDecimal(d, INR)
			assert.Equal(t, tt.want, m.Amount())
		})
	}
}

func TestArithmetic(t *testing.T) {
	t.Run("add same currency", func(t *testing.T) {
		a := New(4520, INR)
		b := New(10000, INR)
		sum, err := a.Add(b)
		require.NoError(t, err)
		assert.Equal(t, int64(14520), sum.Amount())
	})

	t.Run("add mismatched currency", func(t *testing.T) {
		a := New(100, INR)
		b := New(100, USD)
		_, err := a.Add(b)
		assert.Error(t, err)
	})

	t.Run("subtract", func(t *testing.T) {
		a := New(10000, INR)
		b := New(4520, INR)
		diff, err := a.Subtract(b)
		require.NoError(t, err)
		assert.Equal(t, int64(5480), diff.Amount())
	})

	t.Run("abs and negate", func(t *testing.T) {
		m := New(-4520, INR)
		assert.Equal(t, int64(4520), m.Abs().Amount())
		assert.Equal(t, int64(4520), m.Negate().Amount())
		assert.True(t, m.IsNegative())
		assert.True(t, m.Abs().IsPositive())
	})

	t.Run("negate flips sign both ways", func(t *testing.T) {
		assert.Equal(t, int64(-4520), New(4520, INR).Negate().Amount())
		assert.Equal(t, int64(4520), New(-4520, INR).Negate().Amount())
		assert.Equal(t, int64(0), New(0, INR).Negate().Amount())
	})

	t.Run("subtract from nil negates properly", func(t *testing.T) {
		var m *Money
		diff, err := m.Subtract(New(-4520, INR))
		require.NoError(t, err)
		assert.Equal(t, int64(4520), diff.Amount())
	})

	t.Run("nil operands behave as zero", func(t *testing.T) {
		var m *Money
		assert.True(t, m.IsZero())
		assert.Equal(t, int64(0), m.Amount())
		sum, err := m.Add(New(100, INR))
		require.NoError(t, err)
		assert.Equal(t, int64(100), sum.Amount())
	})
}

func TestComparison(t *testing.T) {
	a := New(4520, INR)
	b := New(4520, INR)
	c := New(10000, INR)

	assert.True(t, a.Equals(b))
	assert.False(t, a.Equals(c))
	assert.Equal(t, 0, a.Compare(b))
	assert.Equal(t, -1, a.Compare(c))
	assert.Equal(t, 1, c.Compare(a))
	assert.True(t, a.SameCurrency(c))
	assert.False(t, a.SameCurrency(New(1, USD)))
}

func TestSum(t *testing.T) {
	total, err := Sum(INR, New(100, INR), nil, New(250, INR))
	require.NoError(t, err)
	assert.Equal(t, int64(350), total.Amount())

	_, err = Sum(INR, New(100, INR), New(100, USD))
	assert.Error(t, err)
}

func TestStringAndDecimal(t *testing.T) {
	m := New(123456, INR)
	assert.Equal(t, "1234.56", m.String())
	assert.True(t, m.ToDecimal().Equal(decimal.RequireFromString("1234.56")))
	assert.InDelta(t, 1234.56, m.ToFloat64(), 0.001)
}

func TestJSONRoundTrip(t *testing.T) {
	m := New(4520, INR)
	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"amount":4520`)

	var out Money
	require.NoError(t, json.Unmarshal(data, &out))
	assert.True(t, m.Equals(&out))
}
