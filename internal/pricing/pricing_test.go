package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestDiscountedPrice(t *testing.T) {
	t.Run("TwentyPercent", func(t *testing.T) {
		got, err := DiscountedPrice(dec("100.00"), 20)
		require.NoError(t, err)
		assert.True(t, got.Equal(dec("80.00")), "got %s", got)
	})

	t.Run("ZeroDiscountReturnsPrice", func(t *testing.T) {
		got, err := DiscountedPrice(dec("19.99"), 0)
		require.NoError(t, err)
		assert.True(t, got.Equal(dec("19.99")))
	})

	t.Run("NeverExceedsPrice", func(t *testing.T) {
		price := dec("49.95")
		for d := 0; d <= 100; d += 5 {
			got, err := DiscountedPrice(price, d)
			require.NoError(t, err)
			assert.True(t, got.LessThanOrEqual(price), "discount %d gave %s", d, got)
		}
	})

	t.Run("FullDiscountIsZero", func(t *testing.T) {
		got, err := DiscountedPrice(dec("33.33"), 100)
		require.NoError(t, err)
		assert.True(t, got.IsZero())
	})

	t.Run("OutOfRange", func(t *testing.T) {
		_, err := DiscountedPrice(dec("10.00"), 101)
		assert.ErrorIs(t, err, ErrInvalidDiscount)

		_, err = DiscountedPrice(dec("10.00"), -1)
		assert.ErrorIs(t, err, ErrInvalidDiscount)
	})
}

func TestLineSubtotal(t *testing.T) {
	t.Run("NoDiscountShortCircuit", func(t *testing.T) {
		got, err := LineSubtotal(dec("19.99"), 3, 0)
		require.NoError(t, err)
		assert.True(t, got.Equal(dec("59.97")), "got %s", got)
	})

	t.Run("WithDiscount", func(t *testing.T) {
		// 100.00 * 3 * 0.8 = 240.00
		got, err := LineSubtotal(dec("100.00"), 3, 20)
		require.NoError(t, err)
		assert.True(t, got.Equal(dec("240.00")), "got %s", got)
	})

	t.Run("ZeroQuantity", func(t *testing.T) {
		got, err := LineSubtotal(dec("100.00"), 0, 50)
		require.NoError(t, err)
		assert.True(t, got.IsZero())
	})

	t.Run("NegativeQuantity", func(t *testing.T) {
		_, err := LineSubtotal(dec("100.00"), -1, 0)
		assert.ErrorIs(t, err, ErrInvalidQuantity)
	})

	t.Run("InvalidDiscount", func(t *testing.T) {
		_, err := LineSubtotal(dec("100.00"), 1, 120)
		assert.ErrorIs(t, err, ErrInvalidDiscount)
	})

	t.Run("NeverExceedsUndiscounted", func(t *testing.T) {
		price := dec("7.77")
		full := price.Mul(decimal.NewFromInt(5))
		for d := 1; d <= 100; d++ {
			got, err := LineSubtotal(price, 5, d)
			require.NoError(t, err)
			assert.True(t, got.LessThanOrEqual(full), "discount %d gave %s", d, got)
		}
	})

	t.Run("NoRoundingDriftAcrossAdditions", func(t *testing.T) {
		// 0.10 added a thousand times must be exactly 100.00; binary floats
		// fail this.
		sum := decimal.Zero
		for i := 0; i < 1000; i++ {
			line, err := LineSubtotal(dec("0.10"), 1, 0)
			require.NoError(t, err)
			sum = sum.Add(line)
		}
		assert.True(t, sum.Equal(dec("100.00")), "got %s", sum)
	})
}

func TestComputeTotals(t *testing.T) {
	t.Run("SingleItemScenario", func(t *testing.T) {
		// price=100.00, discount=20, qty=3 → subtotal=240.00;
		// shipping=10.00, tax=24.00 → total=274.00
		totals, err := ComputeTotals([]LineItem{
			{Price: dec("100.00"), Quantity: 3, DiscountPercentage: 20},
		}, dec("10.00"), dec("24.00"))
		require.NoError(t, err)

		assert.True(t, totals.Subtotal.Equal(dec("240.00")), "subtotal %s", totals.Subtotal)
		assert.True(t, totals.Total.Equal(dec("274.00")), "total %s", totals.Total)
	})

	t.Run("TotalIsSumOfComponents", func(t *testing.T) {
		totals, err := ComputeTotals([]LineItem{
			{Price: dec("19.99"), Quantity: 2, DiscountPercentage: 0},
			{Price: dec("45.50"), Quantity: 1, DiscountPercentage: 10},
		}, dec("5.00"), dec("7.03"))
		require.NoError(t, err)

		want := totals.Subtotal.Add(totals.ShippingCost).Add(totals.Tax)
		assert.True(t, totals.Total.Equal(want))
	})

	t.Run("EmptyItems", func(t *testing.T) {
		totals, err := ComputeTotals(nil, dec("0"), dec("0"))
		require.NoError(t, err)
		assert.True(t, totals.Subtotal.IsZero())
		assert.True(t, totals.Total.IsZero())
	})

	t.Run("PropagatesValidationError", func(t *testing.T) {
		_, err := ComputeTotals([]LineItem{
			{Price: dec("10.00"), Quantity: 1, DiscountPercentage: 200},
		}, decimal.Zero, decimal.Zero)
		assert.ErrorIs(t, err, ErrInvalidDiscount)
	})
}
