package pricing

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidDiscount = errors.New("discount percentage must be between 0 and 100")
	ErrInvalidQuantity = errors.New("quantity cannot be negative")
)

// currencyScale is the number of decimal places every monetary amount is
// rounded to.
const currencyScale = 2

var hundred = decimal.NewFromInt(100)

// LineItem is the pricing view of a single order line.
type LineItem struct {
	Price              decimal.Decimal
	Quantity           int
	DiscountPercentage int
}

// Totals holds the computed monetary breakdown of an order. Total is always
// derived from the other three fields and never set directly.
type Totals struct {
	Subtotal     decimal.Decimal
	ShippingCost decimal.Decimal
	Tax          decimal.Decimal
	Total        decimal.Decimal
}

// DiscountedPrice returns price reduced by discountPercentage, rounded to
// currency precision.
func DiscountedPrice(price decimal.Decimal, discountPercentage int) (decimal.Decimal, error) {
	if discountPercentage < 0 || discountPercentage > 100 {
		return decimal.Zero, ErrInvalidDiscount
	}
	if discountPercentage == 0 {
		return price, nil
	}

	factor := hundred.Sub(decimal.NewFromInt(int64(discountPercentage))).Div(hundred)
	return price.Mul(factor).Round(currencyScale), nil
}

// LineSubtotal computes price × quantity × (1 − discount/100) in exact
// decimal arithmetic. A discount of zero skips the division entirely.
func LineSubtotal(price decimal.Decimal, quantity int, discountPercentage int) (decimal.Decimal, error) {
	if quantity < 0 {
		return decimal.Zero, ErrInvalidQuantity
	}
	if discountPercentage < 0 || discountPercentage > 100 {
		return decimal.Zero, ErrInvalidDiscount
	}

	qty := decimal.NewFromInt(int64(quantity))
	if discountPercentage == 0 {
		return price.Mul(qty), nil
	}

	factor := hundred.Sub(decimal.NewFromInt(int64(discountPercentage))).Div(hundred)
	return price.Mul(qty).Mul(factor).Round(currencyScale), nil
}

// ComputeTotals sums all line subtotals and adds shipping and tax.
func ComputeTotals(items []LineItem, shippingCost, tax decimal.Decimal) (Totals, error) {
	subtotal := decimal.Zero
	for _, item := range items {
		line, err := LineSubtotal(item.Price, item.Quantity, item.DiscountPercentage)
		if err != nil {
			return Totals{}, err
		}
		subtotal = subtotal.Add(line)
	}

	return Totals{
		Subtotal:     subtotal,
		ShippingCost: shippingCost,
		Tax:          tax,
		Total:        subtotal.Add(shippingCost).Add(tax),
	}, nil
}
