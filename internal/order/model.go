package order

import (
	"github.com/shopspring/decimal"

	"mensstore-be/internal/payment"
	"mensstore-be/internal/pricing"
	"mensstore-be/internal/user"
)

// PaymentType names how an order was paid for, display purposes only.
type PaymentType string

const (
	PaymentCreditCard     PaymentType = "CREDIT_CARD"
	PaymentDebitCard      PaymentType = "DEBIT_CARD"
	PaymentPayPal         PaymentType = "PAYPAL"
	PaymentBankTransfer   PaymentType = "BANK_TRANSFER"
	PaymentCashOnDelivery PaymentType = "CASH_ON_DELIVERY"
)

// PaymentMethod carries non-sensitive display data only. Full card numbers
// never enter the data layer; the gateway works with tokens.
type PaymentMethod struct {
	Type           PaymentType `json:"type"`
	LastFourDigits string      `json:"lastFourDigits,omitempty"`
	CardType       string      `json:"cardType,omitempty"`
	ExpiryMonth    int         `json:"expiryMonth,omitempty"`
	ExpiryYear     int         `json:"expiryYear,omitempty"`
}

// OrderItem is a snapshot of the purchased product at checkout time. Later
// catalog price changes never retroactively alter a historical order.
type OrderItem struct {
	ProductID          string          `json:"productId"`
	ProductName        string          `json:"productName"`
	Quantity           int             `json:"quantity"`
	Price              decimal.Decimal `json:"price"`
	SelectedSize       string          `json:"selectedSize,omitempty"`
	SelectedColor      string          `json:"selectedColor,omitempty"`
	DiscountPercentage int             `json:"discountPercentage,omitempty"`
}

// Subtotal is price × quantity reduced by the snapshotted discount.
func (i OrderItem) Subtotal() (decimal.Decimal, error) {
	return pricing.LineSubtotal(i.Price, i.Quantity, i.DiscountPercentage)
}

// Order aggregates the purchased items with their monetary breakdown.
// Subtotal, ShippingCost, Tax and Total are recomputed at creation; Total is
// never settable independently of the other three.
type Order struct {
	ID              string        `json:"id"`
	UserID          string        `json:"userId"`
	Items           []OrderItem   `json:"items"`
	Status          Status        `json:"status"`
	ShippingAddress user.Address  `json:"shippingAddress"`
	BillingAddress  user.Address  `json:"billingAddress"`
	PaymentMethod   PaymentMethod `json:"paymentMethod"`

	Subtotal     decimal.Decimal `json:"subtotal"`
	ShippingCost decimal.Decimal `json:"shippingCost"`
	Tax          decimal.Decimal `json:"tax"`
	Total        decimal.Decimal `json:"total"`

	DateCreated int64 `json:"dateCreated"`
	LastUpdated int64 `json:"lastUpdated"`

	TrackingNumber        string `json:"trackingNumber,omitempty"`
	Carrier               string `json:"carrier,omitempty"`
	EstimatedDeliveryDate int64  `json:"estimatedDeliveryDate,omitempty"`
	Notes                 string `json:"notes,omitempty"`

	// Payment records the last gateway result. Refunds are only granted
	// when this shows a successful capture.
	Payment *payment.Result `json:"payment,omitempty"`
}

// Snapshot is one delivery of a live order-list subscription.
type Snapshot struct {
	Orders []Order
	Err    error
}

// DocSnapshot is one delivery of a live single-order subscription. Order is
// nil when the document is absent or was deleted.
type DocSnapshot struct {
	Order *Order
	Err   error
}

// Analytics summarizes a user's orders over a date range.
type Analytics struct {
	TotalOrders           int                   `json:"totalOrders"`
	TotalSpent            decimal.Decimal       `json:"totalSpent"`
	AverageOrderValue     decimal.Decimal       `json:"averageOrderValue"`
	StatusBreakdown       map[Status]int        `json:"statusBreakdown"`
	MostPurchasedProducts []ProductOrderSummary `json:"mostPurchasedProducts"`
}

// ProductOrderSummary aggregates one product's purchases across the
// analytics range.
type ProductOrderSummary struct {
	ProductID    string          `json:"productId"`
	ProductName  string          `json:"productName"`
	Quantity     int             `json:"quantity"`
	TotalRevenue decimal.Decimal `json:"totalRevenue"`
}
