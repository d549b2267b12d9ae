package order

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"mensstore-be/internal/store"
)

// GetOrderAnalytics reduces the user's orders in the date range to running
// sums in a single pass; no intermediate order list is materialized beyond
// the query page being decoded.
func (r *storeRepository) GetOrderAnalytics(ctx context.Context, userID string, from, to int64) (Analytics, error) {
	docs, err := r.orders.Query().
		Where("userId", store.OpEqual, userID).
		Where("dateCreated", store.OpGreaterOrEqual, from).
		Where("dateCreated", store.OpLessOrEqual, to).
		GetAll(ctx)
	if err != nil {
		return Analytics{}, err
	}

	a := Analytics{
		TotalSpent:            decimal.Zero,
		AverageOrderValue:     decimal.Zero,
		StatusBreakdown:       map[Status]int{},
		MostPurchasedProducts: []ProductOrderSummary{},
	}
	byProduct := map[string]*ProductOrderSummary{}

	for _, doc := range docs {
		var o Order
		if err := doc.Decode(&o); err != nil {
			return Analytics{}, err
		}

		a.TotalOrders++
		a.TotalSpent = a.TotalSpent.Add(o.Total)
		a.StatusBreakdown[o.Status]++

		for _, item := range o.Items {
			revenue, err := item.Subtotal()
			if err != nil {
				return Analytics{}, err
			}
			summary, ok := byProduct[item.ProductID]
			if !ok {
				summary = &ProductOrderSummary{
					ProductID:    item.ProductID,
					ProductName:  item.ProductName,
					TotalRevenue: decimal.Zero,
				}
				byProduct[item.ProductID] = summary
			}
			summary.Quantity += item.Quantity
			summary.TotalRevenue = summary.TotalRevenue.Add(revenue)
		}
	}

	if a.TotalOrders > 0 {
		a.AverageOrderValue = a.TotalSpent.
			Div(decimal.NewFromInt(int64(a.TotalOrders))).
			Round(2)
	}

	for _, summary := range byProduct {
		a.MostPurchasedProducts = append(a.MostPurchasedProducts, *summary)
	}
	sort.Slice(a.MostPurchasedProducts, func(i, j int) bool {
		p, q := a.MostPurchasedProducts[i], a.MostPurchasedProducts[j]
		if p.Quantity != q.Quantity {
			return p.Quantity > q.Quantity
		}
		return p.TotalRevenue.GreaterThan(q.TotalRevenue)
	})

	return a, nil
}
