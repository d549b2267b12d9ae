package order

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"mensstore-be/internal/notify"
	"mensstore-be/internal/payment"
	"mensstore-be/internal/pricing"
	"mensstore-be/internal/store"
)

var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrEmptyOrder         = errors.New("order must contain at least one item")
	ErrPaymentNotCaptured = errors.New("refund requires a captured payment")
)

const collection = "orders"

// Repository is the order data-access contract. List reads are live
// subscriptions delivering the full matching result set on every change
// until ctx is cancelled.
type Repository interface {
	CreateOrder(ctx context.Context, o Order) (string, error)
	GetOrder(ctx context.Context, orderID string) (<-chan DocSnapshot, error)
	GetUserOrders(ctx context.Context, userID string, limit, offset int) (<-chan Snapshot, error)
	GetOrdersByStatus(ctx context.Context, userID string, status Status, limit, offset int) (<-chan Snapshot, error)
	GetOrdersByDateRange(ctx context.Context, userID string, from, to int64, limit, offset int) (<-chan Snapshot, error)
	SearchOrders(ctx context.Context, userID, query string, limit, offset int) (<-chan Snapshot, error)

	UpdateOrderStatus(ctx context.Context, orderID string, status Status) error
	CancelOrder(ctx context.Context, orderID, reason string) error
	UpdateShippingInfo(ctx context.Context, orderID, trackingNumber, carrier string, estimatedDelivery int64) error
	ProcessPayment(ctx context.Context, orderID string, details map[string]any) (payment.Result, error)

	SendOrderConfirmation(ctx context.Context, orderID string) error
	SendShippingUpdate(ctx context.Context, orderID string) error
	SendDeliveryConfirmation(ctx context.Context, orderID string) error

	GetOrderAnalytics(ctx context.Context, userID string, from, to int64) (Analytics, error)
}

type storeRepository struct {
	store    store.Store
	orders   store.Collection
	gateway  payment.Gateway
	notifier notify.Notifier
}

func NewRepository(s store.Store, gateway payment.Gateway, notifier notify.Notifier) Repository {
	return &storeRepository{
		store:    s,
		orders:   s.Collection(collection),
		gateway:  gateway,
		notifier: notifier,
	}
}

// CreateOrder assigns an id, recomputes the monetary breakdown from the
// items and stores the order as PENDING. Caller-supplied totals are ignored
// so Total can never drift from Subtotal + ShippingCost + Tax.
func (r *storeRepository) CreateOrder(ctx context.Context, o Order) (string, error) {
	if len(o.Items) == 0 {
		return "", ErrEmptyOrder
	}
	if o.UserID == "" {
		return "", errors.New("user id is required")
	}

	lines := make([]pricing.LineItem, len(o.Items))
	for i, item := range o.Items {
		lines[i] = pricing.LineItem{
			Price:              item.Price,
			Quantity:           item.Quantity,
			DiscountPercentage: item.DiscountPercentage,
		}
	}
	totals, err := pricing.ComputeTotals(lines, o.ShippingCost, o.Tax)
	if err != nil {
		return "", err
	}

	now := time.Now().UnixMilli()
	o.ID = uuid.NewString()
	o.Status = StatusPending
	o.Subtotal = totals.Subtotal
	o.ShippingCost = totals.ShippingCost
	o.Tax = totals.Tax
	o.Total = totals.Total
	o.DateCreated = now
	o.LastUpdated = now
	o.Payment = nil

	if err := r.orders.Set(ctx, o.ID, o); err != nil {
		return "", err
	}
	return o.ID, nil
}

func (r *storeRepository) GetOrder(ctx context.Context, orderID string) (<-chan DocSnapshot, error) {
	src, err := r.orders.Query().Where("id", store.OpEqual, orderID).Subscribe(ctx)
	if err != nil {
		return nil, err
	}

	out := make(chan DocSnapshot, 1)
	go func() {
		defer close(out)
		for snap := range src {
			var ds DocSnapshot
			if snap.Err != nil {
				ds.Err = snap.Err
			} else if len(snap.Docs) > 0 {
				var o Order
				if err := snap.Docs[0].Decode(&o); err != nil {
					ds.Err = err
				} else {
					ds.Order = &o
				}
			}
			select {
			case out <- ds:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (r *storeRepository) GetUserOrders(ctx context.Context, userID string, limit, offset int) (<-chan Snapshot, error) {
	query := r.orders.Query().
		Where("userId", store.OpEqual, userID).
		OrderBy("dateCreated", store.Descending).
		Limit(limit).
		Offset(offset)
	return r.subscribe(ctx, query, nil)
}

func (r *storeRepository) GetOrdersByStatus(ctx context.Context, userID string, status Status, limit, offset int) (<-chan Snapshot, error) {
	query := r.orders.Query().
		Where("userId", store.OpEqual, userID).
		Where("status", store.OpEqual, string(status)).
		OrderBy("dateCreated", store.Descending).
		Limit(limit).
		Offset(offset)
	return r.subscribe(ctx, query, nil)
}

func (r *storeRepository) GetOrdersByDateRange(ctx context.Context, userID string, from, to int64, limit, offset int) (<-chan Snapshot, error) {
	query := r.orders.Query().
		Where("userId", store.OpEqual, userID).
		Where("dateCreated", store.OpGreaterOrEqual, from).
		Where("dateCreated", store.OpLessOrEqual, to).
		OrderBy("dateCreated", store.Descending).
		Limit(limit).
		Offset(offset)
	return r.subscribe(ctx, query, nil)
}

// SearchOrders matches the query against order ids and snapshotted product
// names. The containment filter runs after the store query, so pagination is
// applied here rather than pushed down.
func (r *storeRepository) SearchOrders(ctx context.Context, userID, query string, limit, offset int) (<-chan Snapshot, error) {
	needle := strings.ToLower(strings.TrimSpace(query))

	q := r.orders.Query().
		Where("userId", store.OpEqual, userID).
		OrderBy("dateCreated", store.Descending)

	return r.subscribe(ctx, q, func(orders []Order) []Order {
		matched := orders[:0:0]
		for _, o := range orders {
			if matchesOrder(o, needle) {
				matched = append(matched, o)
			}
		}
		if offset >= len(matched) {
			return []Order{}
		}
		matched = matched[offset:]
		if limit > 0 && limit < len(matched) {
			matched = matched[:limit]
		}
		return matched
	})
}

func matchesOrder(o Order, needle string) bool {
	if needle == "" {
		return true
	}
	if strings.Contains(strings.ToLower(o.ID), needle) {
		return true
	}
	for _, item := range o.Items {
		if strings.Contains(strings.ToLower(item.ProductName), needle) {
			return true
		}
	}
	return false
}

// UpdateOrderStatus moves the order through the fulfillment state machine.
// A refund additionally requires a captured payment on record.
func (r *storeRepository) UpdateOrderStatus(ctx context.Context, orderID string, status Status) error {
	return r.mutate(ctx, orderID, func(o *Order) error {
		if err := ValidateTransition(o.Status, status); err != nil {
			return err
		}
		if status == StatusRefunded && (o.Payment == nil || !o.Payment.Success) {
			return ErrPaymentNotCaptured
		}
		o.Status = status
		return nil
	})
}

// CancelOrder transitions to CANCELLED and records the free-text reason.
func (r *storeRepository) CancelOrder(ctx context.Context, orderID, reason string) error {
	return r.mutate(ctx, orderID, func(o *Order) error {
		if err := ValidateTransition(o.Status, StatusCancelled); err != nil {
			return err
		}
		o.Status = StatusCancelled
		o.Notes = reason
		return nil
	})
}

// UpdateShippingInfo sets tracking number, carrier and the delivery estimate
// in one write so readers never observe a partial update.
func (r *storeRepository) UpdateShippingInfo(ctx context.Context, orderID, trackingNumber, carrier string, estimatedDelivery int64) error {
	err := r.orders.Update(ctx, orderID, map[string]any{
		"trackingNumber":        trackingNumber,
		"carrier":               carrier,
		"estimatedDeliveryDate": estimatedDelivery,
		"lastUpdated":           time.Now().UnixMilli(),
	})
	if errors.Is(err, store.ErrDocNotFound) {
		return ErrOrderNotFound
	}
	return err
}

// ProcessPayment charges the order total through the gateway and records the
// result on the order either way. The order reaches CONFIRMED only when the
// gateway reports success; a declined charge leaves the status untouched.
func (r *storeRepository) ProcessPayment(ctx context.Context, orderID string, details map[string]any) (payment.Result, error) {
	doc, err := r.orders.Get(ctx, orderID)
	if err != nil {
		return payment.Result{}, err
	}
	if doc == nil {
		return payment.Result{}, ErrOrderNotFound
	}
	var o Order
	if err := doc.Decode(&o); err != nil {
		return payment.Result{}, err
	}

	result := r.gateway.Charge(ctx, payment.ChargeRequest{
		OrderID: orderID,
		Amount:  o.Total,
		Details: details,
	})

	err = r.mutate(ctx, orderID, func(o *Order) error {
		o.Payment = &result
		if result.Success && o.Status == StatusPending {
			o.Status = StatusConfirmed
		}
		return nil
	})
	if err != nil {
		return payment.Result{}, err
	}
	return result, nil
}

func (r *storeRepository) SendOrderConfirmation(ctx context.Context, orderID string) error {
	return r.notifier.Send(ctx, orderID, notify.EventOrderConfirmation)
}

func (r *storeRepository) SendShippingUpdate(ctx context.Context, orderID string) error {
	return r.notifier.Send(ctx, orderID, notify.EventShippingUpdate)
}

func (r *storeRepository) SendDeliveryConfirmation(ctx context.Context, orderID string) error {
	return r.notifier.Send(ctx, orderID, notify.EventDeliveryConfirmation)
}

// mutate applies fn to the order inside a store transaction, bumping
// lastUpdated on success.
func (r *storeRepository) mutate(ctx context.Context, orderID string, fn func(o *Order) error) error {
	return r.store.RunTransaction(ctx, func(tx store.Tx) error {
		doc, err := tx.Get(collection, orderID)
		if err != nil {
			return err
		}
		if doc == nil {
			return ErrOrderNotFound
		}

		var o Order
		if err := doc.Decode(&o); err != nil {
			return err
		}
		if err := fn(&o); err != nil {
			return err
		}

		o.LastUpdated = time.Now().UnixMilli()
		return tx.Set(collection, orderID, o)
	})
}

// subscribe adapts a store subscription into order snapshots, applying an
// optional post-processing step to each result set.
func (r *storeRepository) subscribe(ctx context.Context, q store.Query, post func([]Order) []Order) (<-chan Snapshot, error) {
	src, err := q.Subscribe(ctx)
	if err != nil {
		return nil, err
	}

	out := make(chan Snapshot, 1)
	go func() {
		defer close(out)
		for snap := range src {
			var os Snapshot
			if snap.Err != nil {
				os.Err = snap.Err
			} else {
				orders := make([]Order, 0, len(snap.Docs))
				for _, doc := range snap.Docs {
					var o Order
					if err := doc.Decode(&o); err != nil {
						os.Err = err
						break
					}
					orders = append(orders, o)
				}
				if os.Err == nil {
					if post != nil {
						orders = post(orders)
					}
					os.Orders = orders
				}
			}
			select {
			case out <- os:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
