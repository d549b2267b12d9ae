package order

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"mensstore-be/internal/logger"
	"mensstore-be/internal/payment"
	"mensstore-be/internal/pricing"
	"mensstore-be/internal/user"
)

var (
	ErrInvalidDateRange = errors.New("date range start must not be after end")
	ErrUnknownStatus    = errors.New("unknown order status")
)

// OrderRefs records an order back-reference and the purchase activity on the
// owning user's document. Satisfied by the user repository.
type OrderRefs interface {
	AppendOrderRef(ctx context.Context, userID, orderID string) error
	RecordActivity(ctx context.Context, userID string, kind user.ActivityType, details map[string]any) error
}

// Service wraps the order repository with validation, logging and the
// notification side effects of lifecycle events.
type Service interface {
	PlaceOrder(ctx context.Context, o Order) (string, error)
	GetOrder(ctx context.Context, orderID string) (<-chan DocSnapshot, error)
	ListUserOrders(ctx context.Context, userID string, limit, offset int) (<-chan Snapshot, error)
	ListByStatus(ctx context.Context, userID string, status Status, limit, offset int) (<-chan Snapshot, error)
	ListByDateRange(ctx context.Context, userID string, from, to int64, limit, offset int) (<-chan Snapshot, error)
	Search(ctx context.Context, userID, query string, limit, offset int) (<-chan Snapshot, error)

	UpdateStatus(ctx context.Context, orderID string, status Status) error
	Cancel(ctx context.Context, orderID, reason string) error
	SetShippingInfo(ctx context.Context, orderID, trackingNumber, carrier string, estimatedDelivery int64) error
	Pay(ctx context.Context, orderID string, details map[string]any) (payment.Result, error)

	Analytics(ctx context.Context, userID string, from, to int64) (Analytics, error)
}

type service struct {
	repo Repository
	refs OrderRefs
}

func NewService(repo Repository, refs OrderRefs) Service {
	return &service{repo: repo, refs: refs}
}

const (
	defaultLimit = 20
	maxLimit     = 100
)

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func (s *service) PlaceOrder(ctx context.Context, o Order) (string, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("service", "Order"),
		zap.String("method", "PlaceOrder"),
		zap.String("user_id", o.UserID),
	)

	if len(o.Items) == 0 {
		return "", ErrEmptyOrder
	}
	for _, item := range o.Items {
		if item.ProductID == "" {
			return "", errors.New("order item product id is required")
		}
		if item.Quantity <= 0 {
			return "", pricing.ErrInvalidQuantity
		}
		if item.DiscountPercentage < 0 || item.DiscountPercentage > 100 {
			return "", pricing.ErrInvalidDiscount
		}
	}

	orderID, err := s.repo.CreateOrder(ctx, o)
	if err != nil {
		log.Error("failed to create order", zap.Error(err))
		return "", err
	}

	if err := s.refs.AppendOrderRef(ctx, o.UserID, orderID); err != nil {
		log.Warn("failed to record order reference on user", zap.Error(err))
	}
	_ = s.refs.RecordActivity(ctx, o.UserID, user.ActivityPurchase, map[string]any{"order_id": orderID})

	log.Info("order placed", zap.String("order_id", orderID), zap.Int("items", len(o.Items)))
	return orderID, nil
}

func (s *service) GetOrder(ctx context.Context, orderID string) (<-chan DocSnapshot, error) {
	return s.repo.GetOrder(ctx, orderID)
}

func (s *service) ListUserOrders(ctx context.Context, userID string, limit, offset int) (<-chan Snapshot, error) {
	limit, offset = normalizePage(limit, offset)
	return s.repo.GetUserOrders(ctx, userID, limit, offset)
}

func (s *service) ListByStatus(ctx context.Context, userID string, status Status, limit, offset int) (<-chan Snapshot, error) {
	if !status.Valid() {
		return nil, ErrUnknownStatus
	}
	limit, offset = normalizePage(limit, offset)
	return s.repo.GetOrdersByStatus(ctx, userID, status, limit, offset)
}

func (s *service) ListByDateRange(ctx context.Context, userID string, from, to int64, limit, offset int) (<-chan Snapshot, error) {
	if from > to {
		return nil, ErrInvalidDateRange
	}
	limit, offset = normalizePage(limit, offset)
	return s.repo.GetOrdersByDateRange(ctx, userID, from, to, limit, offset)
}

func (s *service) Search(ctx context.Context, userID, query string, limit, offset int) (<-chan Snapshot, error) {
	limit, offset = normalizePage(limit, offset)
	return s.repo.SearchOrders(ctx, userID, query, limit, offset)
}

// UpdateStatus applies the transition, then fires the notification the new
// state calls for. A failed send is logged and swallowed; the state change
// already happened and stays.
func (s *service) UpdateStatus(ctx context.Context, orderID string, status Status) error {
	log := logger.FromCtx(ctx).With(
		zap.String("service", "Order"),
		zap.String("method", "UpdateStatus"),
		zap.String("order_id", orderID),
		zap.String("status", string(status)),
	)

	if !status.Valid() {
		return ErrUnknownStatus
	}
	if err := s.repo.UpdateOrderStatus(ctx, orderID, status); err != nil {
		return err
	}

	var sendErr error
	switch status {
	case StatusShipped:
		sendErr = s.repo.SendShippingUpdate(ctx, orderID)
	case StatusDelivered:
		sendErr = s.repo.SendDeliveryConfirmation(ctx, orderID)
	}
	if sendErr != nil {
		log.Warn("notification send failed", zap.Error(sendErr))
	}

	log.Info("order status updated")
	return nil
}

func (s *service) Cancel(ctx context.Context, orderID, reason string) error {
	return s.repo.CancelOrder(ctx, orderID, reason)
}

func (s *service) SetShippingInfo(ctx context.Context, orderID, trackingNumber, carrier string, estimatedDelivery int64) error {
	if trackingNumber == "" {
		return errors.New("tracking number is required")
	}
	return s.repo.UpdateShippingInfo(ctx, orderID, trackingNumber, carrier, estimatedDelivery)
}

// Pay charges the order and, when the gateway captures the funds, sends the
// order confirmation. The returned result is authoritative either way.
func (s *service) Pay(ctx context.Context, orderID string, details map[string]any) (payment.Result, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("service", "Order"),
		zap.String("method", "Pay"),
		zap.String("order_id", orderID),
	)

	result, err := s.repo.ProcessPayment(ctx, orderID, details)
	if err != nil {
		log.Error("payment processing failed", zap.Error(err))
		return payment.Result{}, err
	}

	if result.Success {
		if err := s.repo.SendOrderConfirmation(ctx, orderID); err != nil {
			log.Warn("confirmation send failed", zap.Error(err))
		}
		log.Info("payment captured", zap.String("transaction_id", result.TransactionID))
	} else {
		log.Info("payment declined", zap.String("reason", result.ErrorMessage))
	}
	return result, nil
}

func (s *service) Analytics(ctx context.Context, userID string, from, to int64) (Analytics, error) {
	if from > to {
		return Analytics{}, ErrInvalidDateRange
	}
	return s.repo.GetOrderAnalytics(ctx, userID, from, to)
}
