package payment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Result is the single source of truth for whether funds were captured.
// Failures are data, never errors: callers must branch on Success.
type Result struct {
	Success       bool   `json:"success"`
	TransactionID string `json:"transactionId,omitempty"`
	ErrorMessage  string `json:"errorMessage,omitempty"`
	Timestamp     int64  `json:"timestamp"`
}

// ChargeRequest asks a gateway to capture the order total. Details is the
// opaque key/value bag supplied by the caller; the gateway decides which
// keys it needs.
type ChargeRequest struct {
	OrderID string
	Amount  decimal.Decimal
	Details map[string]any
}

type Gateway interface {
	Charge(ctx context.Context, req ChargeRequest) Result
}

// localGateway validates charge requests and simulates capture. It accepts
// tokenized card details only; raw card numbers are rejected outright so
// they can never end up persisted.
type localGateway struct {
	apiKey string
}

func NewLocalGateway(apiKey string) Gateway {
	return &localGateway{apiKey: apiKey}
}

func failure(msg string) Result {
	return Result{
		Success:      false,
		ErrorMessage: msg,
		Timestamp:    time.Now().UnixMilli(),
	}
}

func (g *localGateway) Charge(_ context.Context, req ChargeRequest) Result {
	if !req.Amount.IsPositive() {
		return failure("charge amount must be positive")
	}

	if _, ok := req.Details["card_number"]; ok {
		return failure("raw card numbers are not accepted")
	}

	method, _ := req.Details["method"].(string)
	if method == "" {
		return failure("payment method is required")
	}

	switch method {
	case "credit_card", "debit_card":
		token, _ := req.Details["token"].(string)
		if token == "" {
			return failure("card token is required")
		}
	case "paypal", "bank_transfer", "cash_on_delivery":
		// No further detail requirements.
	default:
		return failure("unsupported payment method: " + method)
	}

	return Result{
		Success:       true,
		TransactionID: "txn_" + uuid.New().String(),
		Timestamp:     time.Now().UnixMilli(),
	}
}
