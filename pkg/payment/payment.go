// Package payment talks to the card gateway.
package payment

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
)

// OrderStatusPaid is the gateway status of a settled order.
const OrderStatusPaid = "paid"

var ErrGatewayUnavailable = errors.New("payment gateway unavailable")

// Order is the subset of a gateway order the service reads.
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// Gateway creates and fetches orders. Amounts are in the minor unit.
type Gateway interface {
	CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (*Order, error)
	FetchOrder(ctx context.Context, orderID string) (*Order, error)
}

// breakerGateway fails fast while the wrapped gateway keeps erroring.
type breakerGateway struct {
	next Gateway
	cb   *gobreaker.CircuitBreaker
}

// WithBreaker wraps g in a circuit breaker that opens after five
// consecutive failures.
func WithBreaker(name string, g Gateway) Gateway {
	return &breakerGateway{
		next: g,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name,
			MaxRequests: 1,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
	}
}

func (b *breakerGateway) CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (*Order, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.CreateOrder(ctx, amountMinor, currency, receipt)
	})
	if err != nil {
		return nil, wrapBreakerErr(err)
	}
	return out.(*Order), nil
}

func (b *breakerGateway) FetchOrder(ctx context.Context, orderID string) (*Order, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.FetchOrder(ctx, orderID)
	})
	if err != nil {
		return nil, wrapBreakerErr(err)
	}
	return out.(*Order), nil
}

func wrapBreakerErr(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return errors.Join(ErrGatewayUnavailable, err)
	}
	return err
}
