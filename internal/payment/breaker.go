package payment

import (
	"context"
	"errors"
	"time"

	"github.com/fjod/storefront/internal/logger"
	"github.com/sony/gobreaker/v2"
)

// BreakerGateway stops calling a failing gateway for a while. Declined
// charges and invalid cards are answers, not failures, and do not count.
type BreakerGateway struct {
	next Gateway
	cb   *gobreaker.CircuitBreaker[Receipt]
}

func NewBreakerGateway(next Gateway, maxFailures uint32, openFor time.Duration) *BreakerGateway {
	settings := gobreaker.Settings{
		Name:    "payment-gateway",
		Timeout: openFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrDeclined) || errors.Is(err, ErrInvalidCard)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.FromContext(context.Background()).Warn("circuit breaker state change",
				"breaker", name, "from", from.String(), "to", to.String())
		},
	}
	return &BreakerGateway{next: next, cb: gobreaker.NewCircuitBreaker[Receipt](settings)}
}

func (b *BreakerGateway) Charge(ctx context.Context, c Charge) (Receipt, error) {
	return b.cb.Execute(func() (Receipt, error) {
		return b.next.Charge(ctx, c)
	})
}

func (b *BreakerGateway) State() gobreaker.State {
	return b.cb.State()
}
