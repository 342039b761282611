package notify

import (
	"context"
	"errors"

	"price_tracker/internal/domain"
)

// Notifier matches the service-side contract without importing it.
type Notifier interface {
	Notify(ctx context.Context, alert *domain.AlertRequest) error
}

// Multi fans one alert out to every configured notifier. Each notifier
// gets its attempt even when an earlier one fails; errors are joined.
type Multi struct {
	notifiers []Notifier
}

func NewMulti(notifiers ...Notifier) *Multi {
	return &Multi{notifiers: notifiers}
}

func (m *Multi) Notify(ctx context.Context, alert *domain.AlertRequest) error {
	var errs []error
	for _, n := range m.notifiers {
		if err := n.Notify(ctx, alert); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
