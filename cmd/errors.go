package cmd

import (
	"context"
	"errors"

	"github.com/naka-gawa/repo-health/internal/domain"
	"github.com/naka-gawa/repo-health/internal/gateway"
)

// usageError marks bad flags, arguments or configuration.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }

func (e *usageError) Unwrap() error { return e.err }

// operatorMessage maps a failure onto the one-line message shown to the operator.
// Details stay in the log stream.
func operatorMessage(err error) string {
	var (
		inputErr *domain.InputError
		usageErr *usageError
		fetchErr *gateway.FetchError
	)
	switch {
	case errors.Is(err, context.Canceled):
		return "\n⚠️  Operation cancelled by user"
	case errors.As(err, &inputErr):
		return "❌ Error: " + inputErr.Error()
	case errors.As(err, &usageErr):
		return "❌ Error: " + usageErr.Error()
	case errors.As(err, &fetchErr):
		return "❌ API Error: " + fetchErr.Error()
	default:
		return "❌ Unexpected error: " + err.Error()
	}
}
