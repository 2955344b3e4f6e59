package broker

import (
	"context"
	"errors"
	"io"
	"net"
	"syscall"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrNothingToClose      = errors.New("nothing to close")
	ErrInvalidOrder        = errors.New("invalid order")

	// ErrNetwork and ErrExchange mark retryable transport and exchange-side
	// failures.
	ErrNetwork  = errors.New("network error")
	ErrExchange = errors.New("exchange error")
)

// IsTransient reports whether an exchange call may succeed if repeated.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, ErrNetwork), errors.Is(err, ErrExchange):
		return true
	case errors.Is(err, ErrInsufficientBalance), errors.Is(err, ErrNothingToClose), errors.Is(err, ErrInvalidOrder):
		return false
	case errors.Is(err, context.Canceled):
		return false
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, io.ErrUnexpectedEOF):
		return true
	case errors.Is(err, syscall.ECONNRESET), errors.Is(err, syscall.ECONNREFUSED), errors.Is(err, syscall.EPIPE):
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
