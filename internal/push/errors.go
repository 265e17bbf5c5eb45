package push

import (
	"errors"
	"fmt"
)

var (
	// ErrNotAuthenticated is returned when there is no user to subscribe for.
	ErrNotAuthenticated = errors.New("push: no authenticated user")

	// ErrUnexpectedHandshake is returned when the first frame is not connection_established.
	ErrUnexpectedHandshake = errors.New("push: unexpected handshake")

	// ErrSubscriptionRejected is returned when the server refuses the channel subscription.
	ErrSubscriptionRejected = errors.New("push: subscription rejected")

	// ErrPongTimeout is returned when a ping stayed unanswered.
	ErrPongTimeout = errors.New("push: pong timeout")
)

// RefusedError reports a server error that forbids reconnecting.
type RefusedError struct {
	Code    int
	Message string
}

func (e *RefusedError) Error() string {
	return fmt.Sprintf("push: connection refused (%d): %s", e.Code, e.Message)
}

// serverError is a recoverable pusher:error.
type serverError struct {
	code    int
	message string
	later   bool
}

func (e *serverError) Error() string {
	return fmt.Sprintf("push: server error (%d): %s", e.code, e.message)
}
