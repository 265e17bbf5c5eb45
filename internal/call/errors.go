package call

import "errors"

var (
	// ErrCallInProgress is returned by StartCall while another call is tracked.
	ErrCallInProgress = errors.New("another call is in progress")

	// ErrNoIncomingCall is returned by Answer and Reject without a ringing incoming call.
	ErrNoIncomingCall = errors.New("no incoming call")

	// ErrNoCall is returned by End when nothing is tracked.
	ErrNoCall = errors.New("no call")

	// ErrNotAuthenticated is returned when the profile context has no user.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("call controller closed")

	// ErrEmptyResponse is returned when the backend answered without a session.
	ErrEmptyResponse = errors.New("empty call session in response")

	// ErrUnknownEvent is returned by ParseEvent for names that are not call events.
	ErrUnknownEvent = errors.New("unknown call event")

	// ErrInvalidEvent is returned by ParseEvent for malformed payloads.
	ErrInvalidEvent = errors.New("invalid call event")

	// ErrInvalidCredential is returned by ParseCredential.
	ErrInvalidCredential = errors.New("invalid call credential")
)
