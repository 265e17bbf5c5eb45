package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/crm-portal/portal-agent/internal/apperror"
	"github.com/crm-portal/portal-agent/internal/call"
)

const resourceCall = "call"

type initiateRequest struct {
	RecipientID int64     `json:"recipient_id"`
	CallType    call.Type `json:"call_type"`
}

// InitiateCall creates an outgoing call.
func (c *Client) InitiateCall(ctx context.Context, recipientID int64, callType call.Type) (*call.Session, error) {
	return c.callAction(ctx, http.MethodPost, "/calls/initiate", initiateRequest{
		RecipientID: recipientID,
		CallType:    callType,
	})
}

// AnswerCall accepts an incoming call.
func (c *Client) AnswerCall(ctx context.Context, id int64) (*call.Session, error) {
	return c.callAction(ctx, http.MethodPost, callPath(id, "answer"), nil)
}

// RejectCall declines an incoming call.
func (c *Client) RejectCall(ctx context.Context, id int64) (*call.Session, error) {
	return c.callAction(ctx, http.MethodPost, callPath(id, "reject"), nil)
}

// EndCall hangs up.
func (c *Client) EndCall(ctx context.Context, id int64) (*call.Session, error) {
	return c.callAction(ctx, http.MethodPost, callPath(id, "end"), nil)
}

// ActiveCall returns the call the user is part of. A 404 or an empty response
// means there is none and is returned as a NotFoundError.
func (c *Client) ActiveCall(ctx context.Context) (*call.Session, error) {
	session, err := c.callAction(ctx, http.MethodGet, "/calls/my-active", nil)
	if errors.Is(err, ErrEmptyBody) {
		return nil, &apperror.NotFoundError{Resource: resourceCall}
	}

	return session, err
}

// Heartbeat tells the backend the user is still online.
func (c *Client) Heartbeat(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/calls/heartbeat", resourceCall, struct{}{}, nil)
}

func (c *Client) callAction(ctx context.Context, method, path string, body any) (*call.Session, error) {
	var session call.Session

	if err := c.do(ctx, method, path, resourceCall, body, &session, "call"); err != nil {
		return nil, err
	}

	return &session, nil
}

func callPath(id int64, action string) string {
	return "/calls/" + strconv.FormatInt(id, 10) + "/" + action
}

var _ call.Backend = (*Client)(nil)
