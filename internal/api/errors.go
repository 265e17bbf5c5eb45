package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/crm-portal/portal-agent/internal/apperror"
)

var (
	// ErrEmptyBody is returned when a response that must carry a payload is empty.
	ErrEmptyBody = errors.New("empty response body")

	// ErrNoChannelAuth is returned when the channel authorization response has no signature.
	ErrNoChannelAuth = errors.New("channel authorization response without auth")
)

// errorBody is the backend error payload.
type errorBody struct {
	Message string              `json:"message"`
	Error   string              `json:"error"`
	Errors  map[string][]string `json:"errors"`
}

func (b errorBody) text() string {
	if b.Message != "" {
		return b.Message
	}

	return b.Error
}

// handleError maps an error response into the apperror taxonomy.
func (c *Client) handleError(resp *resty.Response, method, path, resource string) error {
	var body errorBody
	_ = json.Unmarshal(resp.Body(), &body)

	code := resp.StatusCode()

	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return apperror.NewAuth(code, body.text())
	case code == http.StatusNotFound:
		return &apperror.NotFoundError{Resource: resource}
	case code == http.StatusBadRequest || code == http.StatusConflict || code == http.StatusUnprocessableEntity:
		return validationError(body)
	default:
		return &apperror.TransportError{
			Operation:  method,
			URL:        c.baseURL + path,
			StatusCode: code,
			Err:        errors.New(strings.TrimSpace(body.text())),
		}
	}
}

// validationError picks the first field error in a stable order.
func validationError(body errorBody) *apperror.ValidationError {
	fields := make([]string, 0, len(body.Errors))
	for field := range body.Errors {
		fields = append(fields, field)
	}

	sort.Strings(fields)

	for _, field := range fields {
		if msgs := body.Errors[field]; len(msgs) > 0 {
			return apperror.NewValidation(field, msgs[0])
		}
	}

	msg := body.text()
	if msg == "" {
		msg = "request rejected"
	}

	return apperror.NewValidation("", msg)
}
