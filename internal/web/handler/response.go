package handler

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/crm-portal/portal-agent/internal/apperror"
	"github.com/crm-portal/portal-agent/internal/auth"
	"github.com/crm-portal/portal-agent/internal/call"
)

// ErrorResponse is the body of every failed bridge request.
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// Status maps an operation error onto the bridge status code.
func Status(err error) int {
	switch {
	case errors.Is(err, call.ErrCallInProgress),
		errors.Is(err, call.ErrNoIncomingCall),
		errors.Is(err, call.ErrNoCall):
		return http.StatusConflict
	case errors.Is(err, call.ErrNotAuthenticated), errors.Is(err, auth.ErrNoActor):
		return http.StatusUnauthorized
	case errors.Is(err, call.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return apperror.HTTPStatus(err)
	}
}

// Error writes err as JSON with the matching status.
func Error(c *fiber.Ctx, err error) error {
	status := Status(err)
	body := ErrorResponse{Error: err.Error()}

	var ve *apperror.ValidationError
	if errors.As(err, &ve) {
		body.Field = ve.Field
	}

	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Path()).Int("status", status).Msg("bridge request failed")
	} else {
		log.Debug().Err(err).Str("path", c.Path()).Int("status", status).Msg("bridge request refused")
	}

	return c.Status(status).JSON(body)
}

// BadRequest reports an unreadable body.
func BadRequest(c *fiber.Ctx, err error) error {
	return c.Status(http.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body: " + err.Error()})
}

// ParamID reads the positive integer route parameter name. When it is
// missing or malformed, ok is false and a 400 naming the parameter has
// already been written.
func ParamID(c *fiber.Ctx, name string) (id int64, ok bool, err error) {
	n, perr := c.ParamsInt(name)
	if perr != nil || n <= 0 {
		return 0, false, c.Status(http.StatusBadRequest).JSON(ErrorResponse{Error: "invalid " + name, Field: name})
	}

	return int64(n), true, nil
}
