// Package calls exposes the call session controller to the UI: the current
// call state and the start, answer, reject and end commands.
package calls

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/crm-portal/portal-agent/internal/auth"
	"github.com/crm-portal/portal-agent/internal/call"
	"github.com/crm-portal/portal-agent/internal/config"
	"github.com/crm-portal/portal-agent/internal/web/handler"
)

const (
	// Path is the root of the call routes.
	Path = handler.APIPath + "/calls"

	// StatePath returns the current call state.
	StatePath = Path + "/state"

	// CredentialPath returns the decoded room credential of the current call.
	CredentialPath = Path + "/credential"
)

// StartRequest is the body of POST /api/calls.
type StartRequest struct {
	RecipientID int64  `json:"recipient_id" validate:"required,gt=0"`
	CallType    string `json:"call_type"    validate:"required,oneof=audio video"`
}

// StateResponse is the call state plus the push connection status.
type StateResponse struct {
	call.State
	Push         string `json:"push,omitempty"`
	PushError    string `json:"push_error,omitempty"`
	PushSocketID string `json:"push_socket_id,omitempty"`
}

// Service is the calls handler service.
type Service struct {
	handler.Service
	calls     *call.Controller
	push      handler.PushStatus
	validator XValidator
	now       func() time.Time
}

// Handler is the calls handler.
var Handler = Service{} //nolint:gochecknoglobals

// Init registers the call routes.
func (s *Service) Init(router fiber.Router, cfg *config.Config, deps *handler.Deps) error {
	if router == nil || cfg == nil || deps == nil || deps.Calls == nil || deps.Engine == nil {
		return handler.ErrNilDeps
	}

	s.calls = deps.Calls
	s.push = deps.Push
	s.now = time.Now

	router.Get(StatePath, s.State)
	router.Get(CredentialPath, s.Credential)
	router.Post(Path,
		auth.RequirePermission(deps.Engine, auth.ResourceCalls, auth.ActionCreate),
		s.Start,
	)
	router.Post(Path+"/answer", s.Answer)
	router.Post(Path+"/reject", s.Reject)
	router.Post(Path+"/end", s.End)

	return nil
}

// State returns the current call state.
func (s *Service) State(c *fiber.Ctx) error {
	resp := StateResponse{State: s.calls.State()}

	if s.push != nil {
		status, err := s.push.Status()

		resp.Push = string(status)
		resp.PushSocketID = s.push.SocketID()

		if err != nil {
			resp.PushError = err.Error()
		}
	}

	return c.JSON(resp)
}

// Start places an outgoing call.
func (s *Service) Start(c *fiber.Ctx) error {
	var req StartRequest
	if err := c.BodyParser(&req); err != nil {
		return handler.BadRequest(c, err)
	}

	if errs := s.validator.Validate(req); len(errs) > 0 {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"errors": errs})
	}

	session, err := s.calls.StartCall(c.UserContext(), req.RecipientID, call.Type(req.CallType))
	if err != nil {
		return handler.Error(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(session)
}

// Answer accepts the ringing incoming call.
func (s *Service) Answer(c *fiber.Ctx) error {
	session, err := s.calls.Answer(c.UserContext())
	if err != nil {
		return handler.Error(c, err)
	}

	return c.JSON(session)
}

// Reject declines the ringing incoming call.
func (s *Service) Reject(c *fiber.Ctx) error {
	session, err := s.calls.Reject(c.UserContext())
	if err != nil {
		return handler.Error(c, err)
	}

	return c.JSON(session)
}

// End hangs up or dismisses a finished call notice.
func (s *Service) End(c *fiber.Ctx) error {
	if err := s.calls.End(); err != nil {
		return handler.Error(c, err)
	}

	return c.JSON(s.calls.State())
}

// Credential decodes the room token of the current call.
func (s *Service) Credential(c *fiber.Ctx) error {
	state := s.calls.State()
	if state.Session == nil || state.Session.JWTCredential == "" {
		return c.Status(fiber.StatusNotFound).JSON(handler.ErrorResponse{Error: "no call credential"})
	}

	cred, err := call.ParseCredential(state.Session.JWTCredential)
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(handler.ErrorResponse{Error: err.Error()})
	}

	return c.JSON(fiber.Map{
		"credential": cred,
		"expired":    cred.Expired(s.now()),
	})
}
