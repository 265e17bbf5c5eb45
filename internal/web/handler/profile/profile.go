// Package profile serves the current actor, its permission state and
// permission checks to the UI.
package profile

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/crm-portal/portal-agent/internal/auth"
	"github.com/crm-portal/portal-agent/internal/config"
	"github.com/crm-portal/portal-agent/internal/web/handler"
)

const (
	// Path is the path of the profile endpoint.
	Path = handler.APIPath + "/profile"

	// ReloadPath reloads the employee permissions.
	ReloadPath = Path + "/reload"

	// CheckPath evaluates permission checks.
	CheckPath = handler.APIPath + "/permissions/check"
)

// Response is the permission state of the current actor.
type Response struct {
	Actor       *auth.Actor    `json:"actor"`
	State       auth.LoadState `json:"state"`
	Error       string         `json:"error,omitempty"`
	Pending     bool           `json:"pending"`
	Permissions []string       `json:"permissions"`
}

// CheckResponse is the result of a permission check.
type CheckResponse struct {
	auth.Decision
	Key string `json:"key,omitempty"`
}

// Service is the profile handler service.
type Service struct {
	handler.Service
	engine *auth.Engine
}

// Handler is the profile handler.
var Handler = Service{} //nolint:gochecknoglobals

// Init registers the profile routes.
func (s *Service) Init(router fiber.Router, cfg *config.Config, deps *handler.Deps) error {
	if router == nil || cfg == nil || deps == nil || deps.Engine == nil {
		return handler.ErrNilDeps
	}

	s.engine = deps.Engine

	router.Get(Path, s.Get)
	router.Post(ReloadPath, s.Reload)
	router.Get(CheckPath, s.Check)

	return nil
}

// Get returns the current actor and its permissions.
func (s *Service) Get(c *fiber.Ctx) error {
	return respond(c, auth.SnapshotFromLocals(c, s.engine))
}

func respond(c *fiber.Ctx, snap auth.Snapshot) error {
	return c.JSON(Response{
		Actor:       snap.Actor,
		State:       snap.State,
		Error:       snap.Error,
		Pending:     snap.PermissionsPending(),
		Permissions: snap.Permissions.Keys(),
	})
}

// Reload loads the employee permissions again.
func (s *Service) Reload(c *fiber.Ctx) error {
	if err := s.engine.Reload(c.UserContext()); err != nil {
		return handler.Error(c, err)
	}

	return respond(c, s.engine.Snapshot())
}

// Check evaluates ?resource=&action= or, with ?any= or ?all=, a comma
// separated list of resource.action keys.
func (s *Service) Check(c *fiber.Ctx) error {
	snap := auth.SnapshotFromLocals(c, s.engine)

	if keys := c.Query("any"); keys != "" {
		granted := snap.HasAny(splitKeys(keys)...)
		return c.JSON(CheckResponse{Decision: aggregate(snap, granted), Key: keys})
	}

	if keys := c.Query("all"); keys != "" {
		granted := snap.HasAll(splitKeys(keys)...)
		return c.JSON(CheckResponse{Decision: aggregate(snap, granted), Key: keys})
	}

	resource := c.Query("resource")
	if resource == "" {
		return c.Status(fiber.StatusBadRequest).JSON(handler.ErrorResponse{Error: "resource is required", Field: "resource"})
	}

	action := c.Query("action", auth.ActionRead)

	return c.JSON(CheckResponse{
		Decision: snap.HasPermission(resource, action),
		Key:      auth.Key(resource, action),
	})
}

// aggregate gives a multi key check the reason a single check would have.
func aggregate(snap auth.Snapshot, granted bool) auth.Decision {
	switch {
	case snap.Actor == nil:
		return auth.Decision{Reason: auth.ReasonNoActor}
	case snap.PermissionsPending():
		return auth.Decision{Reason: auth.ReasonPending}
	case !granted:
		return auth.Decision{Reason: auth.ReasonDenied}
	case snap.Actor.ProfileType.FullAccess():
		return auth.Decision{Granted: true, Reason: auth.ReasonFullAccess}
	default:
		return auth.Decision{Granted: true, Reason: auth.ReasonRole}
	}
}

func splitKeys(s string) []string {
	parts := strings.Split(s, ",")
	out := parts[:0]

	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}

	return out
}
