// Package roles serves role administration to vendor owners and employees
// allowed to manage roles.
package roles

import (
	"github.com/gofiber/fiber/v2"

	"github.com/crm-portal/portal-agent/internal/api"
	"github.com/crm-portal/portal-agent/internal/auth"
	"github.com/crm-portal/portal-agent/internal/config"
	roleadmin "github.com/crm-portal/portal-agent/internal/roles"
	"github.com/crm-portal/portal-agent/internal/web/handler"
)

const (
	// Path is the root of the role routes.
	Path = handler.APIPath + "/roles"

	// CatalogPath returns the permission catalog grouped by resource.
	CatalogPath = handler.APIPath + "/permissions/by-resource"
)

// AssignRequest is the body of PUT /api/roles/:id/permissions.
type AssignRequest struct {
	PermissionIDs []int64 `json:"permission_ids"`
}

// Service is the roles handler service.
type Service struct {
	handler.Service
	roles *roleadmin.Service
}

// Handler is the roles handler.
var Handler = Service{} //nolint:gochecknoglobals

// Init registers the role routes.
func (s *Service) Init(router fiber.Router, cfg *config.Config, deps *handler.Deps) error {
	if router == nil || cfg == nil || deps == nil || deps.Roles == nil || deps.Engine == nil {
		return handler.ErrNilDeps
	}

	s.roles = deps.Roles

	require := func(action string) fiber.Handler {
		return auth.RequirePermission(deps.Engine, auth.ResourceRoles, action)
	}

	router.Get(Path, require(auth.ActionRead), s.List)
	router.Get(CatalogPath, require(auth.ActionRead), s.Catalog)
	router.Post(Path, require(auth.ActionCreate), s.Create)
	router.Put(Path+"/:id", require(auth.ActionUpdate), s.Update)
	router.Delete(Path+"/:id", require(auth.ActionDelete), s.Delete)
	router.Put(Path+"/:id/permissions", require(auth.ActionUpdate), s.Assign)

	return nil
}

// List returns all roles.
func (s *Service) List(c *fiber.Ctx) error {
	list, err := s.roles.List(c.UserContext())
	if err != nil {
		return handler.Error(c, err)
	}

	if list == nil {
		list = []auth.Role{}
	}

	return c.JSON(fiber.Map{"roles": list})
}

// Catalog returns the permission catalog grouped by resource.
func (s *Service) Catalog(c *fiber.Ctx) error {
	groups, err := s.roles.PermissionsByResource(c.UserContext())
	if err != nil {
		return handler.Error(c, err)
	}

	return c.JSON(fiber.Map{"groups": groups})
}

// Create adds a custom role.
func (s *Service) Create(c *fiber.Ctx) error {
	var in api.RoleInput
	if err := c.BodyParser(&in); err != nil {
		return handler.BadRequest(c, err)
	}

	role, err := s.roles.Create(c.UserContext(), in)
	if err != nil {
		return handler.Error(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(role)
}

// Update renames a custom role.
func (s *Service) Update(c *fiber.Ctx) error {
	var in api.RoleInput
	if err := c.BodyParser(&in); err != nil {
		return handler.BadRequest(c, err)
	}

	id, ok, err := handler.ParamID(c, "id")
	if !ok {
		return err
	}

	role, err := s.roles.Update(c.UserContext(), id, in)
	if err != nil {
		return handler.Error(c, err)
	}

	return c.JSON(role)
}

// Delete removes a custom role.
func (s *Service) Delete(c *fiber.Ctx) error {
	id, ok, err := handler.ParamID(c, "id")
	if !ok {
		return err
	}

	if err = s.roles.Delete(c.UserContext(), id); err != nil {
		return handler.Error(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// Assign replaces the permission set of a role.
func (s *Service) Assign(c *fiber.Ctx) error {
	var req AssignRequest
	if err := c.BodyParser(&req); err != nil {
		return handler.BadRequest(c, err)
	}

	id, ok, err := handler.ParamID(c, "id")
	if !ok {
		return err
	}

	role, err := s.roles.AssignPermissions(c.UserContext(), id, req.PermissionIDs)
	if err != nil {
		return handler.Error(c, err)
	}

	return c.JSON(role)
}
