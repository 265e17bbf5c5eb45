package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/crm-portal/portal-agent/internal/auth"
)

const (
	resourceRole       = "role"
	resourcePermission = "permission"
)

// RoleInput is the payload of role create and update.
type RoleInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type assignRequest struct {
	PermissionIDs []int64 `json:"permission_ids"`
}

// ListRoles returns every role with its permissions.
func (c *Client) ListRoles(ctx context.Context) ([]auth.Role, error) {
	var roles []auth.Role

	if err := c.do(ctx, http.MethodGet, "/roles", resourceRole, nil, &roles, "roles"); err != nil {
		return nil, err
	}

	return roles, nil
}

// CreateRole creates a custom role.
func (c *Client) CreateRole(ctx context.Context, in RoleInput) (*auth.Role, error) {
	var role auth.Role

	if err := c.do(ctx, http.MethodPost, "/roles", resourceRole, in, &role, "role"); err != nil {
		return nil, err
	}

	return &role, nil
}

// UpdateRole renames or re-describes a role.
func (c *Client) UpdateRole(ctx context.Context, id int64, in RoleInput) (*auth.Role, error) {
	var role auth.Role

	if err := c.do(ctx, http.MethodPut, rolePath(id), resourceRole, in, &role, "role"); err != nil {
		return nil, err
	}

	return &role, nil
}

// DeleteRole removes a role.
func (c *Client) DeleteRole(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, rolePath(id), resourceRole, nil, nil)
}

// PermissionsByResource returns the permission catalog keyed by resource.
func (c *Client) PermissionsByResource(ctx context.Context) (map[string][]auth.Permission, error) {
	var catalog map[string][]auth.Permission

	if err := c.do(ctx, http.MethodGet, "/permissions/by-resource", resourcePermission, nil, &catalog, "permissions"); err != nil {
		return nil, err
	}

	return catalog, nil
}

// AssignPermissions replaces the permission set of a role and returns the updated role.
func (c *Client) AssignPermissions(ctx context.Context, roleID int64, permissionIDs []int64) (*auth.Role, error) {
	if permissionIDs == nil {
		// an empty set clears the role, it must not be sent as null
		permissionIDs = []int64{}
	}

	var role auth.Role

	path := rolePath(roleID) + "/permissions"
	if err := c.do(ctx, http.MethodPost, path, resourceRole, assignRequest{PermissionIDs: permissionIDs}, &role, "role"); err != nil {
		return nil, err
	}

	return &role, nil
}

func rolePath(id int64) string {
	return "/roles/" + strconv.FormatInt(id, 10)
}

var _ auth.RoleSource = (*Client)(nil)
