// Package roles implements role administration for vendor owners: listing roles,
// the permission catalog grouped by resource, and the full-replace permission
// assignment. Results are cached so the UI can render without a round trip.
package roles

import (
	"context"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/crm-portal/portal-agent/internal/api"
	"github.com/crm-portal/portal-agent/internal/apperror"
	"github.com/crm-portal/portal-agent/internal/auth"
)

// Backend is the role part of the portal REST API.
type Backend interface {
	ListRoles(ctx context.Context) ([]auth.Role, error)
	CreateRole(ctx context.Context, in api.RoleInput) (*auth.Role, error)
	UpdateRole(ctx context.Context, id int64, in api.RoleInput) (*auth.Role, error)
	DeleteRole(ctx context.Context, id int64) error
	PermissionsByResource(ctx context.Context) (map[string][]auth.Permission, error)
	AssignPermissions(ctx context.Context, roleID int64, permissionIDs []int64) (*auth.Role, error)
}

// Reloader is notified when a role of the current actor changed.
type Reloader interface {
	HoldsRole(roleID int64) bool
	Reload(ctx context.Context) error
}

type roleForm struct {
	Name        string `json:"name"        validate:"required,max=64"`
	Description string `json:"description" validate:"max=255"`
}

type assignForm struct {
	RoleID        int64   `json:"role_id"        validate:"gt=0"`
	PermissionIDs []int64 `json:"permission_ids" validate:"dive,gt=0"`
}

// Service administers roles.
type Service struct {
	backend  Backend
	reloader Reloader

	mu     sync.RWMutex
	roles  []auth.Role
	loaded bool
}

// New creates a role service. reloader may be nil.
func New(backend Backend, reloader Reloader) (*Service, error) {
	if backend == nil {
		return nil, ErrBackendNil
	}

	return &Service{backend: backend, reloader: reloader}, nil
}

// List fetches all roles and refreshes the cache.
func (s *Service) List(ctx context.Context) ([]auth.Role, error) {
	roles, err := s.backend.ListRoles(ctx)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	sort.SliceStable(roles, func(i, j int) bool {
		return roles[i].ID < roles[j].ID
	})

	s.mu.Lock()
	s.roles = cloneRoles(roles)
	s.loaded = true
	s.mu.Unlock()

	return roles, nil
}

// Cached returns the roles of the last successful List, or false when nothing was loaded.
func (s *Service) Cached() ([]auth.Role, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return cloneRoles(s.roles), s.loaded
}

// PermissionsByResource returns the permission catalog grouped and sorted for presentation.
func (s *Service) PermissionsByResource(ctx context.Context) ([]auth.ResourceGroup, error) {
	catalog, err := s.backend.PermissionsByResource(ctx)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	var perms []auth.Permission

	for resource, list := range catalog {
		for _, p := range list {
			if p.Resource == "" {
				p.Resource = resource
			}

			perms = append(perms, p)
		}
	}

	return auth.GroupByResource(perms), nil
}

// Create adds a custom role.
func (s *Service) Create(ctx context.Context, in api.RoleInput) (*auth.Role, error) {
	if err := check(roleForm{Name: in.Name, Description: in.Description}); err != nil {
		return nil, err
	}

	role, err := s.backend.CreateRole(ctx, in)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	s.store(*role)

	return role, nil
}

// Update renames or re-describes a custom role.
func (s *Service) Update(ctx context.Context, id int64, in api.RoleInput) (*auth.Role, error) {
	if err := s.checkModifiable(ctx, id); err != nil {
		return nil, err
	}

	if err := check(roleForm{Name: in.Name, Description: in.Description}); err != nil {
		return nil, err
	}

	role, err := s.backend.UpdateRole(ctx, id, in)
	if err != nil {
		return nil, asValidation(err, "role_id")
	}

	s.store(*role)

	return role, nil
}

// Delete removes a custom role.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.checkModifiable(ctx, id); err != nil {
		return err
	}

	if err := s.backend.DeleteRole(ctx, id); err != nil {
		return asValidation(err, "role_id")
	}

	s.mu.Lock()
	for i := range s.roles {
		if s.roles[i].ID == id {
			s.roles = append(s.roles[:i], s.roles[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	s.reload(ctx, id)

	return nil
}

// AssignPermissions replaces the permission set of a role. An empty set is
// valid and leaves the role without permissions. The cache only changes after
// the backend accepted the assignment.
func (s *Service) AssignPermissions(ctx context.Context, roleID int64, permissionIDs []int64) (*auth.Role, error) {
	ids := dedupe(permissionIDs)

	if err := check(assignForm{RoleID: roleID, PermissionIDs: ids}); err != nil {
		return nil, err
	}

	role, err := s.backend.AssignPermissions(ctx, roleID, ids)
	if err != nil {
		return nil, asValidation(err, "permission_ids")
	}

	s.store(*role)

	log.Info().Int64("role_id", roleID).Int("permissions", len(role.Permissions)).Msg("role permissions replaced")

	s.reload(ctx, roleID)

	return role, nil
}

// checkModifiable refuses system roles, loading the role list first when the
// cache is cold.
func (s *Service) checkModifiable(ctx context.Context, id int64) error {
	if id <= 0 {
		return apperror.NewValidation("role_id", "must be greater than 0")
	}

	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()

	if !loaded {
		if _, err := s.List(ctx); err != nil {
			return err
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.roles {
		if r.ID == id && r.IsSystemRole {
			return &apperror.ValidationError{Field: "role_id", Message: ErrSystemRole.Error(), Err: ErrSystemRole}
		}
	}

	return nil
}

// store replaces the cached copy of role or appends it.
func (s *Service) store(role auth.Role) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.roles {
		if s.roles[i].ID == role.ID {
			s.roles[i] = role.Clone()
			return
		}
	}

	s.roles = append(s.roles, role.Clone())
}

// reload refreshes the engine when the current actor holds roleID. A failed
// reload leaves the engine in its failed state; the assignment itself stands.
func (s *Service) reload(ctx context.Context, roleID int64) {
	if s.reloader == nil || !s.reloader.HoldsRole(roleID) {
		return
	}

	if err := s.reloader.Reload(ctx); err != nil {
		log.Warn().Err(err).Int64("role_id", roleID).Msg("permission reload after role change failed")
	}
}

// asValidation maps a backend 404 on the role onto a validation failure of field.
func asValidation(err error, field string) error {
	if apperror.IsNotFound(err) {
		return &apperror.ValidationError{Field: field, Message: "unknown role or permission", Err: err}
	}

	return err
}

func dedupe(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))

	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}

		seen[id] = struct{}{}
		out = append(out, id)
	}

	return out
}

func cloneRoles(in []auth.Role) []auth.Role {
	if in == nil {
		return nil
	}

	out := make([]auth.Role, len(in))
	for i, r := range in {
		out[i] = r.Clone()
	}

	return out
}
