package auth

import (
	"fmt"
	"slices"
)

// ProfileType is the kind of portal profile an actor is logged in with.
type ProfileType string

const (
	// ProfileVendorOwner owns the vendor organization and has full access.
	ProfileVendorOwner ProfileType = "vendor-owner"
	// ProfileEmployee is restricted by assigned roles.
	ProfileEmployee ProfileType = "employee"
	// ProfileCustomer uses the client portal and has full access to it.
	ProfileCustomer ProfileType = "customer"
)

// FullAccess reports whether the profile type bypasses role checks.
func (p ProfileType) FullAccess() bool {
	return p == ProfileVendorOwner || p == ProfileCustomer
}

// ParseProfileType validates a profile type string.
func ParseProfileType(s string) (ProfileType, error) {
	switch p := ProfileType(s); p {
	case ProfileVendorOwner, ProfileEmployee, ProfileCustomer:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownProfileType, s)
	}
}

// Actor is the authenticated profile whose permissions are evaluated.
type Actor struct {
	ID             int64       `json:"id"`
	Name           string      `json:"name,omitempty"`
	ProfileType    ProfileType `json:"profile_type"`
	OrganizationID int64       `json:"organization_id"`
	// RoleIDs are the employee's role assignments. Ignored for other profile types.
	RoleIDs []int64 `json:"role_ids,omitempty"`
}

// HoldsRole reports whether the actor is an employee assigned to roleID.
func (a *Actor) HoldsRole(roleID int64) bool {
	if a == nil || a.ProfileType != ProfileEmployee {
		return false
	}

	return slices.Contains(a.RoleIDs, roleID)
}

// Clone returns a deep copy of the actor.
func (a *Actor) Clone() *Actor {
	if a == nil {
		return nil
	}

	out := *a
	out.RoleIDs = slices.Clone(a.RoleIDs)

	return &out
}

// Role is a named set of permissions assignable to employees.
type Role struct {
	ID                int64        `json:"id"`
	Name              string       `json:"name"`
	Description       string       `json:"description"`
	IsSystemRole      bool         `json:"is_system_role"`
	Permissions       []Permission `json:"permissions"`
	AssignedUserCount int          `json:"assigned_user_count"`
}

// Clone returns a deep copy of the role.
func (r Role) Clone() Role {
	r.Permissions = slices.Clone(r.Permissions)
	return r
}

// UnionPermissions merges the permissions of every role whose ID is in roleIDs.
func UnionPermissions(roles []Role, roleIDs []int64) PermissionSet {
	set := make(PermissionSet)

	for _, role := range roles {
		if !slices.Contains(roleIDs, role.ID) {
			continue
		}

		for _, p := range role.Permissions {
			set.Add(p.Resource, p.Action)
		}
	}

	return set
}
