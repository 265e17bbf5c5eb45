package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasPermission(t *testing.T) {
	dealsReader := NewPermissionSet(Permission{Resource: ResourceDeals, Action: ActionRead})

	testCases := []struct {
		name     string
		actor    *Actor
		perms    PermissionSet
		resource string
		action   string
		want     Decision
	}{
		{
			name:     "nil actor",
			actor:    nil,
			perms:    dealsReader,
			resource: ResourceDeals,
			action:   ActionRead,
			want:     Decision{Reason: ReasonNoActor},
		},
		{
			name:     "vendor owner without permissions",
			actor:    &Actor{ID: 1, ProfileType: ProfileVendorOwner},
			resource: ResourcePayments,
			action:   ActionDelete,
			want:     Decision{Granted: true, Reason: ReasonFullAccess},
		},
		{
			name:     "customer without permissions",
			actor:    &Actor{ID: 2, ProfileType: ProfileCustomer},
			resource: ResourceIssues,
			action:   ActionCreate,
			want:     Decision{Granted: true, Reason: ReasonFullAccess},
		},
		{
			name:     "employee with matching permission",
			actor:    &Actor{ID: 3, ProfileType: ProfileEmployee, RoleIDs: []int64{1}},
			perms:    dealsReader,
			resource: ResourceDeals,
			action:   ActionRead,
			want:     Decision{Granted: true, Reason: ReasonRole},
		},
		{
			name:     "employee empty action defaults to read",
			actor:    &Actor{ID: 3, ProfileType: ProfileEmployee},
			perms:    dealsReader,
			resource: ResourceDeals,
			action:   "",
			want:     Decision{Granted: true, Reason: ReasonRole},
		},
		{
			name:     "employee other action",
			actor:    &Actor{ID: 3, ProfileType: ProfileEmployee},
			perms:    dealsReader,
			resource: ResourceDeals,
			action:   ActionUpdate,
			want:     Decision{Reason: ReasonDenied},
		},
		{
			name:     "employee with nil permissions",
			actor:    &Actor{ID: 3, ProfileType: ProfileEmployee},
			perms:    nil,
			resource: ResourceDeals,
			action:   ActionRead,
			want:     Decision{Reason: ReasonDenied},
		},
		{
			name:     "unknown profile type",
			actor:    &Actor{ID: 4, ProfileType: "robot"},
			perms:    dealsReader,
			resource: ResourceDeals,
			action:   ActionRead,
			want:     Decision{Reason: ReasonDenied},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, HasPermission(tc.actor, tc.perms, tc.resource, tc.action))
		})
	}
}

func TestHasPermission_EmployeeWithoutMatchIsAlwaysDenied(t *testing.T) {
	actor := &Actor{ID: 9, ProfileType: ProfileEmployee, RoleIDs: []int64{1, 2}}
	perms := NewPermissionSet(Permission{Resource: ResourceLeads, Action: ActionCreate})

	resources := []string{ResourceCustomers, ResourceDeals, ResourceVendors, ResourcePayments, ResourceRoles}
	actions := []string{ActionRead, ActionCreate, ActionUpdate, ActionDelete}

	for _, resource := range resources {
		for _, action := range actions {
			assert.False(t, HasPermission(actor, perms, resource, action).Granted, Key(resource, action))
		}
	}
}

func TestHasPermission_FullAccessIsAlwaysGranted(t *testing.T) {
	for _, profile := range []ProfileType{ProfileVendorOwner, ProfileCustomer} {
		actor := &Actor{ID: 1, ProfileType: profile}

		for _, resource := range []string{ResourceDeals, ResourceRoles, "anything"} {
			for _, action := range []string{ActionRead, ActionDelete, "export"} {
				assert.True(t, HasPermission(actor, nil, resource, action).Granted)
			}
		}
	}
}

func TestCanAccess_EmployeeDealsReader(t *testing.T) {
	roles := []Role{
		{ID: 1, Name: "Sales", Permissions: []Permission{{Resource: ResourceDeals, Action: ActionRead}}},
		{ID: 2, Name: "Support", Permissions: []Permission{{Resource: ResourceIssues, Action: ActionRead}}},
	}
	actor := &Actor{ID: 7, ProfileType: ProfileEmployee, RoleIDs: []int64{1}}
	perms := UnionPermissions(roles, actor.RoleIDs)

	assert.True(t, CanAccess(actor, perms, ResourceDeals))
	assert.False(t, CanAccess(actor, perms, ResourceLeads))
	assert.False(t, CanAccess(actor, perms, ResourceIssues))
}

func TestUnionPermissions(t *testing.T) {
	roles := []Role{
		{ID: 1, Permissions: []Permission{
			{Resource: ResourceDeals, Action: ActionRead},
			{Resource: ResourceLeads, Action: ActionRead},
		}},
		{ID: 2, Permissions: []Permission{
			{Resource: ResourceDeals, Action: ActionRead},
			{Resource: ResourceDeals, Action: ActionUpdate},
		}},
		{ID: 3, Permissions: []Permission{
			{Resource: ResourcePayments, Action: ActionRead},
		}},
	}

	set := UnionPermissions(roles, []int64{1, 2})

	assert.Equal(t, []string{"deals.read", "deals.update", "leads.read"}, set.Keys())
	assert.Empty(t, UnionPermissions(roles, nil))
}
