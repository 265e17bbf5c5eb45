package auth

import (
	"sort"
	"strings"
)

// Resources of the CRM portal permissions are scoped to.
const (
	ResourceDashboard  = "dashboard"
	ResourceCustomers  = "customers"
	ResourceDeals      = "deals"
	ResourceLeads      = "leads"
	ResourceActivities = "activities"
	ResourceIssues     = "issues"
	ResourceVendors    = "vendors"
	ResourcePayments   = "payments"
	ResourceTeam       = "team"
	ResourceRoles      = "roles"
	ResourceCalls      = "calls"
)

// Actions on a resource.
const (
	// ActionRead is the default action of every check.
	ActionRead   = "read"
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// Permission is a (resource, action) pair as delivered by the backend.
type Permission struct {
	ID          int64  `json:"id"`
	Name        string `json:"name,omitempty"`
	Resource    string `json:"resource"`
	Action      string `json:"action"`
	Description string `json:"description,omitempty"`
}

// Key returns the permission in resource.action format (e.g. "deals.read").
func (p Permission) Key() string {
	return Key(p.Resource, p.Action)
}

// Key builds the resource.action key. An empty action means ActionRead.
func Key(resource, action string) string {
	if action == "" {
		action = ActionRead
	}

	return resource + "." + action
}

// ParseKey splits a resource.action key. The action is everything after the last dot.
func ParseKey(key string) (resource, action string, ok bool) {
	idx := strings.LastIndex(key, ".")
	if idx <= 0 || idx == len(key)-1 {
		return "", "", false
	}

	return key[:idx], key[idx+1:], true
}

// PermissionSet is an unordered set of permission keys.
type PermissionSet map[string]struct{}

// NewPermissionSet creates a set from the given permissions.
func NewPermissionSet(perms ...Permission) PermissionSet {
	set := make(PermissionSet, len(perms))
	for _, p := range perms {
		set.Add(p.Resource, p.Action)
	}

	return set
}

// Add inserts (resource, action) into the set.
func (s PermissionSet) Add(resource, action string) {
	s[Key(resource, action)] = struct{}{}
}

// Has reports whether (resource, action) is in the set. A nil set has nothing.
func (s PermissionSet) Has(resource, action string) bool {
	_, ok := s[Key(resource, action)]
	return ok
}

// Keys returns the sorted permission keys.
func (s PermissionSet) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

// Clone returns an independent copy.
func (s PermissionSet) Clone() PermissionSet {
	out := make(PermissionSet, len(s))
	for k := range s {
		out[k] = struct{}{}
	}

	return out
}

// ResourceGroup is a list of permissions sharing one resource, used for presentation.
type ResourceGroup struct {
	Resource    string       `json:"resource"`
	Permissions []Permission `json:"permissions"`
}

// GroupByResource groups permissions by resource, sorted by resource then action.
func GroupByResource(perms []Permission) []ResourceGroup {
	byResource := make(map[string][]Permission)
	for _, p := range perms {
		byResource[p.Resource] = append(byResource[p.Resource], p)
	}

	groups := make([]ResourceGroup, 0, len(byResource))
	for resource, list := range byResource {
		sorted := append([]Permission(nil), list...)
		sort.Slice(sorted, func(i, j int) bool {
			return sorted[i].Action < sorted[j].Action
		})

		groups = append(groups, ResourceGroup{Resource: resource, Permissions: sorted})
	}

	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Resource < groups[j].Resource
	})

	return groups
}
