package navigation

import (
	"github.com/crm-portal/portal-agent/internal/auth"
)

// MenuItem is a node of the navigation tree. Visibility is derived, never stored.
type MenuItem struct {
	Label            string     `json:"label"`
	Path             string     `json:"path"`
	RequiredResource string     `json:"required_resource,omitempty"`
	RequiredAction   string     `json:"required_action,omitempty"`
	AlwaysVisible    bool       `json:"always_visible,omitempty"`
	Children         []MenuItem `json:"children,omitempty"`
}

// IsLeaf reports whether the item has no children.
func (m MenuItem) IsLeaf() bool {
	return len(m.Children) == 0
}

// VisibleMenu filters tree for actor. An item is kept iff it is AlwaysVisible,
// or the actor is a vendor owner, or at least one of its children is kept,
// or it is a leaf and the actor holds (RequiredResource, RequiredAction).
//
// While an employee's permissions are pending (loading or failed) the result is
// empty. The input tree is never modified and the result shares no slices with it.
func VisibleMenu(actor *auth.Actor, perms auth.PermissionSet, pending bool, tree []MenuItem) []MenuItem {
	visible := make([]MenuItem, 0, len(tree))

	if actor == nil {
		return visible
	}

	if pending && actor.ProfileType == auth.ProfileEmployee {
		return visible
	}

	for _, item := range tree {
		if out, ok := filterItem(actor, perms, item); ok {
			visible = append(visible, out)
		}
	}

	return visible
}

// VisibleMenuFor filters tree with the state of an engine snapshot.
func VisibleMenuFor(snap auth.Snapshot, tree []MenuItem) []MenuItem {
	return VisibleMenu(snap.Actor, snap.Permissions, snap.PermissionsPending(), tree)
}

func filterItem(actor *auth.Actor, perms auth.PermissionSet, item MenuItem) (MenuItem, bool) {
	var children []MenuItem

	for _, child := range item.Children {
		if out, ok := filterItem(actor, perms, child); ok {
			children = append(children, out)
		}
	}

	visible := item.AlwaysVisible ||
		actor.ProfileType == auth.ProfileVendorOwner ||
		len(children) > 0 ||
		(item.IsLeaf() && auth.HasPermission(actor, perms, item.RequiredResource, item.RequiredAction).Granted)

	if !visible {
		return MenuItem{}, false
	}

	item.Children = children

	return item, true
}

// Trail returns the chain of items from a root of tree down to the item with path.
// It returns nil if no item has that path.
func Trail(tree []MenuItem, path string) []MenuItem {
	for _, item := range tree {
		if item.Path == path {
			return []MenuItem{item}
		}

		if sub := Trail(item.Children, path); sub != nil {
			return append([]MenuItem{item}, sub...)
		}
	}

	return nil
}

// CountItems returns the number of nodes in tree.
func CountItems(tree []MenuItem) int {
	n := len(tree)
	for _, item := range tree {
		n += CountItems(item.Children)
	}

	return n
}

// DefaultTree returns the navigation tree of the portal the profile type logs into.
func DefaultTree(profile auth.ProfileType) []MenuItem {
	if profile == auth.ProfileCustomer {
		return customerTree()
	}

	return vendorTree()
}

func vendorTree() []MenuItem {
	return []MenuItem{
		{Label: "Dashboard", Path: "/dashboard", AlwaysVisible: true},
		{
			Label: "Sales",
			Path:  "/sales",
			Children: []MenuItem{
				{Label: "Customers", Path: "/customers", RequiredResource: auth.ResourceCustomers},
				{Label: "Leads", Path: "/leads", RequiredResource: auth.ResourceLeads},
				{Label: "Deals", Path: "/deals", RequiredResource: auth.ResourceDeals},
			},
		},
		{Label: "Activities", Path: "/activities", RequiredResource: auth.ResourceActivities},
		{Label: "Issues", Path: "/issues", RequiredResource: auth.ResourceIssues},
		{
			Label: "Finance",
			Path:  "/finance",
			Children: []MenuItem{
				{Label: "Vendors", Path: "/vendors", RequiredResource: auth.ResourceVendors},
				{Label: "Payments", Path: "/payments", RequiredResource: auth.ResourcePayments},
			},
		},
		{
			Label: "Team",
			Path:  "/team",
			Children: []MenuItem{
				{Label: "Members", Path: "/team/members", RequiredResource: auth.ResourceTeam},
				{
					Label:            "Roles & Permissions",
					Path:             "/team/roles",
					RequiredResource: auth.ResourceRoles,
					RequiredAction:   auth.ActionUpdate,
				},
			},
		},
		{Label: "Calls", Path: "/calls", RequiredResource: auth.ResourceCalls},
	}
}

func customerTree() []MenuItem {
	return []MenuItem{
		{Label: "Dashboard", Path: "/client/dashboard", AlwaysVisible: true},
		{Label: "My Issues", Path: "/client/issues", RequiredResource: auth.ResourceIssues},
		{Label: "Payments", Path: "/client/payments", RequiredResource: auth.ResourcePayments},
		{Label: "Calls", Path: "/client/calls", RequiredResource: auth.ResourceCalls},
	}
}
