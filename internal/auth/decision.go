package auth

// Reason explains a Decision.
type Reason string

const (
	ReasonFullAccess Reason = "full-access"
	ReasonRole       Reason = "role"
	ReasonDenied     Reason = "denied"
	ReasonNoActor    Reason = "no-actor"
	ReasonPending    Reason = "permissions-pending"
)

// Decision is the outcome of a permission check.
type Decision struct {
	Granted bool   `json:"granted"`
	Reason  Reason `json:"reason"`
}

// HasPermission decides whether actor may perform action on resource.
// Vendor owners and customers are always granted. Employees are granted iff
// perms, the union of their role permissions, contains the pair.
// An empty action is treated as ActionRead.
func HasPermission(actor *Actor, perms PermissionSet, resource, action string) Decision {
	if actor == nil {
		return Decision{Reason: ReasonNoActor}
	}

	if actor.ProfileType.FullAccess() {
		return Decision{Granted: true, Reason: ReasonFullAccess}
	}

	if actor.ProfileType == ProfileEmployee && perms.Has(resource, action) {
		return Decision{Granted: true, Reason: ReasonRole}
	}

	return Decision{Reason: ReasonDenied}
}

// CanAccess is HasPermission with ActionRead.
func CanAccess(actor *Actor, perms PermissionSet, resource string) bool {
	return HasPermission(actor, perms, resource, ActionRead).Granted
}
