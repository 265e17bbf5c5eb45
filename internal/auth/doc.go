// Package auth implements the permission model of the portal.
//
// An Actor is the authenticated portal profile. Vendor owners and customers
// have full access to their own portal; employees are restricted to the union
// of the permissions of their assigned roles.
//
// # Permission Checking
//
// HasPermission and CanAccess are pure functions over an actor and a
// PermissionSet. They never fail: a missing match is a normal denied Decision.
//
// # Engine
//
// Engine holds the current actor and loads the employee's role permissions
// from a RoleSource. Every load is tagged with a generation number; a result
// that arrives after the actor changed is dropped. While an employee's
// permissions are loading, or after the load failed, every check for that
// employee is denied and Snapshot().PermissionsPending() reports true so the
// menu can be hidden instead of showing a partial tree.
//
// # Middleware
//
// Fiber middleware functions are provided for the local bridge:
//   - RequirePermission: protect routes requiring a resource/action pair
//   - AddPermissionsToLocals: pin one permission snapshot per request
//
// Example usage:
//
//	engine := auth.NewEngine(apiClient)
//	if err := engine.SetActor(ctx, &actor); err != nil {
//	    log.Error().Err(err).Msg("permissions unavailable")
//	}
//
//	if engine.CanAccess(auth.ResourceDeals) {
//	    // show the deals widget
//	}
//
//	app.Post("/api/roles/:id/permissions",
//	    auth.RequirePermission(engine, auth.ResourceRoles, auth.ActionUpdate),
//	    handler,
//	)
package auth
