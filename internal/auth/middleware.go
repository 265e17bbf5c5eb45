package auth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// RequirePermission creates Fiber middleware that requires the current actor
// to hold (resource, action).
func RequirePermission(engine *Engine, resource, action string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor := engine.Actor()
		if actor == nil {
			log.Error().Str("path", c.Path()).Msg("no actor set")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
		}

		decision := engine.HasPermission(resource, action)
		if !decision.Granted {
			log.Warn().Int64("actor_id", actor.ID).Str("permission", Key(resource, action)).
				Str("reason", string(decision.Reason)).Msg("actor lacks required permission")

			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error":  "Forbidden: you don't have permission to access this resource",
				"reason": decision.Reason,
			})
		}

		return c.Next()
	}
}

// localsSnapshot is the fiber.Locals key of the request snapshot.
const localsSnapshot = "permissionSnapshot"

// AddPermissionsToLocals is a Fiber middleware that stores one permission
// snapshot per request in fiber.Locals, so every check a handler makes sees
// the same actor and permissions.
func AddPermissionsToLocals(engine *Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(localsSnapshot, engine.Snapshot())

		return c.Next()
	}
}

// SnapshotFromLocals returns the snapshot stored by AddPermissionsToLocals,
// or a fresh one from engine when the middleware did not run.
func SnapshotFromLocals(c *fiber.Ctx, engine *Engine) Snapshot {
	if snap, ok := c.Locals(localsSnapshot).(Snapshot); ok {
		return snap
	}

	return engine.Snapshot()
}
