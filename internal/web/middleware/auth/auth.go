package auth

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

const bearerPrefix = "Bearer "

// Config configures the bridge token middleware.
type Config struct {
	// Token every request has to present.
	Token string

	// Public paths are served without a token.
	Public []string
}

// New returns a middleware that checks the bearer token of each request.
func New(cfg Config) fiber.Handler {
	token := []byte(cfg.Token)

	return func(c *fiber.Ctx) error {
		if IsPublic(c, cfg.Public) {
			return c.Next()
		}

		header := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(header, bearerPrefix) {
			return unauthorized(c)
		}

		given := []byte(strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix)))
		if subtle.ConstantTimeCompare(given, token) != 1 {
			log.Warn().Str("path", c.Path()).Str("ip", c.IP()).Msg("bridge token rejected")
			return unauthorized(c)
		}

		return c.Next()
	}
}

// IsPublic checks if the current request path is one of the public paths.
func IsPublic(c *fiber.Ctx, public []string) bool {
	path := strings.ToLower(c.Path())

	for _, p := range public {
		if path == p {
			return true
		}
	}

	return false
}

func unauthorized(c *fiber.Ctx) error {
	c.Set(fiber.HeaderWWWAuthenticate, `Bearer realm="portal-agent"`)
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
}
