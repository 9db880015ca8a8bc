// middleware/gateway.go
package middleware

import (
	"crypto/subtle"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// gatewayToken pulls the credential out of an Authorization header. The
// gateway may send "Bearer <token>" (scheme in any case) or the bare token.
func gatewayToken(header string) string {
	header = strings.TrimSpace(header)
	if scheme, token, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	return header
}

// GatewayAuthMiddleware only lets through requests carrying the configured
// service token. An empty token is a startup error.
func GatewayAuthMiddleware(serviceToken string) fiber.Handler {
	if serviceToken == "" {
		log.Fatal("❌ GAME_SERVICE_TOKEN is not set, refusing to start without gateway auth")
	}
	want := []byte(serviceToken)

	return func(c *fiber.Ctx) error {
		got := gatewayToken(c.Get(fiber.HeaderAuthorization))
		switch {
		case got == "":
			log.Printf("🚫 [GATEWAY_AUTH] %s %s without a token", c.Method(), c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "gateway authentication token missing",
			})
		case subtle.ConstantTimeCompare([]byte(got), want) != 1:
			log.Printf("❌ [GATEWAY_AUTH] %s %s with a bad token", c.Method(), c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid gateway authentication token",
			})
		}
		return c.Next()
	}
}
