// middleware/request_log.go
package middleware

import (
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// RequestLogger logs one line per request. Long-lived stream requests are
// logged when they open.
func RequestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if strings.HasSuffix(c.Path(), "/stream") {
			log.Printf("📡 [HTTP] %s %s from %s", c.Method(), c.Path(), c.IP())
			return c.Next()
		}

		start := time.Now()
		err := c.Next()
		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			}
		}

		marker := "✅"
		if status >= fiber.StatusInternalServerError {
			marker = "❌"
		} else if status >= fiber.StatusBadRequest {
			marker = "⚠️ "
		}
		log.Printf("%s [HTTP] %s %s -> %d (%s)", marker, c.Method(), c.Path(), status, time.Since(start).Round(time.Millisecond))
		return err
	}
}

// AllowedOrigins turns a comma separated ALLOWED_ORIGINS value into the
// form fiber's CORS middleware expects. Blank means any origin.
func AllowedOrigins(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return "*"
	}
	var origins []string
	for _, origin := range strings.Split(raw, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return strings.Join(origins, ",")
}
