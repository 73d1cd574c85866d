package router

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cache"
)

// HttpCacheInMemory caches GET responses except for paths under any of skip
// and requests carrying the admin secret header.
func HttpCacheInMemory(ttl int, skip ...string) fiber.Handler {
	if ttl <= 0 {
		ttl = 5
	}
	return cache.New(cache.Config{
		Next: func(c *fiber.Ctx) bool {
			if c.Method() != fiber.MethodGet || c.Get("X-Admin-Secret") != "" {
				return true
			}
			for _, prefix := range skip {
				if strings.HasPrefix(c.Path(), BaseURL+prefix) {
					return true
				}
			}
			return false
		},
		Expiration: time.Duration(ttl) * time.Second,
	})
}
