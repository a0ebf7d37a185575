// Package router wires the Fiber dispatch table: health, the OpenAI
// Translator front-end, and the Anthropic Proxy pass-through.
package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ccgate/ccgate/internal/openai"
	"github.com/ccgate/ccgate/internal/proxy"
)

var startedAt = time.Now()

// New builds the Fiber app and registers every route. Any middlewares
// passed in are installed ahead of the CORS middleware and every route, so
// callers can add tracing/logging without it being shadowed by the
// catch-all proxy pass-through route.
func New(p *proxy.Proxy, translator *openai.Translator, middlewares ...fiber.Handler) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})

	for _, mw := range middlewares {
		app.Use(mw)
	}
	app.Use(corsMiddleware)

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	app.Get("/health", healthHandler)

	app.Post("/openai/v1/chat/completions", translator.Handle)

	app.All("/anthropic/*", p.Handle)
	app.Use(p.Handle)

	return app
}

// corsMiddleware answers every OPTIONS request with permissive CORS headers
// and lets every other method fall through to the matched route.
func corsMiddleware(c *fiber.Ctx) error {
	c.Set("Access-Control-Allow-Origin", "*")
	c.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	c.Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Api-Key, Api-Key")

	if c.Method() == fiber.MethodOptions {
		return c.SendStatus(fiber.StatusOK)
	}
	return c.Next()
}

func healthHandler(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(startedAt).String(),
	})
}
