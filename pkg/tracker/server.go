package tracker

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// StartStatusServer serves the pipeline's health and current snapshot
// over HTTP. This is the visible stale/disconnected affordance: the UI
// can always tell whether tracking is live or running on a cold cache.
func (t *Tracker) StartStatusServer(listen string) error {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(requestLogger())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})

	app.Get("/status/overview", func(c *fiber.Ctx) error {
		status := t.Status()

		return c.JSON(fiber.Map{
			"connection":        status.Connection.String(),
			"reconnectAttempts": status.ReconnectAttempts,
			"staleness":         status.Staleness.String(),
			"stale":             status.Stale,
			"lastError":         status.LastError,
			"vehicles":          t.store.VehicleCount(),
			"stops":             t.store.StopCount(),
			"viewport":          t.viewport.View(),
		})
	})

	app.Get("/status/vehicles", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"data": t.store.Snapshot().Vehicles})
	})

	app.Get("/status/stops", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"data": t.store.Snapshot().Stops})
	})

	log.Info().Str("listen", listen).Msg("Status server listening")

	return app.Listen(listen)
}
