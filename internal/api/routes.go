// Package api exposes the reel commands over HTTP.
package api

import (
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	config "github.com/maheshrc27/reelflow/configs"
	"github.com/maheshrc27/reelflow/internal/api/handlers"
	"github.com/maheshrc27/reelflow/internal/api/middleware"
	"github.com/maheshrc27/reelflow/internal/scheduling"
	"github.com/maheshrc27/reelflow/internal/service"
)

// JobLister reports the recurring jobs of the running driver.
type JobLister interface {
	Jobs() []scheduling.JobInfo
}

func NewApp(cfg config.Config, reels service.ReelService, jobs JobLister) *fiber.App {
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Minute,
		WriteTimeout: 10 * time.Minute,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				code = fe.Code
			}
			if code >= fiber.StatusInternalServerError {
				log.Printf("Error: %v", err)
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOriginsFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")
	if cfg.SecretKey != "" {
		api.Use(middleware.NewAuthMiddleware(cfg).AuthMiddleware())
	} else {
		log.Println("Warning: SECRET_KEY is empty, API authentication is disabled")
	}

	reel := handlers.NewReelHandler(reels)
	api.Get("/reels", reel.ListReels)
	api.Post("/reels/generate", reel.Generate)
	api.Get("/reels/:id", reel.GetReel)
	api.Post("/reels/:id/approve", reel.Approve)
	api.Post("/reels/:id/reject", reel.Reject)
	api.Post("/reels/:id/schedule", reel.Schedule)
	api.Post("/reels/:id/reschedule", reel.Reschedule)
	api.Post("/reels/:id/unschedule", reel.Unschedule)
	api.Post("/reels/:id/publish", reel.Publish)
	api.Post("/reels/:id/publish-now", reel.PublishNow)
	api.Get("/queue", reel.QueueStatus)
	api.Get("/calendar", reel.Calendar)
	api.Get("/analytics", reel.Analytics)

	settings := handlers.NewSettingsHandler(reels)
	api.Get("/schedule", settings.GetSchedule)
	api.Put("/schedule", settings.UpdateSchedule)

	calendar := handlers.NewCalendarHandler(reels)
	api.Get("/calendar/entries", calendar.ListEntries)
	api.Post("/calendar/entries", calendar.CreateEntry)
	api.Post("/calendar/entries/:id/attach", calendar.AttachReel)

	if jobs != nil {
		api.Get("/jobs", func(c *fiber.Ctx) error {
			return c.JSON(jobs.Jobs())
		})
	}

	return app
}
