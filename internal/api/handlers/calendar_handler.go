package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/reelflow/internal/service"
	"github.com/maheshrc27/reelflow/internal/transfer"
)

const dateLayout = "2006-01-02"

type CalendarHandler struct {
	s service.ReelService
}

func NewCalendarHandler(service service.ReelService) *CalendarHandler {
	return &CalendarHandler{s: service}
}

func (h *CalendarHandler) ListEntries(c *fiber.Ctx) error {
	from := time.Now().UTC().Truncate(24 * time.Hour)
	to := from.AddDate(0, 0, 30)

	if v := c.Query("from"); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "from must be YYYY-MM-DD"})
		}
		from = t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "to must be YYYY-MM-DD"})
		}
		to = t.AddDate(0, 0, 1)
	}

	entries, err := h.s.ListCalendarEntries(c.Context(), from, to)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to list calendar entries",
		})
	}
	return c.JSON(entries)
}

func (h *CalendarHandler) CreateEntry(c *fiber.Ctx) error {
	var req transfer.CalendarEntryCreation
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse json",
		})
	}

	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "date must be YYYY-MM-DD"})
	}

	entry, err := h.s.PlanCalendarEntry(c.Context(), date, req.TimeSlot, req.Theme)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.Status(fiber.StatusCreated).JSON(entry)
}

func (h *CalendarHandler) AttachReel(c *fiber.Ctx) error {
	entryID, err := c.ParamsInt("id")
	if err != nil || entryID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid entry id"})
	}

	var req transfer.CalendarAttach
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse json",
		})
	}

	entry, err := h.s.AttachCalendarReel(c.Context(), int64(entryID), req.ReelID)
	if err != nil {
		status := fiber.StatusBadRequest
		if errors.Is(err, service.ErrNotFound) {
			status = fiber.StatusNotFound
		}
		return c.Status(status).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(entry)
}
