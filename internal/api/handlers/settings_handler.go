package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/reelflow/internal/models"
	"github.com/maheshrc27/reelflow/internal/scheduling"
	"github.com/maheshrc27/reelflow/internal/service"
	"github.com/maheshrc27/reelflow/internal/transfer"
)

type SettingsHandler struct {
	s service.ReelService
}

func NewSettingsHandler(service service.ReelService) *SettingsHandler {
	return &SettingsHandler{s: service}
}

func (h *SettingsHandler) GetSchedule(c *fiber.Ctx) error {
	settings, err := h.s.ScheduleConfig(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to load schedule settings",
		})
	}
	return c.JSON(scheduleView(settings))
}

func (h *SettingsHandler) UpdateSchedule(c *fiber.Ctx) error {
	var update transfer.ScheduleUpdate
	if err := c.BodyParser(&update); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse json",
		})
	}

	slots := make([]models.PostSlot, 0, len(update.PostTimes))
	for _, pt := range update.PostTimes {
		slot, err := scheduling.ParseSlot(pt.Day, pt.Time)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		slots = append(slots, slot)
	}

	settings, err := h.s.UpdateScheduleConfig(c.Context(), update.Timezone, slots)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(scheduleView(settings))
}

func scheduleView(s *models.ScheduleSettings) fiber.Map {
	labels := make([]string, 0, len(s.Slots))
	for _, slot := range s.Slots {
		labels = append(labels, scheduling.FormatSlot(slot))
	}
	return fiber.Map{
		"timezone": s.Timezone,
		"slots":    s.Slots,
		"labels":   labels,
	}
}
