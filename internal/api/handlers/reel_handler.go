package handlers

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/reelflow/internal/lifecycle"
	"github.com/maheshrc27/reelflow/internal/scheduling"
	"github.com/maheshrc27/reelflow/internal/service"
	"github.com/maheshrc27/reelflow/internal/transfer"
)

const maxGenerateCount = 10

type ReelHandler struct {
	s service.ReelService
}

func NewReelHandler(service service.ReelService) *ReelHandler {
	return &ReelHandler{s: service}
}

func (h *ReelHandler) ListReels(c *fiber.Ctx) error {
	reels, err := h.s.ListReels(c.Context(), c.Query("status"), c.QueryInt("limit", 50))
	if err != nil {
		slog.Error(err.Error())
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to list reels",
		})
	}
	return c.JSON(reels)
}

func (h *ReelHandler) GetReel(c *fiber.Ctx) error {
	id, err := reelID(c)
	if err != nil {
		return err
	}

	reel, err := h.s.GetReel(c.Context(), id)
	if err != nil {
		slog.Error(err.Error())
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to load reel",
		})
	}
	if reel == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Reel not found",
		})
	}
	return c.JSON(reel)
}

func (h *ReelHandler) Generate(c *fiber.Ctx) error {
	req := transfer.GenerateRequest{Count: 1}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Unable to parse json",
			})
		}
	}
	if req.Count <= 0 || req.Count > maxGenerateCount {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "count must be between 1 and 10",
		})
	}

	reels, err := h.s.Generate(c.UserContext(), req.Count, strings.TrimSpace(req.Theme))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	resp := transfer.GenerateResponse{Requested: req.Count, Generated: len(reels), ReelIDs: []int64{}}
	for _, reel := range reels {
		resp.ReelIDs = append(resp.ReelIDs, reel.ID)
	}
	return c.JSON(resp)
}

func (h *ReelHandler) Approve(c *fiber.Ctx) error {
	return h.transition(c, h.s.Approve)
}

func (h *ReelHandler) Reject(c *fiber.Ctx) error {
	return h.transition(c, h.s.Reject)
}

func (h *ReelHandler) Schedule(c *fiber.Ctx) error {
	return h.transition(c, h.s.Schedule)
}

func (h *ReelHandler) Unschedule(c *fiber.Ctx) error {
	return h.transition(c, h.s.Unschedule)
}

func (h *ReelHandler) Publish(c *fiber.Ctx) error {
	return h.transition(c, h.s.Publish)
}

func (h *ReelHandler) PublishNow(c *fiber.Ctx) error {
	return h.transition(c, h.s.PublishNow)
}

func (h *ReelHandler) Reschedule(c *fiber.Ctx) error {
	id, err := reelID(c)
	if err != nil {
		return err
	}

	var req transfer.RescheduleRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse json",
		})
	}

	at, err := h.parseTime(c.Context(), req.At)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	result, err := h.s.Reschedule(c.UserContext(), id, at)
	if err != nil {
		slog.Error(err.Error())
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to reschedule reel",
		})
	}
	return sendResult(c, result)
}

func (h *ReelHandler) parseTime(ctx context.Context, value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, strings.TrimSpace(value)); err == nil {
		return t, nil
	}
	settings, err := h.s.ScheduleConfig(ctx)
	if err != nil {
		return time.Time{}, err
	}
	loc, err := scheduling.LoadLocation(settings.Timezone)
	if err != nil {
		return time.Time{}, err
	}
	return scheduling.ParseLocal(value, loc)
}

func (h *ReelHandler) transition(c *fiber.Ctx, op func(context.Context, int64) (lifecycle.Result, error)) error {
	id, err := reelID(c)
	if err != nil {
		return err
	}

	result, err := op(c.UserContext(), id)
	if err != nil {
		slog.Error(err.Error())
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return sendResult(c, result)
}

func (h *ReelHandler) QueueStatus(c *fiber.Ctx) error {
	status, err := h.s.QueueStatus(c.Context())
	if err != nil {
		slog.Error(err.Error())
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to read queue status",
		})
	}
	return c.JSON(status)
}

func (h *ReelHandler) Calendar(c *fiber.Ctx) error {
	days, err := h.s.Calendar(c.Context(), c.QueryInt("days", 7))
	if err != nil {
		slog.Error(err.Error())
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to load calendar",
		})
	}
	return c.JSON(days)
}

func (h *ReelHandler) Analytics(c *fiber.Ctx) error {
	days := c.QueryInt("days", 30)
	if days <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "days must be positive",
		})
	}

	report, err := h.s.Analytics(c.Context(), time.Duration(days)*24*time.Hour, c.QueryInt("top", 5))
	if err != nil {
		slog.Error(err.Error())
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to load analytics",
		})
	}
	return c.JSON(report)
}
