package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/reelflow/internal/lifecycle"
)

func GetOperator(c *fiber.Ctx) string {
	operator, _ := c.Locals("operator").(string)
	return operator
}

func reelID(c *fiber.Ctx) (int64, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Invalid reel id")
	}
	return int64(id), nil
}

var outcomeStatus = map[lifecycle.Outcome]int{
	lifecycle.OK:           fiber.StatusOK,
	lifecycle.NotFound:     fiber.StatusNotFound,
	lifecycle.InvalidState: fiber.StatusUnprocessableEntity,
	lifecycle.Conflict:     fiber.StatusConflict,
	lifecycle.Failed:       fiber.StatusBadGateway,
}

func sendResult(c *fiber.Ctx, result lifecycle.Result) error {
	status, ok := outcomeStatus[result.Outcome]
	if !ok {
		status = fiber.StatusInternalServerError
	}
	return c.Status(status).JSON(result)
}
