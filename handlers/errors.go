package handlers

import (
	"errors"
	"log"

	"eventflow/services"

	"github.com/gofiber/fiber/v2"
)

// fail maps a service error onto a status code and the usual error body.
func fail(c *fiber.Ctx, msg string, err error) error {
	status := statusFor(err)
	if status >= fiber.StatusInternalServerError {
		log.Printf("❌ [API] %s %s: %s: %v", c.Method(), c.Path(), msg, err)
	}
	return c.Status(status).JSON(fiber.Map{
		"error": msg,
		"cause": err.Error(),
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrNotFound), errors.Is(err, services.ErrNoBracket):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrInvalidInput),
		errors.Is(err, services.ErrInvalidWinner),
		errors.Is(err, services.ErrInvalidSlot),
		errors.Is(err, services.ErrDuplicateSlot):
		return fiber.StatusBadRequest
	case errors.Is(err, services.ErrWrongMode):
		return fiber.StatusConflict
	case errors.Is(err, services.ErrInvalidGraph):
		return fiber.StatusUnprocessableEntity
	default:
		return fiber.StatusInternalServerError
	}
}

func badRequest(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": "invalid JSON",
		"cause": err.Error(),
	})
}
