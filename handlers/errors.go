package handlers

import (
	"errors"
	"log"

	"tosslee/game"
	"tosslee/services"

	"github.com/gofiber/fiber/v2"
)

// respondError maps engine and service errors onto HTTP statuses.
func respondError(c *fiber.Ctx, msg string, err error) error {
	status := fiber.StatusInternalServerError
	body := fiber.Map{"error": msg, "cause": err.Error()}

	switch {
	case errors.Is(err, game.ErrAccessDenied):
		status = fiber.StatusForbidden
	case errors.Is(err, game.ErrNoItemsAvailable):
		status = fiber.StatusConflict
		body["reason"] = "all_decided"
	case errors.Is(err, game.ErrEmptyInventory):
		status = fiber.StatusConflict
		body["reason"] = "inventory_empty"
	case errors.Is(err, services.ErrSessionInProgress):
		status = fiber.StatusConflict
		body["reason"] = "session_in_progress"
	case errors.Is(err, game.ErrSessionEnded),
		errors.Is(err, game.ErrItemAlreadyDecided),
		errors.Is(err, game.ErrQueueOverflow):
		status = fiber.StatusConflict
	case errors.Is(err, services.ErrSessionNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, game.ErrUnknownGameMode),
		errors.Is(err, game.ErrUnknownDecision),
		errors.Is(err, game.ErrItemNotInQueue),
		errors.Is(err, game.ErrInvalidDecisionTime),
		errors.Is(err, services.ErrUnknownLeaderboard):
		status = fiber.StatusBadRequest
	}

	if status == fiber.StatusInternalServerError {
		log.Printf("❌ [API] %s %s: %s: %v", c.Method(), c.Path(), msg, err)
	}
	return c.Status(status).JSON(body)
}

func badRequest(c *fiber.Ctx, msg string, err error) error {
	body := fiber.Map{"error": msg}
	if err != nil {
		body["cause"] = err.Error()
	}
	return c.Status(fiber.StatusBadRequest).JSON(body)
}
