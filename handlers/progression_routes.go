// handlers/progression_routes.go
package handlers

import (
	"context"
	"strconv"

	"tosslee/game"
	"tosslee/middleware"
	"tosslee/models"
	"tosslee/services"

	"github.com/gofiber/fiber/v2"
)

// Progression is implemented by services.ProgressionService.
type Progression interface {
	GetProgress(ctx context.Context, externalUserID string) (*services.Progress, error)
	GetUserHistory(ctx context.Context, externalUserID string, page, size int) (map[string]interface{}, error)
	GetRecentSessions(ctx context.Context, externalUserID string, days int) ([]models.GameSession, error)
	AwardXP(ctx context.Context, externalUserID string, xp int64, reason string) (game.PlayerStats, []game.Achievement, error)
}

func SetupProgressionRoutes(app *fiber.App, progression Progression) {
	// 🔐 Secured routes: require user context (userID, roles)
	securedGroup := app.Group("/user", middleware.UserContextMiddleware())

	securedGroup.Get("/progress", func(c *fiber.Ctx) error {
		prog, err := progression.GetProgress(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, "failed to load progress", err)
		}
		return c.JSON(prog)
	})

	securedGroup.Get("/progress/history", func(c *fiber.Ctx) error {
		page, _ := strconv.Atoi(c.Query("page", "1"))
		size, _ := strconv.Atoi(c.Query("size", "20"))
		history, err := progression.GetUserHistory(c.UserContext(), middleware.UserID(c), page, size)
		if err != nil {
			return respondError(c, "failed to get history", err)
		}
		return c.JSON(history)
	})

	securedGroup.Get("/progress/recent", func(c *fiber.Ctx) error {
		days, _ := strconv.Atoi(c.Query("days", "7"))
		sessions, err := progression.GetRecentSessions(c.UserContext(), middleware.UserID(c), days)
		if err != nil {
			return respondError(c, "failed to get recent sessions", err)
		}
		return c.JSON(fiber.Map{"sessions": sessions})
	})

	// Admin endpoints
	adminGroup := app.Group("/admin", middleware.UserContextMiddleware())

	adminGroup.Post("/xp/grant", func(c *fiber.Ctx) error {
		if !middleware.HasRole(c, "admin") {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "admin role required",
			})
		}

		var req struct {
			UserID string `json:"user_id"`
			XP     int64  `json:"xp"`
			Reason string `json:"reason"`
		}
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid JSON", err)
		}
		if req.UserID == "" || req.XP <= 0 {
			return badRequest(c, "user_id and a positive xp are required", nil)
		}
		if req.Reason == "" {
			req.Reason = "admin_grant"
		}

		stats, unlocked, err := progression.AwardXP(c.UserContext(), req.UserID, req.XP, req.Reason)
		if err != nil {
			return respondError(c, "XP award failed", err)
		}

		return c.JSON(fiber.Map{
			"message":  "XP granted successfully",
			"user_id":  req.UserID,
			"xp":       req.XP,
			"stats":    stats,
			"unlocked": unlocked,
		})
	})
}
