// handlers/game_routes.go
package handlers

import (
	"context"
	"strconv"

	"tosslee/game"
	"tosslee/middleware"
	"tosslee/services"

	"github.com/gofiber/fiber/v2"
)

type AchievementLister interface {
	ListForUser(ctx context.Context, externalUserID string) ([]services.AchievementStatus, error)
}

type Leaderboards interface {
	Top(ctx context.Context, boardType string, limit int, userID string) (*services.Standings, error)
	RefreshUser(ctx context.Context, userID string) error
}

// GameRoutes holds what the game endpoints call into.
type GameRoutes struct {
	Sessions     *services.SessionRegistry
	Items        game.ItemQueueProvider
	Stats        game.StatsStore
	Achievements AchievementLister
	Leaderboards Leaderboards
}

func SetupGameRoutes(app *fiber.App, r GameRoutes) {
	// 🔐 Every game route plays on behalf of a user
	secured := app.Group("/game", middleware.UserContextMiddleware())

	secured.Get("/items/:inventoryId", r.getItems)
	secured.Post("/sessions", r.startSession)
	secured.Get("/sessions/:id", r.getSession)
	secured.Get("/sessions/:id/stream", r.streamSession)
	secured.Post("/sessions/:id/decisions", r.decide)
	secured.Post("/sessions/:id/end", r.endSession)
	secured.Get("/achievements", r.listAchievements)
	secured.Get("/leaderboard", r.getLeaderboard)
	secured.Post("/leaderboard", r.refreshLeaderboard)
}

func (r GameRoutes) getItems(c *fiber.Ctx) error {
	q, err := r.Items.AvailableItems(c.UserContext(), c.Params("inventoryId"), middleware.UserID(c))
	if err != nil {
		return respondError(c, "failed to load items", err)
	}
	if q.Items == nil {
		q.Items = []game.Item{}
	}
	return c.JSON(q)
}

func (r GameRoutes) startSession(c *fiber.Ctx) error {
	var req struct {
		InventoryID string `json:"inventory_id"`
		GameMode    string `json:"game_mode"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid JSON", err)
	}
	if req.InventoryID == "" {
		return badRequest(c, "inventory_id is required", nil)
	}
	if req.GameMode == "" {
		req.GameMode = string(game.ModeQuickSort)
	}

	view, err := r.Sessions.Start(c.UserContext(), middleware.UserID(c), req.InventoryID, req.GameMode)
	if err != nil {
		return respondError(c, "failed to start session", err)
	}
	return c.Status(fiber.StatusCreated).JSON(view)
}

func (r GameRoutes) getSession(c *fiber.Ctx) error {
	view, err := r.Sessions.Get(middleware.UserID(c), c.Params("id"))
	if err != nil {
		return respondError(c, "failed to load session", err)
	}
	return c.JSON(view)
}

func (r GameRoutes) decide(c *fiber.Ctx) error {
	var req struct {
		ItemID         string `json:"item_id"`
		Decision       string `json:"decision"`
		DecisionTimeMs *int64 `json:"decision_time_ms"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid JSON", err)
	}
	if req.ItemID == "" || req.DecisionTimeMs == nil {
		return badRequest(c, "item_id and decision_time_ms are required", nil)
	}

	out, err := r.Sessions.Decide(c.UserContext(), middleware.UserID(c), c.Params("id"),
		req.ItemID, req.Decision, *req.DecisionTimeMs)
	if err != nil {
		return respondError(c, "decision rejected", err)
	}

	resp := fiber.Map{"outcome": out, "synced": out.SyncErr == nil}
	if out.SyncErr != nil {
		resp["sync_error"] = out.SyncErr.Error()
	}
	return c.JSON(resp)
}

func (r GameRoutes) endSession(c *fiber.Ctx) error {
	sum, err := r.Sessions.End(c.UserContext(), middleware.UserID(c), c.Params("id"))
	if err != nil {
		return respondError(c, "failed to end session", err)
	}
	resp := fiber.Map{"summary": sum, "synced": sum.SyncErr == nil}
	if sum.SyncErr != nil {
		resp["sync_error"] = sum.SyncErr.Error()
	}
	return c.JSON(resp)
}

func (r GameRoutes) listAchievements(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	list, err := r.Achievements.ListForUser(c.UserContext(), userID)
	if err != nil {
		return respondError(c, "failed to load achievements", err)
	}
	stats, err := r.Stats.LoadPlayerStats(c.UserContext(), userID)
	if err != nil {
		return respondError(c, "failed to load stats", err)
	}

	unlocked := 0
	for _, a := range list {
		if a.IsUnlocked {
			unlocked++
		}
	}
	return c.JSON(fiber.Map{
		"achievements":   list,
		"stats":          stats,
		"unlocked_count": unlocked,
		"total_count":    len(list),
	})
}

func (r GameRoutes) getLeaderboard(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "10"))
	board, err := r.Leaderboards.Top(c.UserContext(), c.Query("type"), limit, middleware.UserID(c))
	if err != nil {
		return respondError(c, "failed to load leaderboard", err)
	}
	return c.JSON(board)
}

func (r GameRoutes) refreshLeaderboard(c *fiber.Ctx) error {
	if err := r.Leaderboards.RefreshUser(c.UserContext(), middleware.UserID(c)); err != nil {
		return respondError(c, "failed to update leaderboard", err)
	}
	return c.JSON(fiber.Map{"success": true})
}
