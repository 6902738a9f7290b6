// handlers/referral_routes.go
package handlers

import (
	"errors"
	"time"

	"referral-reward-system/middleware"
	"referral-reward-system/models"
	"referral-reward-system/services"
	"referral-reward-system/utils"

	"github.com/gofiber/fiber/v2"
)

// statusForError maps the engine's error taxonomy onto HTTP statuses.
// AlreadyProcessed/AlreadyCompleted are expected duplicate-press conditions,
// surfaced as 409 for the UI to render as a no-op.
func statusForError(err error) int {
	switch {
	case errors.Is(err, services.ErrSelfReferral),
		errors.Is(err, services.ErrActionNotFound):
		return fiber.StatusBadRequest
	case errors.Is(err, services.ErrNotAuthorized):
		return fiber.StatusForbidden
	case errors.Is(err, services.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrAlreadyProcessed),
		errors.Is(err, services.ErrAlreadyCompleted),
		errors.Is(err, services.ErrAlreadyReferred):
		return fiber.StatusConflict
	case errors.Is(err, services.ErrQuotaExceeded):
		return fiber.StatusTooManyRequests
	case errors.Is(err, services.ErrExpired):
		return fiber.StatusGone
	case errors.Is(err, services.ErrWalletCredit):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

func SetupReferralRoutes(
	app *fiber.App,
	referralService *services.ReferralService,
	actionService *services.ActionService,
	statsService *services.StatsService,
	sweeperService *services.SweeperService,
) {
	// 🔐 Secured routes — require user context (userID, roles)
	securedGroup := app.Group("/", middleware.UserContextMiddleware())

	// Redeem an invitation code. The caller is the referred member; the
	// gateway has already resolved the code to its owner.
	securedGroup.Post("/s/referrals/redeem", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var req struct {
			ReferrerID string      `json:"referrer_id" validate:"required,uuid"`
			Code       string      `json:"code" validate:"required"`
			Role       models.Role `json:"role"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
		}
		if req.ReferrerID == "" || req.Code == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "referrer_id and code are required"})
		}

		ref, err := referralService.RedeemCode(c.Context(), req.ReferrerID, userID, req.Code, req.Role, time.Now().UTC())
		if err != nil {
			return c.Status(statusForError(err)).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(fiber.StatusCreated).JSON(ref)
	})

	// Complete one onboarding action (dual reward).
	securedGroup.Post("/s/referrals/:id/actions/:type/complete", func(c *fiber.Ctx) error {
		referralID := c.Params("id")
		actionType := models.ActionType(c.Params("type"))

		act, err := actionService.CompleteAction(c.Context(), referralID, actionType, time.Now().UTC())
		if err != nil {
			return c.Status(statusForError(err)).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(act)
	})

	// Manual/admin validation path.
	securedGroup.Post("/s/referrals/:id/validate", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		referralID := c.Params("id")

		ref, err := referralService.ValidateReferral(c.Context(), referralID, userID, middleware.IsAdmin(c), time.Now().UTC())
		if err != nil {
			return c.Status(statusForError(err)).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(ref)
	})

	securedGroup.Get("/s/user/referrals/stats", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		stats, err := statsService.BuildStats(c.Context(), userID, time.Now().UTC())
		if err != nil {
			return c.Status(statusForError(err)).JSON(fiber.Map{"error": "failed to build stats", "cause": err.Error()})
		}
		for i := range stats.Badges {
			stats.Badges[i].IconURL = utils.BadgeIconURL(c.Context(), stats.Badges[i].IconKey)
		}
		return c.JSON(stats)
	})

	securedGroup.Get("/s/user/referrals/badges", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		stats, err := statsService.BuildStats(c.Context(), userID, time.Now().UTC())
		if err != nil {
			return c.Status(statusForError(err)).JSON(fiber.Map{"error": "failed to get badges", "cause": err.Error()})
		}

		response := make([]fiber.Map, 0, len(stats.Badges))
		for _, b := range stats.Badges {
			response = append(response, fiber.Map{
				"code":        b.Code,
				"name":        b.Name,
				"description": b.Description,
				"rarity":      b.Rarity,
				"reward":      b.Reward,
				"icon_url":    utils.BadgeIconURL(c.Context(), b.IconKey),
				"awarded_at":  b.AwardedAt,
			})
		}
		return c.JSON(response)
	})

	securedGroup.Get("/s/referrals/leaderboard", func(c *fiber.Ctx) error {
		period := c.Query("period", "weekly")
		if period != "weekly" && period != "monthly" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "period must be weekly or monthly"})
		}

		rows, err := statsService.Leaderboard(c.Context(), period, time.Now().UTC())
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to build leaderboard", "cause": err.Error()})
		}
		return c.JSON(fiber.Map{"period": period, "entries": rows})
	})

	// Admin endpoints
	adminGroup := app.Group("/s/admin", middleware.UserContextMiddleware())

	adminGroup.Post("/referrals/:id/expire", func(c *fiber.Ctx) error {
		if !middleware.IsAdmin(c) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "admin role required"})
		}

		ref, transitioned, err := referralService.Expire(c.Context(), c.Params("id"), time.Now().UTC())
		if err != nil {
			return c.Status(statusForError(err)).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(fiber.Map{"referral": ref, "transitioned": transitioned})
	})

	adminGroup.Post("/referrals/sweep", func(c *fiber.Ctx) error {
		if !middleware.IsAdmin(c) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "admin role required"})
		}

		count, err := sweeperService.Sweep(c.Context(), time.Now().UTC())
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "sweep failed", "cause": err.Error()})
		}
		return c.JSON(fiber.Map{"expired": count})
	})
}
