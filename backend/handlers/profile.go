package handlers

import (
	"log/slog"
	"strconv"

	webmodels "github.com/ellavondegurechaff/materialpool/backend/models"
	"github.com/ellavondegurechaff/materialpool/backend/utils"
	"github.com/ellavondegurechaff/materialpool/internal/domain/audit"
	"github.com/ellavondegurechaff/materialpool/internal/domain/users"
	"github.com/gofiber/fiber/v2"
)

func ProfileGet(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := webApp.Users.Get(c.Context(), actorFrom(c).UserID)
		if err != nil {
			return handleDomainError(c, err, "load profile")
		}
		return utils.SendSuccess(c, webmodels.NewUserDTO(*user), "")
	}
}

func ProfileUpdate(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req webmodels.ProfileUpdateRequest
		if err := c.BodyParser(&req); err != nil {
			return utils.SendBadRequest(c, "Invalid request body", map[string]string{
				"error": err.Error(),
			})
		}
		if errs := utils.ValidateProfileUpdateRequest(&req); len(errs) > 0 {
			return utils.HandleValidationErrors(c, errs)
		}

		actor := actorFrom(c)
		user, err := webApp.Users.Update(c.Context(), actor.UserID, users.Profile{
			Email:       req.Email,
			Username:    req.Username,
			DisplayName: req.DisplayName,
		})
		if err != nil {
			return handleDomainError(c, err, "update profile")
		}

		// the cookie carries username and display name
		session := webmodels.NewUserSession(user, webApp.Config.SessionTTL)
		if err := webApp.SessionService.CreateSession(c, session); err != nil {
			slog.Error("Failed to reissue session", slog.String("error", err.Error()))
			return utils.SendInternalServerError(c, "Failed to refresh session")
		}

		webApp.recordAudit(c.Context(), audit.Entry{
			UserID:    user.ID,
			UserName:  user.Username,
			Action:    audit.ActionUpdate,
			Entity:    audit.EntityUser,
			EntityID:  user.Username,
			IPAddress: actor.IP,
		})

		return utils.SendSuccess(c, fiber.Map{
			"user":    webmodels.NewUserDTO(*user),
			"session": session,
		}, "Profile updated successfully")
	}
}

func ProfilePassword(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req webmodels.PasswordChangeRequest
		if err := c.BodyParser(&req); err != nil {
			return utils.SendBadRequest(c, "Invalid request body", map[string]string{
				"error": err.Error(),
			})
		}
		if errs := utils.ValidatePasswordChangeRequest(&req); len(errs) > 0 {
			return utils.HandleValidationErrors(c, errs)
		}

		actor := actorFrom(c)
		if err := webApp.Users.ChangePassword(c.Context(), actor.UserID, req.CurrentPassword, req.NewPassword); err != nil {
			return handleDomainError(c, err, "change password")
		}

		webApp.recordAudit(c.Context(), audit.Entry{
			UserID:    actor.UserID,
			UserName:  actor.Username,
			Action:    audit.ActionPassword,
			Entity:    audit.EntityUser,
			EntityID:  strconv.FormatInt(actor.UserID, 10),
			IPAddress: actor.IP,
		})

		return utils.SendSuccess(c, nil, "Password changed successfully")
	}
}
