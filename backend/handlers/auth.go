package handlers

import (
	"errors"
	"log/slog"
	"strconv"
	"strings"

	webmodels "github.com/ellavondegurechaff/materialpool/backend/models"
	"github.com/ellavondegurechaff/materialpool/backend/utils"
	"github.com/ellavondegurechaff/materialpool/internal/domain/audit"
	"github.com/ellavondegurechaff/materialpool/internal/domain/users"
	"github.com/gofiber/fiber/v2"
)

func Login(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.Context()

		var req webmodels.LoginRequest
		if err := c.BodyParser(&req); err != nil {
			return utils.SendBadRequest(c, "Invalid request body", map[string]string{
				"error": err.Error(),
			})
		}
		login := strings.TrimSpace(req.Identifier())
		if login == "" || req.Password == "" {
			return utils.SendUnprocessableEntity(c, "Login and password are required", nil)
		}

		user, err := webApp.Users.Authenticate(ctx, login, req.Password)
		if err != nil {
			if errors.Is(err, users.ErrInvalidCredentials) {
				slog.Warn("Login rejected",
					slog.String("login", login),
					slog.String("ip", utils.GetIPAddress(c)))
				return utils.SendUnauthorized(c, "Invalid login or password")
			}
			return handleDomainError(c, err, "log in")
		}

		session := webmodels.NewUserSession(user, webApp.Config.SessionTTL)
		if err := webApp.SessionService.CreateSession(c, session); err != nil {
			slog.Error("Failed to create session", slog.String("error", err.Error()))
			return utils.SendInternalServerError(c, "Failed to create session")
		}

		webApp.recordAudit(ctx, audit.Entry{
			UserID:    user.ID,
			UserName:  user.Username,
			Action:    audit.ActionLogin,
			Entity:    audit.EntitySession,
			EntityID:  strconv.FormatInt(user.ID, 10),
			IPAddress: utils.GetIPAddress(c),
		})

		return utils.SendSuccess(c, fiber.Map{
			"user":       session,
			"expires_at": session.ExpiresAt,
		}, "Logged in successfully")
	}
}

func Logout(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if session, err := webApp.GetSession(c); err == nil {
			webApp.recordAudit(c.Context(), audit.Entry{
				UserID:    session.UserID,
				UserName:  session.Username,
				Action:    audit.ActionLogout,
				Entity:    audit.EntitySession,
				EntityID:  strconv.FormatInt(session.UserID, 10),
				IPAddress: utils.GetIPAddress(c),
			})
		}

		webApp.SessionService.DestroySession(c)

		return utils.SendSuccess(c, nil, "Logged out successfully")
	}
}

func ValidateSession(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, ok := utils.ExtractUserSession(c)
		if !ok {
			return utils.SendUnauthorized(c, "Invalid session")
		}

		// an active client keeps its session alive
		if err := webApp.SessionService.RefreshSession(c, session); err != nil {
			return utils.SendInternalServerError(c, "Failed to refresh session")
		}

		return utils.SendSuccess(c, fiber.Map{
			"user":       session,
			"valid":      true,
			"expires_at": session.ExpiresAt,
			"is_admin":   session.IsAdmin,
		}, "Session valid")
	}
}
