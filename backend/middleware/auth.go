package middleware

import (
	"log/slog"

	"github.com/ellavondegurechaff/materialpool/backend/handlers"
	"github.com/ellavondegurechaff/materialpool/backend/utils"
	"github.com/gofiber/fiber/v2"
)

// AuthRequired middleware ensures the user is authenticated
func AuthRequired(webApp *handlers.WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, err := webApp.GetSession(c)
		if err != nil {
			slog.Debug("Auth required: no valid session", slog.String("error", err.Error()))
			return utils.SendUnauthorized(c, "Authentication required")
		}

		if session == nil || session.Username == "" {
			slog.Debug("Auth required: invalid session")
			return utils.SendUnauthorized(c, "Authentication required")
		}

		// deleted or renamed accounts lose their sessions
		known, err := webApp.Users.IsKnown(c.Context(), session.Username)
		if err != nil {
			slog.Error("Auth required: user lookup failed", slog.Any("error", err))
			return utils.SendInternalServerError(c, "Failed to verify session")
		}
		if !known {
			slog.Debug("Auth required: session user no longer exists",
				slog.String("username", session.Username))
			return utils.SendUnauthorized(c, "Authentication required")
		}

		c.Locals(utils.SessionLocalsKey, session)

		slog.Debug("Auth middleware: user authenticated",
			slog.Int64("user_id", session.UserID),
			slog.String("username", session.Username))

		return c.Next()
	}
}

// AdminRequired middleware ensures the user has admin privileges
func AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Set by AuthRequired
		session, ok := utils.ExtractUserSession(c)
		if !ok {
			slog.Warn("Admin required: no user in context")
			return utils.SendForbidden(c, "Access denied")
		}

		if !session.IsAdmin {
			slog.Warn("Admin required: user lacks admin privileges",
				slog.Int64("user_id", session.UserID),
				slog.String("username", session.Username))
			return utils.SendForbidden(c, "Admin access required")
		}

		return c.Next()
	}
}
