package middleware

import (
	"errors"
	"log/slog"

	"github.com/ellavondegurechaff/materialpool/backend/utils"
	"github.com/gofiber/fiber/v2"
)

// CustomErrorHandler renders every unhandled error as the JSON envelope
func CustomErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	} else {
		slog.Error("Unhandled request error",
			slog.String("path", c.Path()),
			slog.Any("error", err))
	}

	return utils.SendError(c, code, errorCode(code), message, nil)
}

func errorCode(status int) string {
	switch status {
	case fiber.StatusBadRequest:
		return utils.CodeBadRequest
	case fiber.StatusUnauthorized:
		return utils.CodeUnauthorized
	case fiber.StatusForbidden:
		return utils.CodeForbidden
	case fiber.StatusNotFound:
		return utils.CodeNotFound
	case fiber.StatusMethodNotAllowed:
		return utils.CodeMethodNotAllowed
	case fiber.StatusRequestEntityTooLarge:
		return utils.CodePayloadTooLarge
	case fiber.StatusTooManyRequests:
		return utils.CodeRateLimited
	}
	if status >= 500 {
		return utils.CodeInternal
	}
	return "ERROR"
}

// SecurityHeaders adds security headers to responses
func SecurityHeaders() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
		c.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		c.Set("Cache-Control", "no-store")
		return c.Next()
	}
}
