package utils

import (
	"net/http"
	"strings"

	"github.com/ellavondegurechaff/materialpool/backend/models"
	"github.com/gofiber/fiber/v2"
)

// SessionLocalsKey is where AuthRequired stores the *models.UserSession
const SessionLocalsKey = "user"

// Error codes shared by handlers and middleware.
const (
	CodeBadRequest        = "BAD_REQUEST"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeForbidden         = "FORBIDDEN"
	CodeNotFound          = "NOT_FOUND"
	CodeMethodNotAllowed  = "METHOD_NOT_ALLOWED"
	CodePayloadTooLarge   = "PAYLOAD_TOO_LARGE"
	CodeRateLimited       = "RATE_LIMIT_EXCEEDED"
	CodeValidation        = "VALIDATION_ERROR"
	CodeInternal          = "INTERNAL_SERVER_ERROR"
	CodeAlreadyClaimed    = "ALREADY_CLAIMED"
	CodeDuplicateIdentity = "DUPLICATE_IDENTIFIER"
	CodeUserExists        = "USER_EXISTS"
	CodeInvalidMaterialID = "INVALID_MATERIAL_ID"
	CodeImportIncomplete  = "IMPORT_INCOMPLETE"
)

func SendJSON(c *fiber.Ctx, statusCode int, data any) error {
	return c.Status(statusCode).JSON(data)
}

func SendSuccess(c *fiber.Ctx, data any, message string) error {
	return SendJSON(c, http.StatusOK, models.NewSuccessResponse(data, message))
}

func SendCreated(c *fiber.Ctx, data any, message string) error {
	return SendJSON(c, http.StatusCreated, models.NewSuccessResponse(data, message))
}

func SendPaginated(c *fiber.Ctx, data any, pagination *models.PaginationInfo, message string) error {
	return SendJSON(c, http.StatusOK, models.NewPaginatedResponse(data, pagination, message))
}

// SendError writes the error envelope. Every Send* failure helper funnels through here.
func SendError(c *fiber.Ctx, statusCode int, code, message string, details map[string]string) error {
	return SendJSON(c, statusCode, models.NewErrorResponse(code, message, details))
}

func SendBadRequest(c *fiber.Ctx, message string, details map[string]string) error {
	return SendError(c, http.StatusBadRequest, CodeBadRequest, message, details)
}

func SendUnauthorized(c *fiber.Ctx, message string) error {
	return SendError(c, http.StatusUnauthorized, CodeUnauthorized, message, nil)
}

func SendForbidden(c *fiber.Ctx, message string) error {
	return SendError(c, http.StatusForbidden, CodeForbidden, message, nil)
}

func SendNotFound(c *fiber.Ctx, message string) error {
	return SendError(c, http.StatusNotFound, CodeNotFound, message, nil)
}

func SendConflict(c *fiber.Ctx, code, message string) error {
	return SendError(c, http.StatusConflict, code, message, nil)
}

func SendUnprocessableEntity(c *fiber.Ctx, message string, details map[string]string) error {
	return SendError(c, http.StatusUnprocessableEntity, CodeValidation, message, details)
}

func SendInternalServerError(c *fiber.Ctx, message string) error {
	return SendError(c, http.StatusInternalServerError, CodeInternal, message, nil)
}

// HandleValidationErrors answers 422 with the first problem reported per field.
func HandleValidationErrors(c *fiber.Ctx, problems []models.ValidationError) error {
	details := make(map[string]string, len(problems))
	for _, p := range problems {
		if _, seen := details[p.Field]; !seen {
			details[p.Field] = p.Message
		}
	}
	return SendUnprocessableEntity(c, "Validation failed", details)
}

func ExtractUserSession(c *fiber.Ctx) (*models.UserSession, bool) {
	session, ok := c.Locals(SessionLocalsKey).(*models.UserSession)
	return session, ok && session != nil
}

// GetIPAddress prefers the first X-Forwarded-For hop, then X-Real-IP, then the socket peer.
func GetIPAddress(c *fiber.Ctx) string {
	if xff := c.Get(fiber.HeaderXForwardedFor); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if xri := strings.TrimSpace(c.Get("X-Real-IP")); xri != "" {
		return xri
	}
	return c.IP()
}

func GetUserAgent(c *fiber.Ctx) string {
	return c.Get(fiber.HeaderUserAgent)
}
