package handlers

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/ellavondegurechaff/materialpool/backend/config"
	webmodels "github.com/ellavondegurechaff/materialpool/backend/models"
	webservices "github.com/ellavondegurechaff/materialpool/backend/services"
	"github.com/ellavondegurechaff/materialpool/backend/utils"
	"github.com/ellavondegurechaff/materialpool/internal/domain/audit"
	"github.com/ellavondegurechaff/materialpool/internal/domain/materials"
	"github.com/ellavondegurechaff/materialpool/internal/domain/users"
	"github.com/ellavondegurechaff/materialpool/internal/importer"
	"github.com/gofiber/fiber/v2"
)

// Pinger reports storage health. It is nil for the in-memory driver.
type Pinger interface {
	Ping(ctx context.Context) error
}

// WebApp represents the web application with all dependencies
type WebApp struct {
	Config         *config.WebAppConfig
	DB             Pinger
	Materials      materials.Service
	Users          users.Service
	Audit          audit.Service
	Imports        *webservices.ImportService
	SessionService *webservices.SessionService
	Version        string
	Commit         string
}

// parseInt64 is a utility function to parse int64 from string
func parseInt64(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}

// GetSession gets the current user session
func (w *WebApp) GetSession(c *fiber.Ctx) (*webmodels.UserSession, error) {
	return w.SessionService.GetSession(c)
}

// actorFrom builds the domain identity for the authenticated request
func actorFrom(c *fiber.Ctx) materials.Actor {
	session, _ := utils.ExtractUserSession(c)
	if session == nil {
		return materials.Actor{IP: utils.GetIPAddress(c)}
	}
	return materials.Actor{
		UserID:      session.UserID,
		Username:    session.Username,
		DisplayName: session.DisplayName,
		Admin:       session.IsAdmin,
		IP:          utils.GetIPAddress(c),
	}
}

func viewerFrom(c *fiber.Ctx) materials.Viewer {
	return *actorFrom(c).Viewer()
}

// pathID parses the :id route parameter
func pathID(c *fiber.Ctx) (int64, bool) {
	id, err := parseInt64(c.Params("id"))
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func sendInvalidMaterialID(c *fiber.Ctx) error {
	return utils.SendError(c, fiber.StatusBadRequest, utils.CodeInvalidMaterialID, "Invalid material ID", map[string]string{
		"id": c.Params("id"),
	})
}

// handleDomainError maps domain errors to API responses
func handleDomainError(c *fiber.Ctx, err error, operation string) error {
	switch {
	case errors.Is(err, materials.ErrNotFound):
		return utils.SendNotFound(c, "Material not found")
	case errors.Is(err, materials.ErrAlreadyClaimed):
		return utils.SendConflict(c, utils.CodeAlreadyClaimed, "Material is already in use")
	case errors.Is(err, materials.ErrDuplicateIdentifier):
		return utils.SendConflict(c, utils.CodeDuplicateIdentity, "Material identifier already exists")
	case errors.Is(err, users.ErrUserExists):
		return utils.SendConflict(c, utils.CodeUserExists, "User already exists")
	case errors.Is(err, users.ErrUserNotFound):
		return utils.SendNotFound(c, "User not found")
	case errors.Is(err, materials.ErrInvalidStatus),
		errors.Is(err, materials.ErrInvalidHolder),
		errors.Is(err, materials.ErrInvalidMaterial),
		errors.Is(err, users.ErrInvalidUser),
		errors.Is(err, users.ErrWrongPassword),
		errors.Is(err, users.ErrDeleteSelf),
		errors.Is(err, importer.ErrUnsupportedFormat),
		errors.Is(err, importer.ErrMissingColumns),
		errors.Is(err, importer.ErrEmptyFile),
		errors.Is(err, webservices.ErrFileTooLarge):
		return utils.SendUnprocessableEntity(c, err.Error(), nil)
	}

	slog.Error("Request failed",
		slog.String("type", "http"),
		slog.String("operation", operation),
		slog.String("path", c.Path()),
		slog.Any("error", err))
	return utils.SendInternalServerError(c, "Failed to "+operation)
}

// recordAudit appends a session audit entry; failures are only logged
func (w *WebApp) recordAudit(ctx context.Context, entry audit.Entry) {
	if w.Audit == nil {
		return
	}
	if err := w.Audit.Record(context.WithoutCancel(ctx), entry); err != nil {
		slog.Warn("Failed to record audit entry",
			slog.String("type", "audit"),
			slog.String("action", entry.Action),
			slog.Any("error", err))
	}
}

func HealthCheck(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		health := webmodels.NewHealthCheck(webApp.Version, webApp.Commit)

		if webApp.DB == nil {
			health.Report("database", nil, "in-memory storage")
		} else {
			ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
			defer cancel()
			health.Report("database", webApp.DB.Ping(ctx), "postgres")
		}

		if !health.Healthy() {
			return utils.SendJSON(c, fiber.StatusServiceUnavailable, webmodels.NewSuccessResponse(health, "Service degraded"))
		}
		return utils.SendSuccess(c, health, "Health check successful")
	}
}

// parseTimeParam accepts a date or an RFC3339 timestamp; to-dates cover the whole day
func parseTimeParam(value string, endOfDay bool) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.ParseInLocation(time.DateOnly, value, time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Second)
	}
	return t, nil
}
