package handlers

import (
	"bytes"
	"io"
	"log/slog"
	"strconv"

	webmodels "github.com/ellavondegurechaff/materialpool/backend/models"
	webservices "github.com/ellavondegurechaff/materialpool/backend/services"
	"github.com/ellavondegurechaff/materialpool/backend/utils"
	"github.com/ellavondegurechaff/materialpool/internal/domain/audit"
	"github.com/ellavondegurechaff/materialpool/internal/domain/users"
	"github.com/ellavondegurechaff/materialpool/internal/importer"
	"github.com/gofiber/fiber/v2"
)

// =============================================================================
// MATERIAL ADMINISTRATION
// =============================================================================

func MaterialsCreate(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req webmodels.MaterialCreateRequest
		if err := c.BodyParser(&req); err != nil {
			return utils.SendBadRequest(c, "Invalid request body", map[string]string{
				"error": err.Error(),
			})
		}
		if errs := utils.ValidateMaterialCreateRequest(&req); len(errs) > 0 {
			return utils.HandleValidationErrors(c, errs)
		}

		material, err := webApp.Materials.Create(c.Context(), actorFrom(c), req.Input())
		if err != nil {
			return handleDomainError(c, err, "create material")
		}

		return utils.SendCreated(c, webmodels.NewMaterialDTO(*material), "Material created successfully")
	}
}

func MaterialsUpdate(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c)
		if !ok {
			return sendInvalidMaterialID(c)
		}

		var req webmodels.MaterialUpdateRequest
		if err := c.BodyParser(&req); err != nil {
			return utils.SendBadRequest(c, "Invalid request body", map[string]string{
				"error": err.Error(),
			})
		}
		if errs := utils.ValidateMaterialUpdateRequest(&req); len(errs) > 0 {
			return utils.HandleValidationErrors(c, errs)
		}

		material, err := webApp.Materials.Update(c.Context(), actorFrom(c), id, req.Patch())
		if err != nil {
			return handleDomainError(c, err, "update material")
		}

		return utils.SendSuccess(c, webmodels.NewMaterialDTO(*material), "Material updated successfully")
	}
}

func MaterialsDelete(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c)
		if !ok {
			return sendInvalidMaterialID(c)
		}

		if err := webApp.Materials.Delete(c.Context(), actorFrom(c), id); err != nil {
			return handleDomainError(c, err, "delete material")
		}

		return utils.SendSuccess(c, nil, "Material deleted successfully")
	}
}

func MaterialsImport(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		file, err := c.FormFile("file")
		if err != nil {
			return utils.SendBadRequest(c, "A .xlsx or .csv file is required in field \"file\"", nil)
		}
		if errs := utils.ValidateImportFile(file, webApp.Config.GetImportConfig().MaxFileSize); len(errs) > 0 {
			return utils.HandleValidationErrors(c, errs)
		}

		f, err := file.Open()
		if err != nil {
			return utils.SendBadRequest(c, "Failed to read uploaded file", nil)
		}
		defer f.Close()

		data, err := io.ReadAll(f)
		if err != nil {
			return utils.SendBadRequest(c, "Failed to read uploaded file", nil)
		}

		filename := utils.SanitizeFilename(file.Filename)
		result, err := webApp.Imports.Import(c.Context(), actorFrom(c), filename, data)
		if err != nil {
			if result != nil && result.Summary != nil {
				slog.Error("Import stopped early",
					slog.String("batch_id", result.BatchID),
					slog.Int("inserted", result.Summary.Inserted),
					slog.Any("error", err))
				return utils.SendError(c, fiber.StatusInternalServerError, utils.CodeImportIncomplete,
					"Import stopped early; rows listed in details were committed", importFailureDetails(result))
			}
			return handleDomainError(c, err, "import materials")
		}

		return utils.SendSuccess(c, webmodels.ImportResponse{
			BatchID:    result.BatchID,
			Filename:   result.Filename,
			ArchiveKey: result.ArchiveKey,
			Message:    result.Summary.Message(),
			Summary:    result.Summary,
		}, "Import finished")
	}
}

// importFailureDetails describes what a failed batch already committed.
func importFailureDetails(result *webservices.ImportResult) map[string]string {
	return map[string]string{
		"batch_id": result.BatchID,
		"total":    strconv.Itoa(result.Summary.Total),
		"inserted": strconv.Itoa(result.Summary.Inserted),
		"skipped":  strconv.Itoa(result.Summary.SkippedTotal()),
		"summary":  result.Summary.Message(),
	}
}

func MaterialsTemplate(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var buf bytes.Buffer
		if err := importer.WriteTemplate(&buf); err != nil {
			return handleDomainError(c, err, "build import template")
		}

		c.Attachment("materials_template.xlsx")
		c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		return c.Send(buf.Bytes())
	}
}

// =============================================================================
// AUDIT LOG
// =============================================================================

func AuditLogs(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		from, err := parseTimeParam(c.Query("from"), false)
		if err != nil {
			return utils.SendBadRequest(c, "Invalid from date", nil)
		}
		to, err := parseTimeParam(c.Query("to"), true)
		if err != nil {
			return utils.SendBadRequest(c, "Invalid to date", nil)
		}

		page, err := webApp.Audit.List(c.Context(), audit.Filters{
			UserName: c.Query("user_name"),
			Action:   c.Query("action"),
			Entity:   c.Query("entity"),
			From:     from,
			To:       to,
		}, c.QueryInt("page", 1), c.QueryInt("limit", 0))
		if err != nil {
			return handleDomainError(c, err, "list audit logs")
		}

		return utils.SendPaginated(c,
			webmodels.NewAuditLogDTOs(page.Items),
			webmodels.NewPaginationInfo(page.Page, page.Limit, page.Total),
			"Audit logs retrieved successfully")
	}
}

func AuditFilters(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		options, err := webApp.Audit.FilterOptions(c.Context())
		if err != nil {
			return handleDomainError(c, err, "load audit filters")
		}
		return utils.SendSuccess(c, fiber.Map{
			"actions":  options.Actions,
			"entities": options.Entities,
		}, "")
	}
}

// =============================================================================
// USERS
// =============================================================================

func UsersList(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		list, err := webApp.Users.List(c.Context())
		if err != nil {
			return handleDomainError(c, err, "list users")
		}

		out := make([]webmodels.UserDTO, 0, len(list))
		for _, u := range list {
			out = append(out, webmodels.NewUserDTO(u))
		}
		return utils.SendSuccess(c, out, "Users retrieved successfully")
	}
}

func UsersCreate(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req webmodels.UserCreateRequest
		if err := c.BodyParser(&req); err != nil {
			return utils.SendBadRequest(c, "Invalid request body", map[string]string{
				"error": err.Error(),
			})
		}
		if errs := utils.ValidateUserCreateRequest(&req); len(errs) > 0 {
			return utils.HandleValidationErrors(c, errs)
		}

		role, _ := users.ParseRole(req.Role)
		user, err := webApp.Users.Create(c.Context(), users.NewUser{
			Email:       req.Email,
			Username:    req.Username,
			DisplayName: req.DisplayName,
			Role:        role,
			Password:    req.Password,
		})
		if err != nil {
			return handleDomainError(c, err, "create user")
		}

		actor := actorFrom(c)
		webApp.recordAudit(c.Context(), audit.Entry{
			UserID:    actor.UserID,
			UserName:  actor.Username,
			Action:    audit.ActionCreate,
			Entity:    audit.EntityUser,
			EntityID:  user.Username,
			IPAddress: actor.IP,
		})

		return utils.SendCreated(c, webmodels.NewUserDTO(*user), "User created successfully")
	}
}

func UsersUpdate(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c)
		if !ok {
			return utils.SendBadRequest(c, "Invalid user ID", nil)
		}

		var req webmodels.ProfileUpdateRequest
		if err := c.BodyParser(&req); err != nil {
			return utils.SendBadRequest(c, "Invalid request body", map[string]string{
				"error": err.Error(),
			})
		}
		if errs := utils.ValidateProfileUpdateRequest(&req); len(errs) > 0 {
			return utils.HandleValidationErrors(c, errs)
		}

		user, err := webApp.Users.Update(c.Context(), id, users.Profile{
			Email:       req.Email,
			Username:    req.Username,
			DisplayName: req.DisplayName,
		})
		if err != nil {
			return handleDomainError(c, err, "update user")
		}

		actor := actorFrom(c)
		webApp.recordAudit(c.Context(), audit.Entry{
			UserID:    actor.UserID,
			UserName:  actor.Username,
			Action:    audit.ActionUpdate,
			Entity:    audit.EntityUser,
			EntityID:  user.Username,
			IPAddress: actor.IP,
		})

		return utils.SendSuccess(c, webmodels.NewUserDTO(*user), "User updated successfully")
	}
}

func UsersResetPassword(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c)
		if !ok {
			return utils.SendBadRequest(c, "Invalid user ID", nil)
		}

		var req webmodels.PasswordResetRequest
		if err := c.BodyParser(&req); err != nil {
			return utils.SendBadRequest(c, "Invalid request body", map[string]string{
				"error": err.Error(),
			})
		}

		if err := webApp.Users.UpdatePassword(c.Context(), id, req.Password); err != nil {
			return handleDomainError(c, err, "reset password")
		}

		actor := actorFrom(c)
		webApp.recordAudit(c.Context(), audit.Entry{
			UserID:    actor.UserID,
			UserName:  actor.Username,
			Action:    audit.ActionPassword,
			Entity:    audit.EntityUser,
			EntityID:  strconv.FormatInt(id, 10),
			IPAddress: actor.IP,
		})

		return utils.SendSuccess(c, nil, "Password reset successfully")
	}
}

func UsersDelete(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c)
		if !ok {
			return utils.SendBadRequest(c, "Invalid user ID", nil)
		}

		actor := actorFrom(c)
		if err := webApp.Users.Delete(c.Context(), actor.UserID, id); err != nil {
			return handleDomainError(c, err, "delete user")
		}

		webApp.recordAudit(c.Context(), audit.Entry{
			UserID:    actor.UserID,
			UserName:  actor.Username,
			Action:    audit.ActionDelete,
			Entity:    audit.EntityUser,
			EntityID:  strconv.FormatInt(id, 10),
			IPAddress: actor.IP,
		})

		return utils.SendSuccess(c, nil, "User deleted successfully")
	}
}
