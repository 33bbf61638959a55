package backend

import (
	"log/slog"

	"github.com/ellavondegurechaff/materialpool/backend/handlers"
	"github.com/ellavondegurechaff/materialpool/backend/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// NewApp builds the API-only fiber application for webApp
func NewApp(webApp *handlers.WebApp) *fiber.App {
	bodyLimit := 4 * 1024 * 1024
	if size := int(webApp.Config.GetImportConfig().MaxFileSize); size > 0 {
		// multipart overhead on top of the largest accepted spreadsheet
		bodyLimit = size + 1024*1024
	}

	app := fiber.New(fiber.Config{
		AppName:               "Material Pool API",
		ServerHeader:          "MaterialPool",
		ErrorHandler:          middleware.CustomErrorHandler,
		BodyLimit:             bodyLimit,
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.SecurityHeaders())
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     webApp.Config.GetWebConfig().AllowOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,X-Requested-With,X-Request-ID,Cookie",
		AllowCredentials: true,
	}))
	app.Use(middleware.LoggingMiddleware())

	setupRoutes(app, webApp)
	return app
}

// setupRoutes configures all application routes
func setupRoutes(app *fiber.App, webApp *handlers.WebApp) {
	app.Get("/health", handlers.HealthCheck(webApp))

	auth := app.Group("/auth")
	auth.Post("/login", middleware.AuthRateLimit(), handlers.Login(webApp))
	auth.Post("/logout", handlers.Logout(webApp))

	api := app.Group("/api", middleware.AuthRequired(webApp), middleware.APIRateLimit())
	api.Get("/auth/validate", handlers.ValidateSession(webApp))
	api.Get("/stats", handlers.StatsAPI(webApp))

	profile := api.Group("/profile")
	profile.Get("/", handlers.ProfileGet(webApp))
	profile.Put("/", handlers.ProfileUpdate(webApp))
	profile.Put("/password", handlers.ProfilePassword(webApp))

	materials := api.Group("/materials")
	materials.Get("/", handlers.MaterialsList(webApp))
	materials.Get("/categories", handlers.MaterialsCategories(webApp))
	materials.Get("/categories/suggest", handlers.MaterialsSuggest(webApp))
	materials.Get("/:id", handlers.MaterialsDetail(webApp))
	materials.Post("/:id/claim", middleware.ClaimRateLimit(), handlers.MaterialsClaim(webApp))

	admin := api.Group("/admin", middleware.AdminRequired())

	adminMaterials := admin.Group("/materials")
	adminMaterials.Post("/", handlers.MaterialsCreate(webApp))
	adminMaterials.Post("/import", middleware.UploadRateLimit(), handlers.MaterialsImport(webApp))
	adminMaterials.Get("/template", handlers.MaterialsTemplate(webApp))
	adminMaterials.Put("/:id", handlers.MaterialsUpdate(webApp))
	adminMaterials.Delete("/:id", handlers.MaterialsDelete(webApp))

	auditLogs := admin.Group("/audit-logs")
	auditLogs.Get("/", handlers.AuditLogs(webApp))
	auditLogs.Get("/filters", handlers.AuditFilters(webApp))

	users := admin.Group("/users")
	users.Get("/", handlers.UsersList(webApp))
	users.Post("/", handlers.UsersCreate(webApp))
	users.Put("/:id", handlers.UsersUpdate(webApp))
	users.Put("/:id/password", handlers.UsersResetPassword(webApp))
	users.Delete("/:id", handlers.UsersDelete(webApp))

	// No route matched
	app.Use(func(c *fiber.Ctx) error {
		slog.Warn("No route matched for request",
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.String("ip", c.IP()),
		)
		return fiber.NewError(fiber.StatusNotFound, "The requested endpoint does not exist")
	})
}
