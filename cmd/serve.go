package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ellavondegurechaff/materialpool/backend"
	"github.com/ellavondegurechaff/materialpool/backend/config"
	"github.com/ellavondegurechaff/materialpool/backend/handlers"
	webservices "github.com/ellavondegurechaff/materialpool/backend/services"
	"github.com/ellavondegurechaff/materialpool/materialpool"
	"github.com/ellavondegurechaff/materialpool/materialpool/services"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Web.SessionKey == "" {
			return errors.New("web.session_key must be set to serve the API")
		}

		slog.Info("Starting Material Pool API",
			slog.String("version", version),
			slog.String("commit", commit),
			slog.String("storage", cfg.Storage.Driver))

		st, err := openStores(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		svc := st.services()
		webCfg := config.NewWebAppConfig(cfg, cfg.Log.Level < slog.LevelInfo)

		archiver, err := newArchiver(ctx, cfg)
		if err != nil {
			return err
		}

		webApp := &handlers.WebApp{
			Config:         webCfg,
			Materials:      svc.materials,
			Users:          svc.users,
			Audit:          svc.audit,
			Imports:        webservices.NewImportService(svc.materials, archiver, cfg.Import.MaxParallel, cfg.Import.MaxFileSize),
			SessionService: webservices.NewSessionService(webCfg),
			Version:        version,
			Commit:         commit,
		}
		if st.db != nil {
			webApp.DB = st.db
		}

		app := backend.NewApp(webApp)
		address := fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port)

		errCh := make(chan error, 1)
		go func() {
			slog.Info("Starting backend server", slog.String("address", address))
			errCh <- app.Listen(address)
		}()

		select {
		case err := <-errCh:
			return fmt.Errorf("server stopped: %w", err)
		case <-ctx.Done():
		}

		slog.Info("Shutting down backend server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", slog.String("error", err.Error()))
		}

		slog.Info("Backend server shutdown complete")
		return nil
	},
}

// newArchiver returns the object storage archiver, or nil when archiving is off.
func newArchiver(ctx context.Context, cfg *materialpool.Config) (webservices.Archiver, error) {
	if !cfg.Import.Archive {
		return nil, nil
	}
	if !cfg.Spaces.Enabled() {
		slog.Warn("import.archive is set but spaces credentials are missing; uploads will not be archived")
		return nil, nil
	}

	spaces, err := services.NewSpacesService(ctx,
		cfg.Spaces.Key,
		cfg.Spaces.Secret,
		cfg.Spaces.Region,
		cfg.Spaces.Bucket,
		cfg.Spaces.Endpoint,
		cfg.Spaces.Root,
	)
	if err != nil {
		return nil, err
	}
	slog.Info("Archiving import files",
		slog.String("bucket", spaces.GetBucket()),
		slog.String("region", spaces.GetRegion()))
	return spaces, nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
