package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/ellavondegurechaff/materialpool/internal/domain/audit"
	"github.com/ellavondegurechaff/materialpool/internal/domain/materials"
	"github.com/ellavondegurechaff/materialpool/internal/domain/users"
	"github.com/ellavondegurechaff/materialpool/internal/gateways/database/repositories"
	"github.com/ellavondegurechaff/materialpool/internal/gateways/memory"
	"github.com/ellavondegurechaff/materialpool/materialpool"
	"github.com/ellavondegurechaff/materialpool/materialpool/database"
	"github.com/ellavondegurechaff/materialpool/materialpool/logger"
)

// stores is the storage side of the composition root.
type stores struct {
	db        *database.DB
	materials interface {
		materials.Repository
		materials.StatsRepository
	}
	users users.Repository
	audit audit.Repository
}

// openStores connects the configured storage driver. Postgres schemas are created on the way.
func openStores(ctx context.Context, cfg *materialpool.Config) (*stores, error) {
	if cfg.Storage.Driver == materialpool.StorageDriverMemory {
		logger.LogSystem("Using in-memory storage; data is lost on exit")
		userStore := memory.NewUserStore()
		return &stores{
			materials: memory.NewMaterialStore(userStore),
			users:     userStore,
			audit:     memory.NewAuditStore(),
		}, nil
	}

	start := time.Now()
	connectCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	db, err := database.New(connectCtx, cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	if err := db.InitializeSchema(connectCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	logger.LogSystem("Database connected",
		"database", cfg.DB.Database,
		"took", time.Since(start))

	bunDB := db.BunDB()
	return &stores{
		db:        db,
		materials: repositories.NewMaterialRepository(bunDB),
		users:     repositories.NewUserRepository(bunDB),
		audit:     repositories.NewAuditRepository(bunDB),
	}, nil
}

type domainServices struct {
	materials materials.Service
	users     users.Service
	audit     audit.Service
}

func (s *stores) services() domainServices {
	userService := users.NewService(s.users)
	auditService := audit.NewService(s.audit)
	return domainServices{
		materials: materials.NewService(s.materials, s.materials, userService, auditService),
		users:     userService,
		audit:     auditService,
	}
}

func (s *stores) Close() {
	if s.db != nil {
		s.db.Close()
	}
}
