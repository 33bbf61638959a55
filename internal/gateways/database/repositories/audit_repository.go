package repositories

import (
	"context"
	"fmt"

	"github.com/ellavondegurechaff/materialpool/internal/domain/audit"
	"github.com/ellavondegurechaff/materialpool/internal/gateways/database/models"
	"github.com/uptrace/bun"
)

type auditRepository struct {
	db *bun.DB
}

var _ audit.Repository = &auditRepository{}

func NewAuditRepository(db *bun.DB) *auditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Append(ctx context.Context, entry *audit.Entry) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	row := &models.AuditLog{
		UserID:    entry.UserID,
		UserName:  entry.UserName,
		Action:    entry.Action,
		Entity:    entry.Entity,
		EntityID:  entry.EntityID,
		Details:   entry.Details,
		IPAddress: entry.IPAddress,
		CreatedAt: entry.CreatedAt,
	}

	if _, err := r.db.NewInsert().Model(row).Returning("id").Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}
	entry.ID = row.ID
	return nil
}

func auditListQuery(db bun.IDB, dest any, f audit.Filters) *bun.SelectQuery {
	q := db.NewSelect().Model(dest)
	if f.UserName != "" {
		q = q.Where("user_name ILIKE ?", "%"+f.UserName+"%")
	}
	if f.Action != "" {
		q = q.Where("action = ?", f.Action)
	}
	if f.Entity != "" {
		q = q.Where("entity = ?", f.Entity)
	}
	if !f.From.IsZero() {
		q = q.Where("created_at >= ?", f.From)
	}
	if !f.To.IsZero() {
		q = q.Where("created_at <= ?", f.To)
	}
	return q.OrderExpr("created_at DESC, id DESC")
}

func (r *auditRepository) List(ctx context.Context, f audit.Filters, offset, limit int) ([]audit.Entry, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var rows []models.AuditLog
	total, err := auditListQuery(r.db, &rows, f).
		Offset(offset).
		Limit(limit).
		ScanAndCount(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list audit logs: %w", err)
	}

	out := make([]audit.Entry, 0, len(rows))
	for _, row := range rows {
		out = append(out, audit.Entry{
			ID:        row.ID,
			UserID:    row.UserID,
			UserName:  row.UserName,
			Action:    row.Action,
			Entity:    row.Entity,
			EntityID:  row.EntityID,
			Details:   row.Details,
			IPAddress: row.IPAddress,
			CreatedAt: row.CreatedAt,
		})
	}
	return out, int64(total), nil
}

func (r *auditRepository) DistinctActions(ctx context.Context) ([]string, error) {
	return r.distinct(ctx, "action")
}

func (r *auditRepository) DistinctEntities(ctx context.Context) ([]string, error) {
	return r.distinct(ctx, "entity")
}

func (r *auditRepository) distinct(ctx context.Context, column string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var values []string
	err := r.db.NewSelect().
		Model((*models.AuditLog)(nil)).
		Distinct().
		Column(column).
		Order(column + " ASC").
		Scan(ctx, &values)
	if err != nil {
		return nil, fmt.Errorf("failed to load distinct %s: %w", column, err)
	}
	return values, nil
}
