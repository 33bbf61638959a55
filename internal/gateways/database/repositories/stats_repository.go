package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/ellavondegurechaff/materialpool/internal/domain/materials"
	"github.com/ellavondegurechaff/materialpool/internal/gateways/database/models"
)

func (r *materialRepository) StatusCounts(ctx context.Context, holder string) (map[materials.Status]int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var rows []struct {
		Status string `bun:"status"`
		Count  int64  `bun:"count"`
	}
	q := r.db.NewSelect().
		Model((*models.Material)(nil)).
		Column("status").
		ColumnExpr("COUNT(*) AS count").
		Group("status")
	if holder != "" {
		q = q.Where("holder = ?", holder)
	}
	if err := q.Scan(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to count statuses: %w", err)
	}

	counts := map[materials.Status]int64{
		materials.StatusIdle:  0,
		materials.StatusInUse: 0,
	}
	for _, row := range rows {
		counts[materials.Status(row.Status)] = row.Count
	}
	return counts, nil
}

func (r *materialRepository) CategoryCounts(ctx context.Context, status materials.Status, holder string, limit int) ([]materials.CategoryCount, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var rows []materials.CategoryCount
	q := r.db.NewSelect().
		Model((*models.Material)(nil)).
		Column("category").
		ColumnExpr("COUNT(*) AS count").
		Group("category").
		OrderExpr("count DESC, category ASC")
	if status != "" {
		q = q.Where("status = ?", string(status))
	}
	if holder != "" {
		q = q.Where("holder = ?", holder)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to count categories: %w", err)
	}
	return rows, nil
}

// DailyUsage buckets claims by UTC date.
func (r *materialRepository) DailyUsage(ctx context.Context, holder string, from, to time.Time) ([]materials.DailyCount, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var rows []struct {
		Day   string `bun:"day"`
		Count int64  `bun:"count"`
	}
	q := r.db.NewSelect().
		Model((*models.Material)(nil)).
		ColumnExpr("to_char(usage_time AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day").
		ColumnExpr("COUNT(*) AS count").
		Where("status = ?", string(materials.StatusInUse)).
		Where("usage_time BETWEEN ? AND ?", from, to).
		GroupExpr("day").
		OrderExpr("day ASC")
	if holder != "" {
		q = q.Where("holder = ?", holder)
	}
	if err := q.Scan(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to load daily usage: %w", err)
	}

	out := make([]materials.DailyCount, 0, len(rows))
	for _, row := range rows {
		out = append(out, materials.DailyCount{Date: row.Day, Count: row.Count})
	}
	return out, nil
}

func (r *materialRepository) TopHolders(ctx context.Context, from, to time.Time, limit int) ([]materials.HolderCount, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var rows []materials.HolderCount
	q := r.db.NewSelect().
		Model((*models.Material)(nil)).
		Column("holder").
		ColumnExpr("COUNT(*) AS count").
		Where("status = ?", string(materials.StatusInUse)).
		Where("usage_time BETWEEN ? AND ?", from, to).
		Group("holder").
		OrderExpr("count DESC, holder ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to load top holders: %w", err)
	}
	return rows, nil
}
