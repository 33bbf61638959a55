package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ellavondegurechaff/materialpool/internal/domain/logger"
	"github.com/ellavondegurechaff/materialpool/internal/domain/materials"
	"github.com/ellavondegurechaff/materialpool/internal/gateways/database/models"
	"github.com/uptrace/bun"
)

const defaultTimeout = 10 * time.Second

type materialRepository struct {
	db *bun.DB
}

var (
	_ materials.Repository      = &materialRepository{}
	_ materials.StatsRepository = &materialRepository{}
)

func NewMaterialRepository(db *bun.DB) *materialRepository {
	return &materialRepository{db: db}
}

// selectMaterials selects materials with the holder's display name joined in.
func selectMaterials(db bun.IDB, dest any) *bun.SelectQuery {
	return db.NewSelect().
		Model(dest).
		ColumnExpr("m.*").
		ColumnExpr("u.display_name AS holder_name").
		Join("LEFT JOIN users AS u ON u.username = m.holder")
}

func (r *materialRepository) FindByID(ctx context.Context, id int64) (*materials.Material, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	return findMaterial(ctx, r.db, "m.id = ?", id)
}

func (r *materialRepository) FindByIdentifier(ctx context.Context, identifier string) (*materials.Material, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	return findMaterial(ctx, r.db, "m.identifier = ?", identifier)
}

func findMaterial(ctx context.Context, db bun.IDB, where string, arg any) (*materials.Material, error) {
	row := new(models.Material)
	err := selectMaterials(db, row).
		Where(where, arg).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, materials.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load material: %w", err)
	}

	m := toMaterial(row)
	return &m, nil
}

func (r *materialRepository) Query(ctx context.Context, q materials.Query) ([]materials.Material, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	q.Normalize()

	var rows []models.Material
	total, err := buildListQuery(r.db, &rows, q).ScanAndCount(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query materials: %w", err)
	}

	out := make([]materials.Material, 0, len(rows))
	for i := range rows {
		out = append(out, toMaterial(&rows[i]))
	}
	return out, int64(total), nil
}

func buildListQuery(db bun.IDB, dest any, q materials.Query) *bun.SelectQuery {
	sel := selectMaterials(db, dest)

	f := q.Filters
	if f.Category != "" {
		sel = sel.Where("m.category ILIKE ?", "%"+f.Category+"%")
	}
	if f.Identifier != "" {
		sel = sel.Where("m.identifier ILIKE ?", "%"+f.Identifier+"%")
	}
	if f.Status != "" {
		sel = sel.Where("m.status = ?", string(f.Status))
	}
	if f.Holder != "" {
		sel = sel.Where("m.holder ILIKE ?", "%"+f.Holder+"%")
	}
	if f.HolderName != "" {
		sel = sel.Where("u.display_name ILIKE ?", "%"+f.HolderName+"%")
	}
	if !f.From.IsZero() {
		sel = sel.Where("m.usage_time >= ?", f.From)
	}
	if !f.To.IsZero() {
		sel = sel.Where("m.usage_time <= ?", f.To)
	}

	if v := q.Viewer; v != nil && !v.Admin {
		sel = sel.WhereGroup(" AND ", func(g *bun.SelectQuery) *bun.SelectQuery {
			return g.
				Where("m.status = ?", string(materials.StatusIdle)).
				WhereOr("m.holder = ?", v.Username)
		})
	}

	if q.Sort == materials.SortClaimedAt {
		sel = sel.OrderExpr("m.usage_time DESC NULLS LAST")
	} else {
		sel = sel.OrderExpr("m.created_at DESC")
	}

	return sel.
		OrderExpr("m.id DESC").
		Limit(q.PageSize).
		Offset(q.Offset())
}

func (r *materialRepository) Insert(ctx context.Context, m *materials.Material) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	row := fromMaterial(m)
	now := time.Now().UTC()
	row.CreatedAt = now
	row.UpdatedAt = now

	ql := logger.Track("insert_material", "INSERT INTO materials", row.Identifier)
	res, err := r.db.NewInsert().
		Model(row).
		Returning("id").
		Exec(ctx)
	ql.Done(res, err)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, materials.ErrDuplicateIdentifier
		}
		return 0, fmt.Errorf("failed to insert material: %w", err)
	}

	return row.ID, nil
}

// claimQuery is the conditional transition: it only touches a row that is still idle.
func claimQuery(db bun.IDB, id int64, holder string, at, now time.Time) *bun.UpdateQuery {
	return db.NewUpdate().
		Model((*models.Material)(nil)).
		Set("status = ?", string(materials.StatusInUse)).
		Set("holder = ?", holder).
		Set("usage_time = ?", at).
		Set("updated_at = ?", now).
		Where("id = ?", id).
		Where("status = ?", string(materials.StatusIdle))
}

func (r *materialRepository) TransitionToInUse(ctx context.Context, id int64, holder string, at time.Time) (*materials.Material, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	ql := logger.Track("claim_material", "UPDATE materials SET status = in_use WHERE id = ? AND status = idle", id, holder)
	res, err := claimQuery(tx, id, holder, at, time.Now().UTC()).Exec(ctx)
	affected := ql.Done(res, err)
	if err != nil {
		return nil, fmt.Errorf("failed to claim material: %w", err)
	}

	if affected == 0 {
		return nil, r.classifyMiss(ctx, tx, id)
	}

	m, err := findMaterial(ctx, tx, "m.id = ?", id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit claim: %w", err)
	}
	return m, nil
}

// classifyMiss explains a conditional write that matched no row.
func (r *materialRepository) classifyMiss(ctx context.Context, db bun.IDB, id int64) error {
	exists, err := db.NewSelect().
		Model((*models.Material)(nil)).
		Where("id = ?", id).
		Exists(ctx)
	if err != nil {
		return fmt.Errorf("failed to check material: %w", err)
	}
	if !exists {
		return materials.ErrNotFound
	}
	return materials.ErrAlreadyClaimed
}

func updateQuery(db bun.IDB, row *models.Material, from materials.Status) *bun.UpdateQuery {
	return db.NewUpdate().
		Model(row).
		Column("category", "identifier", "description", "status", "holder", "usage_time", "updated_at").
		WherePK().
		Where("status = ?", string(from))
}

func (r *materialRepository) Update(ctx context.Context, m *materials.Material, from materials.Status) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	row := fromMaterial(m)
	row.UpdatedAt = time.Now().UTC()

	ql := logger.Track("update_material", "UPDATE materials WHERE id = ? AND status = ?", m.ID, from)
	res, err := updateQuery(r.db, row, from).Exec(ctx)
	affected := ql.Done(res, err)
	if err != nil {
		if isUniqueViolation(err) {
			return materials.ErrDuplicateIdentifier
		}
		return fmt.Errorf("failed to update material: %w", err)
	}

	if affected == 0 {
		return r.classifyMiss(ctx, r.db, m.ID)
	}
	return nil
}

func (r *materialRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	ql := logger.Track("delete_material", "DELETE FROM materials WHERE id = ?", id)
	res, err := r.db.NewDelete().
		Model((*models.Material)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	affected := ql.Done(res, err)
	if err != nil {
		return fmt.Errorf("failed to delete material: %w", err)
	}
	if affected == 0 {
		return materials.ErrNotFound
	}
	return nil
}

func (r *materialRepository) Categories(ctx context.Context, status materials.Status) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	q := r.db.NewSelect().
		Model((*models.Material)(nil)).
		Distinct().
		Column("category").
		Where("category <> ''").
		Order("category ASC")
	if status != "" {
		q = q.Where("status = ?", string(status))
	}

	var categories []string
	if err := q.Scan(ctx, &categories); err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}
	return categories, nil
}

func toMaterial(row *models.Material) materials.Material {
	return materials.Material{
		ID:          row.ID,
		Category:    row.Category,
		Identifier:  row.Identifier,
		Description: row.Description,
		Status:      materials.Status(row.Status),
		Holder:      row.Holder,
		HolderName:  row.HolderName,
		ClaimedAt:   row.UsageTime,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}

func fromMaterial(m *materials.Material) *models.Material {
	return &models.Material{
		ID:          m.ID,
		Category:    m.Category,
		Identifier:  m.Identifier,
		Description: m.Description,
		Status:      string(m.Status),
		Holder:      m.Holder,
		UsageTime:   m.ClaimedAt,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}
