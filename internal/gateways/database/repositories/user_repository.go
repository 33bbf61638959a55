package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ellavondegurechaff/materialpool/internal/domain/logger"
	"github.com/ellavondegurechaff/materialpool/internal/domain/users"
	"github.com/ellavondegurechaff/materialpool/internal/gateways/database/models"
	"github.com/uptrace/bun"
)

type userRepository struct {
	db *bun.DB
}

var _ users.Repository = &userRepository{}

func NewUserRepository(db *bun.DB) *userRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*users.User, error) {
	return r.getBy(ctx, "id = ?", id)
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*users.User, error) {
	return r.getBy(ctx, "username = ?", username)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*users.User, error) {
	return r.getBy(ctx, "LOWER(email) = LOWER(?)", email)
}

func (r *userRepository) getBy(ctx context.Context, where string, arg any) (*users.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	row := new(models.User)
	err := r.db.NewSelect().
		Model(row).
		Where(where, arg).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, users.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	u := toUser(row)
	return &u, nil
}

func (r *userRepository) List(ctx context.Context) ([]users.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var rows []models.User
	if err := r.db.NewSelect().Model(&rows).Order("id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	out := make([]users.User, 0, len(rows))
	for i := range rows {
		out = append(out, toUser(&rows[i]))
	}
	return out, nil
}

func (r *userRepository) Usernames(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var usernames []string
	err := r.db.NewSelect().
		Model((*models.User)(nil)).
		Column("username").
		Order("username ASC").
		Scan(ctx, &usernames)
	if err != nil {
		return nil, fmt.Errorf("failed to list usernames: %w", err)
	}
	return usernames, nil
}

func (r *userRepository) Create(ctx context.Context, user *users.User) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	now := time.Now().UTC()
	row := &models.User{
		Email:        user.Email,
		Username:     user.Username,
		DisplayName:  user.DisplayName,
		Role:         string(user.Role),
		PasswordHash: user.PasswordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	ql := logger.Track("create_user", "INSERT INTO users", user.Username)
	res, err := r.db.NewInsert().
		Model(row).
		Returning("id").
		Exec(ctx)
	ql.Done(res, err)
	if err != nil {
		if isUniqueViolation(err) {
			return users.ErrUserExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	user.ID = row.ID
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

// userUpdateQuery leaves role and password untouched and reads the full row back.
func userUpdateQuery(db bun.IDB, row *models.User) *bun.UpdateQuery {
	return db.NewUpdate().
		Model(row).
		Column("email", "username", "display_name", "updated_at").
		WherePK().
		Returning("*")
}

func passwordQuery(db bun.IDB, id int64, hash string, at time.Time) *bun.UpdateQuery {
	return db.NewUpdate().
		Model((*models.User)(nil)).
		Set("password_hash = ?", hash).
		Set("updated_at = ?", at).
		Where("id = ?", id)
}

func (r *userRepository) Update(ctx context.Context, user *users.User) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	row := &models.User{
		ID:          user.ID,
		Email:       user.Email,
		Username:    user.Username,
		DisplayName: user.DisplayName,
		UpdatedAt:   time.Now().UTC(),
	}

	ql := logger.Track("update_user", "UPDATE users WHERE id = ?", user.ID)
	res, err := userUpdateQuery(r.db, row).Exec(ctx)
	affected := ql.Done(res, err)
	if err != nil {
		if isUniqueViolation(err) {
			return users.ErrUserExists
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	if affected == 0 {
		return users.ErrUserNotFound
	}

	*user = toUser(row)
	return nil
}

func (r *userRepository) UpdatePassword(ctx context.Context, id int64, hash string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	ql := logger.Track("update_user_password", "UPDATE users SET password_hash WHERE id = ?", id)
	res, err := passwordQuery(r.db, id, hash, time.Now().UTC()).Exec(ctx)
	affected := ql.Done(res, err)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if affected == 0 {
		return users.ErrUserNotFound
	}
	return nil
}

func (r *userRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	ql := logger.Track("delete_user", "DELETE FROM users WHERE id = ?", id)
	res, err := r.db.NewDelete().
		Model((*models.User)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	affected := ql.Done(res, err)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if affected == 0 {
		return users.ErrUserNotFound
	}
	return nil
}

func toUser(row *models.User) users.User {
	return users.User{
		ID:           row.ID,
		Email:        row.Email,
		Username:     row.Username,
		DisplayName:  row.DisplayName,
		Role:         users.Role(row.Role),
		PasswordHash: row.PasswordHash,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
}
