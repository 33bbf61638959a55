package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

const (
	defaultLimit = 20
	maxLimit     = 200
)

var ErrInvalidEntry = errors.New("audit entry requires action and entity")

type Service interface {
	Record(ctx context.Context, entry Entry) error
	List(ctx context.Context, filters Filters, page, limit int) (*Page, error)
	FilterOptions(ctx context.Context) (*FilterOptions, error)
}

type service struct {
	repository Repository
	now        func() time.Time
}

func NewService(repository Repository) *service {
	return &service{
		repository: repository,
		now:        time.Now,
	}
}

func (s *service) Record(ctx context.Context, entry Entry) error {
	if entry.Action == "" || entry.Entity == "" {
		return ErrInvalidEntry
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now().UTC()
	}

	if err := s.repository.Append(ctx, &entry); err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}

	slog.Debug("Audit entry recorded",
		slog.String("type", "audit"),
		slog.String("action", entry.Action),
		slog.String("entity", entry.Entity),
		slog.String("entity_id", entry.EntityID),
		slog.String("user_name", entry.UserName))
	return nil
}

func (s *service) List(ctx context.Context, filters Filters, page, limit int) (*Page, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	items, total, err := s.repository.List(ctx, filters, (page-1)*limit, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}

	return &Page{Items: items, Total: total, Page: page, Limit: limit}, nil
}

func (s *service) FilterOptions(ctx context.Context) (*FilterOptions, error) {
	actions, err := s.repository.DistinctActions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load audit actions: %w", err)
	}
	entities, err := s.repository.DistinctEntities(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load audit entities: %w", err)
	}
	return &FilterOptions{Actions: actions, Entities: entities}, nil
}
