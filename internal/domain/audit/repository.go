package audit

import "context"

//go:generate mockgen -source=repository.go -destination=mock/repository.go -package=mock

type Repository interface {
	Append(ctx context.Context, entry *Entry) error
	List(ctx context.Context, filters Filters, offset, limit int) ([]Entry, int64, error)
	DistinctActions(ctx context.Context) ([]string, error)
	DistinctEntities(ctx context.Context) ([]string, error)
}
