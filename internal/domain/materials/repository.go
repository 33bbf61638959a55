package materials

import (
	"context"
	"time"

	"github.com/ellavondegurechaff/materialpool/internal/domain/audit"
)

//go:generate mockgen -source=repository.go -destination=mock/repository.go -package=mock

// Repository is the material store. Implementations must make TransitionToInUse
// exclusive per id: of any number of concurrent calls on one idle row, exactly one succeeds.
type Repository interface {
	FindByID(ctx context.Context, id int64) (*Material, error)
	FindByIdentifier(ctx context.Context, identifier string) (*Material, error)
	Query(ctx context.Context, q Query) ([]Material, int64, error)
	Insert(ctx context.Context, material *Material) (int64, error)
	TransitionToInUse(ctx context.Context, id int64, holder string, at time.Time) (*Material, error)
	// Update writes every mutable column of material, status included, in one
	// statement that only matches while the stored status still equals from.
	// A mismatch reports ErrAlreadyClaimed and leaves the row untouched.
	Update(ctx context.Context, material *Material, from Status) error
	Delete(ctx context.Context, id int64) error
	Categories(ctx context.Context, status Status) ([]string, error)
}

type StatsRepository interface {
	StatusCounts(ctx context.Context, holder string) (map[Status]int64, error)
	CategoryCounts(ctx context.Context, status Status, holder string, limit int) ([]CategoryCount, error)
	DailyUsage(ctx context.Context, holder string, from, to time.Time) ([]DailyCount, error)
	TopHolders(ctx context.Context, from, to time.Time, limit int) ([]HolderCount, error)
}

// IdentityDirectory resolves holders against known users.
type IdentityDirectory interface {
	KnownUsernames(ctx context.Context) ([]string, error)
	IsKnown(ctx context.Context, username string) (bool, error)
}

type AuditRecorder interface {
	Record(ctx context.Context, entry audit.Entry) error
}
