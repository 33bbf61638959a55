package materials

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Engine moves idle materials to in-use. Exclusivity is delegated to the
// repository's conditional transition; the engine never reads then writes.
type Engine struct {
	repository Repository
	now        func() time.Time
}

func NewEngine(repository Repository) *Engine {
	return &Engine{
		repository: repository,
		now:        time.Now,
	}
}

// Claim assigns material id to holder. It fails with ErrNotFound or ErrAlreadyClaimed
// and is never retried.
func (e *Engine) Claim(ctx context.Context, id int64, holder string) (*Material, error) {
	holder = strings.TrimSpace(holder)
	if holder == "" {
		return nil, ErrInvalidHolder
	}

	at := e.now().UTC().Truncate(time.Second)
	material, err := e.repository.TransitionToInUse(ctx, id, holder, at)
	if err != nil {
		slog.Debug("Claim rejected",
			slog.Int64("material_id", id),
			slog.String("holder", holder),
			slog.Any("error", err))
		return nil, fmt.Errorf("claim material %d: %w", id, err)
	}

	slog.Info("Material claimed",
		slog.Int64("material_id", material.ID),
		slog.String("category", material.Category),
		slog.String("holder", holder))
	return material, nil
}
