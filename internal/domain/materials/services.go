package materials

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/ellavondegurechaff/materialpool/internal/domain/audit"
	"github.com/sahilm/fuzzy"
)

const defaultSuggestLimit = 8

type Service interface {
	List(ctx context.Context, viewer Viewer, q Query) (*Page, error)
	Get(ctx context.Context, viewer Viewer, id int64) (*Material, error)
	Claim(ctx context.Context, actor Actor, id int64) (*Material, error)
	Create(ctx context.Context, actor Actor, input Input) (*Material, error)
	Update(ctx context.Context, actor Actor, id int64, patch Patch) (*Material, error)
	Delete(ctx context.Context, actor Actor, id int64) error
	Import(ctx context.Context, actor Actor, rows []ImportRow) (*ImportSummary, error)
	Categories(ctx context.Context, status Status) ([]string, error)
	SuggestCategories(ctx context.Context, query string, limit int) ([]string, error)
	Stats(ctx context.Context, viewer Viewer, q StatsQuery) (*Stats, error)
}

// Input is a single administrative insert.
type Input struct {
	Category    string
	Identifier  string
	Description string
	Status      string
	Holder      string
	ClaimedAt   time.Time
}

// Patch holds the fields an administrator changes; nil fields are left alone.
type Patch struct {
	Category    *string
	Identifier  *string
	Description *string
	Status      *string
	Holder      *string
	ClaimedAt   *time.Time
}

type service struct {
	repository Repository
	stats      StatsRepository
	engine     *Engine
	reconciler *Reconciler
	identities IdentityDirectory
	audit      AuditRecorder
	now        func() time.Time
}

func NewService(repository Repository, stats StatsRepository, identities IdentityDirectory, recorder AuditRecorder) *service {
	return &service{
		repository: repository,
		stats:      stats,
		engine:     NewEngine(repository),
		reconciler: NewReconciler(repository),
		identities: identities,
		audit:      recorder,
		now:        time.Now,
	}
}

func (s *service) List(ctx context.Context, viewer Viewer, q Query) (*Page, error) {
	q.Viewer = &viewer
	q.Normalize()

	items, total, err := s.repository.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to query materials: %w", err)
	}

	return &Page{
		Items:    PresentAll(items),
		Total:    total,
		Page:     q.Page,
		PageSize: q.PageSize,
	}, nil
}

func (s *service) Get(ctx context.Context, viewer Viewer, id int64) (*Material, error) {
	m, err := s.repository.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !Visible(*m, &viewer) {
		return nil, ErrNotFound
	}
	presented := Presented(*m)
	return &presented, nil
}

// Claim runs the claim engine for the actor and then appends the audit entry.
// The returned material carries the unmasked identifier.
func (s *service) Claim(ctx context.Context, actor Actor, id int64) (*Material, error) {
	m, err := s.engine.Claim(ctx, id, actor.Username)
	if err != nil {
		return nil, err
	}

	s.record(ctx, actor, audit.ActionClaim, m.ID, m.Identifier)
	return m, nil
}

func (s *service) Create(ctx context.Context, actor Actor, input Input) (*Material, error) {
	row := ImportRow{
		Category:    strings.TrimSpace(input.Category),
		Identifier:  strings.TrimSpace(input.Identifier),
		Description: input.Description,
		Status:      input.Status,
		Holder:      strings.TrimSpace(input.Holder),
		ClaimedAt:   input.ClaimedAt,
	}
	if row.Category == "" || row.Identifier == "" {
		return nil, ErrInvalidMaterial
	}

	if _, err := s.repository.FindByIdentifier(ctx, row.Identifier); err == nil {
		return nil, ErrDuplicateIdentifier
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	known, err := s.knownSet(ctx, row.Holder)
	if err != nil {
		return nil, err
	}

	candidate, reason := Candidate(row, known, s.now())
	switch reason {
	case SkipInvalidStatus:
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, input.Status)
	case SkipInvalidHolder:
		return nil, fmt.Errorf("%w: %q", ErrInvalidHolder, input.Holder)
	}

	id, err := s.repository.Insert(ctx, candidate)
	if err != nil {
		return nil, err
	}
	candidate.ID = id

	s.record(ctx, actor, audit.ActionCreate, id, candidate.Identifier)

	created, err := s.repository.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	presented := Presented(*created)
	return &presented, nil
}

func (s *service) Update(ctx context.Context, actor Actor, id int64, patch Patch) (*Material, error) {
	current, err := s.repository.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	next := *current
	var changes []string

	if patch.Category != nil {
		next.Category = strings.TrimSpace(*patch.Category)
		changes = append(changes, "category")
	}
	if patch.Identifier != nil {
		next.Identifier = strings.TrimSpace(*patch.Identifier)
		changes = append(changes, "identifier")
	}
	if patch.Description != nil {
		next.Description = strings.TrimSpace(*patch.Description)
		changes = append(changes, "description")
	}
	if next.Category == "" || next.Identifier == "" {
		return nil, ErrInvalidMaterial
	}

	if next.Identifier != current.Identifier {
		existing, err := s.repository.FindByIdentifier(ctx, next.Identifier)
		if err == nil && existing.ID != id {
			return nil, ErrDuplicateIdentifier
		}
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}

	target := current.Status
	if patch.Status != nil {
		parsed, ok := ParseStatus(*patch.Status)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, *patch.Status)
		}
		target = parsed
	}

	switch {
	case current.Status == StatusInUse && target == StatusIdle:
		return nil, fmt.Errorf("%w: in-use materials cannot return to idle", ErrInvalidStatus)

	case current.Status == StatusIdle && target == StatusInUse:
		holder, err := s.requireKnownHolder(ctx, patch.Holder)
		if err != nil {
			return nil, err
		}
		at := s.now()
		if patch.ClaimedAt != nil && !patch.ClaimedAt.IsZero() {
			at = *patch.ClaimedAt
		}
		next.Status = StatusInUse
		next.Holder = holder
		next.ClaimedAt = at.UTC().Truncate(time.Second)
		// content and assignment land together or not at all
		if err := s.repository.Update(ctx, &next, StatusIdle); err != nil {
			return nil, err
		}
		changes = append(changes, "status", "holder")

	case current.Status == StatusInUse:
		if patch.Holder != nil {
			holder, err := s.requireKnownHolder(ctx, patch.Holder)
			if err != nil {
				return nil, err
			}
			next.Holder = holder
			changes = append(changes, "holder")
		}
		if patch.ClaimedAt != nil && !patch.ClaimedAt.IsZero() {
			next.ClaimedAt = patch.ClaimedAt.UTC().Truncate(time.Second)
			changes = append(changes, "usage_time")
		}
		if err := s.repository.Update(ctx, &next, current.Status); err != nil {
			return nil, err
		}

	default:
		next.Holder = ""
		next.ClaimedAt = time.Time{}
		if err := s.repository.Update(ctx, &next, current.Status); err != nil {
			return nil, err
		}
	}

	s.record(ctx, actor, audit.ActionUpdate, id, fmt.Sprintf("%s: %s", next.Identifier, strings.Join(changes, ",")))

	updated, err := s.repository.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	presented := Presented(*updated)
	return &presented, nil
}

func (s *service) Delete(ctx context.Context, actor Actor, id int64) error {
	current, err := s.repository.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repository.Delete(ctx, id); err != nil {
		return err
	}

	s.record(ctx, actor, audit.ActionDelete, id, current.Identifier)
	return nil
}

// Import validates holders against every known username and reconciles the rows.
func (s *service) Import(ctx context.Context, actor Actor, rows []ImportRow) (*ImportSummary, error) {
	usernames, err := s.identities.KnownUsernames(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load known users: %w", err)
	}

	start := s.now()
	summary, err := s.reconciler.Reconcile(ctx, rows, NewIdentitySet(usernames...))

	slog.Info("Material import finished",
		slog.String("user_name", actor.Username),
		slog.Int("total", summary.Total),
		slog.Int("inserted", summary.Inserted),
		slog.Int("skipped", summary.SkippedTotal()),
		slog.Duration("took", s.now().Sub(start)))

	if summary.Total > 0 {
		s.record(ctx, actor, audit.ActionImport, 0, summary.Message())
	}
	return summary, err
}

func (s *service) Categories(ctx context.Context, status Status) ([]string, error) {
	return s.repository.Categories(ctx, status)
}

// SuggestCategories ranks known categories against query with fuzzy matching.
func (s *service) SuggestCategories(ctx context.Context, query string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = defaultSuggestLimit
	}

	categories, err := s.repository.Categories(ctx, "")
	if err != nil {
		return nil, err
	}

	query = strings.TrimSpace(query)
	if query == "" {
		if len(categories) > limit {
			categories = categories[:limit]
		}
		return categories, nil
	}

	matches := fuzzy.Find(query, categories)
	out := make([]string, 0, min(limit, len(matches)))
	for _, match := range matches {
		if len(out) == limit {
			break
		}
		out = append(out, match.Str)
	}
	return out, nil
}

func (s *service) knownSet(ctx context.Context, holder string) (IdentitySet, error) {
	if holder == "" {
		return IdentitySet{}, nil
	}
	ok, err := s.identities.IsKnown(ctx, holder)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve holder: %w", err)
	}
	if !ok {
		return IdentitySet{}, nil
	}
	return NewIdentitySet(holder), nil
}

func (s *service) requireKnownHolder(ctx context.Context, holder *string) (string, error) {
	if holder == nil || strings.TrimSpace(*holder) == "" {
		return "", fmt.Errorf("%w: holder is required for in-use materials", ErrInvalidHolder)
	}
	username := strings.TrimSpace(*holder)
	ok, err := s.identities.IsKnown(ctx, username)
	if err != nil {
		return "", fmt.Errorf("failed to resolve holder: %w", err)
	}
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidHolder, username)
	}
	return username, nil
}

// record appends an audit entry. Failures are logged and never returned.
func (s *service) record(ctx context.Context, actor Actor, action string, id int64, details string) {
	if s.audit == nil {
		return
	}

	entityID := ""
	if id > 0 {
		entityID = strconv.FormatInt(id, 10)
	}

	err := s.audit.Record(context.WithoutCancel(ctx), audit.Entry{
		UserID:    actor.UserID,
		UserName:  actor.Username,
		Action:    action,
		Entity:    audit.EntityMaterial,
		EntityID:  entityID,
		Details:   details,
		IPAddress: actor.IP,
	})
	if err != nil {
		slog.Warn("Audit append failed",
			slog.String("action", action),
			slog.String("entity_id", entityID),
			slog.Any("error", err))
	}
}
