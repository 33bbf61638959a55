package materials

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
)

// SampleLimit bounds the identifiers kept per skip reason.
const SampleLimit = 3

type SkipReason string

const (
	SkipMissingFields SkipReason = "missing_fields"
	SkipDuplicate     SkipReason = "duplicate"
	SkipInvalidStatus SkipReason = "invalid_status"
	SkipInvalidHolder SkipReason = "invalid_holder"
)

// ImportRow is one externally supplied candidate. Zero ClaimedAt means absent.
type ImportRow struct {
	Line        int
	Category    string
	Identifier  string
	Description string
	Status      string
	Holder      string
	ClaimedAt   time.Time
}

func (r ImportRow) label() string {
	if r.Identifier != "" {
		return r.Identifier
	}
	return fmt.Sprintf("row %d", r.Line)
}

type SkipTally struct {
	Count   int      `json:"count"`
	Samples []string `json:"samples"`
}

type ImportSummary struct {
	Total              int                       `json:"total"`
	Inserted           int                       `json:"inserted"`
	InsertedIdle       int                       `json:"inserted_idle"`
	InsertedByCategory map[string]int            `json:"inserted_by_category"`
	Skipped            map[SkipReason]*SkipTally `json:"skipped"`
}

func NewImportSummary() *ImportSummary {
	return &ImportSummary{
		InsertedByCategory: make(map[string]int),
		Skipped:            make(map[SkipReason]*SkipTally),
	}
}

func (s *ImportSummary) skip(reason SkipReason, label string) {
	tally, ok := s.Skipped[reason]
	if !ok {
		tally = &SkipTally{Samples: make([]string, 0, SampleLimit)}
		s.Skipped[reason] = tally
	}
	tally.Count++
	if len(tally.Samples) < SampleLimit {
		tally.Samples = append(tally.Samples, label)
	}
}

func (s *ImportSummary) SkippedCount(reason SkipReason) int {
	if tally, ok := s.Skipped[reason]; ok {
		return tally.Count
	}
	return 0
}

func (s *ImportSummary) SkippedTotal() int {
	total := 0
	for _, tally := range s.Skipped {
		total += tally.Count
	}
	return total
}

// Message renders the administrative summary line.
func (s *ImportSummary) Message() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "imported %d of %d rows (%d idle)", s.Inserted, s.Total, s.InsertedIdle)

	if len(s.InsertedByCategory) > 0 {
		categories := make([]string, 0, len(s.InsertedByCategory))
		for c := range s.InsertedByCategory {
			categories = append(categories, c)
		}
		sort.Strings(categories)
		parts := make([]string, 0, len(categories))
		for _, c := range categories {
			parts = append(parts, fmt.Sprintf("%s: %d", c, s.InsertedByCategory[c]))
		}
		fmt.Fprintf(&sb, "; by category [%s]", strings.Join(parts, ", "))
	}

	reasons := []SkipReason{SkipMissingFields, SkipDuplicate, SkipInvalidStatus, SkipInvalidHolder}
	for _, reason := range reasons {
		tally, ok := s.Skipped[reason]
		if !ok {
			continue
		}
		fmt.Fprintf(&sb, "; %s: %d (%s)", reason, tally.Count, strings.Join(tally.Samples, ", "))
	}
	return sb.String()
}

// IdentitySet is the set of usernames a holder may reference.
type IdentitySet map[string]struct{}

func NewIdentitySet(usernames ...string) IdentitySet {
	set := make(IdentitySet, len(usernames))
	for _, u := range usernames {
		set[u] = struct{}{}
	}
	return set
}

func (s IdentitySet) Contains(username string) bool {
	_, ok := s[username]
	return ok
}

// Reconciler merges import rows into the store row by row.
type Reconciler struct {
	repository Repository
	now        func() time.Time
}

func NewReconciler(repository Repository) *Reconciler {
	return &Reconciler{
		repository: repository,
		now:        time.Now,
	}
}

// Reconcile never aborts on a bad row. A storage error stops the batch and is
// returned alongside the summary of the rows already committed.
func (r *Reconciler) Reconcile(ctx context.Context, rows []ImportRow, known IdentitySet) (*ImportSummary, error) {
	summary := NewImportSummary()
	summary.Total = len(rows)

	for i, row := range rows {
		if row.Line == 0 {
			row.Line = i + 1
		}
		if err := r.reconcileRow(ctx, row, known, summary); err != nil {
			slog.Error("Import stopped on storage error",
				slog.Int("line", row.Line),
				slog.Int("inserted", summary.Inserted),
				slog.Any("error", err))
			return summary, fmt.Errorf("import row %d: %w", row.Line, err)
		}
	}

	return summary, nil
}

func (r *Reconciler) reconcileRow(ctx context.Context, row ImportRow, known IdentitySet, summary *ImportSummary) error {
	row.Category = strings.TrimSpace(row.Category)
	row.Identifier = strings.TrimSpace(row.Identifier)
	if row.Category == "" || row.Identifier == "" {
		summary.skip(SkipMissingFields, row.label())
		return nil
	}

	_, err := r.repository.FindByIdentifier(ctx, row.Identifier)
	switch {
	case err == nil:
		summary.skip(SkipDuplicate, row.label())
		return nil
	case !errors.Is(err, ErrNotFound):
		return err
	}

	candidate, reason := Candidate(row, known, r.now())
	if reason != "" {
		summary.skip(reason, row.label())
		return nil
	}

	if _, err := r.repository.Insert(ctx, candidate); err != nil {
		if errors.Is(err, ErrDuplicateIdentifier) {
			summary.skip(SkipDuplicate, row.label())
			return nil
		}
		return err
	}

	summary.Inserted++
	summary.InsertedByCategory[candidate.Category]++
	if candidate.Status == StatusIdle {
		summary.InsertedIdle++
	}
	return nil
}

// Candidate validates status and holder of a row with non-blank category and
// identifier and returns the material to insert, or the reason to skip it.
func Candidate(row ImportRow, known IdentitySet, now time.Time) (*Material, SkipReason) {
	status := StatusIdle
	if raw := strings.TrimSpace(row.Status); raw != "" {
		parsed, ok := ParseStatus(raw)
		if !ok {
			return nil, SkipInvalidStatus
		}
		status = parsed
	}

	m := &Material{
		Category:    strings.TrimSpace(row.Category),
		Identifier:  strings.TrimSpace(row.Identifier),
		Description: strings.TrimSpace(row.Description),
		Status:      status,
	}

	if status == StatusInUse {
		holder := strings.TrimSpace(row.Holder)
		if !known.Contains(holder) {
			return nil, SkipInvalidHolder
		}
		m.Holder = holder
		m.ClaimedAt = row.ClaimedAt
		if m.ClaimedAt.IsZero() {
			m.ClaimedAt = now
		}
		m.ClaimedAt = m.ClaimedAt.UTC().Truncate(time.Second)
	}

	return m, ""
}
