package materials

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	defaultStatsWindow = 30 * 24 * time.Hour
	defaultStatsLimit  = 5
	idleStatsLimit     = 10
)

type CategoryCount struct {
	Category string `json:"category"`
	Count    int64  `json:"count"`
}

type DailyCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

type HolderCount struct {
	Holder string `json:"holder"`
	Count  int64  `json:"count"`
}

type StatsQuery struct {
	From  time.Time
	To    time.Time
	Limit int
}

type Stats struct {
	From           time.Time        `json:"from"`
	To             time.Time        `json:"to"`
	Holder         string           `json:"holder,omitempty"`
	StatusCounts   map[Status]int64 `json:"status_counts"`
	Total          int64            `json:"total"`
	TopCategories  []CategoryCount  `json:"top_categories"`
	IdleCategories []CategoryCount  `json:"idle_categories"`
	DailyUsage     []DailyCount     `json:"daily_usage"`
	TopHolders     []HolderCount    `json:"top_holders,omitempty"`
}

func (q *StatsQuery) normalize(now time.Time) {
	if q.To.IsZero() {
		q.To = now
	}
	if q.From.IsZero() {
		q.From = q.To.Add(-defaultStatsWindow)
	}
	if q.Limit <= 0 {
		q.Limit = defaultStatsLimit
	}
}

// Stats aggregates usage for an admin, or for the viewer's own claims otherwise.
// The aggregate queries run concurrently.
func (s *service) Stats(ctx context.Context, viewer Viewer, q StatsQuery) (*Stats, error) {
	if s.stats == nil {
		return nil, fmt.Errorf("stats are not available")
	}
	q.normalize(s.now().UTC())

	holder := ""
	if !viewer.Admin {
		holder = viewer.Username
	}

	result := &Stats{From: q.From, To: q.To, Holder: holder}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		counts, err := s.stats.StatusCounts(gctx, holder)
		if err != nil {
			return fmt.Errorf("status counts: %w", err)
		}
		result.StatusCounts = counts
		return nil
	})
	g.Go(func() error {
		categories, err := s.stats.CategoryCounts(gctx, "", holder, q.Limit)
		if err != nil {
			return fmt.Errorf("category counts: %w", err)
		}
		result.TopCategories = categories
		return nil
	})
	g.Go(func() error {
		idle, err := s.stats.CategoryCounts(gctx, StatusIdle, "", idleStatsLimit)
		if err != nil {
			return fmt.Errorf("idle category counts: %w", err)
		}
		result.IdleCategories = idle
		return nil
	})
	g.Go(func() error {
		daily, err := s.stats.DailyUsage(gctx, holder, q.From, q.To)
		if err != nil {
			return fmt.Errorf("daily usage: %w", err)
		}
		result.DailyUsage = daily
		return nil
	})
	if viewer.Admin {
		g.Go(func() error {
			top, err := s.stats.TopHolders(gctx, q.From, q.To, q.Limit)
			if err != nil {
				return fmt.Errorf("top holders: %w", err)
			}
			result.TopHolders = top
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, c := range result.StatusCounts {
		result.Total += c
	}
	return result, nil
}
