package materials

import (
	"strings"
	"time"
)

type Status string

const (
	StatusIdle  Status = "idle"
	StatusInUse Status = "in_use"
)

// Labels used by spreadsheets and legacy data.
const (
	LabelIdle  = "空闲"
	LabelInUse = "已使用"
)

// ParseStatus accepts the stored values, their common spellings and the human labels.
func ParseStatus(s string) (Status, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "idle", LabelIdle:
		return StatusIdle, true
	case "in_use", "inuse", "in-use", LabelInUse:
		return StatusInUse, true
	}
	return "", false
}

func (s Status) Label() string {
	switch s {
	case StatusIdle:
		return LabelIdle
	case StatusInUse:
		return LabelInUse
	}
	return string(s)
}

func (s Status) Valid() bool {
	return s == StatusIdle || s == StatusInUse
}

type Material struct {
	ID          int64
	Category    string
	Identifier  string
	Description string
	Status      Status
	// Holder is the holder's username; empty while idle.
	Holder string
	// HolderName is the holder's display name, filled by read queries only.
	HolderName string
	// ClaimedAt is zero while idle.
	ClaimedAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Consistent reports whether idle and holder/claim time agree.
func (m Material) Consistent() bool {
	if m.Status == StatusIdle {
		return m.Holder == "" && m.ClaimedAt.IsZero()
	}
	return m.Status == StatusInUse && m.Holder != "" && !m.ClaimedAt.IsZero()
}

type SortKey string

const (
	SortCreatedAt SortKey = "created_at"
	SortClaimedAt SortKey = "usage_time"
)

func ParseSortKey(s string) SortKey {
	if SortKey(s) == SortClaimedAt {
		return SortClaimedAt
	}
	return SortCreatedAt
}

type Filters struct {
	Category   string
	Identifier string
	Status     Status
	Holder     string
	HolderName string
	From       time.Time
	To         time.Time
}

// Viewer is the identity a listing is produced for.
type Viewer struct {
	Username string
	Admin    bool
}

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

type Query struct {
	Filters  Filters
	Viewer   *Viewer
	Page     int
	PageSize int
	Sort     SortKey
}

// Normalize clamps paging and fills defaults.
func (q *Query) Normalize() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize <= 0 {
		q.PageSize = DefaultPageSize
	}
	if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}
	if q.Sort != SortClaimedAt {
		q.Sort = SortCreatedAt
	}
}

func (q Query) Offset() int {
	return (q.Page - 1) * q.PageSize
}

type Page struct {
	Items    []Material
	Total    int64
	Page     int
	PageSize int
}

// Actor is the authenticated identity performing an operation.
type Actor struct {
	UserID      int64
	Username    string
	DisplayName string
	Admin       bool
	IP          string
}

func (a Actor) Viewer() *Viewer {
	return &Viewer{Username: a.Username, Admin: a.Admin}
}
