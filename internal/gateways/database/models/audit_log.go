package models

import (
	"time"

	"github.com/uptrace/bun"
)

type AuditLog struct {
	bun.BaseModel `bun:"table:audit_logs,alias:al"`

	ID        int64     `bun:"id,pk,autoincrement"`
	UserID    int64     `bun:"user_id,nullzero"`
	UserName  string    `bun:"user_name,nullzero"`
	Action    string    `bun:"action,notnull"`
	Entity    string    `bun:"entity,notnull"`
	EntityID  string    `bun:"entity_id,nullzero"`
	Details   string    `bun:"details,nullzero"`
	IPAddress string    `bun:"ip_address,nullzero"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}
