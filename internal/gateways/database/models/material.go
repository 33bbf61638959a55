package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Material struct {
	bun.BaseModel `bun:"table:materials,alias:m"`

	ID          int64     `bun:"id,pk,autoincrement"`
	Category    string    `bun:"category,notnull"`
	Identifier  string    `bun:"identifier,notnull,unique"`
	Description string    `bun:"description,nullzero"`
	Status      string    `bun:"status,notnull,default:'idle'"`
	Holder      string    `bun:"holder,nullzero"`
	UsageTime   time.Time `bun:"usage_time,nullzero"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt   time.Time `bun:"updated_at,notnull,default:current_timestamp"`

	// Read-side join on users.username
	HolderName string `bun:"holder_name,scanonly"`
}
