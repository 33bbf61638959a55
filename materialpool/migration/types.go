package migration

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LegacyMaterial is a material document of the previous system.
type LegacyMaterial struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	GameName    string             `bson:"game_name"`
	AccountName string             `bson:"account_name"`
	Description string             `bson:"description"`
	Status      string             `bson:"status"`
	User        string             `bson:"user"`
	// UsageTime is a BSON date in newer documents and a string in older ones.
	UsageTime bson.RawValue `bson:"usage_time"`
}

// MigrationStats counts what happened to the legacy documents.
type MigrationStats struct {
	Documents int
	Undecoded int
}
