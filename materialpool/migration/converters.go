package migration

import (
	"strings"
	"time"

	"github.com/ellavondegurechaff/materialpool/internal/domain/materials"
	"go.mongodb.org/mongo-driver/bson"
)

var legacyTimeLayouts = []string{
	time.DateTime,
	time.RFC3339,
	time.DateOnly,
	"2006/01/02 15:04:05",
}

// toImportRow converts a legacy document; line is its 1-based position in the source.
func toImportRow(doc LegacyMaterial, line int) materials.ImportRow {
	return materials.ImportRow{
		Line:        line,
		Category:    strings.TrimSpace(doc.GameName),
		Identifier:  strings.TrimSpace(doc.AccountName),
		Description: strings.TrimSpace(doc.Description),
		Status:      strings.TrimSpace(doc.Status),
		Holder:      strings.TrimSpace(doc.User),
		ClaimedAt:   legacyTime(doc.UsageTime),
	}
}

// legacyTime reads a date or date string; anything else counts as absent.
func legacyTime(v bson.RawValue) time.Time {
	switch v.Type {
	case bson.TypeDateTime:
		return v.Time().UTC()
	case bson.TypeTimestamp:
		t, _ := v.Timestamp()
		return time.Unix(int64(t), 0).UTC()
	case bson.TypeString:
		s := strings.TrimSpace(v.StringValue())
		for _, layout := range legacyTimeLayouts {
			if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
				return t.UTC()
			}
		}
	}
	return time.Time{}
}
