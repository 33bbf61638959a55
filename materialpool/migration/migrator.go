package migration

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/ellavondegurechaff/materialpool/internal/domain/materials"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const maxDocumentSize = 16 * 1024 * 1024

// SystemActor is the identity legacy rows are imported as.
var SystemActor = materials.Actor{Username: "system", DisplayName: "Legacy migration", Admin: true}

// Importer is the part of the material service the migration needs.
type Importer interface {
	Import(ctx context.Context, actor materials.Actor, rows []materials.ImportRow) (*materials.ImportSummary, error)
}

// Migrator feeds legacy material documents through the import reconciler,
// so they get the same validation as a spreadsheet upload.
type Migrator struct {
	importer   Importer
	mongoDB    *mongo.Database
	collection string
	stats      MigrationStats
}

func NewMigrator(importer Importer) *Migrator {
	return &Migrator{
		importer:   importer,
		collection: "materials",
	}
}

// UseMongo enables MigrateFromMongo against dbName.collection.
func (m *Migrator) UseMongo(client *mongo.Client, dbName, collection string) {
	if client != nil && dbName != "" {
		m.mongoDB = client.Database(dbName)
	}
	if collection != "" {
		m.collection = collection
	}
}

func (m *Migrator) Stats() MigrationStats {
	return m.stats
}

// MigrateFromBSON imports a mongodump .bson file.
func (m *Migrator) MigrateFromBSON(ctx context.Context, path string) (*materials.ImportSummary, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open BSON file %s: %w", path, err)
	}
	defer file.Close()

	logProgress("Reading legacy materials", slog.String("path", path))

	rows, err := m.ReadDump(file)
	if err != nil {
		return nil, err
	}
	return m.run(ctx, rows)
}

// MigrateFromMongo imports every document of the configured collection.
func (m *Migrator) MigrateFromMongo(ctx context.Context) (*materials.ImportSummary, error) {
	if m.mongoDB == nil {
		return nil, errors.New("mongo source is not configured")
	}

	col := m.mongoDB.Collection(m.collection)
	cur, err := col.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", m.collection, err)
	}
	defer cur.Close(ctx)

	var rows []materials.ImportRow
	for cur.Next(ctx) {
		m.stats.Documents++
		var doc LegacyMaterial
		if err := cur.Decode(&doc); err != nil {
			m.stats.Undecoded++
			slog.Warn("Skipping undecodable legacy document", slog.Any("error", err))
			continue
		}
		rows = append(rows, toImportRow(doc, m.stats.Documents))
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", m.collection, err)
	}
	return m.run(ctx, rows)
}

// ReadDump decodes a stream of length-prefixed BSON documents.
func (m *Migrator) ReadDump(r io.Reader) ([]materials.ImportRow, error) {
	reader := bufio.NewReader(r)
	var rows []materials.ImportRow

	for {
		lengthBytes := make([]byte, 4)
		if _, err := io.ReadFull(reader, lengthBytes); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to read document %d length: %w", m.stats.Documents+1, err)
		}

		// The length includes its own 4 bytes
		length := int32(binary.LittleEndian.Uint32(lengthBytes))
		if length <= 4 || length > maxDocumentSize {
			return nil, fmt.Errorf("invalid document length %d in document %d", length, m.stats.Documents+1)
		}

		doc := make([]byte, length)
		copy(doc, lengthBytes)
		if _, err := io.ReadFull(reader, doc[4:]); err != nil {
			return nil, fmt.Errorf("failed to read document %d: %w", m.stats.Documents+1, err)
		}
		m.stats.Documents++

		var legacy LegacyMaterial
		if err := bson.Unmarshal(doc, &legacy); err != nil {
			m.stats.Undecoded++
			slog.Warn("Skipping undecodable legacy document",
				slog.Int("document", m.stats.Documents),
				slog.Any("error", err))
			continue
		}
		rows = append(rows, toImportRow(legacy, m.stats.Documents))

		if m.stats.Documents%1000 == 0 {
			logProgress("Decoded legacy documents", slog.Int("documents", m.stats.Documents))
		}
	}

	return rows, nil
}

func (m *Migrator) run(ctx context.Context, rows []materials.ImportRow) (*materials.ImportSummary, error) {
	start := time.Now()
	summary, err := m.importer.Import(ctx, SystemActor, rows)
	if err != nil {
		return summary, fmt.Errorf("legacy import stopped: %w", err)
	}

	logProgress("Legacy migration finished",
		slog.Int("documents", m.stats.Documents),
		slog.Int("undecoded", m.stats.Undecoded),
		slog.Int("inserted", summary.Inserted),
		slog.Int("skipped", summary.SkippedTotal()),
		slog.Duration("took", time.Since(start)))
	return summary, nil
}

func logProgress(message string, attrs ...any) {
	slog.Info(message, append([]any{slog.String("type", "sys"), slog.String("service", "Legacy Migration")}, attrs...)...)
}
