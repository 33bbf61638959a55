package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ellavondegurechaff/materialpool/internal/domain/materials"
	"github.com/ellavondegurechaff/materialpool/internal/importer"
	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

var ErrFileTooLarge = errors.New("import file exceeds the size limit")

// Archiver keeps a copy of every uploaded spreadsheet.
type Archiver interface {
	ArchiveImport(ctx context.Context, batchID, filename string, data []byte) (string, error)
}

// ImportService runs spreadsheet uploads through the reconciler
type ImportService struct {
	materials   materials.Service
	archiver    Archiver
	slots       *semaphore.Weighted
	maxFileSize int64
}

type ImportResult struct {
	BatchID    string
	Filename   string
	ArchiveKey string
	Summary    *materials.ImportSummary
	Duration   time.Duration
}

// NewImportService creates the service. archiver may be nil.
func NewImportService(service materials.Service, archiver Archiver, maxParallel int, maxFileSize int64) *ImportService {
	if maxParallel <= 0 {
		maxParallel = 1
	}
	return &ImportService{
		materials:   service,
		archiver:    archiver,
		slots:       semaphore.NewWeighted(int64(maxParallel)),
		maxFileSize: maxFileSize,
	}
}

// Import parses one uploaded file and reconciles its rows. At most maxParallel
// imports run at once; the rest wait for a slot or for ctx.
func (s *ImportService) Import(ctx context.Context, actor materials.Actor, filename string, data []byte) (*ImportResult, error) {
	startTime := time.Now()

	if s.maxFileSize > 0 && int64(len(data)) > s.maxFileSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrFileTooLarge, len(data))
	}

	format, err := importer.DetectFormat(filename)
	if err != nil {
		return nil, err
	}

	rows, err := importer.Parse(bytes.NewReader(data), format)
	if err != nil {
		return nil, err
	}

	if err := s.slots.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("waiting for import slot: %w", err)
	}
	defer s.slots.Release(1)

	result := &ImportResult{
		BatchID:  uuid.NewString(),
		Filename: filename,
	}

	slog.Info("Starting material import",
		slog.String("batch_id", result.BatchID),
		slog.String("filename", filename),
		slog.String("format", string(format)),
		slog.Int("rows", len(rows)),
		slog.String("actor", actor.Username))

	if s.archiver != nil {
		key, err := s.archiver.ArchiveImport(ctx, result.BatchID, filename, data)
		if err != nil {
			slog.Warn("Failed to archive import file",
				slog.String("batch_id", result.BatchID),
				slog.Any("error", err))
		}
		result.ArchiveKey = key
	}

	summary, err := s.materials.Import(ctx, actor, rows)
	result.Summary = summary
	result.Duration = time.Since(startTime)
	if err != nil {
		return result, err
	}

	slog.Info("Import batch finished",
		slog.String("batch_id", result.BatchID),
		slog.Int("inserted", summary.Inserted),
		slog.Int("skipped", summary.SkippedTotal()),
		slog.Duration("duration", result.Duration))
	return result, nil
}
