package logger

import (
	"database/sql"
	"log/slog"
	"time"
)

// Statement times one repository write. Failures are logged at error level with
// their arguments, successes at debug with the affected row count.
type Statement struct {
	operation string
	query     string
	args      []any
	start     time.Time
}

func Track(operation, query string, args ...any) *Statement {
	return &Statement{operation: operation, query: query, args: args, start: time.Now()}
}

// Done logs the outcome and returns the number of affected rows, 0 on error.
func (s *Statement) Done(res sql.Result, err error) int64 {
	attrs := []any{
		slog.String("type", "db"),
		slog.String("operation", s.operation),
		slog.String("query", s.query),
		slog.Duration("took", time.Since(s.start)),
	}
	if err != nil {
		slog.Error("Query failed", append(attrs, slog.Any("args", s.args), slog.Any("error", err))...)
		return 0
	}

	var affected int64
	if res != nil {
		affected, _ = res.RowsAffected()
	}
	slog.Debug("Query executed", append(attrs, slog.Int64("affected_rows", affected))...)
	return affected
}
