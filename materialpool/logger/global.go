package logger

import (
	"context"
	"log/slog"
	"time"
)

// values of the "type" attribute, mapped to a LogType by getLogType
const (
	attrCommand = "cmd"
	attrDB      = "db"
	attrSystem  = "sys"
	attrError   = "error"
)

func emit(level slog.Level, logType, msg string, attrs ...any) {
	slog.Log(context.Background(), level, msg, append([]any{slog.String("type", logType)}, attrs...)...)
}

// LogCommand reports how a CLI command finished.
func LogCommand(name string, duration time.Duration, err error) {
	if err != nil {
		emit(slog.LevelError, attrCommand, "Command failed", slog.String("name", name), slog.Duration("took", duration), slog.Any("error", err))
		return
	}
	emit(slog.LevelInfo, attrCommand, "Command executed", slog.String("name", name), slog.Duration("took", duration))
}

// LogQuery reports a raw statement; successes only show up at debug level.
func LogQuery(query string, duration time.Duration, err error) {
	if err != nil {
		emit(slog.LevelError, attrDB, "Query failed", slog.String("query", query), slog.Duration("took", duration), slog.Any("error", err))
		return
	}
	emit(slog.LevelDebug, attrDB, "Query executed", slog.String("query", query), slog.Duration("took", duration))
}

func LogSystem(msg string, attrs ...any) {
	emit(slog.LevelInfo, attrSystem, msg, attrs...)
}

func LogError(msg string, err error, attrs ...any) {
	emit(slog.LevelError, attrError, msg, append([]any{slog.Any("error", err)}, attrs...)...)
}
