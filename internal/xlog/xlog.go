// Package xlog sets up the structured logger shared by every package in
// this module. It follows rclone's fs/log package: log/slog plus a
// handful of extra severities (Notice between Info and Warn; Critical,
// Alert and Emergency above Error), surfaced through a
// ReplaceAttr hook that renames the level the same way rclone's
// mapLogLevelNames does.
package xlog

import (
	"context"
	"fmt"
	"log/slog"
	"os"
)

// Extra severities: Notice sits between the stdlib's Info and Warn;
// Critical, Alert and Emergency sit above Error. Named like rclone's
// fs.SlogLevelNotice / SlogLevelCritical / SlogLevelAlert / SlogLevelEmergency.
const (
	LevelNotice    = slog.Level(2)
	LevelCritical  = slog.Level(10)
	LevelAlert     = slog.Level(11)
	LevelEmergency = slog.Level(12)
)

func levelName(l slog.Level) string {
	switch l {
	case slog.LevelDebug:
		return "DEBUG"
	case slog.LevelInfo:
		return "INFO"
	case LevelNotice:
		return "NOTICE"
	case slog.LevelWarn:
		return "WARNING"
	case slog.LevelError:
		return "ERROR"
	case LevelCritical:
		return "CRITICAL"
	case LevelAlert:
		return "ALERT"
	case LevelEmergency:
		return "EMERGENCY"
	default:
		return l.String()
	}
}

func mapLevelNames(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey {
		return a
	}
	if lvl, ok := a.Value.Any().(slog.Level); ok {
		a.Value = slog.StringValue(levelName(lvl))
	}
	return a
}

// NewHandler wraps slog.NewTextHandler with the level-renaming ReplaceAttr.
func NewHandler(w *os.File, level slog.Level) slog.Handler {
	return slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: mapLevelNames,
	})
}

// Default is the package-wide logger, at Warn level. The only messages
// the module logs are fdsource's failed fadvise hints, at Debug, so they
// are silent unless a caller installs a more verbose logger.
var Default = slog.New(NewHandler(os.Stderr, slog.LevelWarn))

// Debugf logs at Debug with printf-style formatting, matching the
// Debugf/Logf call shape used throughout this module.
func Debugf(ctx context.Context, format string, args ...any) {
	Default.Log(ctx, slog.LevelDebug, fmtf(format, args...))
}

// Logf logs at Notice, this module's default "worth mentioning" level.
func Logf(ctx context.Context, format string, args ...any) {
	Default.Log(ctx, LevelNotice, fmtf(format, args...))
}

func fmtf(format string, args ...any) string {
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}
