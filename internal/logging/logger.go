// v1
// internal/logging/logger.go
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// Init configures slog to write to both stdout and the given file path.
// It returns the logger and the opened file so callers can Close() on
// shutdown. If the file cannot be opened the logger falls back to stdout
// only.
func Init(path string) (*slog.Logger, *os.File) {
	if path == "" {
		h := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
		return slog.New(h), nil
	}
	_ = os.MkdirAll(filepath.Dir(path), 0o755)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		h := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
		logger := slog.New(h)
		logger.Error("failed to open log file; falling back to stdout only", "path", path, "err", err)
		return logger, nil
	}

	mw := io.MultiWriter(os.Stdout, f)
	h := slog.NewTextHandler(mw, &slog.HandlerOptions{Level: slog.LevelInfo})
	logger := slog.New(h)
	logger.Info("logger_initialized", "file", path)
	return logger, f
}
