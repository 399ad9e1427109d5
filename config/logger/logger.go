package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// New returns a JSON logger writing to stdout and, when dir is set, to a
// rotated file under dir.
func New(level, dir, env string) *slog.Logger {
	var w io.Writer = os.Stdout
	if dir != "" {
		w = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename: filepath.Join(dir, "dineline.slog"),
			MaxSize:  64, // MB
			MaxAge:   14,
			Compress: true,
		})
	}

	lvl := slog.LevelInfo
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info", "":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		fmt.Fprintf(os.Stderr, "%s: invalid log level\n", level)
	}

	l := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})).
		With(slog.String("env", env))
	l.Info("logging started",
		slog.Time("start", time.Now()),
		slog.String("GOOS", runtime.GOOS),
		slog.Int("NumCPUs", runtime.NumCPU()))
	return l
}
