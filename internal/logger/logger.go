package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
)

var rootLogger *slog.Logger

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorWhite  = "\033[37m"
	colorGray   = "\033[90m"
)

const (
	envDebug   = "SIGNAGE_DEBUG"
	envLogFile = "SIGNAGE_LOG_FILE"
)

func init() {
	stdoutLevel := slog.LevelInfo
	if debugEnabled, _ := strconv.ParseBool(os.Getenv(envDebug)); debugEnabled {
		stdoutLevel = slog.LevelDebug
	}

	handlers := []slog.Handler{newHandler(os.Stderr, stdoutLevel, true)}

	// The log file is optional; a path we cannot open leaves stderr logging in place.
	if path := os.Getenv(envLogFile); path != "" {
		if file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
			handlers = append(handlers, newHandler(file, slog.LevelDebug, false))
		} else {
			fmt.Fprintf(os.Stderr, "logger: cannot open %s: %v\n", path, err)
		}
	}

	rootLogger = slog.New(&multiHandler{handlers: handlers})
}

// GetLogger returns a logger with the given prefix for easier filtering
func GetLogger(prefix string) *slog.Logger {
	return rootLogger.With("module", prefix)
}

// New builds a standalone logger writing to w, for callers that route one
// component's output to its own sink, e.g. server.Config.Logger.
func New(w io.Writer, level slog.Level, prefix string) *slog.Logger {
	return slog.New(newHandler(w, level, false)).With("module", prefix)
}

func newHandler(w io.Writer, level slog.Level, withColors bool) *customHandler {
	return &customHandler{out: &lockedWriter{w: w}, level: level, withColors: withColors}
}

// lockedWriter serializes writes from handlers cloned by WithAttrs.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (lw *lockedWriter) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return lw.w.Write(p)
}

type customHandler struct {
	out        *lockedWriter
	level      slog.Level
	attrs      []slog.Attr
	group      string
	withColors bool
}

func (h *customHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func levelStyle(level slog.Level) (color, label string) {
	switch {
	case level >= slog.LevelError:
		return colorRed, "ERROR"
	case level >= slog.LevelWarn:
		return colorYellow, "WARNING"
	case level >= slog.LevelInfo:
		return colorBlue, "INFO"
	default:
		return colorWhite, "DEBUG"
	}
}

func (h *customHandler) Handle(_ context.Context, record slog.Record) error {
	color, levelStr := levelStyle(record.Level)
	timeStr := record.Time.Format("15:04:05")

	var modulePrefix string
	var args []string
	collect := func(a slog.Attr) bool {
		if a.Key == "module" {
			modulePrefix = a.Value.String()
			return true
		}
		key := a.Key
		if h.group != "" {
			key = h.group + "." + key
		}
		args = append(args, fmt.Sprintf("%s=%v", key, a.Value))
		return true
	}
	for _, a := range h.attrs {
		collect(a)
	}
	record.Attrs(collect)

	argsStr := ""
	if len(args) > 0 {
		argsStr = " (" + strings.Join(args, ", ") + ")"
	}

	// Format: [module] <LEVEL>: <msg> (<args>) [HH:MM:SS]
	var prefix string
	if modulePrefix != "" {
		if h.withColors {
			prefix = fmt.Sprintf("%s[%s]%s ", colorGray, modulePrefix, colorReset)
		} else {
			prefix = fmt.Sprintf("[%s] ", modulePrefix)
		}
	}

	var line string
	if h.withColors {
		line = fmt.Sprintf("%s%s%s%s: %s%s [%s]\n", prefix, color, levelStr, colorReset, record.Message, argsStr, timeStr)
	} else {
		line = fmt.Sprintf("%s%s: %s%s [%s]\n", prefix, levelStr, record.Message, argsStr, timeStr)
	}
	_, err := io.WriteString(h.out, line)
	return err
}

func (h *customHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	copy(newAttrs[len(h.attrs):], attrs)
	clone := *h
	clone.attrs = newAttrs
	return &clone
}

func (h *customHandler) WithGroup(name string) slog.Handler {
	clone := *h
	clone.group = name
	return &clone
}

type multiHandler struct {
	handlers []slog.Handler
}

func (mh *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range mh.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (mh *multiHandler) Handle(ctx context.Context, record slog.Record) error {
	for _, h := range mh.handlers {
		if !h.Enabled(ctx, record.Level) {
			continue
		}
		if err := h.Handle(ctx, record.Clone()); err != nil {
			return err
		}
	}
	return nil
}

func (mh *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(mh.handlers))
	for i, h := range mh.handlers {
		next[i] = h.WithAttrs(attrs)
	}
	return &multiHandler{handlers: next}
}

func (mh *multiHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(mh.handlers))
	for i, h := range mh.handlers {
		next[i] = h.WithGroup(name)
	}
	return &multiHandler{handlers: next}
}
