// Package logger is the process-wide structured logger, a thin layer over
// log/slog.
//
// Request-scoped fields (request id, caller, ONC-RPC target, trace ids)
// travel in a LogContext stored in the context.Context; the *Ctx functions
// prepend them to every line. The level is held in a shared slog.LevelVar so
// changing it never rebuilds the handler.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Config holds logger configuration.
type Config struct {
	Level  string // DEBUG, INFO, WARN, ERROR
	Format string // text, json
	Output string // stdout, stderr, or file path
}

const (
	FormatText = "text"
	FormatJSON = "json"
)

var (
	level   = new(slog.LevelVar)
	current atomic.Pointer[slog.Logger]

	// mu guards the sink below and serializes handler rebuilds.
	mu      sync.Mutex
	out     io.Writer = os.Stdout
	outFile *os.File
	color   bool
	format  = FormatText
)

func init() {
	color = isTerminal(os.Stdout.Fd())
	rebuild()
}

// rebuild installs a handler for the current sink and format. mu must be
// held, except from init.
func rebuild() {
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if format == FormatJSON {
		h = slog.NewJSONHandler(out, opts)
	} else {
		h = NewColorTextHandler(out, opts, color)
	}
	current.Store(slog.New(h))
}

// ParseLevel parses DEBUG, INFO, WARN or ERROR, in any case.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug, nil
	case "INFO":
		return slog.LevelInfo, nil
	case "WARN":
		return slog.LevelWarn, nil
	case "ERROR":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level %q (want DEBUG, INFO, WARN or ERROR)", s)
	}
}

// Init applies cfg. Empty fields keep their current setting. A file output
// is opened for append; a previously opened log file is closed.
func Init(cfg Config) error {
	var lvl slog.Level
	if cfg.Level != "" {
		var err error
		if lvl, err = ParseLevel(cfg.Level); err != nil {
			return err
		}
	}
	f := strings.ToLower(cfg.Format)
	if f != "" && f != FormatText && f != FormatJSON {
		return fmt.Errorf("invalid log format %q (want text or json)", cfg.Format)
	}

	mu.Lock()
	defer mu.Unlock()

	if cfg.Output != "" {
		w, file, err := openOutput(cfg.Output)
		if err != nil {
			return err
		}
		if outFile != nil && outFile != file {
			_ = outFile.Close()
		}
		out, outFile = w, file
		color = file == nil && isTerminal(w.(*os.File).Fd())
	}
	if f != "" {
		format = f
	}
	if cfg.Level != "" {
		level.Set(lvl)
	}
	rebuild()
	return nil
}

func openOutput(output string) (io.Writer, *os.File, error) {
	switch strings.ToLower(output) {
	case "stdout":
		return os.Stdout, nil, nil
	case "stderr":
		return os.Stderr, nil, nil
	}
	f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file %q: %w", output, err)
	}
	return f, f, nil
}

// InitWithWriter sends output to w. Used by tests to capture log lines.
func InitWithWriter(w io.Writer, lvl, f string, enableColor bool) {
	mu.Lock()
	defer mu.Unlock()

	out, outFile, color = w, nil, enableColor
	if l, err := ParseLevel(lvl); err == nil {
		level.Set(l)
	}
	if f == FormatText || f == FormatJSON {
		format = f
	}
	rebuild()
}

// SetLevel changes the minimum level at runtime.
func SetLevel(lvl string) error {
	l, err := ParseLevel(lvl)
	if err != nil {
		return err
	}
	level.Set(l)
	return nil
}

// Level returns the current minimum level name.
func Level() string {
	return level.Level().String()
}

// Enabled reports whether lines at lvl are written.
func Enabled(lvl slog.Level) bool {
	return lvl >= level.Level()
}

func logAt(ctx context.Context, lvl slog.Level, msg string, args []any) {
	if !Enabled(lvl) {
		return
	}
	current.Load().Log(ctx, lvl, msg, appendContextFields(ctx, args)...)
}

// Debug logs at debug level. Usage: Debug("message", "key1", value1, ...)
func Debug(msg string, args ...any) { logAt(context.Background(), slog.LevelDebug, msg, args) }

// Info logs at info level.
func Info(msg string, args ...any) { logAt(context.Background(), slog.LevelInfo, msg, args) }

// Warn logs at warn level.
func Warn(msg string, args ...any) { logAt(context.Background(), slog.LevelWarn, msg, args) }

// Error logs at error level.
func Error(msg string, args ...any) { logAt(context.Background(), slog.LevelError, msg, args) }

// DebugCtx logs at debug level with the LogContext fields of ctx.
func DebugCtx(ctx context.Context, msg string, args ...any) {
	logAt(ctx, slog.LevelDebug, msg, args)
}

// InfoCtx logs at info level with the LogContext fields of ctx.
func InfoCtx(ctx context.Context, msg string, args ...any) {
	logAt(ctx, slog.LevelInfo, msg, args)
}

// ErrorCtx logs at error level with the LogContext fields of ctx.
func ErrorCtx(ctx context.Context, msg string, args ...any) {
	logAt(ctx, slog.LevelError, msg, args)
}

// appendContextFields prepends the LogContext fields so they lead the line.
func appendContextFields(ctx context.Context, args []any) []any {
	lc := FromContext(ctx)
	if lc == nil {
		return args
	}

	fields := make([]any, 0, 16+len(args))
	add := func(key, val string) {
		if val != "" {
			fields = append(fields, key, val)
		}
	}
	add(KeyTraceID, lc.TraceID)
	add(KeySpanID, lc.SpanID)
	add(KeyRequestID, lc.RequestID)
	add(KeyMethod, lc.Method)
	add(KeyClientIP, lc.ClientIP)
	add(KeyTarget, lc.Target)
	if lc.Program != "" {
		fields = append(fields, KeyProgram, lc.Program, KeyProcNo, lc.ProcNo)
	}
	return append(fields, args...)
}

// Duration returns the time since start in milliseconds.
func Duration(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
