package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/m3rciful/menubot/core/buildinfo"
	coreconfig "github.com/m3rciful/menubot/core/config"
)

var (
	initOnce sync.Once
	stopOnce sync.Once

	out     *asyncWriter
	files   []io.Closer
	level   slog.LevelVar
	sampler = newRatioSampler(1, 50)
	trace   bool

	// instance tells apart log lines of concurrent or restarted processes.
	instance = uuid.NewString()

	// L is the process logger, nil until InitLogger runs. The context-first
	// helpers (Info, Warn, ...) tolerate that.
	L *slog.Logger
)

// settings is the logger configuration resolved from coreconfig.LoggingConfig.
type settings struct {
	format    logFormat
	order     []string
	level     slog.Level
	sampleNum int
	sampleDen int
	profile   string
	dir       string
	botFile   string
	errFile   string
}

func resolve(cfg *coreconfig.Config) settings {
	s := settings{format: formatJSON, order: defaultKeyOrder, level: slog.LevelInfo, sampleNum: 1, sampleDen: 50}
	if cfg == nil {
		return s
	}
	lc := cfg.Logging
	s.profile = strings.ToLower(strings.TrimSpace(lc.Profile))
	if s.profile == "" {
		s.profile = "prod"
	}
	switch strings.ToLower(strings.TrimSpace(lc.Format)) {
	case "kv", "text", "pretty":
		s.format = formatKV
	case "json":
	default:
		if s.profile == "debug" || s.profile == "dev" {
			s.format = formatKV
		}
	}
	if order := splitList(lc.KeysOrder); len(order) > 0 && lc.KeysOrder != "default" {
		s.order = order
	}
	s.level = parseLevel(lc.Level)
	if raw := strings.TrimSpace(lc.DebugSample); raw != "" {
		s.sampleNum, s.sampleDen = parseRatio(raw)
	}
	s.dir = strings.TrimSpace(lc.Dir)
	s.botFile = strings.TrimSpace(lc.BotFile)
	s.errFile = strings.TrimSpace(lc.ErrorsFile)
	return s
}

func splitList(raw string) []string {
	var res []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			res = append(res, p)
		}
	}
	return res
}

// InitLogger installs the process logger. Only the first call has effect.
func InitLogger(cfg *coreconfig.Config) error {
	var err error
	initOnce.Do(func() {
		s := resolve(cfg)
		level.Set(s.level)
		sampler.Set(s.sampleNum, s.sampleDen)
		trace = truthy(os.Getenv("TRACE")) || truthy(os.Getenv("LOG_TRACE"))

		outs := []io.Writer{os.Stdout}
		var errOuts []io.Writer
		if s.dir != "" && (s.botFile != "" || s.errFile != "") {
			if err = os.MkdirAll(s.dir, 0o755); err != nil {
				err = fmt.Errorf("logger: create %s: %w", s.dir, err)
				return
			}
			if s.botFile != "" {
				f, ferr := openLog(s.dir, s.botFile)
				if ferr != nil {
					err = ferr
					return
				}
				outs = append(outs, f)
			}
			if s.errFile != "" {
				f, ferr := openLog(s.dir, s.errFile)
				if ferr != nil {
					err = ferr
					return
				}
				errOuts = append(errOuts, f)
			}
		}
		out = newAsyncWriter(outs, errOuts, 64*1024)

		L = slog.New(newLineHandler(handlerOptions{
			level:  &level,
			out:    out,
			format: s.format,
			order:  s.order,
		}))
		slog.SetDefault(L)
		announce(cfg, s)
	})
	return err
}

func openLog(dir, name string) (*os.File, error) {
	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logger: open %s: %w", path, err)
	}
	files = append(files, f)
	return f, nil
}

func announce(cfg *coreconfig.Config, s settings) {
	attrs := []slog.Attr{
		slog.String("go_version", runtime.Version()),
		slog.String("build_version", buildinfo.Version),
		slog.String("build_commit", buildinfo.Commit),
		slog.String("build_time", buildinfo.Date),
		slog.String("cfg_profile", s.profile),
		slog.String("instance", instance),
	}
	if cfg != nil {
		attrs = append(attrs,
			slog.String("mode", cfg.Telegram.RunMode),
			slog.String("menu_source", cfg.Menu.Source),
		)
	}
	Info(context.Background(), "app", "startup", attrs...)
}

// Shutdown flushes pending lines and closes log files. Safe to call twice.
func Shutdown() error {
	var err error
	stopOnce.Do(func() {
		var errs []error
		if out != nil {
			errs = append(errs, out.Close())
		}
		for _, f := range files {
			errs = append(errs, f.Close())
		}
		err = errors.Join(errs...)
	})
	return err
}

// Instance returns the random id this process logs at startup.
func Instance() string {
	return instance
}

// Background is the root context for logs emitted outside an update.
func Background() context.Context {
	return context.Background()
}

// LogEvent writes an event record through logg, or the context logger when logg is nil.
func LogEvent(ctx context.Context, logg *slog.Logger, lvl slog.Level, event string, attrs ...slog.Attr) {
	if logg == nil {
		logg = FromContext(ctx)
	}
	if logg == nil {
		return
	}
	if event != "" {
		attrs = append([]slog.Attr{slog.String("event", event)}, attrs...)
	}
	logg.LogAttrs(ctx, lvl, "", attrs...)
}

// Component scopes the base logger to component. It returns nil before InitLogger.
func Component(name string) *slog.Logger {
	if L == nil {
		return nil
	}
	if name = strings.TrimSpace(name); name == "" {
		return L
	}
	return L.With("component", name)
}

// Event logs through the context logger scoped to component.
func Event(ctx context.Context, component string, lvl slog.Level, event string, attrs ...slog.Attr) {
	logg := FromContext(ctx)
	if logg == nil {
		return
	}
	if component = strings.TrimSpace(component); component != "" {
		logg = logg.With("component", component)
	}
	LogEvent(ctx, logg, lvl, event, attrs...)
}

func Debug(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelDebug, event, attrs...)
}

func Info(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelInfo, event, attrs...)
}

func Warn(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelWarn, event, attrs...)
}

func Error(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelError, event, attrs...)
}

// ShouldSampleDebug reports whether a high-volume debug line may be written.
// TRACE or LOG_TRACE in the environment disables sampling.
func ShouldSampleDebug() bool {
	return trace || sampler.Allow()
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}
