package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	coreconfig "github.com/m3rciful/menubot/core/config"
	"github.com/m3rciful/menubot/core/logger"
	coretelegram "github.com/m3rciful/menubot/core/telegram"
)

// ConfigCarrier exposes access to the embedded core configuration.
type ConfigCarrier interface {
	CoreConfig() *coreconfig.Config
}

// TelegramApp is the minimal interface required to run a Telegram bot.
type TelegramApp interface {
	TelegramRunOptions() (coretelegram.RunOptions, error)
}

// BackgroundApp is implemented by apps with jobs that run alongside the bot.
// Jobs stop when their context is cancelled; an error from any job stops the bot.
type BackgroundApp interface {
	BackgroundTasks() []func(context.Context) error
}

// Options describe how to load configuration, bootstrap the app, and run the bot.
type Options struct {
	// ConfigPath wins over ConfigEnvVar and DefaultConfigPath when set.
	ConfigPath        string
	ConfigEnvVar      string
	DefaultConfigPath string

	LoadConfig func(path string) (ConfigCarrier, error)
	Bootstrap  func(ctx context.Context, cfg ConfigCarrier) (TelegramApp, error)

	ShutdownLogger func() error
	RunTelegram    func(ctx context.Context, opts coretelegram.RunOptions) error
}

// ResolveConfigPath picks the config path from opts, then the environment.
func ResolveConfigPath(opts Options) (string, error) {
	if opts.ConfigPath != "" {
		return opts.ConfigPath, nil
	}
	env := opts.ConfigEnvVar
	if env == "" {
		env = "CONFIG_PATH"
	}
	if p := os.Getenv(env); p != "" {
		return p, nil
	}
	if opts.DefaultConfigPath != "" {
		return opts.DefaultConfigPath, nil
	}
	return "", fmt.Errorf("cmd: config path not provided via --config, %s or DefaultConfigPath", env)
}

// Run loads configuration, bootstraps the Telegram app, and starts the bot
// runtime together with the app's background jobs.
func Run(opts Options) error {
	if opts.LoadConfig == nil || opts.Bootstrap == nil {
		return errors.New("cmd: LoadConfig and Bootstrap are required")
	}
	cfg, err := load(opts)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	startedAt := time.Now()
	application, err := opts.Bootstrap(ctx, cfg)
	if err != nil {
		return fmt.Errorf("cmd: bootstrap: %w", err)
	}
	defer release(ctx, application, opts.ShutdownLogger)

	runOpts, err := application.TelegramRunOptions()
	if err != nil {
		return fmt.Errorf("cmd: telegram options: %w", err)
	}
	announceLifecycle(&runOpts, startedAt)

	run := opts.RunTelegram
	if run == nil {
		run = coretelegram.RunTelegram
	}
	var tasks []func(context.Context) error
	if bg, ok := application.(BackgroundApp); ok {
		tasks = bg.BackgroundTasks()
	}
	return runGroup(ctx, func(ctx context.Context) error { return run(ctx, runOpts) }, tasks)
}

func load(opts Options) (ConfigCarrier, error) {
	path, err := ResolveConfigPath(opts)
	if err != nil {
		return nil, err
	}
	log.Printf("loading config: %s", path)
	cfg, err := opts.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("cmd: load config %s: %w", path, err)
	}
	if cfg == nil || cfg.CoreConfig() == nil {
		return nil, errors.New("cmd: loaded config has no core section")
	}
	return cfg, nil
}

// release closes the app, then flushes the logger so close errors are kept.
func release(ctx context.Context, application TelegramApp, shutdownLogger func() error) {
	if closer, ok := application.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			logger.Warn(ctx, "app", "close", slog.String("err", err.Error()))
		}
	}
	if shutdownLogger == nil {
		shutdownLogger = logger.Shutdown
	}
	if err := shutdownLogger(); err != nil {
		log.Printf("logger shutdown: %v", err)
	}
}

// announceLifecycle chains ready and shutdown events around the app's hooks.
func announceLifecycle(opts *coretelegram.RunOptions, startedAt time.Time) {
	onStart, onStop := opts.OnStart, opts.OnStop
	opts.OnStart = func(ctx context.Context, rt coretelegram.Runtime) error {
		if onStart != nil {
			if err := onStart(ctx, rt); err != nil {
				return err
			}
		}
		logger.Info(ctx, "app", "ready", slog.Duration("startup", logger.RoundMS(time.Since(startedAt))))
		return nil
	}
	opts.OnStop = func(ctx context.Context, rt coretelegram.Runtime) error {
		logger.Info(ctx, "app", "shutdown")
		if onStop == nil {
			return nil
		}
		return onStop(ctx, rt)
	}
}

// runGroup runs the bot and the background jobs until the bot returns or any
// of them fails; the others are then cancelled.
func runGroup(ctx context.Context, bot func(context.Context) error, tasks []func(context.Context) error) error {
	g, gctx := errgroup.WithContext(ctx)
	botCtx, stopTasks := context.WithCancel(gctx)
	defer stopTasks()
	g.Go(func() error {
		defer stopTasks()
		return bot(botCtx)
	})
	for _, task := range tasks {
		task := task
		if task != nil {
			g.Go(func() error { return task(botCtx) })
		}
	}
	return g.Wait()
}
