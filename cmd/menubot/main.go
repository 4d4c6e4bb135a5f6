package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/m3rciful/menubot/core/app"
	corecmd "github.com/m3rciful/menubot/core/cmd"
	tgmenu "github.com/m3rciful/menubot/core/telegram/menu"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	flags := pflag.NewFlagSet("menubot", pflag.ContinueOnError)
	configPath := flags.StringP("config", "c", "", "path to the YAML config (default $CONFIG_PATH, then "+defaultConfigPath+")")
	check := flags.Bool("check", false, "validate the config and menu content, then exit")
	version := flags.BoolP("version", "v", false, "print build information and exit")
	if err := flags.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if *version {
		fmt.Println(tgmenu.VersionText())
		return
	}

	opts := corecmd.Options{
		ConfigPath:        *configPath,
		ConfigEnvVar:      "CONFIG_PATH",
		DefaultConfigPath: defaultConfigPath,
		LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
			return app.LoadConfig(path)
		},
		Bootstrap: func(ctx context.Context, cfg corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
			return app.Bootstrap(ctx, cfg.(*app.Config))
		},
	}

	if *check {
		if err := runCheck(opts); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	if err := corecmd.Run(opts); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runCheck(opts corecmd.Options) error {
	path, err := corecmd.ResolveConfigPath(opts)
	if err != nil {
		return err
	}
	cfg, err := app.LoadConfig(path)
	if err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}
	cat, err := app.Check(context.Background(), cfg)
	if err != nil {
		return fmt.Errorf("menu (%s): %w", cfg.Menu.Source, err)
	}
	fmt.Printf("config ok: %s\nmenu ok: source=%s categories=%d\n", path, cfg.Menu.Source, len(cat.Categories()))
	return nil
}
