package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/semmidev/mysqlbackup/internal/app"
	"github.com/semmidev/mysqlbackup/internal/config"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Error: %v\n", err)
	}
}

func run() error {
	flags := pflag.NewFlagSet("mysqlbackup", pflag.ExitOnError)
	configPath := flags.StringP("config", "c", "config/backup.json", "path to config file")
	logLevel := flags.IntP("loglevel", "l", 20, "log level: 10 DEBUG, 20 INFO, 30 WARNING, 40 ERROR, 50 CRITICAL")
	handler := flags.StringP("handler", "H", config.HandlerConsole, "log handler: console or file")
	schedule := flags.StringP("schedule", "s", "", "cron spec with seconds; run once when empty")
	flags.Parse(os.Args[1:])

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if flags.Changed("loglevel") {
		if err := config.ValidateLogLevel(*logLevel); err != nil {
			return err
		}
		cfg.App.LogLevel = *logLevel
	}
	if flags.Changed("handler") {
		if err := config.ValidateHandler(*handler); err != nil {
			return err
		}
		cfg.App.LogHandler = *handler
	}
	if flags.Changed("schedule") {
		cfg.App.Schedule = *schedule
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	application, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize app: %w", err)
	}
	defer application.Shutdown()

	return application.Run(ctx)
}
