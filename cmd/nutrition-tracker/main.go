// cmd/nutrition-tracker/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"nutrition-tracker/internal/config"
	"nutrition-tracker/internal/logging"
	"nutrition-tracker/internal/nutrition"
	"nutrition-tracker/internal/server"
	"nutrition-tracker/internal/storage"
	"nutrition-tracker/internal/tracker"
	"nutrition-tracker/internal/tui"
	"nutrition-tracker/internal/watch"
)

const version = "1.0.0"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "nutrition-tracker: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	if cfg.Version {
		fmt.Printf("nutrition-tracker version %s\n", version)
		return nil
	}

	// The tui owns the terminal, so its logs go to a file.
	var logger zerolog.Logger
	if cfg.Mode == config.ModeTUI {
		var logFile *os.File
		logger, logFile, err = logging.OpenFile(cfg.Log.File, cfg.Log.Level)
		if err != nil {
			return err
		}
		defer logFile.Close()
	} else {
		logger, err = logging.New(os.Stderr, cfg.Log.Level, true)
		if err != nil {
			return err
		}
	}

	foods, err := nutrition.LoadFile(cfg.Foods.Path, cfg.Foods.Format)
	if err != nil {
		return err
	}
	logger.Info().Str("path", cfg.Foods.Path).Int("foods", foods.Len()).Msg("loaded food database")

	l, err := tracker.LoadLedger(cfg.Save.Path, foods)
	if err != nil {
		return err
	}

	opts := []tracker.Option{
		tracker.WithLedger(l),
		tracker.WithLogger(logging.Component(logger, "session")),
	}

	var archive *storage.SQLiteStorage
	if cfg.Database.Path != "" {
		archive, err = storage.NewSQLiteStorage(cfg.Database.Path)
		if err != nil {
			return err
		}
		defer archive.Close()
		opts = append(opts, tracker.WithArchive(archive))
		logger.Info().Str("path", cfg.Database.Path).Msg("ledger archive enabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts = append(opts, tracker.WithContext(ctx))
	session := tracker.NewSession(foods, cfg.Save.Path, opts...)

	switch cfg.Mode {
	case config.ModeStdio:
		var ledgers server.LedgerArchive
		if archive != nil {
			ledgers = archive
		}
		srv := server.NewToolServer(session, ledgers, logging.Component(logger, "server"))
		if cfg.Foods.Watch {
			if err := startWatcher(ctx, cfg, srv.ReplaceFoods, logger); err != nil {
				return err
			}
		}
		logger.Info().Msg("serving tools on stdio")
		return srv.Serve(ctx, os.Stdin, os.Stdout)

	default:
		p := tea.NewProgram(tui.New(session), tea.WithAltScreen(), tea.WithContext(ctx))
		if cfg.Foods.Watch {
			reload := func(table *nutrition.Table) {
				p.Send(tui.FoodsReloadedMsg{Table: table})
			}
			if err := startWatcher(ctx, cfg, reload, logger); err != nil {
				return err
			}
		}
		if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return err
		}
		return nil
	}
}

func startWatcher(ctx context.Context, cfg config.Config, onReload func(*nutrition.Table), logger zerolog.Logger) error {
	fw, err := watch.NewFoodWatcher(cfg.Foods.Path, cfg.Foods.Format, onReload, logging.Component(logger, "watcher"))
	if err != nil {
		return err
	}
	go func() {
		defer fw.Close()
		fw.Watch(ctx)
	}()
	logger.Info().Str("path", cfg.Foods.Path).Msg("watching food database")
	return nil
}
