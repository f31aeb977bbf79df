// tracimfeed is a terminal client showing the recent activity feed of a
// Tracim server. Events from the user's notification stream are grouped
// into activities, and new events are folded in while the feed is open.
package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/nhle/tracimfeed/internal/app"
	"github.com/nhle/tracimfeed/internal/logger"
	"github.com/nhle/tracimfeed/internal/model"
	"github.com/nhle/tracimfeed/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath string
	var workspaceID int
	var logLevel string
	var logFile string
	var redisAddr string

	flagSet := pflag.NewFlagSet("tracimfeed", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", model.DefaultConfigPath(), "path to the YAML configuration file")
	flagSet.IntVarP(&workspaceID, "workspace", "w", 0, "restrict the feed to one space id (overrides feed.workspace_id)")
	flagSet.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error (overrides log.level)")
	flagSet.StringVar(&logFile, "log-file", "", "write JSON logs to this file (overrides log.file)")
	flagSet.StringVar(&redisAddr, "redis", "", "host:port of a Redis server caching contents (overrides cache.redis_addr)")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	if args := flagSet.Args(); len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}

	cfg, err := model.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if flagSet.Changed("workspace") {
		cfg.Feed.WorkspaceID = workspaceID
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFile != "" {
		cfg.Log.File = logFile
	}
	if redisAddr != "" {
		cfg.Cache.RedisAddr = redisAddr
	}

	log, err := logger.New(cfg.Log.File, cfg.Log.Level)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	st, err := store.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	log.Info("starting",
		zap.String("config", configPath),
		zap.String("server", cfg.Server.BaseURL),
		zap.Int("workspace_id", cfg.Feed.WorkspaceID),
	)

	root := app.New(app.Options{
		Config:     cfg,
		ConfigPath: configPath,
		Store:      st,
		Logger:     log,
	})
	program := tea.NewProgram(root, tea.WithAltScreen())
	final, err := program.Run()
	if m, ok := final.(app.Model); ok {
		m.Close()
	}
	return err
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `tracimfeed shows the recent activities of a Tracim server.

On first run a form asks for the server URL, username and API key. The
API key is kept in the system keyring; TRACIM_API_KEY overrides it.

Usage:
  tracimfeed [flags]

Flags:
%s`, flagSet.FlagUsages())
}
