package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/qnkhuat/chessmon/pkg"
	"github.com/qnkhuat/chessmon/pkg/battle"
	"github.com/qnkhuat/chessmon/pkg/config"
	"github.com/qnkhuat/chessmon/pkg/store"
	"github.com/qnkhuat/chessmon/pkg/telemetry"
)

func main() {
	cfg, err := config.LoadServer()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "TCP address for game clients")
	flag.StringVar(&cfg.SSHAddr, "ssh", cfg.SSHAddr, "ssh address, empty to disable")
	flag.StringVar(&cfg.WSAddr, "ws", cfg.WSAddr, "spectator websocket address, empty to disable")
	flag.StringVar(&cfg.LogFile, "log", cfg.LogFile, "path to log file")
	flag.StringVar(&cfg.Storage.Path, "db", cfg.Storage.Path, "SQLite database, empty to disable")
	flag.BoolVar(&cfg.Draft, "draft", cfg.Draft, "draft combatants from a shared pool")
	flag.Parse()

	logger, err := pkg.InitLog(cfg.LogFile, "server")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", zap.Error(err))
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfg config.Server, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdown, err := telemetry.Setup(ctx, "chessmon-server", cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(sctx); err != nil {
			logger.Warn("telemetry shutdown", zap.Error(err))
		}
	}()

	var st *store.Store
	if cfg.Storage.Path != "" {
		st, err = store.Open(cfg.Storage.Path)
		if err != nil {
			return err
		}
		defer st.Close()
	}

	engine := battle.NewShowdown(cfg.Simulator.Command, cfg.Simulator.Dir, logger.Named("showdown"))
	s, err := pkg.NewServer(cfg, engine, st, logger)
	if err != nil {
		return err
	}
	logger.Info("server started")
	return s.ListenAndServe(ctx)
}
