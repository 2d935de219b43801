package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/qnkhuat/chessmon/pkg"
	"github.com/qnkhuat/chessmon/pkg/config"
	"github.com/qnkhuat/chessmon/pkg/gui"
)

func main() {
	var cfg config.Client
	if err := config.ParseEnv(&cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	server := flag.String("server", cfg.Server, "server address")
	logPath := flag.String("log", cfg.LogFile, "path to log file")
	name := flag.String("name", os.Getenv("USER"), "player name")
	match := flag.String("match", "", "match to join, empty for any")
	themeName := flag.String("theme", gui.ThemeBasic.Name, "board theme")
	flag.Parse()

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Fprintln(os.Stderr, "chessmon needs an interactive terminal")
		os.Exit(1)
	}
	theme, err := gui.ThemeByName(*themeName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", *themeName, err)
		os.Exit(1)
	}
	logger, err := pkg.InitLog(*logPath, "client")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	cl := pkg.NewClient(theme, logger)
	if err := cl.Connect(*server, pkg.MessageJoin{MatchId: *match, Name: *name}); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer cl.Disconnect()
	go cl.HandleRead()
	go cl.HandleWrite()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigc
		cl.App.Stop()
	}()

	if err := cl.App.SetRoot(cl.Layout, true).EnableMouse(true).Run(); err != nil {
		logger.Error("ui stopped", zap.Error(err))
		os.Exit(1)
	}
}
