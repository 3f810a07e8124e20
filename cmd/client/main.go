package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"Flomo/internal/cli/commands"
	"Flomo/internal/config"
	"Flomo/internal/logging"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	// Load unified config (env + flags)
	cfg := config.NewConfig()

	if cfg.Version {
		printVersion()
		return
	}

	logger := logging.New(logging.Options{Verbose: cfg.Verbose, File: cfg.LogFile, Quiet: true})
	sugar := logger.Sugar()
	commands.Logger = sugar

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// dispatcher
	exitCode := commands.Dispatch(ctx, cfg, flag.Args())
	_ = logger.Sync()
	if exitCode == 0 {
		return
	}
	os.Exit(exitCode)
}

func printVersion() {
	fmt.Printf("Flomo CLI\nVersion: %s\nBuild date: %s\n", version, buildDate)
}
