package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"slices"

	"Flomo/internal/config"
)

// Коды выхода процесса.
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

// Dispatch - единая точка запуска команд. Печатает help/usage и
// возвращает код выхода процесса.
func Dispatch(ctx context.Context, cfg *config.Config, args []string) int {
	// глобальный --help мог остаться после разбора флагов
	if slices.Contains(os.Args[1:], "--help") || slices.Contains(os.Args[1:], "-h") {
		fmt.Fprint(Out, FormatGlobalUsage())
		return exitOK
	}
	if !flag.Parsed() {
		flag.Parse()
	}

	if len(args) == 0 {
		fmt.Fprint(Out, FormatGlobalUsage())
		return exitUsage
	}
	if args[0] == "help" { // flomo help [command]
		return help(args[1:])
	}

	c, ok := Get(args[0])
	if !ok {
		return unknown(args[0])
	}
	return runCommand(ctx, cfg, c, args[1:])
}

func help(args []string) int {
	if len(args) == 0 {
		fmt.Fprint(Out, FormatGlobalUsage())
		return exitOK
	}
	c, ok := Get(args[0])
	if !ok {
		return unknown(args[0])
	}
	fmt.Fprintf(Out, "Usage: %s\n", c.Usage())
	return exitOK
}

func unknown(name string) int {
	fmt.Fprintf(Out, "Unknown command: %s\n\n", name)
	fmt.Fprint(Out, FormatGlobalUsage())
	return exitUsage
}

func runCommand(ctx context.Context, cfg *config.Config, c Command, args []string) int {
	err := c.Run(ctx, cfg, args)
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, ErrUsage):
		fmt.Fprintf(Out, "Usage: %s\n", c.Usage())
		return exitUsage
	default:
		Logger.Debugw("Command failed", "command", c.Name(), "error", err)
		fmt.Fprintf(Out, "%s error: %v\n", c.Name(), err)
		return exitError
	}
}
