package commands

import (
	"flag"
	"fmt"
	"io"
	"strconv"
	"time"

	"Flomo/internal/cli/api"
	"Flomo/internal/cli/bootstrap"
	"Flomo/internal/config"
)

// openApp собирает приложение для одной команды.
func openApp(cfg *config.Config) (*bootstrap.App, func() error, error) {
	notifier := api.NotifierFunc(func(msg string) {
		fmt.Fprintf(Out, "! %s\n", msg)
	})
	return bootstrap.Open(cfg, Logger, notifier)
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

// ref разбирает ссылку на папку: "" значит не задана, "-" значит верхний уровень.
func ref(s string) *string {
	if s == "" || s == "-" {
		return nil
	}
	return &s
}

func refString(p *string) string {
	if p == nil {
		return "-"
	}
	return *p
}

func formatMillis(raw string, ok bool) string {
	if !ok || raw == "" {
		return "never"
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return raw
	}
	return time.UnixMilli(ms).Format(time.RFC3339)
}
