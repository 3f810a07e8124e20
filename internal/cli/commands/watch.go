package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"Flomo/internal/cli/service"
	"Flomo/internal/config"
)

type watchCmd struct{}

func (watchCmd) Name() string { return "watch" }
func (watchCmd) Description() string {
	return "Фоновая синхронизация по таймеру до Ctrl+C"
}
func (watchCmd) Usage() string { return "watch [--interval <duration>]" }

func (watchCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	fs := newFlagSet("watch")
	interval := fs.Duration("interval", cfg.SyncInterval, "период синхронизации")
	if err := fs.Parse(args); err != nil || fs.NArg() != 0 || *interval < 0 {
		return ErrUsage
	}

	app, done, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer done()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	unsubscribe := app.Sync.Subscribe(printStatus)
	defer unsubscribe()

	app.Sync.StartAutoSync(ctx, *interval)
	<-ctx.Done()
	app.Sync.StopAutoSync()
	fmt.Fprintln(Out, "• Остановлено")
	return nil
}

func printStatus(s service.Status) {
	ts := time.Now().Format(time.TimeOnly)
	switch s.State {
	case service.StateError:
		fmt.Fprintf(Out, "[%s] × %s: %s\n", ts, s.State, s.Error)
	case service.StateIdle:
		last := "never"
		if !s.LastSyncTime.IsZero() {
			last = s.LastSyncTime.Format(time.RFC3339)
		}
		fmt.Fprintf(Out, "[%s] ✓ idle (last sync: %s)\n", ts, last)
	default:
		fmt.Fprintf(Out, "[%s] → %s\n", ts, s.State)
	}
}

func init() { RegisterCmd(watchCmd{}) }
