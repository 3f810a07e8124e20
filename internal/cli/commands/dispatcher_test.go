package commands

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"Flomo/internal/config"
)

// fakeCmd позволяет управлять возвратом ошибок из Run
type fakeCmd struct {
	name, usage, desc string
	run               func(ctx context.Context, cfg *config.Config, args []string) error
}

func (f fakeCmd) Name() string        { return f.name }
func (f fakeCmd) Description() string { return f.desc }
func (f fakeCmd) Usage() string       { return f.usage }
func (f fakeCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	return f.run(ctx, cfg, args)
}

func TestDispatcher_HelpAndUnknown(t *testing.T) {
	out, code := run(t, &config.Config{})
	assert.Equal(t, 2, code)
	assert.Contains(t, out, "Flomo CLI")
	for _, name := range []string{"full-sync", "sync", "push", "pull", "watch", "status",
		"card-add", "card-edit", "card-rm", "cards", "folder-add", "folder-mv", "folder-rm",
		"folders", "doc-add", "doc-edit", "doc-rm", "docs", "pending"} {
		_, ok := Get(name)
		assert.True(t, ok, "command %s must be registered", name)
	}

	out, code = run(t, &config.Config{}, "help")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "Commands:")
	assert.Less(t, strings.Index(out, " Sync:"), strings.Index(out, " Cards:"))
	assert.Less(t, strings.Index(out, " Folders:"), strings.Index(out, " Documents:"))

	out, code = run(t, &config.Config{}, "help", "card-rm")
	assert.Equal(t, 0, code)
	assert.Equal(t, "Usage: card-rm <id>\n", out)

	out, code = run(t, &config.Config{}, "nope")
	assert.Equal(t, 2, code)
	assert.True(t, strings.HasPrefix(out, "Unknown command: nope"))
}

func TestDispatcher_ExitCodes(t *testing.T) {
	RegisterCmd(fakeCmd{name: "zz-usage", usage: "zz-usage <x>", run: func(context.Context, *config.Config, []string) error {
		return ErrUsage
	}})
	RegisterCmd(fakeCmd{name: "zz-fail", usage: "zz-fail", run: func(context.Context, *config.Config, []string) error {
		return errors.New("boom")
	}})
	RegisterCmd(fakeCmd{name: "zz-ok", usage: "zz-ok", run: func(_ context.Context, _ *config.Config, args []string) error {
		assert.Equal(t, []string{"a", "b"}, args)
		return nil
	}})
	defer func() {
		delete(registry, "zz-usage")
		delete(registry, "zz-fail")
		delete(registry, "zz-ok")
	}()

	out, code := run(t, &config.Config{}, "zz-usage")
	assert.Equal(t, 2, code)
	assert.Equal(t, "Usage: zz-usage <x>\n", out)

	out, code = run(t, &config.Config{}, "zz-fail")
	assert.Equal(t, 1, code)
	assert.Equal(t, "zz-fail error: boom\n", out)

	out, code = run(t, &config.Config{}, "help")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, " Other:\n  zz-fail")

	_, code = run(t, &config.Config{}, "ZZ-OK", "a", "b")
	assert.Equal(t, 0, code)
}
