package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap"

	"Flomo/internal/config"
)

// ErrUsage - аргументы команды некорректны, нужно показать usage.
var ErrUsage = errors.New("usage")

// Command - подкоманда CLI.
type Command interface {
	// Name - имя, которое набирает пользователь, например "sync".
	Name() string
	// Description - короткое описание для help.
	Description() string
	// Usage - строка использования, например "card-rm <id>".
	Usage() string
	// Run выполняет команду; args без имени команды.
	Run(ctx context.Context, cfg *config.Config, args []string) error
}

var registry = map[string]Command{}

// Out - общий writer для вывода CLI. В тестах переназначается.
var Out io.Writer = os.Stdout

// Logger - логгер команд; main подменяет его на настроенный.
var Logger = zap.NewNop().Sugar()

// RegisterCmd регистрирует команду. Вызывается из init() файла команды.
func RegisterCmd(cmd Command) {
	registry[cmd.Name()] = cmd
}

// Get returns a command by name.
func Get(name string) (Command, bool) {
	c, ok := registry[strings.ToLower(name)]
	return c, ok
}

// List returns all registered commands sorted by section, then by name.
func List() []Command {
	list := make([]Command, 0, len(registry))
	for _, c := range registry {
		list = append(list, c)
	}
	sort.Slice(list, func(i, j int) bool {
		si, sj := sectionOf(list[i].Name()), sectionOf(list[j].Name())
		if si != sj {
			return si < sj
		}
		return list[i].Name() < list[j].Name()
	})
	return list
}

// разделы help в порядке вывода
var sections = []string{"Sync", "Cards", "Folders", "Documents", "Other"}

func sectionOf(name string) int {
	switch {
	case name == "cards" || strings.HasPrefix(name, "card-"):
		return 1
	case name == "folders" || strings.HasPrefix(name, "folder-"):
		return 2
	case name == "docs" || strings.HasPrefix(name, "doc-"):
		return 3
	case name == "full-sync", name == "sync", name == "push", name == "pull",
		name == "watch", name == "status", name == "pending":
		return 0
	}
	return 4
}

// FormatGlobalUsage собирает help по всем командам, сгруппированный по разделам.
func FormatGlobalUsage() string {
	var b strings.Builder
	b.WriteString("Flomo CLI\n\nUsage:\n")
	b.WriteString("  flomo [--base-url <host:port>] [--client-db <path>] <command> [args]\n\nCommands:\n")

	current := -1
	for _, c := range List() {
		if s := sectionOf(c.Name()); s != current {
			current = s
			fmt.Fprintf(&b, " %s:\n", sections[s])
		}
		fmt.Fprintf(&b, "  %-44s %s\n", c.Usage(), c.Description())
	}
	return b.String()
}
