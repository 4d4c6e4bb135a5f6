package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/m3rciful/menubot/core/logger"
	"github.com/m3rciful/menubot/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

var (
	// ErrInvalidCommand rejects a command without a /name, handler or description.
	ErrInvalidCommand = errors.New("telegram: invalid command")
	// ErrDuplicateCommand rejects a name or alias that is already taken.
	ErrDuplicateCommand = errors.New("telegram: duplicate command")
)

// Registry holds bot commands and the fallback for unmatched text.
// It is filled during wiring and read-only once the bot runs.
type Registry struct {
	commands map[string]commands.Command
	aliases  map[string]string
	fallback tele.HandlerFunc
}

func NewRegistry() *Registry {
	return &Registry{
		commands: make(map[string]commands.Command),
		aliases:  make(map[string]string),
	}
}

// RegisterCommand adds cmd under name, a lowercase "/word". Aliases may be
// given with or without the slash. The first registration of a name wins.
func (r *Registry) RegisterCommand(name string, cmd commands.Command) error {
	err := r.register(name, cmd)
	if err != nil {
		logger.Warn(context.Background(), "tg.wire", "register.command.skip",
			slog.String("name", name),
			slog.String("err", err.Error()),
		)
	}
	return err
}

func (r *Registry) register(name string, cmd commands.Command) error {
	if commands.Name(name) != name || cmd.Handler == nil || cmd.Description == "" {
		return fmt.Errorf("%w: %q", ErrInvalidCommand, name)
	}
	if r.taken(name) {
		return fmt.Errorf("%w: %q", ErrDuplicateCommand, name)
	}
	aliases := make([]string, 0, len(cmd.Aliases))
	for _, a := range cmd.Aliases {
		if a == "" {
			continue
		}
		if !strings.HasPrefix(a, "/") {
			a = "/" + a
		}
		if commands.Name(a) != a {
			return fmt.Errorf("%w: alias %q", ErrInvalidCommand, a)
		}
		if r.taken(a) || a == name {
			return fmt.Errorf("%w: alias %q", ErrDuplicateCommand, a)
		}
		aliases = append(aliases, a)
	}
	r.commands[name] = cmd
	for _, a := range aliases {
		r.aliases[a] = name
	}
	return nil
}

func (r *Registry) taken(name string) bool {
	_, cmd := r.commands[name]
	_, alias := r.aliases[name]
	return cmd || alias
}

// ListCommands returns commands sorted by name for setMyCommands. With
// visibleOnly, hidden and admin-only commands are left out.
func (r *Registry) ListCommands(visibleOnly bool) []tele.Command {
	list := make([]tele.Command, 0, len(r.commands))
	for name, cmd := range r.commands {
		if visibleOnly && (cmd.Hidden || cmd.AdminOnly) {
			continue
		}
		list = append(list, tele.Command{Text: strings.TrimPrefix(name, "/"), Description: cmd.Description})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Text < list[j].Text })
	return list
}

// LookupCommand resolves message text to the command it names, through
// aliases too. The canonical name is returned with the command.
func (r *Registry) LookupCommand(text string) (string, commands.Command, bool) {
	name := commands.Name(text)
	if canonical, ok := r.aliases[name]; ok {
		name = canonical
	}
	cmd, ok := r.commands[name]
	if !ok {
		return "", commands.Command{}, false
	}
	return name, cmd, true
}

func (r *Registry) Commands() map[string]commands.Command {
	return r.commands
}

// Aliases returns the registered aliases of name, sorted.
func (r *Registry) Aliases(name string) []string {
	var res []string
	for alias, canonical := range r.aliases {
		if canonical == name {
			res = append(res, alias)
		}
	}
	sort.Strings(res)
	return res
}

// SetTextFallback sets the handler for text that names no command.
func (r *Registry) SetTextFallback(h tele.HandlerFunc) {
	r.fallback = h
}

func (r *Registry) TextFallback() tele.HandlerFunc {
	return r.fallback
}

// InitBotCommands publishes the visible commands to the Telegram command menu.
func InitBotCommands(bot *tele.Bot, reg *Registry) {
	list := reg.ListCommands(true)
	if len(list) == 0 {
		return
	}
	if err := bot.SetCommands(list); err != nil {
		logger.Error(context.Background(), "tg.wire", "register.commands.set_failed",
			slog.String("err", err.Error()),
		)
	}
}
