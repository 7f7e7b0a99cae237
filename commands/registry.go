// Package commands holds the command and menu registries that workspace
// contributions plug into
package commands

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v4"
	"github.com/xpomul/workspacefs/internal/util"
)

var (
	ErrUnknownCommand   = errors.New("unknown command")
	ErrDisabled         = errors.New("command is disabled")
	ErrDuplicateCommand = errors.New("command already registered")
)

type Command struct {
	ID       string
	Label    string
	Category string
}

// Title is "Category: Label", or the label alone
func (c Command) Title() string {
	if c.Category == "" {
		return c.Label
	}
	return c.Category + ": " + c.Label
}

// Args carries the selection a command acts on and optional named parameters
type Args struct {
	Selection []string
	Params    map[string]string
}

// Param returns the named parameter or "" if absent
func (a Args) Param(name string) string {
	return a.Params[name]
}

// Invocation is one request to run a command
type Invocation struct {
	ID      uuid.UUID
	Command string
	Args    Args
}

// Handler implements a command. Nil IsEnabled or IsVisible means always
type Handler struct {
	Execute   func(ctx context.Context, args Args) error
	IsEnabled func(args Args) bool
	IsVisible func(args Args) bool
}

type entry struct {
	cmd     Command
	handler Handler
}

// Registry maps command IDs to handlers. It is safe for concurrent use
type Registry struct {
	entries *xsync.Map[string, entry]
}

func NewRegistry() *Registry {
	return &Registry{entries: xsync.NewMap[string, entry]()}
}

// Register adds cmd. Returns ErrDuplicateCommand if the ID is taken
func (r *Registry) Register(cmd Command, h Handler) error {
	if cmd.ID == "" || h.Execute == nil {
		return fmt.Errorf("register %q: command needs an ID and an Execute func", cmd.ID)
	}
	if _, loaded := r.entries.LoadOrStore(cmd.ID, entry{cmd: cmd, handler: h}); loaded {
		return fmt.Errorf("register %q: %w", cmd.ID, ErrDuplicateCommand)
	}
	logger := util.GetLogger("Commands.Register")
	logger.Trace().Str("command", cmd.ID).Msg("Registered command")
	return nil
}

// Unregister removes the command and reports whether it was present
func (r *Registry) Unregister(id string) bool {
	_, ok := r.entries.LoadAndDelete(id)
	return ok
}

// Commands returns all commands sorted by ID
func (r *Registry) Commands() []Command {
	cmds := make([]Command, 0, r.entries.Size())
	r.entries.Range(func(_ string, e entry) bool {
		cmds = append(cmds, e.cmd)
		return true
	})
	slices.SortFunc(cmds, func(a, b Command) int { return strings.Compare(a.ID, b.ID) })
	return cmds
}

func (r *Registry) Get(id string) (Command, bool) {
	e, ok := r.entries.Load(id)
	return e.cmd, ok
}

// IsEnabled is false for unknown commands
func (r *Registry) IsEnabled(id string, args Args) bool {
	e, ok := r.entries.Load(id)
	if !ok {
		return false
	}
	return e.handler.IsEnabled == nil || e.handler.IsEnabled(args)
}

// IsVisible is false for unknown commands
func (r *Registry) IsVisible(id string, args Args) bool {
	e, ok := r.entries.Load(id)
	if !ok {
		return false
	}
	return e.handler.IsVisible == nil || e.handler.IsVisible(args)
}

// Execute runs the command under a fresh invocation ID
func (r *Registry) Execute(ctx context.Context, id string, args Args) error {
	return r.Run(ctx, Invocation{ID: uuid.New(), Command: id, Args: args})
}

// Run executes inv. Disabled commands are not run
func (r *Registry) Run(ctx context.Context, inv Invocation) error {
	logger := util.GetLogger("Commands.Run").With().
		Str("invocation", inv.ID.String()).
		Str("command", inv.Command).
		Logger()

	e, ok := r.entries.Load(inv.Command)
	if !ok {
		logger.Debug().Msg("Unknown command")
		return fmt.Errorf("%q: %w", inv.Command, ErrUnknownCommand)
	}
	if e.handler.IsEnabled != nil && !e.handler.IsEnabled(inv.Args) {
		logger.Debug().Strs("selection", inv.Args.Selection).Msg("Command disabled for selection")
		return fmt.Errorf("%q: %w", inv.Command, ErrDisabled)
	}

	logger.Debug().Strs("selection", inv.Args.Selection).Msg("Executing command")
	if err := e.handler.Execute(ctx, inv.Args); err != nil {
		logger.Error().Err(err).Msg("Command failed")
		return fmt.Errorf("%s: %w", inv.Command, err)
	}
	logger.Debug().Msg("Command finished")
	return nil
}
