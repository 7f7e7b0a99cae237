// Package shell wires the workspace services, registries and contributions
// into one application
package shell

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xpomul/workspacefs"
	"github.com/xpomul/workspacefs/commands"
	"github.com/xpomul/workspacefs/config"
	"github.com/xpomul/workspacefs/contrib"
	"github.com/xpomul/workspacefs/decorations"
	"github.com/xpomul/workspacefs/dialogs"
	"github.com/xpomul/workspacefs/internal/util"
	"github.com/xpomul/workspacefs/labels"
	"github.com/xpomul/workspacefs/naming"
	"github.com/xpomul/workspacefs/workspace"
)

// Shell owns the services behind the workspace commands
type Shell struct {
	FS          workspacefs.FileService
	Workspace   *workspace.Service
	Validator   *naming.Validator
	Labels      *labels.Provider
	Commands    *commands.Registry
	Menus       *commands.MenuRegistry
	Decorations *decorations.Service

	cfg         *config.Config
	watcher     *workspace.Watcher
	rootDec     *decorations.RootDecorator
	disposables []func()
	cancel      context.CancelFunc
	done        chan error
}

// NewValidator builds the name validator configured by cfg
func NewValidator(cfg *config.Config, fs workspacefs.FileService) *naming.Validator {
	return naming.NewValidator(fs,
		naming.WithMaxDisplayLen(cfg.MaxDisplayLen),
		naming.WithMaxNameLen(cfg.MaxNameLen),
		naming.WithCaseInsensitive(cfg.CaseInsensitive),
	)
}

// New creates a Shell over fs given your config. Roots are watched when cfg
// enables it and fs maps onto the host filesystem
func New(cfg *config.Config, fs workspacefs.FileService, dlg dialogs.Dialogs) (*Shell, error) {
	logger := util.GetLogger("Shell.New")

	ws := workspace.NewService(fs)
	s := &Shell{
		FS:          fs,
		Workspace:   ws,
		Validator:   NewValidator(cfg, fs),
		Labels:      labels.NewProvider(ws),
		Commands:    commands.NewRegistry(),
		Menus:       commands.NewMenuRegistry(),
		Decorations: decorations.NewService(),
		cfg:         cfg,
	}

	wc := contrib.New(cfg, contrib.Deps{
		FS:        fs,
		Workspace: ws,
		Validator: s.Validator,
		Labels:    s.Labels,
		Dialogs:   dlg,
	})
	if err := commands.Contribute(s.Commands, s.Menus, wc); err != nil {
		return nil, err
	}

	s.rootDec = decorations.NewRootDecorator(ws, s.Decorations)
	if err := s.register(s.rootDec); err != nil {
		return nil, err
	}

	mapper, ok := fs.(workspace.PathMapper)
	if !cfg.WatchRoots || !ok {
		logger.Debug().Bool("watchRoots", cfg.WatchRoots).Bool("mappable", ok).Msg("Root watching disabled")
		return s, nil
	}

	ttl := time.Duration(cfg.DecorationTTL * float64(time.Second))
	changes := decorations.NewChangeDecorator(s.Decorations, ttl)
	if err := s.register(changes); err != nil {
		return nil, err
	}
	w, err := workspace.NewWatcher(ws, mapper)
	if err != nil {
		// best effort; commands work without change decorations
		logger.Warn().Err(err).Msg("Failed to start root watcher")
		return s, nil
	}
	s.watcher = w
	s.disposables = append(s.disposables, w.Subscribe(changes.Record))
	return s, nil
}

func (s *Shell) register(d decorations.Decorator) error {
	unregister, err := s.Decorations.Register(d)
	if err != nil {
		return err
	}
	s.disposables = append(s.disposables, unregister)
	return nil
}

// Open loads target as a workspace file if it is one, otherwise opens it
// as a folder
func (s *Shell) Open(ctx context.Context, target string) error {
	stat, err := s.FS.Stat(ctx, target)
	if err != nil {
		return fmt.Errorf("open %s: %w", target, err)
	}
	if stat.IsDir {
		return s.Workspace.OpenFolder(ctx, stat.Path)
	}
	return s.Workspace.Open(ctx, stat.Path)
}

// Start runs background work until ctx ends or [Shell.Close] is called.
// The returned channel yields the watcher's exit error once
func (s *Shell) Start(ctx context.Context) <-chan error {
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan error, 1)

	if s.watcher == nil {
		close(s.done)
		return s.done
	}
	go func() {
		err := s.watcher.Run(ctx)
		if errors.Is(err, context.Canceled) {
			err = nil
		}
		s.done <- err
		close(s.done)
	}()
	return s.done
}

// OnFileChange calls fn for every change the root watcher reports. ok is
// false when roots are not watched
func (s *Shell) OnFileChange(fn func(workspace.FileChange)) (dispose func(), ok bool) {
	if s.watcher == nil {
		return func() {}, false
	}
	dispose = s.watcher.Subscribe(fn)
	s.disposables = append(s.disposables, dispose)
	return dispose, true
}

// Run executes a single invocation
func (s *Shell) Run(ctx context.Context, inv commands.Invocation) error {
	return s.Commands.Run(ctx, inv)
}

// RunAll executes invocations in order and stops at the first failure
func (s *Shell) RunAll(ctx context.Context, invs []commands.Invocation) error {
	logger := util.GetLogger("Shell.RunAll")
	for i, inv := range invs {
		if err := s.Run(ctx, inv); err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
		logger.Debug().Int("step", i+1).Str("command", inv.Command).Msg("Step done")
	}
	return nil
}

// Close stops background work and releases watches
func (s *Shell) Close() error {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
	for _, dispose := range s.disposables {
		dispose()
	}
	s.disposables = nil
	s.rootDec.Close()
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}
