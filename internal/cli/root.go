// Package cli implements the workspacefs command line
package cli

import (
	"context"
	"errors"
	"fmt"
	stdlog "log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/xpomul/workspacefs"
	"github.com/xpomul/workspacefs/adapters"
	"github.com/xpomul/workspacefs/config"
	"github.com/xpomul/workspacefs/dialogs"
	"github.com/xpomul/workspacefs/internal/util"
	"github.com/xpomul/workspacefs/shell"
)

// Environment variables that provide defaults for unset root flags
const (
	ConfigEnv    = "WORKSPACEFS_CONFIG"
	WorkspaceEnv = "WORKSPACEFS_WORKSPACE"
	VerboseEnv   = "WORKSPACEFS_VERBOSE"
	BackendEnv   = "WORKSPACEFS_BACKEND"
	RootEnv      = "WORKSPACEFS_ROOT"
)

type rootOptions struct {
	configPath string
	verbose    int
	workspace  string
	backend    string
	root       string
	yes        bool
}

// app holds the state shared by the subcommands of one execution
type app struct {
	opts  rootOptions
	shell *shell.Shell
}

// Execute runs the command line until it completes or the process is interrupted
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{}
	defer a.close()
	return a.rootCmd().ExecuteContext(ctx)
}

func (a *app) rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workspacefs",
		Short: "File and folder commands for multi-root workspaces",
		Long: `workspacefs creates, renames, duplicates and deletes files and folders
inside the roots of a workspace. A workspace is either a single folder or a
.theia-workspace file listing several root folders.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.opts.configPath, "config", "", "Path to a YAML or JSON config file")
	flags.IntVarP(&a.opts.verbose, "verbose", "v", config.InfoVerbose,
		"Log verbosity level between 1 (error) and 5 (trace)")
	flags.StringVarP(&a.opts.workspace, "workspace", "w", "",
		"Workspace to open: a folder or a "+config.DefaultWorkspaceFileName+" file")
	flags.StringVar(&a.opts.backend, "backend", adapters.FileBackendType, "File backend (file or mem)")
	flags.StringVar(&a.opts.root, "root", "/", "Host directory backing \"/\" for the file backend")
	flags.BoolVarP(&a.opts.yes, "yes", "y", false, "Answer yes to every confirmation")

	cmd.AddCommand(
		a.validateCmd(),
		a.uniqueCmd(),
		a.commandsCmd(),
		a.menusCmd(),
		a.execCmd(),
		a.runCmd(),
		a.rootsCmd(),
		a.decorationsCmd(),
		a.watchCmd(),
	)
	return cmd
}

// setup loads configuration, the backend and the workspace before any subcommand runs
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	// Load .env file
	envErr := godotenv.Load()

	flags := cmd.Flags()
	for name, key := range map[string]string{
		"config":    ConfigEnv,
		"workspace": WorkspaceEnv,
		"verbose":   VerboseEnv,
		"backend":   BackendEnv,
		"root":      RootEnv,
	} {
		if err := loadOptionalFromEnv(flags, name, key); err != nil {
			return err
		}
	}

	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	if flags.Changed("verbose") {
		cfg.LogLvl = util.VerboseToLevel(a.opts.verbose)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	util.InitializeLogger(cfg.LogLvl, cmd.ErrOrStderr())
	stdlog.SetFlags(0)
	stdlog.SetOutput(util.NewLogLogger("stdlog", util.WarnLevel).Writer())
	logger := util.GetLogger("cli.setup")
	if envErr != nil {
		logger.Debug().Msg("No .env file found, using environment variables")
	}

	registry := adapters.NewRegistry()
	adapters.RegisterBuiltins(registry)
	fs, err := registry.New(a.opts.backend, a.opts.root)
	if err != nil {
		return fmt.Errorf("backend %q: %w", a.opts.backend, err)
	}

	term := dialogs.NewTerminal(cmd.InOrStdin(), cmd.OutOrStdout())
	term.AssumeYes = a.opts.yes
	a.shell, err = shell.New(cfg, fs, term)
	if err != nil {
		return err
	}

	logger.Debug().Str("backend", a.opts.backend).Str("root", a.opts.root).Str("workspace", a.opts.workspace).
		Msg("Shell ready")
	if a.opts.workspace == "" {
		return nil
	}
	return a.openWorkspace(cmd.Context())
}

func (a *app) loadConfig() (*config.Config, error) {
	if a.opts.configPath == "" {
		return config.NewDefaultConfig(), nil
	}
	cfg, err := config.NewConfigFromFile(a.opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", a.opts.configPath, err)
	}
	return cfg, nil
}

// openWorkspace opens the --workspace target. A folder holding a default
// workspace file opens that file instead. The memory backend starts empty so
// a missing folder is created there
func (a *app) openWorkspace(ctx context.Context) error {
	target := workspacefs.Clean(a.opts.workspace)
	fs := a.shell.FS

	if a.opts.backend == adapters.MemBackendType && filepath.Ext(target) == "" {
		if err := fs.CreateFolder(ctx, target); err != nil {
			return err
		}
	}

	stat, err := fs.Stat(ctx, target)
	if err != nil {
		return fmt.Errorf("open workspace: %w", err)
	}
	if stat.IsDir {
		if child, ok := stat.Child(config.DefaultWorkspaceFileName); ok && !child.IsDir {
			target = child.Path
		}
	}
	return a.shell.Open(ctx, target)
}

func (a *app) close() {
	if a.shell == nil {
		return
	}
	if err := a.shell.Close(); err != nil {
		logger := util.GetLogger("cli.close")
		logger.Warn().Err(err).Msg("Failed to close shell")
	}
	a.shell = nil
}

// loadOptionalFromEnv sets flag name from env key unless it was given on the command line
func loadOptionalFromEnv(flags *pflag.FlagSet, name, key string) error {
	str := os.Getenv(key)
	if str == "" || flags.Changed(name) {
		return nil // Leave flag value
	}
	if err := flags.Set(name, str); err != nil {
		return fmt.Errorf("failed to parse environment variable '%s' value '%s': %w", key, str, err)
	}
	return nil
}

// exitError carries a process exit code without an extra message
type exitError struct {
	code int
}

func (e exitError) Error() string {
	return "exit status " + strconv.Itoa(e.code)
}

// ExitCode returns the process exit code for an error returned by [Execute]
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exit exitError
	if errors.As(err, &exit) {
		return exit.code
	}
	return 1
}

// Silent reports whether err was already reported on stdout
func Silent(err error) bool {
	var exit exitError
	return errors.As(err, &exit)
}
