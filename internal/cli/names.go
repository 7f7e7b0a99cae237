package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/xpomul/workspacefs"
)

func (a *app) validateCmd() *cobra.Command {
	var nested bool
	cmd := &cobra.Command{
		Use:   "validate <parent> <name>",
		Short: "Check a new file or folder name inside parent",
		Long: `Prints "ok" for a valid name. Otherwise prints the message a name input
would show and exits with status 1.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			parent, err := a.statDir(ctx, args[0])
			if err != nil {
				return err
			}
			msg := a.shell.Validator.Validate(ctx, args[1], parent, nested)
			if msg == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "ok")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return exitError{code: 1}
		},
	}
	cmd.Flags().BoolVar(&nested, "nested", false, "Allow names with several path segments, e.g. a/b/c.txt")
	return cmd
}

func (a *app) uniqueCmd() *cobra.Command {
	var (
		ext    string
		asCopy bool
		asDir  bool
	)
	cmd := &cobra.Command{
		Use:   "unique <parent> <name>",
		Short: "Print a name that is not taken inside parent",
		Long: `Without --copy prints name, name_1, name_2, ... with --ext appended.
With --copy prints the name a duplicate of the existing entry name would get.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			parent, err := a.statDir(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			var name string
			if asCopy {
				isDir := asDir
				if child, ok := parent.Child(args[1]); ok {
					isDir = child.IsDir
				}
				name = a.shell.Validator.CopyName(parent, args[1], isDir)
			} else {
				name = a.shell.Validator.UniqueChildName(parent, args[1], ext)
			}
			fmt.Fprintln(cmd.OutOrStdout(), name)
			return nil
		},
	}
	cmd.Flags().StringVar(&ext, "ext", "", "Extension appended after the counter, e.g. .txt")
	cmd.Flags().BoolVar(&asCopy, "copy", false, "Print the name for a copy of name")
	cmd.Flags().BoolVar(&asDir, "dir", false, "With --copy, treat a missing name as a folder")
	cmd.MarkFlagsMutuallyExclusive("ext", "copy")
	return cmd
}

// statDir resolves p and requires a directory
func (a *app) statDir(ctx context.Context, p string) (*workspacefs.FileStat, error) {
	stat, err := a.shell.FS.Stat(ctx, workspacefs.Clean(p))
	if err != nil {
		return nil, err
	}
	if !stat.IsDir {
		return nil, fmt.Errorf("%s: %w", stat.Path, workspacefs.ErrNotDir)
	}
	return stat, nil
}
