package cli

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/xpomul/workspacefs/internal/util"
	"github.com/xpomul/workspacefs/workspace"
)

var ErrNotWatching = errors.New("workspace roots are not watched")

func (a *app) rootsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roots",
		Short: "List or change the workspace roots",
		Long: `Changes are written back when --workspace points at a workspace file.
A plain folder workspace only changes for the current run.`,
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "Print the workspace roots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, r := range a.shell.Workspace.Roots() {
				fmt.Fprintln(cmd.OutOrStdout(), r)
			}
			return nil
		},
	}

	add := &cobra.Command{
		Use:   "add <folder...>",
		Short: "Add folders as workspace roots",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			added, err := a.shell.Workspace.AddRoots(cmd.Context(), args...)
			for _, r := range added {
				fmt.Fprintln(cmd.OutOrStdout(), "added", r)
			}
			if err != nil {
				return err
			}
			return a.saveRoots(cmd, len(added) > 0)
		},
	}

	remove := &cobra.Command{
		Use:   "remove <folder...>",
		Short: "Remove folders from the workspace roots",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			removed := a.shell.Workspace.RemoveRoots(args...)
			for _, r := range removed {
				fmt.Fprintln(cmd.OutOrStdout(), "removed", r)
			}
			return a.saveRoots(cmd, len(removed) > 0)
		},
	}

	cmd.AddCommand(list, add, remove)
	return cmd
}

func (a *app) saveRoots(cmd *cobra.Command, changed bool) error {
	if !changed || a.shell.Workspace.WorkspaceFile() == "" {
		return nil
	}
	return a.shell.Workspace.Save(cmd.Context())
}

func (a *app) decorationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decorations [path...]",
		Short: "Print tree decorations for paths",
		Long:  "Without paths the roots and their direct children are decorated.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			paths := args
			if len(paths) == 0 {
				for _, r := range a.shell.Workspace.Roots() {
					paths = append(paths, r)
					stat, err := a.shell.FS.Stat(ctx, r)
					if err != nil {
						continue
					}
					for _, child := range stat.Children {
						paths = append(paths, child.Path)
					}
				}
			}

			decs := a.shell.Decorations.Decorations(ctx, paths)
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, p := range slices.Sorted(maps.Keys(decs)) {
				badges := make([]string, 0, len(decs[p]))
				tooltips := make([]string, 0, len(decs[p]))
				for _, d := range decs[p] {
					badges = append(badges, d.Badge)
					tooltips = append(tooltips, d.Tooltip)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", p, strings.Join(badges, ","), strings.Join(tooltips, "; "))
			}
			return tw.Flush()
		},
	}
}

func (a *app) watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print changes inside the workspace roots until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := util.GetLogger("cli.watch")
			out := cmd.OutOrStdout()

			_, ok := a.shell.OnFileChange(func(c workspace.FileChange) {
				fmt.Fprintf(out, "%s %s\n", c.Op, c.Path)
			})
			if !ok {
				return fmt.Errorf("%w: enable watch_roots and use the %q backend", ErrNotWatching, "file")
			}

			done := a.shell.Start(cmd.Context())
			logger.Info().Strs("roots", a.shell.Workspace.Roots()).Msg("Watching workspace roots")
			select {
			case err := <-done:
				return err
			case <-cmd.Context().Done():
				logger.Info().Msg("Stopped watching")
				return nil
			}
		},
	}
}
