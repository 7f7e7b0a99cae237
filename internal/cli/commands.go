package cli

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/xpomul/workspacefs/commands"
	"github.com/xpomul/workspacefs/internal/util"
	"github.com/xpomul/workspacefs/requests"
)

func (a *app) commandsCmd() *cobra.Command {
	var selection []string
	cmd := &cobra.Command{
		Use:   "commands",
		Short: "List registered commands and whether they apply to a selection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			args := commands.Args{Selection: selection}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTITLE\tENABLED\tVISIBLE")
			for _, c := range a.shell.Commands.Commands() {
				fmt.Fprintf(tw, "%s\t%s\t%t\t%t\n", c.ID, c.Title(),
					a.shell.Commands.IsEnabled(c.ID, args), a.shell.Commands.IsVisible(c.ID, args))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringSliceVarP(&selection, "selection", "s", nil, "Selected paths (repeat or comma separate)")
	return cmd
}

func (a *app) menusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "menus",
		Short: "Print the menu tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			last := ""
			a.shell.Menus.Walk(func(path commands.MenuPath, action commands.MenuAction) bool {
				if key := path.String(); key != last {
					fmt.Fprintln(out, key)
					last = key
				}
				label := action.Label
				if c, ok := a.shell.Commands.Get(action.CommandID); ok && label == "" {
					label = c.Label
				}
				fmt.Fprintf(out, "  %s  %s (%s)\n", action.Order, label, action.CommandID)
				return true
			})
			return nil
		},
	}
}

func (a *app) execCmd() *cobra.Command {
	var params map[string]string
	cmd := &cobra.Command{
		Use:   "exec <command-id> [selection...]",
		Short: "Run one command on a selection",
		Long: `Runs a registered command. Dialogs are answered on the terminal unless
the matching --param is given, e.g. --param name=main.go for file.newFile.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inv := commands.Invocation{
				ID:      uuid.New(),
				Command: args[0],
				Args:    commands.Args{Selection: args[1:], Params: params},
			}
			if err := a.shell.Run(cmd.Context(), inv); err != nil {
				return err
			}
			logger := util.GetLogger("cli.exec")
			logger.Info().Str("invocation", inv.ID.String()).Str("command", inv.Command).Msg("Command done")
			return nil
		},
	}
	cmd.Flags().StringToStringVarP(&params, "param", "p", nil, "Command parameter as key=value")
	return cmd
}

func (a *app) runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <script.json>",
		Short: "Run a JSON batch of command invocations in order",
		Long: `The script is a JSON array of invocations or an object with an
"invocations" array. Each invocation has "command" and optional "id",
"selection" and "params". Use "-" to read the script from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				data []byte
				err  error
			)
			if args[0] == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return err
			}

			invs, err := requests.UnmarshalScript(data)
			if err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}
			if err := a.shell.RunAll(cmd.Context(), invs); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ran %d invocations\n", len(invs))
			return nil
		},
	}
}
