package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/ugparu/vkvideo/layer"
	"github.com/ugparu/vkvideo/profile"
	"github.com/ugparu/vkvideo/scenario"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	diagStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	detailStyle = lipgloss.NewStyle().Faint(true).PaddingLeft(4)
)

func newReplayCmd(a *app) *cobra.Command {
	var quiet bool
	cmd := &cobra.Command{
		Use:   "replay <scenario.json>...",
		Short: "Run scenario files and report the diagnostics of every step",
		Long: `Run each scenario file against a fresh device and print one line per step. Steps with
expectations that do not match, and calls that fail outright, make the command exit non-zero.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := 0
			for _, path := range args {
				sc, err := scenario.Load(path)
				if err != nil {
					return err
				}
				dev := layer.New(profile.DefaultProvider(), a.settings.Sink(a.settings.Collector()))
				results, err := scenario.NewRunner(dev).Run(sc)
				printResults(cmd.OutOrStdout(), sc.Name, results, quiet)
				if err != nil {
					return err
				}
				if scenario.Failed(results) {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d scenarios failed", failed, len(args))
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "only print steps that reported something")
	return cmd
}

func printResults(w io.Writer, name string, results []scenario.Result, quiet bool) {
	fmt.Fprintln(w, titleStyle.Render(name))
	for i := range results {
		r := &results[i]
		switch {
		case r.Err != nil || r.Mismatch:
			fmt.Fprintln(w, failStyle.Render(r.String()))
		case len(r.Diagnostics) > 0:
			fmt.Fprintln(w, diagStyle.Render(r.String()))
		case !quiet:
			fmt.Fprintln(w, okStyle.Render(r.String()))
		}
		for _, d := range r.Diagnostics {
			fmt.Fprintln(w, detailStyle.Render(d.Error()))
		}
	}
}
