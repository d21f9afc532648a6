package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"jsonsmoke/internal/history"
)

var (
	limitFlag int
	rawFlag   bool
)

// historyCmd lists recorded runs
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent runs",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one recorded run with its phase timings",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyReportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarize recent runs as Markdown",
	Long: `Builds a Markdown report of recent runs with per-phase means by backend.
The report is rendered for the terminal unless --raw is given, which prints
the Markdown source (for pasting into issues or CI summaries).`,
	Args: cobra.NoArgs,
	RunE: runHistoryReport,
}

func init() {
	historyCmd.PersistentFlags().IntVar(&limitFlag, "limit", 20, "Maximum number of runs to include (0 for all)")
	historyReportCmd.Flags().BoolVar(&rawFlag, "raw", false, "Print Markdown source instead of rendering it")
	historyCmd.AddCommand(historyShowCmd, historyReportCmd)
}

func runLimit(cmd *cobra.Command) int {
	if flagChanged(cmd, "limit") {
		return limitFlag
	}
	return 20
}

func runHistory(cmd *cobra.Command, args []string) error {
	if err := loadSettings(); err != nil {
		return err
	}
	if !cfg.History.Enabled {
		fmt.Println("History is disabled. Set history.enabled in the config to record runs.")
		return nil
	}

	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.List(context.Background(), runLimit(cmd))
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded yet.")
		return nil
	}
	fmt.Print(renderHistory(runs))
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	if err := loadSettings(); err != nil {
		return err
	}
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	run, err := store.Get(context.Background(), args[0])
	if errors.Is(err, history.ErrNotFound) {
		return fmt.Errorf("no run with id %q", args[0])
	}
	if err != nil {
		return err
	}
	fmt.Print(renderRun(run))
	return nil
}

func runHistoryReport(cmd *cobra.Command, args []string) error {
	if err := loadSettings(); err != nil {
		return err
	}
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.List(context.Background(), runLimit(cmd))
	if err != nil {
		return err
	}
	md := markdownReport(runs)
	if flagChanged(cmd, "raw") && rawFlag {
		fmt.Print(md)
		return nil
	}
	out, err := renderMarkdown(md, "")
	if err != nil {
		return err
	}
	fmt.Print(out)
	return nil
}
