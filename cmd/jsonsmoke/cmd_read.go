package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"jsonsmoke/internal/harness"
	"jsonsmoke/internal/logging"
	"jsonsmoke/internal/watch"
)

var watchFlag bool

// readCmd reads a document back through the backend
var readCmd = &cobra.Command{
	Use:   "read <file>",
	Short: "Read and parse a JSON document with the backend",
	Long: `Reads the file through the JSON backend, parses it, checks the harness
header and counts the values in "data".

With --watch the file is read again every time it changes, until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: runRead,
}

func init() {
	readCmd.Flags().BoolVar(&watchFlag, "watch", false, "Re-read the file whenever it changes")
}

func runRead(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	path := outputPath(args[0])

	if flagChanged(cmd, "watch") && watchFlag {
		// Watching runs until interrupted, so --timeout does not apply.
		ctx, cancel := commandContext(cmd, false)
		defer cancel()
		runErr := watchAndRead(ctx, s.runner, path)
		if err := s.finish(); err != nil && runErr == nil {
			return err
		}
		return runErr
	}

	ctx, cancel := commandContext(cmd, true)
	defer cancel()

	res, runErr := s.runner.Read(ctx, path)
	fmt.Print(renderResult(res))
	if err := s.finish(); err != nil && runErr == nil {
		return err
	}
	return runErr
}

// watchAndRead reads path once, then again after every settled change, until
// ctx is done. Read failures are reported and watching continues.
func watchAndRead(ctx context.Context, runner *harness.Runner, path string) error {
	read := func(ctx context.Context, p string) error {
		res, err := runner.Read(ctx, p)
		fmt.Print(renderResult(res))
		return err
	}

	w, err := watch.New(path, cfg.GetWatchDebounce(), read,
		logging.For(logger, cfg.Logging, logging.CategoryWatch))
	if err != nil {
		return err
	}
	defer w.Stop()

	_ = read(ctx, w.Path())
	if err := w.Start(ctx); err != nil {
		return err
	}
	fmt.Println(defaultStyles.Muted.Render("watching " + w.Path() + " (ctrl-c to stop)"))

	<-ctx.Done()
	st := w.Stats()
	logger.Debug("watch finished",
		zap.Int("events", st.Events),
		zap.Int("reloads", st.Reloads),
		zap.Int("errors", st.Errors))
	return nil
}
