package main

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"github.com/spf13/cobra"

	"jsonsmoke/internal/harness"
	"jsonsmoke/internal/jsontree"
)

const defaultOutputFile = "jsonsmoke.json"

var (
	sizeFlag   int
	seedFlag   uint64
	prettyFlag bool
	keepFlag   bool
	countFlag  int
	jobsFlag   int
	dirFlag    string
)

// generateCmd writes one random document
var generateCmd = &cobra.Command{
	Use:   "generate [file]",
	Short: "Generate a random JSON document and write it with the backend",
	Long: `Builds a random tree of --size values and writes it through the JSON
backend. Without --random-seed the seed is drawn from the OS entropy source
and printed, so the document can be reproduced later.

Example:
  jsonsmoke generate out.json --size 100000 --random-seed 42`,
	Args: cobra.MaximumNArgs(1),
	RunE: runGenerate,
}

// roundtripCmd generates, reads back and compares
var roundtripCmd = &cobra.Command{
	Use:   "roundtrip [file]",
	Short: "Generate, write, read back and verify one document",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRoundtrip,
}

// batchCmd runs many seeded roundtrips concurrently
var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run many seeded roundtrips concurrently",
	Long: `Runs --count roundtrips with seeds seed, seed+1, ... writing
<dir>/doc-000.json, <dir>/doc-001.json, ... with at most --jobs in flight.
The first failure stops the batch.`,
	Args: cobra.NoArgs,
	RunE: runBatch,
}

func init() {
	for _, cmd := range []*cobra.Command{generateCmd, roundtripCmd, batchCmd} {
		addPlanFlags(cmd)
	}
	roundtripCmd.Flags().BoolVar(&keepFlag, "keep", false, "Keep the document after verifying it")
	batchCmd.Flags().IntVar(&countFlag, "count", 0, "Number of documents (default from config)")
	batchCmd.Flags().IntVar(&jobsFlag, "jobs", 0, "Concurrent jobs (default from config)")
	batchCmd.Flags().StringVar(&dirFlag, "dir", "batch", "Output directory, relative to the output dir")
}

func addPlanFlags(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&sizeFlag, "size", "n", 0, "Number of values to generate (default from config)")
	cmd.Flags().Uint64VarP(&seedFlag, "random-seed", "r", 0, "PRNG seed (default: random)")
	cmd.Flags().BoolVar(&prettyFlag, "pretty", false, "Indent the written JSON")
}

// buildPlan merges config defaults with the flags the user actually set.
func buildPlan(cmd *cobra.Command, path string) (harness.Plan, error) {
	weights, err := jsontree.WeightsFromNames(cfg.Generator.Weights)
	if err != nil {
		return harness.Plan{}, err
	}
	opts := jsontree.Options{
		Size:      cfg.Generator.Size,
		MaxInt:    cfg.Generator.MaxInt,
		MaxFanout: cfg.Generator.MaxFanout,
		MaxDepth:  cfg.Generator.MaxDepth,
		Build:     buildStamp,
		Weights:   weights,
	}
	if flagChanged(cmd, "size") {
		opts.Size = sizeFlag
	}
	if err := opts.Validate(); err != nil {
		return harness.Plan{}, err
	}

	seed := seedFlag
	if !flagChanged(cmd, "random-seed") {
		if seed, err = randomSeed(); err != nil {
			return harness.Plan{}, err
		}
	}

	pretty := cfg.Output.Pretty
	if flagChanged(cmd, "pretty") {
		pretty = prettyFlag
	}
	return harness.Plan{
		Options: opts,
		Seed:    seed,
		Path:    path,
		Pretty:  pretty,
	}, nil
}

func flagChanged(cmd *cobra.Command, name string) bool {
	f := cmd.Flags().Lookup(name)
	return f != nil && f.Changed
}

func randomSeed() (uint64, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("failed to read random seed: %w", err)
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

func fileArg(args []string) string {
	if len(args) > 0 {
		return outputPath(args[0])
	}
	return outputPath(defaultOutputFile)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	plan, err := buildPlan(cmd, fileArg(args))
	if err != nil {
		_ = s.finish()
		return err
	}

	ctx, cancel := commandContext(cmd, true)
	defer cancel()

	res, runErr := s.runner.Generate(ctx, plan)
	fmt.Print(renderResult(res))
	if err := s.finish(); err != nil && runErr == nil {
		return err
	}
	return runErr
}

func runRoundtrip(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	plan, err := buildPlan(cmd, fileArg(args))
	if err != nil {
		_ = s.finish()
		return err
	}
	plan.Keep = flagChanged(cmd, "keep") && keepFlag

	ctx, cancel := commandContext(cmd, true)
	defer cancel()

	res, runErr := s.runner.Roundtrip(ctx, plan)
	fmt.Print(renderResult(res))
	if err := s.finish(); err != nil && runErr == nil {
		return err
	}
	return runErr
}

func runBatch(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	plan, err := buildPlan(cmd, "")
	if err != nil {
		_ = s.finish()
		return err
	}
	plan.Keep = true

	count, jobs := cfg.Batch.Count, cfg.Batch.Jobs
	if flagChanged(cmd, "count") {
		count = countFlag
	}
	if flagChanged(cmd, "jobs") {
		jobs = jobsFlag
	}
	dir := "batch"
	if flagChanged(cmd, "dir") {
		dir = dirFlag
	}
	dir = outputPath(dir)

	ctx, cancel := commandContext(cmd, true)
	defer cancel()

	results, runErr := s.runner.Batch(ctx, plan, dir, count, jobs)
	fmt.Print(renderBatch(results, s.runner.Tracker().Stats()))
	if err := s.finish(); err != nil && runErr == nil {
		return err
	}
	return runErr
}
