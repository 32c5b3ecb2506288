package cmd

import (
	"errors"
	"fmt"

	"github.com/sarchlab/ptpsim/cache"
	"github.com/sarchlab/ptpsim/freq"
	"github.com/spf13/cobra"
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Search the estimator parameters that best match the ground truth.",
	Long: "`optimize --window` searches the observation window, `optimize " +
		"--loop` the damping and bandwidth of the PI loop. Loop results are " +
		"cached per dataset unless --force is given.",
	RunE: runOptimize,
}

func init() {
	rootCmd.AddCommand(optimizeCmd)

	addDatasetFlags(optimizeCmd)

	flags := optimizeCmd.Flags()
	flags.Bool("window", false, "optimize the observation window")
	flags.Bool("loop", false, "optimize the PI loop")
	flags.Bool("to-y", false,
		"score windows against the true frequency offset instead of the drift")
	flags.String("loss", "", "mse or max-error")
	flags.String("criterion", "", "instantaneous or cumulative")
	flags.String("strategy", "", "two-way, one-way or one-way-reversed")
	flags.Int("delta", 0, "window of the true frequency offset")
	flags.String("cache", "", "file keeping optimal loop configurations")
	flags.String("cache-id", "", "identifier of the dataset in the cache")
	flags.Bool("force", false, "ignore cached loop configurations")
}

func (s *session) optimizerOptions(cmd *cobra.Command) (freq.LoopOptions, error) {
	flags := cmd.Flags()
	o := s.cfg.Optimizer

	opts := freq.LoopOptions{
		Loss:         o.Loss,
		Criterion:    o.Criterion,
		Force:        o.Force,
		MaxTransient: o.MaxTransient,
	}

	var err error

	if flags.Changed("loss") {
		name, _ := flags.GetString("loss")
		if opts.Loss, err = freq.ParseLoss(name); err != nil {
			return opts, err
		}
	}

	if flags.Changed("criterion") {
		name, _ := flags.GetString("criterion")
		if opts.Criterion, err = freq.ParseCriterion(name); err != nil {
			return opts, err
		}
	}

	if flags.Changed("force") {
		opts.Force, _ = flags.GetBool("force")
	}

	return opts, nil
}

func runOptimize(cmd *cobra.Command, _ []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	flags := cmd.Flags()
	window, _ := flags.GetBool("window")
	loop, _ := flags.GetBool("loop")

	if window == loop {
		return errors.New("exactly one of --window and --loop is required")
	}

	opts, err := s.optimizerOptions(cmd)
	if err != nil {
		return err
	}

	delta, strategy, err := s.estimatorConfig(cmd)
	if err != nil {
		return err
	}

	data, err := s.loadData(s.datasetFlags(cmd))
	if err != nil {
		return err
	}

	total := freq.NumLoopCandidates()
	if window {
		total = freq.NumWindowCandidates(len(data), s.cfg.Optimizer.MaxWindowSpan)
	}

	progress, done := s.progress("Optimization", uint64(total))
	defer done()

	b := freq.MakeBuilder().
		WithDelta(delta).
		WithStrategy(strategy).
		WithProgress(progress).
		WithLogger(s.logger.WithName("estimator"))

	if loop {
		if c, closeCache := s.openCache(cmd); c != nil {
			defer closeCache()

			id := s.cfg.Cache.ID
			if flags.Changed("cache-id") {
				id, _ = flags.GetString("cache-id")
			}

			b = b.WithCache(c, id)
		}
	}

	e, err := b.Build(data)
	if err != nil {
		return err
	}

	var result *freq.OptimizationResult

	switch {
	case loop:
		result, err = e.OptimizeLoop(opts)
	case mustBool(cmd, "to-y"):
		if err := e.SetTruth(delta); err != nil {
			return err
		}

		result, err = e.OptimizeToY(opts.Loss, s.cfg.Optimizer.MaxWindowSpan)
	default:
		result, err = e.OptimizeToDrift(
			opts.Loss, opts.Criterion, s.cfg.Optimizer.MaxWindowSpan)
	}

	if err != nil {
		return err
	}

	printResult(cmd, result, loop)

	return nil
}

// openCache opens the loop cache. A cache that cannot be opened is logged
// and the optimization runs without one.
func (s *session) openCache(cmd *cobra.Command) (*cache.SQLiteCache, func()) {
	path := s.cfg.Cache.Path
	if cmd.Flags().Changed("cache") {
		path, _ = cmd.Flags().GetString("cache")
	}

	c, err := cache.NewSQLiteCache(path)
	if err != nil {
		s.logger.Error(err, "opening cache, running without it", "path", path)
		return nil, nil
	}

	return c, func() {
		if err := c.Close(); err != nil {
			s.logger.Error(err, "closing cache", "path", path)
		}
	}
}

func mustBool(cmd *cobra.Command, name string) bool {
	v, _ := cmd.Flags().GetBool(name)
	return v
}

func printResult(cmd *cobra.Command, result *freq.OptimizationResult, loop bool) {
	out := cmd.OutOrStdout()
	best := result.Best

	skipped := 0
	for _, c := range result.Candidates {
		if c.Skipped {
			skipped++
		}
	}

	if loop {
		fmt.Fprintf(out, "damping:          %g\n", best.Damping)
		fmt.Fprintf(out, "loop bandwidth:   %g\n", best.LoopBW)

		if result.Cached {
			fmt.Fprintln(out, "source:           cache")
			return
		}
	} else {
		fmt.Fprintf(out, "window:           %d\n", best.Delta)
	}

	fmt.Fprintf(out, "error:            %g\n", best.Error)
	fmt.Fprintf(out, "candidates:       %d (%d skipped)\n",
		len(result.Candidates), skipped)
	fmt.Fprintf(out, "samples:          %d\n", result.NumSamples)
}
