package cmd

import (
	"fmt"
	"math"

	"github.com/sarchlab/ptpsim/freq"
	"github.com/sarchlab/ptpsim/ptp"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat"
)

var estimateCmd = &cobra.Command{
	Use:   "estimate",
	Short: "Estimate the frequency offset of the slave clock.",
	Long: "`estimate --db out.sqlite3 --table exchange --delta 64` estimates " +
		"the frequency offset over windows of 64 exchanges. Without --db, " +
		"the configured experiment is simulated first.",
	RunE: runEstimate,
}

func init() {
	rootCmd.AddCommand(estimateCmd)

	addDatasetFlags(estimateCmd)

	flags := estimateCmd.Flags()
	flags.Int("delta", 0, "observation window in exchanges")
	flags.String("strategy", "", "two-way, one-way or one-way-reversed")
}

func addDatasetFlags(cmd *cobra.Command) {
	cmd.Flags().String("db", "", "recorded dataset to load")
	cmd.Flags().String("table", "", "table holding the dataset")
}

func (s *session) datasetFlags(cmd *cobra.Command) (db, table string) {
	db, _ = cmd.Flags().GetString("db")

	table = s.cfg.Recording.Table
	if cmd.Flags().Changed("table") {
		table, _ = cmd.Flags().GetString("table")
	}

	return db, table
}

func (s *session) estimatorConfig(cmd *cobra.Command) (int, freq.Strategy, error) {
	delta := s.cfg.Estimator.Delta
	if cmd.Flags().Changed("delta") {
		delta, _ = cmd.Flags().GetInt("delta")
	}

	strategy := s.cfg.Estimator.Strategy
	if cmd.Flags().Changed("strategy") {
		name, _ := cmd.Flags().GetString("strategy")

		var err error

		strategy, err = freq.ParseStrategy(name)
		if err != nil {
			return 0, 0, err
		}
	}

	return delta, strategy, nil
}

func runEstimate(cmd *cobra.Command, _ []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	delta, strategy, err := s.estimatorConfig(cmd)
	if err != nil {
		return err
	}

	data, err := s.loadData(s.datasetFlags(cmd))
	if err != nil {
		return err
	}

	e, err := freq.MakeBuilder().
		WithDelta(delta).
		WithStrategy(strategy).
		WithLogger(s.logger.WithName("estimator")).
		Build(data)
	if err != nil {
		return err
	}

	if err := e.Process(); err != nil {
		return err
	}

	e.EstimateDrift()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "window:           %d (%s)\n", delta, strategy)

	ys := collect(data, func(r *ptp.Record) ptp.Field { return r.YEst })
	if len(ys) == 0 {
		return fmt.Errorf("%w: window of %d over %d records",
			freq.ErrNotEnoughSamples, delta, len(data))
	}

	mean, std := stat.MeanStdDev(ys, nil)
	fmt.Fprintf(out, "frequency offset: %.3f ppb (std %.3f ppb)\n",
		1e9*mean, 1e9*std)

	if err := e.SetTruth(delta); err != nil {
		s.logger.V(1).Info("no ground truth", "reason", err.Error())
		return nil
	}

	errs := make([]float64, 0, len(data))
	for _, r := range data {
		y, hasY := r.YEst.Get()
		truth, hasTruth := r.RTCY.Get()

		if hasY && hasTruth {
			errs = append(errs, 1e9*math.Abs(y-truth))
		}
	}

	fmt.Fprintf(out, "mean |y error|:   %.3f ppb\n", stat.Mean(errs, nil))

	return nil
}

func collect(data ptp.Dataset, field func(*ptp.Record) ptp.Field) []float64 {
	values := make([]float64, 0, len(data))

	for _, r := range data {
		if v, ok := field(r).Get(); ok {
			values = append(values, v)
		}
	}

	return values
}
