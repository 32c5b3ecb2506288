package cmd

import (
	"fmt"

	"github.com/sarchlab/ptpsim/ptp"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Simulate PTP exchanges between a master and a slave clock.",
	Long: "`simulate -n 2000 --seed 1 --record out` simulates 2000 exchanges " +
		"and records them into out.sqlite3.",
	RunE: runSimulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)

	flags := simulateCmd.Flags()
	flags.IntP("num-exchanges", "n", 0, "number of exchanges to simulate")
	flags.Uint64("seed", 0, "seed of all random draws")
	flags.Float64("ppb", 0, "frequency offset of the slave clock in ppb")
	flags.String("record", "", "record the dataset into this file")
	flags.String("table", "", "table to record the dataset into")
}

func runSimulate(cmd *cobra.Command, _ []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	flags := cmd.Flags()
	c := s.cfg.Simulation

	if flags.Changed("num-exchanges") {
		c.NumExchanges, _ = flags.GetInt("num-exchanges")
	}

	if flags.Changed("seed") {
		c.Seed, _ = flags.GetUint64("seed")
	}

	if flags.Changed("ppb") {
		c.FreqOffsetPPB, _ = flags.GetFloat64("ppb")
	}

	if c.NumExchanges <= 0 {
		return fmt.Errorf("number of exchanges must be positive, got %d",
			c.NumExchanges)
	}

	sm, done, err := s.buildSimulator(c)
	if err != nil {
		return err
	}
	defer done()

	if err := sm.Run(); err != nil {
		return err
	}

	printSummary(cmd, sm.Data())

	output := s.cfg.Recording.Output
	if flags.Changed("record") {
		output, _ = flags.GetString("record")
	}

	table := s.cfg.Recording.Table
	if flags.Changed("table") {
		table, _ = flags.GetString("table")
	}

	if output == "" && !flags.Changed("record") {
		return nil
	}

	return s.record(sm.Data(), output, table)
}

func printSummary(cmd *cobra.Command, data ptp.Dataset) {
	delays := make([]float64, 0, len(data))
	errs := make([]float64, 0, len(data))

	for _, r := range data {
		delays = append(delays, r.DEst)

		if e, ok := r.XEstErr.Get(); ok {
			errs = append(errs, e)
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "exchanges:        %d\n", len(data))

	mean, std := stat.MeanStdDev(delays, nil)
	fmt.Fprintf(out, "delay estimate:   %.1f ns (std %.1f ns)\n", mean, std)

	if len(errs) > 0 {
		mean, std = stat.MeanStdDev(errs, nil)
		fmt.Fprintf(out, "x_est error:      %.1f ns (std %.1f ns)\n", mean, std)
	}
}
