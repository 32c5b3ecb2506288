// Package cmd provides the command-line interface of ptpsim.
package cmd

import (
	"fmt"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
	"github.com/sarchlab/ptpsim/config"
	"github.com/sarchlab/ptpsim/monitoring"
	"github.com/spf13/cobra"
)

var (
	configFile  string
	verbosity   int
	monitorPort int
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ptpsim",
	Short: "ptpsim simulates PTP exchanges and estimates clock offsets.",
	Long: `ptpsim simulates the delay request-response exchange between a ` +
		`master and a slave clock, records the exchanges, and estimates ` +
		`the frequency offset and time offset drift of the slave.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "experiment YAML file")
	flags.CountVarP(&verbosity, "verbose", "v",
		"log verbosity, repeat for more details")
	flags.IntVar(&monitorPort, "monitor-port", 0,
		"serve the monitoring API on this port")
}

// A progressTracker is notified of finished work items.
type progressTracker interface {
	IncrementFinished(amount uint64)
}

type session struct {
	cfg     *config.Config
	logger  logr.Logger
	monitor *monitoring.Monitor
}

func newLogger(v int) logr.Logger {
	return funcr.New(func(prefix, args string) {
		if prefix != "" {
			fmt.Fprintf(os.Stderr, "%s: %s\n", prefix, args)
			return
		}

		fmt.Fprintln(os.Stderr, args)
	}, funcr.Options{Verbosity: v})
}

func newSession(cmd *cobra.Command) (*session, error) {
	if err := config.LoadEnv(); err != nil {
		return nil, err
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("monitor-port") {
		cfg.Monitor.Enabled = true
		cfg.Monitor.Port = monitorPort
	}

	s := &session{
		cfg:    cfg,
		logger: newLogger(verbosity),
	}

	if cfg.Monitor.Enabled {
		s.monitor = monitoring.NewMonitor().
			WithLogger(s.logger.WithName("monitor")).
			WithPortNumber(cfg.Monitor.Port)

		if _, err := s.monitor.StartServer(); err != nil {
			return nil, fmt.Errorf("starting monitor: %w", err)
		}
	}

	return s, nil
}

// progress creates a progress bar on the monitor, if any. The returned
// function completes the bar.
func (s *session) progress(name string, total uint64) (progressTracker, func()) {
	if s.monitor == nil {
		return nil, func() {}
	}

	bar := s.monitor.CreateProgressBar(name, total)

	return bar, func() { s.monitor.CompleteProgressBar(bar) }
}

func (s *session) close() {
	if s.monitor == nil {
		return
	}

	if err := s.monitor.StopServer(); err != nil {
		s.logger.Error(err, "stopping monitor")
	}
}
