package cmd

import (
	"fmt"

	"github.com/sarchlab/ptpsim/config"
	"github.com/sarchlab/ptpsim/datarecording"
	"github.com/sarchlab/ptpsim/ptp"
	"github.com/sarchlab/ptpsim/sim"
	"github.com/sarchlab/ptpsim/simulator"
)

func (s *session) buildSimulator(c config.SimulationConfig) (*simulator.Simulator, func(), error) {
	engine := sim.NewSerialEngine()
	progress, done := s.progress("Simulation", uint64(c.NumExchanges))

	sm, err := simulator.MakeBuilder().
		WithEngine(engine).
		WithSyncPeriod(sim.VTimeInSec(1 / c.SyncRate)).
		WithRTCFreq(sim.Freq(c.RTCFreqMHz) * sim.MHz).
		WithFreqOffsetPPB(c.FreqOffsetPPB).
		WithPDV(c.PDV).
		WithIntervalJitter(c.IntervalJitterNs).
		WithSeed(c.Seed).
		WithNumExchanges(c.NumExchanges).
		WithProgress(progress).
		WithLogger(s.logger.WithName("simulator")).
		Build("Simulator")
	if err != nil {
		done()
		return nil, nil, err
	}

	if s.monitor != nil {
		s.monitor.RegisterEngine(engine)
		s.monitor.RegisterComponent(sm)
		s.monitor.RegisterComponent(sm.MasterRTC)
		s.monitor.RegisterComponent(sm.SlaveRTC)
	}

	return sm, done, nil
}

// openSource returns the recorded dataset in db, or a simulation of the
// configured experiment if db is empty.
func (s *session) openSource(db, table string) (ptp.Source, func(), error) {
	if db == "" {
		return s.buildSimulator(s.cfg.Simulation)
	}

	reader, err := datarecording.NewReader(db)
	if err != nil {
		return nil, nil, fmt.Errorf("opening dataset: %w", err)
	}

	closeReader := func() {
		if err := reader.Close(); err != nil {
			s.logger.Error(err, "closing dataset", "db", db)
		}
	}

	return datarecording.NewDatasetSource(reader, table), closeReader, nil
}

func (s *session) loadData(db, table string) (ptp.Dataset, error) {
	source, done, err := s.openSource(db, table)
	if err != nil {
		return nil, err
	}
	defer done()

	if err := source.Run(); err != nil {
		return nil, err
	}

	s.logger.Info("dataset ready", "records", len(source.Data()))

	return source.Data(), nil
}

func (s *session) record(data ptp.Dataset, output, table string) error {
	rec, err := datarecording.New(output, s.logger.WithName("recorder"))
	if err != nil {
		return err
	}

	if err := datarecording.RecordDataset(rec, table, data); err != nil {
		rec.Close()
		return err
	}

	return rec.Close()
}
