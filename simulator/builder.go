package simulator

import (
	"math/rand/v2"

	"github.com/go-logr/logr"
	"github.com/sarchlab/ptpsim/clock"
	"github.com/sarchlab/ptpsim/pdv"
	"github.com/sarchlab/ptpsim/ptp"
	"github.com/sarchlab/ptpsim/sim"
)

// Builder can build simulators.
type Builder struct {
	engine         sim.Engine
	syncPeriod     sim.VTimeInSec
	rtcFreq        sim.Freq
	freqOffsetPPB  float64
	pdvConfig      pdv.Config
	intervalJitter float64
	seed           uint64
	step           sim.VTimeInSec
	numExchanges   int
	progress       Progress
	logger         logr.Logger
}

// MakeBuilder creates a builder with 16 Sync messages per second, 125 MHz
// RTCs and Gamma distributed delays.
func MakeBuilder() Builder {
	return Builder{
		syncPeriod:     1.0 / 16,
		rtcFreq:        125 * sim.MHz,
		pdvConfig:      pdv.DefaultConfig(),
		intervalJitter: ptp.DefaultIntervalJitterNs,
		step:           1e-9,
		numExchanges:   10,
		logger:         logr.Discard(),
	}
}

// WithEngine sets the engine to use. A serial engine is created otherwise.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithSyncPeriod sets the Sync transmission period.
func (b Builder) WithSyncPeriod(period sim.VTimeInSec) Builder {
	b.syncPeriod = period
	return b
}

// WithRTCFreq sets the driving clock frequency of both RTCs.
func (b Builder) WithRTCFreq(freq sim.Freq) Builder {
	b.rtcFreq = freq
	return b
}

// WithFreqOffsetPPB sets the frequency offset of the slave RTC.
func (b Builder) WithFreqOffsetPPB(ppb float64) Builder {
	b.freqOffsetPPB = ppb
	return b
}

// WithPDV sets the delay distribution of both directions.
func (b Builder) WithPDV(cfg pdv.Config) Builder {
	b.pdvConfig = cfg
	return b
}

// WithIntervalJitter sets the standard deviation of the Sync interval in
// nanoseconds.
func (b Builder) WithIntervalJitter(stdNs float64) Builder {
	b.intervalJitter = stdNs
	return b
}

// WithSeed sets the seed of all random draws.
func (b Builder) WithSeed(seed uint64) Builder {
	b.seed = seed
	return b
}

// WithStep sets how far time advances when no event is pending.
func (b Builder) WithStep(step sim.VTimeInSec) Builder {
	b.step = step
	return b
}

// WithNumExchanges sets the number of exchanges to complete.
func (b Builder) WithNumExchanges(n int) Builder {
	b.numExchanges = n
	return b
}

// WithProgress sets a tracker notified of every completed exchange.
func (b Builder) WithProgress(p Progress) Builder {
	b.progress = p
	return b
}

// WithLogger sets the logger.
func (b Builder) WithLogger(logger logr.Logger) Builder {
	b.logger = logger
	return b
}

// Build creates a new simulator and schedules its first Sync transmission.
func (b Builder) Build(name string) (*Simulator, error) {
	rng := rand.New(rand.NewPCG(b.seed, 0))

	engine := b.engine
	if engine == nil {
		engine = sim.NewSerialEngine()
	}
	engine.AcceptHook(sim.NewEventLogger(b.logger.WithName("engine"), 4))

	s := &Simulator{
		name:          name,
		engine:        engine,
		logger:        b.logger,
		step:          b.step,
		numExchanges:  b.numExchanges,
		progress:      b.progress,
		exchanges:     make(map[uint64]*ptp.DelayReqResp),
		reqToExchange: make(map[uint64]*ptp.DelayReqResp),
	}

	rtcBuilder := clock.MakeBuilder().
		WithFreq(b.rtcFreq).
		WithRand(rng).
		WithLogger(b.logger)
	s.MasterRTC = rtcBuilder.Build("Master")
	s.SlaveRTC = rtcBuilder.WithFreqOffsetPPB(b.freqOffsetPPB).Build("Slave")

	forward, err := b.pdvConfig.Build(pdv.MasterToSlave, rng)
	if err != nil {
		return nil, err
	}

	backward, err := b.pdvConfig.Build(pdv.SlaveToMaster, rng)
	if err != nil {
		return nil, err
	}

	msgBuilder := ptp.MakeMessageBuilder().
		WithScheduler(s).
		WithRandSource(rng).
		WithIntervalJitter(b.intervalJitter).
		WithLogger(b.logger)
	s.Sync = msgBuilder.
		WithPeriod(b.syncPeriod).
		WithPDV(forward).
		Build("Sync")
	s.DelayReq = msgBuilder.
		WithPDV(backward).
		Build("Delay_Req")

	s.Sync.Start(engine.CurrentTime())

	return s, nil
}
