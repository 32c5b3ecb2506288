package ptp

import (
	"math/rand/v2"

	"github.com/go-logr/logr"
	"github.com/sarchlab/ptpsim/pdv"
	"github.com/sarchlab/ptpsim/sim"
	"gonum.org/v1/gonum/stat/distuv"
)

// DefaultIntervalJitterNs is the standard deviation of the interval between
// consecutive transmissions of a periodic message.
const DefaultIntervalJitterNs = 1500

// MessageBuilder can build messages.
type MessageBuilder struct {
	period    sim.VTimeInSec
	jitterNs  float64
	src       rand.Source
	delay     pdv.Distribution
	scheduler TickScheduler
	logger    logr.Logger
}

// MakeMessageBuilder creates a builder for a non-periodic message with no
// delay.
func MakeMessageBuilder() MessageBuilder {
	return MessageBuilder{
		jitterNs: DefaultIntervalJitterNs,
		delay:    pdv.Zero,
		logger:   logr.Discard(),
	}
}

// WithPeriod makes the message periodic.
func (b MessageBuilder) WithPeriod(period sim.VTimeInSec) MessageBuilder {
	b.period = period
	return b
}

// WithIntervalJitter sets the standard deviation of the transmission interval
// of a periodic message.
func (b MessageBuilder) WithIntervalJitter(stdNs float64) MessageBuilder {
	b.jitterNs = stdNs
	return b
}

// WithRandSource sets the random source of the interval jitter.
func (b MessageBuilder) WithRandSource(src rand.Source) MessageBuilder {
	b.src = src
	return b
}

// WithPDV sets the delay distribution.
func (b MessageBuilder) WithPDV(d pdv.Distribution) MessageBuilder {
	b.delay = d
	return b
}

// WithScheduler sets where future tx and rx instants are registered.
func (b MessageBuilder) WithScheduler(s TickScheduler) MessageBuilder {
	b.scheduler = s
	return b
}

// WithLogger sets the logger.
func (b MessageBuilder) WithLogger(logger logr.Logger) MessageBuilder {
	b.logger = logger
	return b
}

// Build creates a new message.
func (b MessageBuilder) Build(name string) *Message {
	if b.scheduler == nil {
		panic("message " + name + " requires a scheduler")
	}

	src := b.src
	if src == nil {
		src = rand.NewPCG(0, 0)
	}

	return &Message{
		Name:      name,
		Period:    b.period,
		delay:     b.delay,
		jitter:    distuv.Normal{Mu: 0, Sigma: b.jitterNs, Src: src},
		scheduler: b.scheduler,
		logger:    b.logger,
	}
}
