package ptp

import (
	"errors"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/sarchlab/ptpsim/clock"
	"github.com/sarchlab/ptpsim/pdv"
	"github.com/sarchlab/ptpsim/sim"
	"gonum.org/v1/gonum/stat/distuv"
)

// ErrPeriodicSchedule is returned when a periodic message is scheduled
// manually.
var ErrPeriodicSchedule = errors.New("only non-periodic messages can be scheduled")

// A TickScheduler registers future instants at which the simulation must be
// evaluated.
type TickScheduler interface {
	ScheduleTick(t sim.VTimeInSec)
}

// State is the lifecycle state of a message.
type State int

// Message states.
const (
	StateIdle State = iota
	StateScheduled
	StateOnWay
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateScheduled:
		return "Scheduled"
	case StateOnWay:
		return "OnWay"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// A Message controls the transmission and reception of a PTP event message.
// Periodic messages reschedule themselves after each transmission, other
// messages must be scheduled with SchedTx.
type Message struct {
	Name   string
	Period sim.VTimeInSec

	OnWay     bool
	NextTx    sim.VTimeInSec
	txPending bool
	NextRx    sim.VTimeInSec

	SeqNum      uint64
	sent        bool
	TxTimestamp clock.TimeRegister
	RxTimestamp clock.TimeRegister

	// OneWayDelay is the true delay of the last reception in nanoseconds.
	OneWayDelay float64

	// PDV is the delay drawn for the last transmission in nanoseconds.
	PDV float64

	delay     pdv.Distribution
	jitter    distuv.Normal
	scheduler TickScheduler
	logger    logr.Logger
}

// IsPeriodic tells if the message reschedules itself.
func (m *Message) IsPeriodic() bool {
	return m.Period > 0
}

// State returns the current lifecycle state.
func (m *Message) State() State {
	switch {
	case m.OnWay:
		return StateOnWay
	case m.txPending:
		return StateScheduled
	default:
		return StateIdle
	}
}

// Start schedules the first transmission of a periodic message.
func (m *Message) Start(t sim.VTimeInSec) {
	m.setNextTx(t)
}

// SchedTx schedules a transmission of a non-periodic message.
func (m *Message) SchedTx(t sim.VTimeInSec) error {
	if m.IsPeriodic() {
		return fmt.Errorf("%s: %w", m.Name, ErrPeriodicSchedule)
	}

	m.setNextTx(t)

	m.logger.V(3).Info("schedule tx", "msg", m.Name, "timeNs", t.Nanoseconds())

	return nil
}

func (m *Message) setNextTx(t sim.VTimeInSec) {
	m.NextTx = t
	m.txPending = true
	m.scheduler.ScheduleTick(t)
}

// Tx transmits the message if its transmission is due and no previous
// transmission is still on the way. The RTC snapshot of the transmitter
// becomes the departure timestamp. Returns true when transmitted.
func (m *Message) Tx(simTime sim.VTimeInSec, rtcTimestamp clock.TimeRegister) bool {
	if !m.txPending || simTime < m.NextTx || m.OnWay {
		return false
	}

	m.OnWay = true
	m.TxTimestamp = rtcTimestamp

	if m.sent {
		m.SeqNum++
	}
	m.sent = true

	if m.IsPeriodic() {
		next := simTime + m.Period + sim.VTimeInSec(m.jitter.Rand()*1e-9)
		if next < simTime {
			next = simTime
		}

		m.setNextTx(next)
	} else {
		m.txPending = false
	}

	m.PDV = m.delay.Sample()
	if m.PDV < 0 {
		m.PDV = 0
	}

	m.NextRx = simTime + sim.VTimeInSec(m.PDV*1e-9)
	m.scheduler.ScheduleTick(m.NextRx)

	m.logger.V(3).Info("tx",
		"msg", m.Name,
		"seq", m.SeqNum,
		"simTime", float64(simTime),
		"delayNs", m.PDV)

	return true
}

// Rx receives the message if it is on the way and its arrival is due. The
// receiver's RTC snapshot becomes the arrival timestamp. The true one-way
// delay is measured with the transmitter's RTC snapshot at the same instant.
// Returns true when received.
func (m *Message) Rx(
	simTime sim.VTimeInSec,
	rxRTCTimestamp clock.TimeRegister,
	txRTCTimestamp clock.TimeRegister,
) bool {
	if !m.OnWay || simTime < m.NextRx {
		return false
	}

	m.OnWay = false
	m.RxTimestamp = rxRTCTimestamp
	m.OneWayDelay = txRTCTimestamp.Sub(m.TxTimestamp)

	m.logger.V(3).Info("rx",
		"msg", m.Name,
		"seq", m.SeqNum,
		"simTime", float64(simTime),
		"oneWayDelayNs", m.OneWayDelay)

	return true
}
