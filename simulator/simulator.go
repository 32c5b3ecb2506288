// Package simulator runs the PTP delay request-response exchange between a
// master and a slave clock on top of the discrete event engine.
package simulator

import (
	"fmt"
	"reflect"

	"github.com/go-logr/logr"
	"github.com/sarchlab/ptpsim/clock"
	"github.com/sarchlab/ptpsim/ptp"
	"github.com/sarchlab/ptpsim/sim"
)

// A Progress is notified of every completed exchange.
type Progress interface {
	IncrementFinished(amount uint64)
}

// TickEvent asks the simulator to evaluate both clocks and all messages at a
// point in time.
type TickEvent struct {
	*sim.EventBase
}

// Simulator produces exchange records by simulating Sync and Delay_Req
// messages between two RTCs.
type Simulator struct {
	name   string
	engine sim.Engine
	logger logr.Logger

	MasterRTC *clock.RTC
	SlaveRTC  *clock.RTC
	Sync      *ptp.Message
	DelayReq  *ptp.Message

	step         sim.VTimeInSec
	numExchanges int
	progress     Progress

	exchanges     map[uint64]*ptp.DelayReqResp
	reqToExchange map[uint64]*ptp.DelayReqResp
	lastSync      *ptp.DelayReqResp
	data          ptp.Dataset
}

// Name returns the name of the simulator.
func (s *Simulator) Name() string {
	return s.name
}

// Data returns the records produced so far.
func (s *Simulator) Data() ptp.Dataset {
	return s.data
}

// Run simulates until the configured number of exchanges has completed.
func (s *Simulator) Run() error {
	err := s.engine.Run()
	if err != nil {
		return err
	}

	if len(s.data) < s.numExchanges {
		return fmt.Errorf("simulation ended after %d of %d exchanges",
			len(s.data), s.numExchanges)
	}

	return nil
}

// ScheduleTick registers a future instant at which the simulation must be
// evaluated.
func (s *Simulator) ScheduleTick(t sim.VTimeInSec) {
	s.engine.Schedule(TickEvent{EventBase: sim.NewEventBase(t, s)})
}

// Handle processes tick events.
func (s *Simulator) Handle(e sim.Event) error {
	switch e := e.(type) {
	case TickEvent:
		return s.handleTick(e.Time())
	default:
		panic("cannot handle event of type " + reflect.TypeOf(e).String())
	}
}

func (s *Simulator) handleTick(now sim.VTimeInSec) error {
	s.MasterRTC.Update(now)
	s.SlaveRTC.Update(now)

	err := s.processMessages(now)
	if err != nil {
		return err
	}

	if len(s.data) >= s.numExchanges {
		s.engine.Stop()
		return nil
	}

	if s.engine.Pending() == 0 {
		s.ScheduleTick(now + s.step)
	}

	return nil
}

func (s *Simulator) processMessages(now sim.VTimeInSec) error {
	if s.Sync.Tx(now, s.MasterRTC.Now()) {
		s.exchanges[s.Sync.SeqNum] = ptp.NewDelayReqResp(
			s.Sync.SeqNum, s.Sync.TxTimestamp, s.logger)
	}

	syncReceived := s.Sync.Rx(now, s.SlaveRTC.Now(), s.MasterRTC.Now())
	if syncReceived {
		if err := s.receiveSync(); err != nil {
			return err
		}
	}

	if s.DelayReq.Tx(now, s.SlaveRTC.Now()) {
		if err := s.sendDelayReq(); err != nil {
			return err
		}
	}

	if s.DelayReq.Rx(now, s.MasterRTC.Now(), s.SlaveRTC.Now()) {
		if err := s.receiveDelayReq(); err != nil {
			return err
		}
	}

	if syncReceived {
		return s.DelayReq.SchedTx(now)
	}

	return nil
}

func (s *Simulator) receiveSync() error {
	seq := s.Sync.SeqNum

	ex, ok := s.exchanges[seq]
	if !ok {
		return fmt.Errorf("sync %d received without transmission", seq)
	}

	if err := ex.SetT2(seq, s.Sync.RxTimestamp); err != nil {
		return err
	}

	if err := ex.SetForwardDelay(seq, s.Sync.OneWayDelay); err != nil {
		return err
	}

	ex.SetTruth(s.MasterRTC.Now(), s.SlaveRTC.Now())
	s.lastSync = ex

	return nil
}

func (s *Simulator) sendDelayReq() error {
	ex := s.lastSync
	if ex == nil {
		return fmt.Errorf("delay request %d sent before any sync",
			s.DelayReq.SeqNum)
	}

	s.reqToExchange[s.DelayReq.SeqNum] = ex

	return ex.SetT3(ex.SeqNum, s.DelayReq.TxTimestamp)
}

func (s *Simulator) receiveDelayReq() error {
	reqSeq := s.DelayReq.SeqNum

	ex, ok := s.reqToExchange[reqSeq]
	if !ok {
		return fmt.Errorf("delay request %d received without transmission",
			reqSeq)
	}
	delete(s.reqToExchange, reqSeq)

	if err := ex.SetT4(ex.SeqNum, s.DelayReq.RxTimestamp); err != nil {
		return err
	}

	if err := ex.SetBackwardDelay(ex.SeqNum, s.DelayReq.OneWayDelay); err != nil {
		return err
	}

	if len(s.data) == 0 {
		s.logger.V(1).Info(ptp.FormatHeader())
	}

	record, err := ex.Process()
	if err != nil {
		return err
	}

	s.data = append(s.data, record)
	s.dropExchangesUpTo(ex.SeqNum)

	if s.progress != nil {
		s.progress.IncrementFinished(1)
	}

	return nil
}

func (s *Simulator) dropExchangesUpTo(seq uint64) {
	for k := range s.exchanges {
		if k <= seq {
			delete(s.exchanges, k)
		}
	}
}
