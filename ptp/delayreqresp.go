package ptp

import (
	"errors"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/sarchlab/ptpsim/clock"
)

var (
	// ErrSeqMismatch is returned when a timestamp belongs to another exchange.
	ErrSeqMismatch = errors.New("sequence number mismatch")

	// ErrIncomplete is returned when processing an exchange that misses
	// timestamps.
	ErrIncomplete = errors.New("exchange is incomplete")
)

// DelayReqResp collects the four timestamps of a delay request-response
// exchange and reduces them into delay and time offset estimates.
type DelayReqResp struct {
	SeqNum uint64

	T1 clock.TimeRegister
	T2 clock.TimeRegister
	T3 clock.TimeRegister
	T4 clock.TimeRegister

	hasT2, hasT3, hasT4 bool

	forwardDelay  Field
	backwardDelay Field
	trueOffset    Field

	logger logr.Logger
}

// NewDelayReqResp starts an exchange from the Sync departure timestamp.
func NewDelayReqResp(
	seqNum uint64,
	t1 clock.TimeRegister,
	logger logr.Logger,
) *DelayReqResp {
	return &DelayReqResp{
		SeqNum: seqNum,
		T1:     t1,
		logger: logger,
	}
}

func (d *DelayReqResp) checkSeq(seqNum uint64) error {
	if seqNum != d.SeqNum {
		return fmt.Errorf("%w: exchange %d, got %d",
			ErrSeqMismatch, d.SeqNum, seqNum)
	}

	return nil
}

// SetT2 sets the Sync arrival timestamp.
func (d *DelayReqResp) SetT2(seqNum uint64, t2 clock.TimeRegister) error {
	if err := d.checkSeq(seqNum); err != nil {
		return err
	}

	d.T2 = t2
	d.hasT2 = true

	return nil
}

// SetT3 sets the Delay_Req departure timestamp.
func (d *DelayReqResp) SetT3(seqNum uint64, t3 clock.TimeRegister) error {
	if err := d.checkSeq(seqNum); err != nil {
		return err
	}

	d.T3 = t3
	d.hasT3 = true

	return nil
}

// SetT4 sets the Delay_Req arrival timestamp.
func (d *DelayReqResp) SetT4(seqNum uint64, t4 clock.TimeRegister) error {
	if err := d.checkSeq(seqNum); err != nil {
		return err
	}

	d.T4 = t4
	d.hasT4 = true

	return nil
}

// SetForwardDelay saves the true master-to-slave delay.
func (d *DelayReqResp) SetForwardDelay(seqNum uint64, delayNs float64) error {
	if err := d.checkSeq(seqNum); err != nil {
		return err
	}

	d.forwardDelay = Some(delayNs)

	return nil
}

// SetBackwardDelay saves the true slave-to-master delay.
func (d *DelayReqResp) SetBackwardDelay(seqNum uint64, delayNs float64) error {
	if err := d.checkSeq(seqNum); err != nil {
		return err
	}

	d.backwardDelay = Some(delayNs)

	return nil
}

// SetTruth saves the true time offset of the slave from snapshots of both
// RTCs taken at the same instant.
func (d *DelayReqResp) SetTruth(master, slave clock.TimeRegister) {
	d.trueOffset = Some(slave.Sub(master))
}

// Complete tells if all four timestamps are available.
func (d *DelayReqResp) Complete() bool {
	return d.hasT2 && d.hasT3 && d.hasT4
}

// DelayEstimate returns the two-way one-way delay estimate in nanoseconds.
func (d *DelayReqResp) DelayEstimate() float64 {
	return (d.T4.Sub(d.T1) - d.T3.Sub(d.T2)) / 2
}

// TimeOffsetEstimate returns the slave time offset estimate in nanoseconds.
func (d *DelayReqResp) TimeOffsetEstimate() float64 {
	return (d.T2.Sub(d.T1) - d.T4.Sub(d.T3)) / 2
}

// Process wraps up the exchange into a record.
func (d *DelayReqResp) Process() (*Record, error) {
	if !d.Complete() {
		return nil, fmt.Errorf("exchange %d: %w", d.SeqNum, ErrIncomplete)
	}

	delayEst := d.DelayEstimate()
	offsetEst := d.TimeOffsetEstimate()

	r := &Record{
		Idx:  d.SeqNum,
		T1:   d.T1.Nanoseconds(),
		T2:   d.T2.Nanoseconds(),
		T3:   d.T3.Nanoseconds(),
		T4:   d.T4.Nanoseconds(),
		D:    d.forwardDelay.Value,
		DEst: delayEst,
		XEst: offsetEst,
	}

	if d.forwardDelay.Set && d.backwardDelay.Set {
		r.Asym = Some((d.forwardDelay.Value - d.backwardDelay.Value) / 2)
	}

	if x, ok := d.trueOffset.Get(); ok {
		r.X = Some(x)
		r.XEstErr = Some(offsetEst - x)

		d.logger.V(2).Info("time offset",
			"seq", d.SeqNum,
			"x", x,
			"xEst", offsetEst,
			"err", r.XEstErr.Value)
	}

	d.logger.V(1).Info(FormatLine(d, delayEst, offsetEst))

	return r, nil
}

// FormatHeader returns the header of the exchange table.
func FormatHeader() string {
	return fmt.Sprintf("%4s %23s %23s %23s %23s %9s %9s",
		"idx", "t1", "t2", "t3", "t4", "delay_est", "x_est")
}

// FormatLine returns one row of the exchange table.
func FormatLine(d *DelayReqResp, delayEst, offsetEst float64) string {
	return fmt.Sprintf("%4d %23s %23s %23s %23s %9.1f %9.1f",
		d.SeqNum, d.T1, d.T2, d.T3, d.T4, delayEst, offsetEst)
}
