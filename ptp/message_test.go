package ptp

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/ptpsim/clock"
	"github.com/sarchlab/ptpsim/sim"
	"go.uber.org/mock/gomock"
)

var _ = Describe("Message", func() {
	var (
		mockCtrl  *gomock.Controller
		scheduler *MockTickScheduler
		delay     *MockDistribution
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		scheduler = NewMockTickScheduler(mockCtrl)
		delay = NewMockDistribution(mockCtrl)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	Context("periodic", func() {
		var sync *Message

		BeforeEach(func() {
			sync = MakeMessageBuilder().
				WithPeriod(1.0 / 16).
				WithIntervalJitter(0).
				WithPDV(delay).
				WithScheduler(scheduler).
				Build("Sync")
		})

		It("should refuse manual scheduling", func() {
			err := sync.SchedTx(1)
			Expect(err).To(MatchError(ErrPeriodicSchedule))
		})

		It("should go through its lifecycle", func() {
			Expect(sync.State()).To(Equal(StateIdle))
			Expect(sync.Tx(0, clock.TimeRegister{})).To(BeFalse())

			scheduler.EXPECT().ScheduleTick(sim.VTimeInSec(0))
			sync.Start(0)
			Expect(sync.State()).To(Equal(StateScheduled))

			t1 := clock.MakeTimeRegister(10, 500)
			delayNs := 1000.0
			delay.EXPECT().Sample().Return(delayNs)
			scheduler.EXPECT().ScheduleTick(sim.VTimeInSec(1.0 / 16))
			scheduler.EXPECT().ScheduleTick(sim.VTimeInSec(delayNs * 1e-9))

			Expect(sync.Tx(0, t1)).To(BeTrue())
			Expect(sync.State()).To(Equal(StateOnWay))
			Expect(sync.SeqNum).To(Equal(uint64(0)))
			Expect(sync.TxTimestamp).To(Equal(t1))

			By("not transmitting again while on the way")
			Expect(sync.Tx(1.0/16, t1)).To(BeFalse())

			By("not receiving before arrival")
			Expect(sync.Rx(500e-9, clock.TimeRegister{}, t1)).To(BeFalse())

			t2 := clock.MakeTimeRegister(20, 0)
			txNow := clock.MakeTimeRegister(10, 1504)
			Expect(sync.Rx(sync.NextRx, t2, txNow)).To(BeTrue())
			Expect(sync.RxTimestamp).To(Equal(t2))
			Expect(sync.OneWayDelay).To(BeNumerically("~", 1004, 1e-9))
			Expect(sync.State()).To(Equal(StateScheduled))

			By("transmitting the next message with the next sequence number")
			delay.EXPECT().Sample().Return(0.0)
			scheduler.EXPECT().ScheduleTick(gomock.Any()).Times(2)
			Expect(sync.Tx(1.0/16, t1)).To(BeTrue())
			Expect(sync.SeqNum).To(Equal(uint64(1)))
		})

		It("should clamp negative delays", func() {
			scheduler.EXPECT().ScheduleTick(gomock.Any()).AnyTimes()
			delay.EXPECT().Sample().Return(-30.0)

			sync.Start(2)
			Expect(sync.Tx(2, clock.TimeRegister{})).To(BeTrue())
			Expect(sync.PDV).To(Equal(0.0))
			Expect(sync.NextRx).To(Equal(sim.VTimeInSec(2)))
		})
	})

	Context("non-periodic", func() {
		var dreq *Message

		BeforeEach(func() {
			dreq = MakeMessageBuilder().
				WithPDV(delay).
				WithScheduler(scheduler).
				Build("Delay_Req")
		})

		It("should transmit once per schedule", func() {
			scheduler.EXPECT().ScheduleTick(sim.VTimeInSec(3))
			Expect(dreq.SchedTx(3)).To(Succeed())

			Expect(dreq.Tx(2, clock.TimeRegister{})).To(BeFalse())

			delayNs := 2000.0
			delay.EXPECT().Sample().Return(delayNs)
			scheduler.EXPECT().ScheduleTick(sim.VTimeInSec(3) + sim.VTimeInSec(delayNs*1e-9))
			Expect(dreq.Tx(3, clock.TimeRegister{})).To(BeTrue())

			Expect(dreq.Rx(dreq.NextRx, clock.TimeRegister{}, clock.TimeRegister{})).
				To(BeTrue())
			Expect(dreq.State()).To(Equal(StateIdle))
			Expect(dreq.Tx(4, clock.TimeRegister{})).To(BeFalse())
		})
	})
})
