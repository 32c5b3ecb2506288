package freq

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/ptpsim/ptp"
)

func offsetDataset(xEst func(i int) float64, n int) ptp.Dataset {
	data := make(ptp.Dataset, n)

	for i := range data {
		data[i] = &ptp.Record{
			T1:   62_500_000 * float64(i),
			XEst: xEst(i),
		}
	}

	return data
}

var _ = Describe("Loop", func() {
	It("should compute gains", func() {
		kp, ki := LoopGains(1, 0.1)

		theta := 0.1 / 1.25
		d := 1 + 2*theta + theta*theta
		Expect(kp).To(BeNumerically("~", 4*theta/d, 1e-15))
		Expect(ki).To(BeNumerically("~", 4*theta*theta/d, 1e-15))
	})

	It("should compute the settling time", func() {
		Expect(SettlingSamples(1, 0.1)).To(Equal(40))
		Expect(SettlingSamples(0.5, 0.9)).To(Equal(9))
	})

	It("should hold a constant time offset", func() {
		data := offsetDataset(func(int) float64 { return 1234.5 }, 1000)
		e, _ := MakeBuilder().Build(data)

		params := DefaultLoopParams()
		params.LoopBW = 0.1
		Expect(e.Loop(params)).To(Succeed())

		for i, r := range data {
			if i < 200 {
				Expect(r.Drift.Set).To(BeFalse())
				Expect(r.XLoop.Set).To(BeFalse())

				continue
			}

			Expect(r.Drift).To(Equal(ptp.Some(0)))
			Expect(r.XLoop).To(Equal(ptp.Some(1234.5)))
		}
	})

	It("should track a drifting time offset", func() {
		data := offsetDataset(func(i int) float64 { return 500 + 25*float64(i) }, 2000)
		e, _ := MakeBuilder().Build(data)

		Expect(e.Loop(LoopParams{
			Damping:  1,
			LoopBW:   0.1,
			Settling: SettlingAnalytic,
		})).To(Succeed())

		Expect(data[39].Drift.Set).To(BeFalse())
		Expect(data[40].Drift.Set).To(BeTrue())

		last := data[len(data)-1]
		Expect(last.Drift.Value).To(BeNumerically("~", 25, 1e-6))
		Expect(last.XLoop.Value).To(BeNumerically("~", last.XEst, 1e-6))
	})

	It("should reject loops that settle too slowly", func() {
		data := offsetDataset(func(int) float64 { return 0 }, 100)
		e, _ := MakeBuilder().Build(data)

		err := e.Loop(LoopParams{Damping: 1, LoopBW: 0.05, Settling: SettlingAnalytic})
		Expect(err).To(MatchError(ErrSettlingTooLong))
		Expect(err).To(MatchError(ErrInvalidConfig))

		err = e.Loop(DefaultLoopParams())
		Expect(err).To(MatchError(ErrSettlingTooLong))
	})

	It("should reject invalid parameters", func() {
		data := offsetDataset(func(int) float64 { return 0 }, 100)
		e, _ := MakeBuilder().Build(data)

		Expect(e.Loop(LoopParams{Damping: 0, LoopBW: 0.5})).
			To(MatchError(ErrInvalidConfig))
		Expect(e.Loop(LoopParams{Damping: 1, LoopBW: 0.5, SettlingFrac: 1})).
			To(MatchError(ErrInvalidConfig))

		empty, _ := MakeBuilder().Build(nil)
		Expect(empty.Loop(LoopParams{Damping: 1, LoopBW: 0.5})).
			To(MatchError(ErrNotEnoughSamples))
	})

	It("should clear previous drifts", func() {
		data := offsetDataset(func(i int) float64 { return float64(i) }, 100)
		e, _ := MakeBuilder().Build(data)

		Expect(e.Loop(LoopParams{Damping: 1, LoopBW: 0.5, SettlingFrac: 0.1})).
			To(Succeed())
		Expect(data[10].Drift.Set).To(BeTrue())

		Expect(e.Loop(LoopParams{Damping: 1, LoopBW: 0.5, SettlingFrac: 0.3})).
			To(Succeed())
		Expect(data[10].Drift.Set).To(BeFalse())
		Expect(data[29].XLoop.Set).To(BeFalse())
		Expect(data[30].XLoop.Set).To(BeTrue())
	})
})
