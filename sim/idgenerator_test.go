package sim

import (
	"strconv"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("IDGenerator", func() {
	It("should generate sequential ids", func() {
		g := &sequentialIDGenerator{}

		Expect(g.Generate()).To(Equal("1"))
		Expect(g.Generate()).To(Equal("2"))
	})

	It("should number events in creation order", func() {
		first, err := strconv.Atoi(NewEventBase(1, nil).ID)
		Expect(err).NotTo(HaveOccurred())

		second, err := strconv.Atoi(NewEventBase(1, nil).ID)
		Expect(err).NotTo(HaveOccurred())

		Expect(second).To(BeNumerically(">", first))
	})
})
