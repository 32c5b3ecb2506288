package sim

import (
	"strings"

	"github.com/go-logr/logr/funcr"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"
)

type namedHandler struct {
	*MockHandler
}

func (h namedHandler) Name() string {
	return "Master"
}

var _ = Describe("EventLogger", func() {
	var (
		mockCtrl *gomock.Controller
		lines    []string
		logger   *EventLogger
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		lines = nil
		l := funcr.New(func(prefix, args string) {
			lines = append(lines, args)
		}, funcr.Options{Verbosity: 1})
		logger = NewEventLogger(l, 1)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should log events before they are handled", func() {
		handler := namedHandler{NewMockHandler(mockCtrl)}
		evt := NewMockEvent(mockCtrl)
		evt.EXPECT().Time().Return(VTimeInSec(1.5)).AnyTimes()
		evt.EXPECT().Handler().Return(handler).AnyTimes()

		logger.Func(HookCtx{Pos: HookPosBeforeEvent, Now: 1.5, Item: evt})
		logger.Func(HookCtx{Pos: HookPosAfterEvent, Now: 1.5, Item: evt})

		Expect(lines).To(HaveLen(1))
		Expect(lines[0]).To(ContainSubstring(`"msg"="event"`))
		Expect(lines[0]).To(ContainSubstring(`"time"=1.5`))
		Expect(lines[0]).To(ContainSubstring(`"handler"="Master"`))
	})

	It("should stay silent above the configured verbosity", func() {
		l := funcr.New(func(prefix, args string) {
			lines = append(lines, args)
		}, funcr.Options{Verbosity: 0})
		quiet := NewEventLogger(l, 1)

		evt := NewMockEvent(mockCtrl)
		quiet.Func(HookCtx{Pos: HookPosBeforeEvent, Item: evt})

		Expect(strings.Join(lines, "")).To(BeEmpty())
	})
})
