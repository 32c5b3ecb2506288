package sim

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"
)

var _ = Describe("SerialEngine", func() {
	var (
		mockCtrl *gomock.Controller
		engine   *SerialEngine
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		engine = NewSerialEngine()
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	mockEvent := func(t VTimeInSec, h Handler) *MockEvent {
		evt := NewMockEvent(mockCtrl)
		evt.EXPECT().Time().Return(t).AnyTimes()
		evt.EXPECT().Handler().Return(h).AnyTimes()

		return evt
	}

	It("should schedule events", func() {
		handler1 := NewMockHandler(mockCtrl)
		handler2 := NewMockHandler(mockCtrl)
		evt1 := mockEvent(4.0, handler1)
		evt2 := mockEvent(2.0, handler2)
		evt3 := mockEvent(3.0, handler1)
		evt4 := mockEvent(5.0, handler1)

		handleEvt2 := handler2.EXPECT().Handle(evt2).Do(func(e Event) {
			engine.Schedule(evt3)
			engine.Schedule(evt4)
		})
		handleEvt3 := handler1.EXPECT().Handle(evt3).After(handleEvt2)
		handleEvt1 := handler1.EXPECT().Handle(evt1).After(handleEvt3)
		handler1.EXPECT().Handle(evt4).After(handleEvt1)

		engine.Schedule(evt1)
		engine.Schedule(evt2)

		Expect(engine.Run()).To(Succeed())
		Expect(engine.CurrentTime()).To(Equal(VTimeInSec(5.0)))
		Expect(engine.Pending()).To(Equal(0))
	})

	It("should handle same-time events in scheduling order", func() {
		handler := NewMockHandler(mockCtrl)
		evt1 := mockEvent(2.0, handler)
		evt2 := mockEvent(2.0, handler)
		evt3 := mockEvent(2.0, handler)

		handleEvt1 := handler.EXPECT().Handle(evt1)
		handleEvt2 := handler.EXPECT().Handle(evt2).After(handleEvt1)
		handler.EXPECT().Handle(evt3).After(handleEvt2)

		engine.Schedule(evt1)
		engine.Schedule(evt2)
		engine.Schedule(evt3)

		Expect(engine.Run()).To(Succeed())
	})

	It("should stop after the current event", func() {
		handler := NewMockHandler(mockCtrl)
		evt1 := mockEvent(1.0, handler)
		evt2 := mockEvent(2.0, handler)

		handler.EXPECT().Handle(evt1).Do(func(e Event) {
			engine.Stop()
		})

		engine.Schedule(evt1)
		engine.Schedule(evt2)

		Expect(engine.Run()).To(Succeed())
		Expect(engine.CurrentTime()).To(Equal(VTimeInSec(1.0)))
		Expect(engine.Pending()).To(Equal(1))

		handler.EXPECT().Handle(evt2)
		Expect(engine.Run()).To(Succeed())
		Expect(engine.Pending()).To(Equal(0))
	})

	It("should return handler errors", func() {
		handler := NewMockHandler(mockCtrl)
		evt1 := mockEvent(1.0, handler)
		evt2 := mockEvent(2.0, handler)
		failure := errors.New("broken handler")

		handler.EXPECT().Handle(evt1).Return(failure)

		engine.Schedule(evt1)
		engine.Schedule(evt2)

		err := engine.Run()
		Expect(err).To(MatchError(failure))
		Expect(engine.Pending()).To(Equal(1))
	})

	It("should panic when scheduling an event in the past", func() {
		handler := NewMockHandler(mockCtrl)
		evt1 := mockEvent(2.0, handler)
		evt2 := mockEvent(1.0, handler)

		handler.EXPECT().Handle(evt1).Do(func(e Event) {
			Expect(func() { engine.Schedule(evt2) }).To(Panic())
		})

		engine.Schedule(evt1)
		Expect(engine.Run()).To(Succeed())
	})

	It("should invoke hooks before and after each event", func() {
		handler := NewMockHandler(mockCtrl)
		hook := NewMockHook(mockCtrl)
		evt := mockEvent(1.0, handler)
		engine.AcceptHook(hook)
		Expect(engine.NumHooks()).To(Equal(1))

		before := hook.EXPECT().Func(HookCtx{
			Domain: engine,
			Pos:    HookPosBeforeEvent,
			Now:    1.0,
			Item:   evt,
		})
		handling := handler.EXPECT().Handle(evt).After(before)
		hook.EXPECT().Func(HookCtx{
			Domain: engine,
			Pos:    HookPosAfterEvent,
			Now:    1.0,
			Item:   evt,
		}).After(handling)

		engine.Schedule(evt)
		Expect(engine.Run()).To(Succeed())
	})
})
