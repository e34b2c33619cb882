package sim

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"
)

var _ = Describe("Ticking Component", func() {
	var (
		mockCtrl *gomock.Controller
		engine   *MockEngine
		ticker   *MockTicker
		tc       *TickingComponent
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		engine = NewMockEngine(mockCtrl)
		ticker = NewMockTicker(mockCtrl)
		tc = NewTickingComponent("TC", engine, 1, ticker)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should schedule a tick in the next cycle", func() {
		engine.EXPECT().CurrentTime().Return(VTimeInSec(10))
		engine.EXPECT().Schedule(gomock.Any()).
			Do(func(e Event) {
				Expect(e.Time()).To(Equal(VTimeInSec(11)))
			})

		tc.TickLater()
	})

	It("should schedule a tick in the current cycle", func() {
		engine.EXPECT().CurrentTime().Return(VTimeInSec(10))
		engine.EXPECT().Schedule(gomock.Any()).
			Do(func(e Event) {
				Expect(e.Time()).To(Equal(VTimeInSec(10)))
			})

		tc.TickNow()
	})

	It("should tick again when the ticker make progress in a tick", func() {
		engine.EXPECT().CurrentTime().Return(VTimeInSec(10))
		engine.EXPECT().Schedule(gomock.Any()).
			Do(func(e Event) {
				Expect(e.Time()).To(Equal(VTimeInSec(11)))
			})
		ticker.EXPECT().Tick().Return(true)

		err := tc.Handle(MakeTickEvent(tc, 10))

		Expect(err).To(BeNil())
	})

	It("should not tick if there is another tick scheduled in the future", func() {
		engine.EXPECT().CurrentTime().Return(VTimeInSec(10)).Times(2)
		engine.EXPECT().Schedule(gomock.Any()).Times(1)
		ticker.EXPECT().Tick().Return(true).Times(2)

		_ = tc.Handle(MakeTickEvent(tc, 10))
		_ = tc.Handle(MakeTickEvent(tc, 10))
	})

	It("should stop ticking if no progress is made", func() {
		ticker.EXPECT().Tick().Return(false)

		_ = tc.Handle(MakeTickEvent(tc, 10))
	})
})
