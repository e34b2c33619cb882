package fabric_test

import (
	"bytes"
	"errors"
	"log"
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/amba/ahb"
	"github.com/sarchlab/amba/ahb/interconnect"
	"github.com/sarchlab/amba/ahb/target"
	apbic "github.com/sarchlab/amba/apb/interconnect"
	apbtarget "github.com/sarchlab/amba/apb/target"
	"github.com/sarchlab/amba/bridge"
	"github.com/sarchlab/amba/fabric"
	"github.com/sarchlab/amba/sim"
)

type cycleRecorder struct {
	records []fabric.CycleRecord
}

func (h *cycleRecorder) Func(ctx sim.HookCtx) {
	if rec, ok := ctx.Item.(fabric.CycleRecord); ok {
		h.records = append(h.records, rec)
	}
}

func (h *cycleRecorder) activeAddrs() []uint32 {
	var addrs []uint32

	for _, rec := range h.records {
		if rec.Request.Trans.Active() && rec.Response.Ready {
			addrs = append(addrs, rec.Request.Addr)
		}
	}

	return addrs
}

func incrWrite(addr uint32, burst ahb.Burst, data ...uint32) ahb.TransferRequest {
	return ahb.TransferRequest{
		Addr:   addr,
		Write:  true,
		Size:   ahb.SizeWord,
		Burst:  burst,
		Length: len(data),
		WData:  data,
	}
}

var _ = Describe("Bus", func() {
	var (
		sram *target.Comp
		ic   *interconnect.Comp
		rec  *cycleRecorder
	)

	BeforeEach(func() {
		sram = target.MakeBuilder().WithSize(0x400).Build("Sram")
		ic = interconnect.MakeBuilder().
			WithTarget("sram", 0x0, 0x400, sram).
			Build("Ic")
		rec = &cycleRecorder{}
	})

	Context("with one master", func() {
		var bus *fabric.Bus

		BeforeEach(func() {
			bus = fabric.MakeBuilder().
				WithNumMasters(1).
				WithTarget(ic).
				Build("Bus")
			bus.AcceptHook(rec)
		})

		It("should not create an arbiter", func() {
			Expect(bus.Arbiter()).To(BeNil())
			Expect(bus.Grant()).To(Equal(0))
			Expect(bus.Idle()).To(BeTrue())
		})

		It("should read back a written word", func() {
			w, _ := bus.Submit(0, ahb.Single(0x4, true, ahb.SizeWord, 0xDEADBEEF))
			r, _ := bus.Submit(0, ahb.Single(0x4, false, ahb.SizeWord))

			Expect(bus.Run(100)).To(Succeed())

			Expect(w.Status()).To(Equal(ahb.StatusOK))
			Expect(r.Status()).To(Equal(ahb.StatusOK))
			Expect(r.ReadData()).To(Equal([]uint32{0xDEADBEEF}))
			Expect(bus.Cycle()).To(Equal(uint64(3)))
		})

		It("should issue an INCR4 burst at consecutive words", func() {
			txn, _ := bus.Submit(0, ahb.TransferRequest{
				Addr: 0x10, Size: ahb.SizeWord, Burst: ahb.BurstIncr4, Length: 4,
			})

			Expect(bus.Run(100)).To(Succeed())

			Expect(txn.Status()).To(Equal(ahb.StatusOK))
			Expect(rec.activeAddrs()).To(Equal([]uint32{0x10, 0x14, 0x18, 0x1C}))
		})

		It("should wrap a WRAP4 burst inside its window", func() {
			txn, _ := bus.Submit(0, ahb.TransferRequest{
				Addr: 0x1C, Size: ahb.SizeWord, Burst: ahb.BurstWrap4, Length: 4,
			})

			Expect(bus.Run(100)).To(Succeed())

			Expect(txn.Status()).To(Equal(ahb.StatusOK))
			Expect(rec.activeAddrs()).To(Equal([]uint32{0x1C, 0x10, 0x14, 0x18}))
		})

		It("should fail a write to an unmapped address", func() {
			txn, err := bus.Submit(0, ahb.Single(0xFFFFFFFF, true, ahb.SizeByte, 0x1))
			Expect(err).NotTo(HaveOccurred())

			Expect(bus.Run(100)).To(Succeed())

			Expect(txn.Status()).To(Equal(ahb.StatusError))
			Expect(errors.Is(txn.Err(), ahb.ErrResponse)).To(BeTrue())
			Expect(txn.NumCompleted()).To(Equal(0))
			Expect(sram.NumAccesses()).To(Equal(0))
			Expect(ic.NumDecodeErrors()).To(Equal(1))
		})

		It("should keep the data committed before an error", func() {
			txn, _ := bus.Submit(0, incrWrite(0x3F8, ahb.BurstIncr, 1, 2))
			Expect(bus.Run(100)).To(Succeed())
			Expect(txn.Status()).To(Equal(ahb.StatusOK))

			small := target.MakeBuilder().WithSize(0x8).Build("Small")
			ic = interconnect.MakeBuilder().
				WithTarget("small", 0x0, 0x400, small).
				Build("Mismatch")
			bus = fabric.MakeBuilder().WithNumMasters(1).WithTarget(ic).Build("Bus")

			txn, _ = bus.Submit(0, incrWrite(0x0, ahb.BurstIncr4, 1, 2, 3, 4))
			Expect(bus.Run(100)).To(Succeed())

			Expect(txn.Status()).To(Equal(ahb.StatusError))
			Expect(txn.FailedBeat()).To(Equal(2))
			word, _ := small.Window().ReadWord(0x4)
			Expect(word).To(Equal(uint32(2)))
			Expect(small.NumFaults()).To(Equal(1))
		})

		It("should stop at the cycle limit", func() {
			slow := target.MakeBuilder().WithWaitCycles(10).Build("Slow")
			bus = fabric.MakeBuilder().WithNumMasters(1).WithTarget(slow).Build("Bus")
			_, _ = bus.Submit(0, ahb.Single(0x0, false, ahb.SizeWord))

			err := bus.Run(5)

			Expect(errors.Is(err, fabric.ErrCycleLimit)).To(BeTrue())
			Expect(bus.Cycle()).To(Equal(uint64(5)))
		})

		It("should log every cycle", func() {
			buf := new(bytes.Buffer)
			bus.AcceptHook(fabric.NewCycleLogger(log.New(buf, "", 0)))

			_, _ = bus.Submit(0, ahb.Single(0x8, false, ahb.SizeWord))
			Expect(bus.Run(100)).To(Succeed())

			Expect(bytes.Count(buf.Bytes(), []byte("\n"))).To(Equal(2))
			Expect(buf.String()).To(ContainSubstring("NONSEQ 0x00000008"))
		})

		It("should run on an engine", func() {
			engine := sim.NewSerialEngine()
			bus = fabric.MakeBuilder().
				WithEngine(engine).
				WithFreq(1 * sim.GHz).
				WithNumMasters(1).
				WithTarget(ic).
				Build("Bus")

			txn, _ := bus.Submit(0, incrWrite(0x0, ahb.BurstIncr8, 1, 2, 3, 4, 5, 6, 7, 8))
			Expect(engine.Run()).To(Succeed())

			Expect(txn.Status()).To(Equal(ahb.StatusOK))
			Expect(bus.Cycle()).To(Equal(uint64(9)))
			Expect(engine.CurrentTime()).To(BeNumerically(">", 0))
			Expect(bus.Clock().CurrentTime()).
				To(BeNumerically("~", 9e-9, 1e-12))
		})
	})

	Context("with two masters", func() {
		var bus *fabric.Bus

		BeforeEach(func() {
			bus = fabric.MakeBuilder().
				WithNumMasters(2).
				WithTarget(ic).
				Build("Bus")
			bus.AcceptHook(rec)
		})

		It("should alternate the grant under contention", func() {
			for i := 0; i < 4; i++ {
				_, _ = bus.Submit(0, ahb.Single(uint32(4*i), false, ahb.SizeWord))
				_, _ = bus.Submit(1, ahb.Single(uint32(0x100+4*i), false, ahb.SizeWord))
			}

			Expect(bus.Run(100)).To(Succeed())

			grants := make([]int, 0, 4)
			for _, r := range rec.records[1:5] {
				grants = append(grants, r.Grant)
			}

			Expect(grants).To(Equal([]int{0, 1, 0, 1}))
		})

		It("should route write data from the data-phase owner", func() {
			a, _ := bus.Submit(0, incrWrite(0x0, ahb.BurstIncr4, 0xA0, 0xA1, 0xA2, 0xA3))
			b, _ := bus.Submit(1, incrWrite(0x100, ahb.BurstIncr4, 0xB0, 0xB1, 0xB2, 0xB3))

			Expect(bus.Run(100)).To(Succeed())

			Expect(a.Status()).To(Equal(ahb.StatusOK))
			Expect(b.Status()).To(Equal(ahb.StatusOK))

			for i := uint32(0); i < 4; i++ {
				wa, _ := sram.Window().ReadWord(4 * i)
				wb, _ := sram.Window().ReadWord(0x100 + 4*i)
				Expect(wa).To(Equal(0xA0 + i))
				Expect(wb).To(Equal(0xB0 + i))
			}
		})

		It("should keep beats pipelined under random traffic", func() {
			slow := target.MakeBuilder().
				WithBase(0x1000).
				WithSize(0x1000).
				WithWaitCycles(1).
				Build("Slow")
			ic = interconnect.MakeBuilder().
				WithTarget("sram", 0x0, 0x400, sram).
				WithTarget("slow", 0x1000, 0x1000, slow).
				Build("Mixed")
			bus = fabric.MakeBuilder().
				WithNumMasters(3).
				WithTarget(ic).
				Build("Bus")

			rng := rand.New(rand.NewSource(7))
			bursts := []ahb.Burst{
				ahb.BurstSingle, ahb.BurstIncr4, ahb.BurstWrap4,
				ahb.BurstIncr8, ahb.BurstWrap8,
			}

			var txns []*ahb.Transaction
			for i := 0; i < 30; i++ {
				burst := bursts[rng.Intn(len(bursts))]
				n := burst.Beats()
				if n == 0 {
					n = 1
				}

				base := uint32(0x1000)
				if rng.Intn(2) == 0 {
					base = 0
				}

				req := ahb.TransferRequest{
					Addr:   base + uint32(rng.Intn(0x40))*4,
					Size:   ahb.SizeWord,
					Burst:  burst,
					Length: n,
				}

				txn, err := bus.Submit(i%3, req)
				if errors.Is(err, ahb.ErrProtocol) {
					continue
				}
				Expect(err).NotTo(HaveOccurred())
				txns = append(txns, txn)
			}

			Expect(bus.Run(2000)).To(Succeed())

			for _, txn := range txns {
				Expect(txn.Status()).To(Equal(ahb.StatusOK))

				for n := 0; n+1 < len(txn.Beats); n++ {
					Expect(txn.Beats[n].DataCycle).
						To(BeNumerically("<=", txn.Beats[n+1].AddrCycle))
					Expect(txn.Beats[n].AddrCycle).
						To(BeNumerically("<", txn.Beats[n+1].AddrCycle))
				}
			}
		})
	})

	It("should reach peripherals through the bridge", func() {
		regs := apbtarget.MakeBuilder().
			WithBase(0x4000_0000).
			WithWaitCycles(1).
			WithRegister(0x4000_0000, 0x0C0FFEE0).
			Build("Regs")
		apb := apbic.MakeBuilder().
			WithTarget("regs", 0x4000_0000, 0x100, regs).
			Build("Apb")
		br := bridge.MakeBuilder().WithDownstream(apb).Build("Bridge")

		ic = interconnect.MakeBuilder().
			WithTarget("sram", 0x0, 0x400, sram).
			WithTarget("apb", 0x4000_0000, 0x1000_0000, br).
			Build("Ic")
		bus := fabric.MakeBuilder().WithNumMasters(2).WithTarget(ic).Build("Bus")

		id, _ := bus.Submit(0, ahb.Single(0x4000_0000, false, ahb.SizeWord))
		w, _ := bus.Submit(1, ahb.Single(0x4000_0004, true, ahb.SizeWord, 0x77))
		mem, _ := bus.Submit(1, ahb.Single(0x20, true, ahb.SizeWord, 0x88))
		missing, _ := bus.Submit(0, ahb.Single(0x4000_0200, false, ahb.SizeWord))

		Expect(bus.Run(200)).To(Succeed())

		Expect(id.ReadData()).To(Equal([]uint32{0x0C0FFEE0}))
		Expect(w.Status()).To(Equal(ahb.StatusOK))
		Expect(mem.Status()).To(Equal(ahb.StatusOK))
		Expect(missing.Status()).To(Equal(ahb.StatusError))

		word, _ := regs.Window().ReadWord(0x4000_0004)
		Expect(word).To(Equal(uint32(0x77)))
		Expect(br.NumTransfers()).To(Equal(2))
		Expect(br.NumErrors()).To(Equal(1))
	})
})
