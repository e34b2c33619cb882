package simulation_test

import (
	"context"
	"errors"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/amba/ahb"
	"github.com/sarchlab/amba/config"
	"github.com/sarchlab/amba/datarecording"
	"github.com/sarchlab/amba/fabric"
	"github.com/sarchlab/amba/simulation"
)

const systemYAML = `
name: Soc
masters: 2
queue_size: 2
targets:
  - name: Rom
    base: 0x0
    size: 0x1000
    read_only: true
    init:
      0x0: 0xCAFEF00D
  - name: Ram
    base: 0x20000000
    size: 0x1000
    wait_cycles: 1
bridges:
  - name: Apb
    base: 0x40000000
    size: 0x10000
    peripherals:
      - name: Uart
        base: 0x40000000
        size: 0x100
        registers:
          0x40000004: 0x5
      - name: Timer
        base: 0x40001000
        size: 0x100
        wait_cycles: 2
`

const scriptYAML = `
transactions:
  - {master: 0, addr: 0x20000000, write: true, burst: incr4, data: [1, 2, 3, 4]}
  - {master: 0, addr: 0x20000000, burst: incr4, expect: [1, 2, 3, 4]}
  - {master: 1, addr: 0x0, expect: [0xCAFEF00D]}
  - {master: 1, addr: 0x0, write: true, data: [1], expect_error: true}
  - {master: 1, addr: 0x40000004, expect: [5]}
  - {master: 0, addr: 0x40001000, write: true, data: [0x77]}
  - {master: 0, addr: 0x40001000, expect: [0x77]}
  - {master: 1, addr: 0x80000000, expect_error: true}
`

func mustParse(systemText, scriptText string) (*config.System, *config.Script) {
	sys, err := config.ParseSystem([]byte(systemText))
	Expect(err).NotTo(HaveOccurred())

	script, err := config.ParseScript([]byte(scriptText))
	Expect(err).NotTo(HaveOccurred())

	return sys, script
}

var _ = Describe("Simulation", func() {
	var (
		sys    *config.System
		script *config.Script
	)

	BeforeEach(func() {
		sys, script = mustParse(systemYAML, scriptYAML)
	})

	It("should register every component by name", func() {
		s, err := simulation.MakeBuilder().WithSystem(sys).Build()
		Expect(err).NotTo(HaveOccurred())
		defer s.Terminate()

		Expect(s.GetComponentByName("Soc")).To(BeIdenticalTo(s.Bus()))
		Expect(s.GetComponentByName("Soc.Interconnect")).
			To(BeIdenticalTo(s.Interconnect()))
		Expect(s.GetComponentByName("Soc.Apb.Uart")).NotTo(BeNil())
		Expect(s.GetComponentByName("Soc.Master[1]")).NotTo(BeNil())
		Expect(s.GetComponentByName("Soc.Arbiter")).NotTo(BeNil())
		Expect(s.GetComponentByName("Soc.Nothing")).To(BeNil())
	})

	It("should run a script across memories and peripherals", func() {
		s, err := simulation.MakeBuilder().WithSystem(sys).Build()
		Expect(err).NotTo(HaveOccurred())
		defer s.Terminate()

		report, err := s.RunScript(script, 1000)

		Expect(err).NotTo(HaveOccurred())
		Expect(report.NumFailed()).To(Equal(0))
		Expect(report.Cycles).To(BeNumerically(">", 8))
		Expect(report.Results[3].Txn.Status()).To(Equal(ahb.StatusError))
		Expect(s.Interconnect().NumDecodeErrors()).To(Equal(1))
	})

	It("should summarize the traffic", func() {
		s, err := simulation.MakeBuilder().WithSystem(sys).Build()
		Expect(err).NotTo(HaveOccurred())
		defer s.Terminate()

		report, err := s.RunScript(script, 1000)
		Expect(err).NotTo(HaveOccurred())

		m := report.Metrics
		Expect(m.NumTransactions).To(Equal(uint64(8)))
		Expect(m.Faults).To(Equal(uint64(1)))
		Expect(m.WaitCycles).To(BeNumerically(">", 0))
		Expect(m.AverageLatency).To(BeNumerically(">", 0))
		Expect(m.BusyTime).To(BeNumerically(">", 0))
		Expect(m.BusyTime).To(BeNumerically("<=",
			s.Bus().Clock().CurrentTime()))
	})

	It("should give the same results when driven by an engine", func() {
		direct, err := simulation.MakeBuilder().WithSystem(sys).Build()
		Expect(err).NotTo(HaveOccurred())
		defer direct.Terminate()

		sysCopy, scriptCopy := mustParse(systemYAML, scriptYAML)
		engineDriven, err := simulation.MakeBuilder().
			WithSystem(sysCopy).
			WithEngine().
			Build()
		Expect(err).NotTo(HaveOccurred())
		defer engineDriven.Terminate()

		r1, err := direct.RunScript(script, 1000)
		Expect(err).NotTo(HaveOccurred())
		r2, err := engineDriven.RunScript(scriptCopy, 1000)
		Expect(err).NotTo(HaveOccurred())

		Expect(engineDriven.Engine().CurrentTime()).To(BeNumerically(">", 0))
		Expect(r2.Results).To(HaveLen(len(r1.Results)))
		for i := range r1.Results {
			Expect(r2.Results[i].Txn.ReadData()).
				To(Equal(r1.Results[i].Txn.ReadData()))
		}
	})

	It("should report mismatching read data", func() {
		_, script = mustParse(systemYAML, `
transactions:
  - {master: 0, addr: 0x0, expect: [0x12345678]}
  - {master: 0, addr: 0x0}
`)
		s, err := simulation.MakeBuilder().WithSystem(sys).Build()
		Expect(err).NotTo(HaveOccurred())
		defer s.Terminate()

		report, err := s.RunScript(script, 100)

		Expect(errors.Is(err, simulation.ErrMismatch)).To(BeTrue())
		Expect(report.NumFailed()).To(Equal(1))
		Expect(report.Results[0].Err).To(MatchError(ContainSubstring("0xcafef00d")))
		Expect(report.Results[1].Err).NotTo(HaveOccurred())
	})

	It("should report an unexpected error", func() {
		_, script = mustParse(systemYAML, `
transactions:
  - {master: 0, addr: 0x90000000}
`)
		s, err := simulation.MakeBuilder().WithSystem(sys).Build()
		Expect(err).NotTo(HaveOccurred())
		defer s.Terminate()

		_, err = s.RunScript(script, 100)

		Expect(errors.Is(err, simulation.ErrMismatch)).To(BeTrue())
	})

	It("should hold transactions back while a queue is full", func() {
		_, script = mustParse(systemYAML, `
transactions:
  - {master: 0, addr: 0x20000000, write: true, data: [1]}
  - {master: 0, addr: 0x20000004, write: true, data: [2]}
  - {master: 0, addr: 0x20000008, write: true, data: [3]}
  - {master: 0, addr: 0x2000000C, write: true, data: [4]}
  - {master: 0, addr: 0x20000010, write: true, data: [5]}
  - {master: 0, addr: 0x20000000, burst: incr, length: 5, expect: [1, 2, 3, 4, 5]}
`)
		s, err := simulation.MakeBuilder().WithSystem(sys).Build()
		Expect(err).NotTo(HaveOccurred())
		defer s.Terminate()

		report, err := s.RunScript(script, 1000)

		Expect(err).NotTo(HaveOccurred())
		Expect(report.NumFailed()).To(Equal(0))
	})

	It("should stop at the cycle limit", func() {
		s, err := simulation.MakeBuilder().WithSystem(sys).Build()
		Expect(err).NotTo(HaveOccurred())
		defer s.Terminate()

		_, err = s.RunScript(script, 3)

		Expect(errors.Is(err, fabric.ErrCycleLimit)).To(BeTrue())
	})

	It("should reject a transaction for a missing master", func() {
		_, script = mustParse(systemYAML, `
transactions:
  - {master: 5, addr: 0x0}
`)
		s, err := simulation.MakeBuilder().WithSystem(sys).Build()
		Expect(err).NotTo(HaveOccurred())
		defer s.Terminate()

		_, err = s.RunScript(script, 100)

		Expect(errors.Is(err, config.ErrInvalid)).To(BeTrue())
	})

	DescribeTable("invalid systems",
		func(mutate func(s *config.System)) {
			mutate(sys)

			_, err := simulation.MakeBuilder().WithSystem(sys).Build()

			Expect(errors.Is(err, config.ErrInvalid)).To(BeTrue())
		},
		Entry("overlapping targets", func(s *config.System) {
			s.Targets[1].Base = 0x800
		}),
		Entry("bridge overlapping a target", func(s *config.System) {
			s.Bridges[0].Base = 0x20000000
		}),
		Entry("overlapping peripherals", func(s *config.System) {
			s.Bridges[0].Peripherals[1].Base = 0x40000080
		}),
		Entry("lower case name", func(s *config.System) {
			s.Targets[0].Name = "rom"
		}),
		Entry("name with a dash", func(s *config.System) {
			s.Bridges[0].Peripherals[0].Name = "Uart-0"
		}),
	)

	It("should fail without a system", func() {
		_, err := simulation.MakeBuilder().Build()

		Expect(errors.Is(err, config.ErrInvalid)).To(BeTrue())
	})

	It("should record tasks and statistics", func() {
		path := filepath.Join(GinkgoT().TempDir(), "trace")

		s, err := simulation.MakeBuilder().
			WithSystem(sys).
			WithTrace().
			WithOutputFileName(path).
			Build()
		Expect(err).NotTo(HaveOccurred())

		_, err = s.RunScript(script, 1000)
		Expect(err).NotTo(HaveOccurred())
		s.Terminate()

		reader, err := datarecording.NewReader(path + ".sqlite3")
		Expect(err).NotTo(HaveOccurred())
		defer reader.Close()

		reader.MapTable(simulation.StatsTableName, simulation.TargetStats{})
		rows, total, err := reader.Query(context.Background(),
			simulation.StatsTableName,
			datarecording.QueryParams{Where: "Name = ?", Args: []any{"Soc.Ram"}})

		Expect(err).NotTo(HaveOccurred())
		Expect(total).To(Equal(1))
		Expect(rows[0].(*simulation.TargetStats).Accesses).To(Equal(8))
	})
})
