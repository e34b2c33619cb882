package simulation

import (
	"github.com/pkg/errors"
	"github.com/rs/xid"

	ahbic "github.com/sarchlab/amba/ahb/interconnect"
	ahbtarget "github.com/sarchlab/amba/ahb/target"
	"github.com/sarchlab/amba/apb"
	apbic "github.com/sarchlab/amba/apb/interconnect"
	apbtarget "github.com/sarchlab/amba/apb/target"
	"github.com/sarchlab/amba/bridge"
	"github.com/sarchlab/amba/config"
	"github.com/sarchlab/amba/datarecording"
	"github.com/sarchlab/amba/decoder"
	"github.com/sarchlab/amba/fabric"
	"github.com/sarchlab/amba/monitoring"
	"github.com/sarchlab/amba/sim"
	"github.com/sarchlab/amba/tracing"
)

// Builder can be used to build a simulation.
type Builder struct {
	system         *config.System
	useEngine      bool
	monitorOn      bool
	monitorPort    int
	traceOn        bool
	outputFileName string
}

// MakeBuilder creates a new builder.
func MakeBuilder() Builder {
	return Builder{}
}

// WithSystem sets the system to simulate.
func (b Builder) WithSystem(s *config.System) Builder {
	b.system = s
	return b
}

// WithEngine drives the bus from a serial event engine instead of stepping
// it directly.
func (b Builder) WithEngine() Builder {
	b.useEngine = true
	return b
}

// WithMonitoring starts a monitoring server. A zero port picks a random
// one.
func (b Builder) WithMonitoring(port int) Builder {
	b.monitorOn = true
	b.monitorPort = port

	return b
}

// WithTrace records the tasks of every component into a SQLite database.
func (b Builder) WithTrace() Builder {
	b.traceOn = true
	return b
}

// WithOutputFileName sets the custom output file name for the trace
// database, without the extension.
func (b Builder) WithOutputFileName(filename string) Builder {
	b.outputFileName = filename
	return b
}

// Build builds the simulation. Errors in the system description are
// returned wrapped in config.ErrInvalid.
func (b Builder) Build() (*Simulation, error) {
	if b.system == nil {
		return nil, errors.Wrap(config.ErrInvalid, "no system")
	}

	if err := b.system.Validate(); err != nil {
		return nil, err
	}

	if err := namesMustBeValid(b.system); err != nil {
		return nil, err
	}

	if err := regionsMustNotOverlap(b.system); err != nil {
		return nil, err
	}

	s := &Simulation{
		id:            xid.New().String(),
		system:        b.system,
		compNameIndex: make(map[string]int),
	}

	if b.useEngine {
		s.engine = sim.NewSerialEngine()
	}

	s.buildFabric()
	s.attachMetricTracers()

	if b.traceOn {
		b.buildTracer(s)
	}

	if b.monitorOn {
		b.buildMonitor(s)
	}

	return s, nil
}

func (s *Simulation) buildFabric() {
	sys := s.system
	icBuilder := ahbic.MakeBuilder()

	for _, t := range sys.Targets {
		comp := buildTarget(sys.Name, t)
		s.targets = append(s.targets, comp)
		s.registerComponent(comp)

		icBuilder = icBuilder.WithTarget(t.Name, t.Base, t.Size, comp)
	}

	for _, bc := range sys.Bridges {
		downstream := s.buildPeripheralBus(bc)
		comp := bridge.MakeBuilder().
			WithDownstream(downstream).
			Build(sim.BuildName(sys.Name, bc.Name))
		s.bridges = append(s.bridges, comp)
		s.registerComponent(comp)

		icBuilder = icBuilder.WithTarget(bc.Name, bc.Base, bc.Size, comp)
	}

	s.interconnect = icBuilder.Build(sim.BuildName(sys.Name, "Interconnect"))
	s.registerComponent(s.interconnect)

	s.bus = fabric.MakeBuilder().
		WithEngine(s.engine).
		WithFreq(sim.Freq(sys.FreqMHz) * sim.MHz).
		WithNumMasters(sys.Masters).
		WithQueueSize(sys.QueueSize).
		WithTarget(s.interconnect).
		Build(sys.Name)
	s.registerComponent(s.bus)

	for _, m := range s.bus.Masters() {
		s.registerComponent(m)
	}

	if arb := s.bus.Arbiter(); arb != nil {
		s.registerComponent(arb)
	}
}

func buildTarget(parent string, t config.TargetConfig) *ahbtarget.Comp {
	w := newWindow(t.Base, t.WindowSize(), t.ReadOnly, t.Init)

	return ahbtarget.MakeBuilder().
		WithWindow(w).
		WithWaitCycles(t.WaitCycles).
		Build(sim.BuildName(parent, t.Name))
}

func (s *Simulation) buildPeripheralBus(bc config.BridgeConfig) apb.Target {
	parent := sim.BuildName(s.system.Name, bc.Name)
	icBuilder := apbic.MakeBuilder()

	for _, p := range bc.Peripherals {
		tb := apbtarget.MakeBuilder().
			WithBase(p.Base).
			WithSize(p.Size).
			WithWaitCycles(p.WaitCycles)

		if p.ReadOnly {
			tb = tb.WithReadOnly()
		}

		for addr, value := range p.Registers {
			tb = tb.WithRegister(addr, value)
		}

		comp := tb.Build(sim.BuildName(parent, p.Name))
		s.peripherals = append(s.peripherals, comp)
		s.registerComponent(comp)

		icBuilder = icBuilder.WithTarget(p.Name, p.Base, p.Size, comp)
	}

	ic := icBuilder.Build(sim.BuildName(parent, "Interconnect"))
	s.registerComponent(ic)

	return ic
}

func (b Builder) buildTracer(s *Simulation) {
	var clock sim.TimeTeller = s.bus.Clock()
	if s.engine != nil {
		clock = s.engine
	}

	outputPath := b.outputFileName
	if outputPath == "" {
		outputPath = "ambasim_" + s.id
	}

	s.dataRecorder = datarecording.New(outputPath)
	s.tracer = tracing.NewDBTracer(clock, s.dataRecorder)

	for _, c := range s.components {
		if domain, ok := c.(tracing.NamedHookable); ok {
			tracing.CollectTrace(domain, s.tracer)
		}
	}
}

func (b Builder) buildMonitor(s *Simulation) {
	s.monitor = monitoring.NewMonitor()

	if b.monitorPort != 0 {
		s.monitor = s.monitor.WithPortNumber(b.monitorPort)
	}

	if s.engine != nil {
		s.monitor.RegisterEngine(s.engine)
	}

	s.monitor.RegisterTimeTeller(s.bus.Clock())

	for _, c := range s.components {
		s.monitor.RegisterComponent(c)
	}

	s.monitor.StartServer()
}

func namesMustBeValid(sys *config.System) error {
	names := []string{sys.Name}

	for _, t := range sys.Targets {
		names = append(names, t.Name)
	}

	for _, bc := range sys.Bridges {
		names = append(names, bc.Name)

		for _, p := range bc.Peripherals {
			names = append(names, p.Name)
		}
	}

	for _, n := range names {
		if err := checkName(n); err != nil {
			return err
		}
	}

	return nil
}

func checkName(name string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Wrapf(config.ErrInvalid, "name %q: %v", name, r)
		}
	}()

	sim.NameMustBeValid(name)

	return nil
}

func regionsMustNotOverlap(sys *config.System) error {
	var regions []decoder.Region

	for i, t := range sys.Targets {
		regions = append(regions, decoder.Region{
			Name:     t.Name,
			Base:     t.Base,
			Size:     t.Size,
			Selector: decoder.Selector(i),
		})
	}

	for i, bc := range sys.Bridges {
		regions = append(regions, decoder.Region{
			Name:     bc.Name,
			Base:     bc.Base,
			Size:     bc.Size,
			Selector: decoder.Selector(len(sys.Targets) + i),
		})

		if err := peripheralsMustNotOverlap(bc); err != nil {
			return err
		}
	}

	if _, err := decoder.New(regions...); err != nil {
		return errors.Wrap(config.ErrInvalid, err.Error())
	}

	return nil
}

func peripheralsMustNotOverlap(bc config.BridgeConfig) error {
	regions := make([]decoder.Region, 0, len(bc.Peripherals))

	for i, p := range bc.Peripherals {
		regions = append(regions, decoder.Region{
			Name:     p.Name,
			Base:     p.Base,
			Size:     p.Size,
			Selector: decoder.Selector(i),
		})
	}

	if _, err := decoder.New(regions...); err != nil {
		return errors.Wrapf(config.ErrInvalid, "bridge %s: %v", bc.Name, err)
	}

	return nil
}
