package simulation

import (
	"github.com/sarchlab/amba/sim"
	"github.com/sarchlab/amba/tracing"
)

// Metrics summarizes the traffic since the simulation was built.
type Metrics struct {
	NumTransactions uint64
	AverageLatency  sim.VTimeInSec
	BusyTime        sim.VTimeInSec
	WaitCycles      uint64
	Faults          uint64
}

type metricTracers struct {
	latency *tracing.AverageTimeTracer
	busy    *tracing.BusyTimeTracer
	steps   *tracing.StepCountTracer
}

func (s *Simulation) clock() sim.TimeTeller {
	if s.engine != nil {
		return s.engine
	}

	return s.bus.Clock()
}

func (s *Simulation) attachMetricTracers() {
	clock := s.clock()
	s.metrics = metricTracers{
		latency: tracing.NewAverageTimeTracer(clock, tracing.KindFilter("req_out")),
		busy:    tracing.NewBusyTimeTracer(clock, tracing.KindFilter("req_out")),
		steps:   tracing.NewStepCountTracer(tracing.KindFilter("req_in")),
	}

	for _, m := range s.bus.Masters() {
		tracing.CollectTrace(m, s.metrics.latency)
		tracing.CollectTrace(m, s.metrics.busy)
	}

	for _, t := range s.targets {
		tracing.CollectTrace(t, s.metrics.steps)
	}

	for _, p := range s.peripherals {
		tracing.CollectTrace(p, s.metrics.steps)
	}
}

// Metrics returns the traffic summary collected so far.
func (s *Simulation) Metrics() Metrics {
	return Metrics{
		NumTransactions: s.metrics.latency.TotalCount(),
		AverageLatency:  s.metrics.latency.AverageTime(),
		BusyTime:        s.metrics.busy.BusyTime(),
		WaitCycles:      s.metrics.steps.GetStepCount("wait"),
		Faults:          s.metrics.steps.GetStepCount("error"),
	}
}
