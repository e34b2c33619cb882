// Package simulation builds a bus system from its description and runs
// traffic scripts on it.
package simulation

import (
	"fmt"
	"log"
	"slices"
	"strings"

	"github.com/pkg/errors"

	"github.com/sarchlab/amba/ahb"
	ahbic "github.com/sarchlab/amba/ahb/interconnect"
	ahbtarget "github.com/sarchlab/amba/ahb/target"
	"github.com/sarchlab/amba/ahb/master"
	apbtarget "github.com/sarchlab/amba/apb/target"
	"github.com/sarchlab/amba/bridge"
	"github.com/sarchlab/amba/config"
	"github.com/sarchlab/amba/datarecording"
	"github.com/sarchlab/amba/fabric"
	"github.com/sarchlab/amba/monitoring"
	"github.com/sarchlab/amba/sim"
	"github.com/sarchlab/amba/storage"
	"github.com/sarchlab/amba/tracing"
)

// ErrMismatch is returned by RunScript when a transaction does not produce
// what the script expects.
var ErrMismatch = errors.New("transaction result does not match")

// StatsTableName is the table that Terminate writes the access counts of
// every target into.
const StatsTableName = "target_stats"

// TargetStats is a row of the statistics table.
type TargetStats struct {
	Name     string
	Accesses int
	Faults   int
}

// A Simulation owns a bus system and the services around it.
type Simulation struct {
	id     string
	system *config.System
	engine sim.Engine

	bus          *fabric.Bus
	interconnect *ahbic.Comp
	targets      []*ahbtarget.Comp
	bridges      []*bridge.Comp
	peripherals  []*apbtarget.Comp

	dataRecorder datarecording.DataRecorder
	monitor      *monitoring.Monitor
	tracer       *tracing.DBTracer
	metrics      metricTracers

	components    []sim.Named
	compNameIndex map[string]int
}

// ID returns the unique ID of the simulation.
func (s *Simulation) ID() string {
	return s.id
}

// System returns the description the simulation was built from.
func (s *Simulation) System() *config.System {
	return s.system
}

// Engine returns the engine that drives the bus, or nil if the bus is
// stepped directly.
func (s *Simulation) Engine() sim.Engine {
	return s.engine
}

// Bus returns the clocked top of the system.
func (s *Simulation) Bus() *fabric.Bus {
	return s.bus
}

// Interconnect returns the AHB interconnect behind the bus.
func (s *Simulation) Interconnect() *ahbic.Comp {
	return s.interconnect
}

// DataRecorder returns the trace database, or nil if tracing is off.
func (s *Simulation) DataRecorder() datarecording.DataRecorder {
	return s.dataRecorder
}

// Monitor returns the monitoring server, or nil if monitoring is off.
func (s *Simulation) Monitor() *monitoring.Monitor {
	return s.monitor
}

// Components returns every component in the order they were built.
func (s *Simulation) Components() []sim.Named {
	return s.components
}

func (s *Simulation) registerComponent(c sim.Named) {
	name := c.Name()
	if _, found := s.compNameIndex[name]; found {
		log.Panicf("component %s already registered", name)
	}

	s.compNameIndex[name] = len(s.components)
	s.components = append(s.components, c)
}

// GetComponentByName returns the component with the given name, or nil.
func (s *Simulation) GetComponentByName(name string) sim.Named {
	i, found := s.compNameIndex[name]
	if !found {
		return nil
	}

	return s.components[i]
}

// Result is the outcome of one scripted transaction.
type Result struct {
	Index int
	Txn   *ahb.Transaction
	Err   error
}

// Report summarizes a script run. Metrics cover the whole life of the
// simulation up to the end of the run.
type Report struct {
	Cycles  uint64
	Results []Result
	Metrics Metrics
}

// NumFailed returns how many transactions did not match their expectation.
func (r *Report) NumFailed() int {
	n := 0

	for _, res := range r.Results {
		if res.Err != nil {
			n++
		}
	}

	return n
}

type pendingTxn struct {
	index int
	req   ahb.TransferRequest
}

// RunScript submits every transaction of the script to its master and runs
// the bus until all of them complete. Transactions wait in the script
// while their master's queue is full. The returned error wraps ErrMismatch
// if any result differs from the expectation.
func (s *Simulation) RunScript(
	script *config.Script,
	maxCycles uint64,
) (*Report, error) {
	pending, err := s.splitByMaster(script)
	if err != nil {
		return nil, err
	}

	report := &Report{Results: make([]Result, len(script.Transactions))}
	bar := s.startProgress(len(script.Transactions))
	start := s.bus.Cycle()

	for {
		if err := s.submitPending(pending, report, bar); err != nil {
			return nil, err
		}

		if s.bus.Idle() && allSubmitted(pending) {
			break
		}

		if s.bus.Cycle()-start >= maxCycles {
			return nil, errors.Wrapf(fabric.ErrCycleLimit,
				"%s: %d cycles", s.bus.Name(), maxCycles)
		}

		if err := s.advance(); err != nil {
			return nil, err
		}
	}

	s.stopProgress(bar)

	report.Cycles = s.bus.Cycle() - start
	report.Metrics = s.Metrics()
	s.checkResults(script, report)

	if n := report.NumFailed(); n > 0 {
		return report, errors.Wrapf(ErrMismatch,
			"%d of %d transactions", n, len(report.Results))
	}

	return report, nil
}

func (s *Simulation) splitByMaster(
	script *config.Script,
) ([][]pendingTxn, error) {
	pending := make([][]pendingTxn, len(s.bus.Masters()))

	for i, t := range script.Transactions {
		if t.Master >= len(pending) {
			return nil, errors.Wrapf(config.ErrInvalid,
				"transaction %d: master %d of %d", i, t.Master, len(pending))
		}

		req, err := t.Request()
		if err != nil {
			return nil, errors.Wrapf(err, "transaction %d", i)
		}

		pending[t.Master] = append(pending[t.Master], pendingTxn{i, req})
	}

	return pending, nil
}

func (s *Simulation) submitPending(
	pending [][]pendingTxn,
	report *Report,
	bar *monitoring.ProgressBar,
) error {
	for m := range pending {
		for len(pending[m]) > 0 {
			p := pending[m][0]

			txn, err := s.bus.Submit(m, p.req)
			if errors.Is(err, master.ErrQueueFull) {
				break
			}

			if err != nil {
				return errors.Wrapf(err, "transaction %d", p.index)
			}

			if bar != nil {
				bar.IncrementInProgress(1)
				txn.OnDone(func(*ahb.Transaction) {
					bar.MoveInProgressToFinished(1)
				})
			}

			report.Results[p.index] = Result{Index: p.index, Txn: txn}
			pending[m] = pending[m][1:]
		}
	}

	return nil
}

func allSubmitted(pending [][]pendingTxn) bool {
	for _, p := range pending {
		if len(p) > 0 {
			return false
		}
	}

	return true
}

func (s *Simulation) advance() error {
	if s.engine == nil {
		s.bus.Step()
		return nil
	}

	return s.engine.Run()
}

func (s *Simulation) checkResults(script *config.Script, report *Report) {
	for i, t := range script.Transactions {
		res := &report.Results[i]
		res.Err = check(t, res.Txn)
	}
}

func check(t config.TransactionConfig, txn *ahb.Transaction) error {
	failed := txn.Status() == ahb.StatusError

	switch {
	case t.ExpectError && !failed:
		return errors.Wrapf(ErrMismatch, "%s completed, error expected", txn.ID)
	case !t.ExpectError && failed:
		return errors.Wrapf(ErrMismatch, "%s: %v", txn.ID, txn.Err())
	}

	if len(t.Expect) == 0 {
		return nil
	}

	got := txn.ReadData()
	if !slices.Equal(got, t.Expect) {
		return errors.Wrapf(ErrMismatch, "%s read %s, expected %s",
			txn.ID, hexWords(got), hexWords(t.Expect))
	}

	return nil
}

func hexWords(words []uint32) string {
	s := make([]string, len(words))
	for i, w := range words {
		s[i] = fmt.Sprintf("0x%08x", w)
	}

	return "[" + strings.Join(s, " ") + "]"
}

func (s *Simulation) startProgress(n int) *monitoring.ProgressBar {
	if s.monitor == nil {
		return nil
	}

	return s.monitor.CreateProgressBar("Script", uint64(n))
}

func (s *Simulation) stopProgress(bar *monitoring.ProgressBar) {
	if bar != nil {
		s.monitor.CompleteProgressBar(bar)
	}
}

// Stats returns the access counts of every memory and register block.
func (s *Simulation) Stats() []TargetStats {
	var stats []TargetStats

	for _, t := range s.targets {
		stats = append(stats, TargetStats{
			Name:     t.Name(),
			Accesses: t.NumAccesses(),
			Faults:   t.NumFaults(),
		})
	}

	for _, b := range s.bridges {
		stats = append(stats, TargetStats{
			Name:     b.Name(),
			Accesses: b.NumTransfers(),
			Faults:   b.NumErrors(),
		})
	}

	for _, p := range s.peripherals {
		stats = append(stats, TargetStats{
			Name:     p.Name(),
			Accesses: p.NumAccesses(),
			Faults:   p.NumFaults(),
		})
	}

	return stats
}

// Terminate writes the statistics and unfinished tasks into the trace
// database and stops the monitor.
func (s *Simulation) Terminate() {
	if s.dataRecorder != nil {
		s.dataRecorder.CreateTable(StatsTableName, TargetStats{})

		for _, st := range s.Stats() {
			s.dataRecorder.InsertData(StatsTableName, st)
		}

		s.tracer.Terminate()

		if err := s.dataRecorder.Close(); err != nil {
			log.Printf("closing trace database: %v", err)
		}
	}

	if s.monitor != nil {
		s.monitor.StopServer()
	}
}

func newWindow(
	base uint32,
	size uint64,
	readOnly bool,
	image map[uint32]uint32,
) *storage.Window {
	w := storage.NewWindow(base, size, false)

	for addr, word := range image {
		if err := w.WriteWord(addr, word); err != nil {
			log.Panicf("initial word at 0x%08x: %v", addr, err)
		}
	}

	w.ReadOnly = readOnly

	return w
}
