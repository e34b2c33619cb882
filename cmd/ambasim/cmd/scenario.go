package cmd

import (
	"fmt"
	"strings"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/sarchlab/amba/config"
	"github.com/sarchlab/amba/fabric"
	"github.com/sarchlab/amba/sim"
	"github.com/sarchlab/amba/simulation"
)

// ErrScenarioFailed is returned when a built-in scenario does not behave as
// described.
var ErrScenarioFailed = errors.New("scenario failed")

type busRecorder struct {
	records []fabric.CycleRecord
}

func (h *busRecorder) Func(ctx sim.HookCtx) {
	if rec, ok := ctx.Item.(fabric.CycleRecord); ok {
		h.records = append(h.records, rec)
	}
}

// acceptedAddresses returns the addresses of the address phases that the
// bus accepted, in order.
func (h *busRecorder) acceptedAddresses() []uint32 {
	var addrs []uint32

	for _, rec := range h.records {
		if rec.Request.Trans.Active() && rec.Response.Ready {
			addrs = append(addrs, rec.Request.Addr)
		}
	}

	return addrs
}

func (h *busRecorder) acceptedGrants() []int {
	var grants []int

	for _, rec := range h.records {
		if rec.Request.Trans.Active() && rec.Response.Ready {
			grants = append(grants, rec.Grant)
		}
	}

	return grants
}

type scenarioCheck func(
	s *simulation.Simulation,
	rec *busRecorder,
	report *simulation.Report,
) error

type scenario struct {
	name        string
	description string
	masters     int
	script      config.Script
	check       scenarioCheck
}

func singleRAM(masters int) *config.System {
	return &config.System{
		Name:      "Soc",
		FreqMHz:   100,
		Masters:   masters,
		QueueSize: 16,
		Targets: []config.TargetConfig{
			{Name: "Ram", Base: 0x0, Size: 0x400},
		},
	}
}

func expectAddresses(want ...uint32) scenarioCheck {
	return func(_ *simulation.Simulation, rec *busRecorder, _ *simulation.Report) error {
		if diff := cmp.Diff(want, rec.acceptedAddresses()); diff != "" {
			return errors.Wrapf(ErrScenarioFailed, "addresses (-want +got):\n%s", diff)
		}

		return nil
	}
}

var scenarios = []scenario{
	{
		name:        "a",
		description: "write 0xDEADBEEF at 0x4, then read it back",
		masters:     1,
		script: config.Script{Transactions: []config.TransactionConfig{
			{Addr: 0x4, Write: true, Data: []uint32{0xDEADBEEF}},
			{Addr: 0x4, Expect: []uint32{0xDEADBEEF}},
		}},
	},
	{
		name:        "b",
		description: "INCR4 read from 0x10",
		masters:     1,
		script: config.Script{Transactions: []config.TransactionConfig{
			{Addr: 0x10, Burst: "INCR4"},
		}},
		check: expectAddresses(0x10, 0x14, 0x18, 0x1C),
	},
	{
		name:        "c",
		description: "WRAP4 read from 0x1C",
		masters:     1,
		script: config.Script{Transactions: []config.TransactionConfig{
			{Addr: 0x1C, Burst: "WRAP4"},
		}},
		check: expectAddresses(0x1C, 0x10, 0x14, 0x18),
	},
	{
		name:        "d",
		description: "byte write to the unmapped address 0xFFFFFFFF",
		masters:     1,
		script: config.Script{Transactions: []config.TransactionConfig{
			{Addr: 0xFFFFFFFF, Write: true, Size: 1, Data: []uint32{0xAB},
				ExpectError: true},
		}},
		check: func(
			s *simulation.Simulation,
			_ *busRecorder,
			report *simulation.Report,
		) error {
			txn := report.Results[0].Txn
			if n := txn.NumCompleted(); n != 0 {
				return errors.Wrapf(ErrScenarioFailed, "%d beats committed", n)
			}

			if n := s.Interconnect().NumDecodeErrors(); n != 1 {
				return errors.Wrapf(ErrScenarioFailed, "%d decode errors", n)
			}

			return nil
		},
	},
	{
		name:        "e",
		description: "two masters contending for four transfers each",
		masters:     2,
		script:      contendingScript(),
		check: func(
			_ *simulation.Simulation,
			rec *busRecorder,
			_ *simulation.Report,
		) error {
			grants := rec.acceptedGrants()
			for i := 1; i < len(grants); i++ {
				if grants[i] == grants[i-1] {
					return errors.Wrapf(ErrScenarioFailed,
						"master %d granted twice in a row: %v", grants[i], grants)
				}
			}

			return nil
		},
	},
}

func contendingScript() config.Script {
	var txns []config.TransactionConfig

	for i := 0; i < 4; i++ {
		for m := 0; m < 2; m++ {
			addr := uint32(0x100*m + 4*i)
			txns = append(txns, config.TransactionConfig{
				Master: m,
				Addr:   addr,
				Write:  true,
				Data:   []uint32{addr},
			})
		}
	}

	return config.Script{Transactions: txns}
}

var scenarioCmd = &cobra.Command{
	Use:       "scenario [a|b|c|d|e|all]",
	Short:     "Run the built-in scenarios.",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"a", "b", "c", "d", "e", "all"},
	RunE: func(cmd *cobra.Command, args []string) error {
		name := strings.ToLower(args[0])
		failed := 0

		for _, sc := range scenarios {
			if name != "all" && name != sc.name {
				continue
			}

			err := runScenario(cmd, sc)

			result := "PASS"
			if err != nil {
				result = "FAIL: " + err.Error()
				failed++
			}

			fmt.Fprintf(cmd.OutOrStdout(), "scenario %s (%s): %s\n",
				strings.ToUpper(sc.name), sc.description, result)
		}

		if failed > 0 {
			return errors.Wrapf(ErrScenarioFailed, "%d scenarios", failed)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(scenarioCmd)
	addSimulationFlags(scenarioCmd)
}

func runScenario(cmd *cobra.Command, sc scenario) error {
	s, err := buildSimulation(cmd, singleRAM(sc.masters))
	if err != nil {
		return err
	}
	defer s.Terminate()

	rec := &busRecorder{}
	s.Bus().AcceptHook(rec)

	maxCycles, _ := cmd.Flags().GetUint64("max-cycles")

	script := sc.script
	report, err := s.RunScript(&script, maxCycles)
	if err != nil {
		return err
	}

	if sc.check == nil {
		return nil
	}

	return sc.check(s, rec, report)
}
