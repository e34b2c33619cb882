package cmd

import (
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/sarchlab/amba/config"
	"github.com/sarchlab/amba/fabric"
	"github.com/sarchlab/amba/simulation"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a traffic script on a system.",
	Long: "`run --system sys.yaml --script txns.yaml` builds the system, " +
		"issues every transaction of the script and reports the results.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		systemPath, _ := cmd.Flags().GetString("system")
		scriptPath, _ := cmd.Flags().GetString("script")

		if systemPath == "" || scriptPath == "" {
			return fmt.Errorf("both --system and --script are required")
		}

		sys, err := config.LoadSystem(systemPath)
		if err != nil {
			return err
		}

		script, err := config.LoadScript(scriptPath)
		if err != nil {
			return err
		}

		return runScript(cmd, sys, script)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("system", "", "YAML file describing the system")
	runCmd.Flags().String("script", "", "YAML file listing the transactions")
	addSimulationFlags(runCmd)
}

func addSimulationFlags(c *cobra.Command) {
	c.Flags().Bool("trace", false, "Record tasks into a SQLite database")
	c.Flags().String("trace-file", "", "Trace database name, without extension")
	c.Flags().Bool("monitor", false, "Serve the monitoring API")
	c.Flags().Int("monitor-port", 0, "Port of the monitoring API")
	c.Flags().Bool("open-browser", false,
		"Open the monitoring API in a web browser")
	c.Flags().Bool("engine", false, "Drive the bus with the event engine")
	c.Flags().Bool("verbose", false, "Print the bus signals of every cycle")
	c.Flags().Uint64("max-cycles", 1_000_000, "Give up after this many cycles")
}

func buildSimulation(
	cmd *cobra.Command,
	sys *config.System,
) (*simulation.Simulation, error) {
	flags := cmd.Flags()
	b := simulation.MakeBuilder().WithSystem(sys)

	if on, _ := flags.GetBool("trace"); on {
		name, _ := flags.GetString("trace-file")
		b = b.WithTrace().WithOutputFileName(name)
	}

	if on, _ := flags.GetBool("monitor"); on {
		port, _ := flags.GetInt("monitor-port")
		b = b.WithMonitoring(port)
	}

	if on, _ := flags.GetBool("engine"); on {
		b = b.WithEngine()
	}

	s, err := b.Build()
	if err != nil {
		return nil, err
	}

	if open, _ := flags.GetBool("open-browser"); open && s.Monitor() != nil {
		if err := browser.OpenURL(s.Monitor().URL()); err != nil {
			log.Printf("cannot open browser: %v", err)
		}
	}

	if on, _ := flags.GetBool("verbose"); on {
		logger := log.New(cmd.ErrOrStderr(), "", 0)
		s.Bus().AcceptHook(fabric.NewCycleLogger(logger))
	}

	return s, nil
}

func runScript(
	cmd *cobra.Command,
	sys *config.System,
	script *config.Script,
) error {
	s, err := buildSimulation(cmd, sys)
	if err != nil {
		return err
	}
	defer s.Terminate()

	maxCycles, _ := cmd.Flags().GetUint64("max-cycles")

	report, runErr := s.RunScript(script, maxCycles)
	if report != nil {
		printReport(cmd.OutOrStdout(), s, report)
	}

	if on, _ := cmd.Flags().GetBool("monitor"); on {
		waitForInterrupt(cmd.ErrOrStderr())
	}

	return runErr
}

func printReport(
	w io.Writer,
	s *simulation.Simulation,
	report *simulation.Report,
) {
	for _, r := range report.Results {
		result := "ok"
		if r.Err != nil {
			result = r.Err.Error()
		}

		fmt.Fprintf(w, "%4d %-8s %-5s 0x%08x %v -> %s\n",
			r.Index, r.Txn.Status(), direction(r.Txn.Req.Write),
			r.Txn.Req.Addr, r.Txn.ReadData(), result)
	}

	fmt.Fprintf(w, "%d transactions, %d failed, %d cycles\n",
		len(report.Results), report.NumFailed(), report.Cycles)

	m := report.Metrics
	fmt.Fprintf(w, "average latency %.3gs, busy %.3gs, %d wait cycles, %d faults\n",
		float64(m.AverageLatency), float64(m.BusyTime), m.WaitCycles, m.Faults)

	for _, st := range s.Stats() {
		fmt.Fprintf(w, "  %-24s accesses=%d faults=%d\n",
			st.Name, st.Accesses, st.Faults)
	}
}

func direction(write bool) string {
	if write {
		return "write"
	}

	return "read"
}

func waitForInterrupt(w io.Writer) {
	fmt.Fprintln(w, "Simulation finished. Press Ctrl-C to stop monitoring.")

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt)
	<-ch
}
