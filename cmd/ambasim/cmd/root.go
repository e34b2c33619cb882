// Package cmd provides the command-line interface of ambasim.
package cmd

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/tebeka/atexit"
)

// EnvPrefix is the prefix of the environment variables that set flags. The
// flag max-cycles is read from AMBASIM_MAX_CYCLES.
const EnvPrefix = "AMBASIM_"

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ambasim",
	Short: "ambasim simulates AHB/APB bus systems cycle by cycle.",
	Long: `ambasim simulates AHB/APB bus systems cycle by cycle. Systems and ` +
		`traffic are described in YAML. Flags can also be set in a .env ` +
		`file or through ` + EnvPrefix + `* environment variables.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return loadEnv(cmd.Flags())
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}

func loadEnv(flags *pflag.FlagSet) error {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	var setErr error

	flags.VisitAll(func(f *pflag.Flag) {
		if f.Changed || setErr != nil {
			return
		}

		key := EnvPrefix + strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))
		if value, ok := os.LookupEnv(key); ok {
			setErr = flags.Set(f.Name, value)
		}
	})

	return setErr
}
