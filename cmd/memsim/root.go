package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

var cfg = defaultConfig()

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "memsim",
	Short: "memsim simulates paging with a TLB and a swap area.",
	Long: `memsim simulates a small virtual memory system: 32 virtual pages, ` +
		`8 physical frames, 12 swap slots and a 4-entry TLB. Pages are ` +
		`evicted to swap in LRU order.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		envFile, err := cmd.Flags().GetString("env-file")
		if err != nil {
			return err
		}

		err = loadEnvFile(envFile)
		if err != nil {
			return fmt.Errorf("loading %s: %w", envFile, err)
		}

		err = cfg.applyEnv(os.LookupEnv)
		if err != nil {
			return err
		}

		return cfg.applyFlags(cmd)
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("env-file", ".env", "File to read MEMSIM_* variables from")
	flags.Int("log-capacity", cfg.LogCapacity,
		"Number of log lines the simulator keeps")
	flags.Bool("check-invariants", false,
		"Verify the memory system after every command")
	flags.String("record", "",
		"SQLite file that every applied command is recorded into")
}

// Execute adds all child commands to the root command and sets flags
// appropriately. It flushes the recorders before the process exits.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
