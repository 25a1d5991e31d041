package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sarchlab/memsim/simulator"
	"github.com/sarchlab/memsim/vm"
)

var runCmd = &cobra.Command{
	Use:   "run [command...]",
	Short: "Apply commands and print the resulting memory system.",
	Long: "`run allocate allocate access 1 free` applies the commands in " +
		"order. Commands can also be read from a file, one per line, " +
		"with --file.",
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		savePath, _ := cmd.Flags().GetString("save")
		loadPath, _ := cmd.Flags().GetString("load")

		commands, err := collectCommands(args, file)
		if err != nil {
			return err
		}

		s := newSession(cfg, "memsim", cmd.OutOrStdout())
		defer s.Close()

		if loadPath != "" {
			err = loadSnapshot(s.sim, loadPath)
			if err != nil {
				return err
			}
		}

		s.applyAll(commands)

		fmt.Fprintln(cmd.OutOrStdout())

		err = printState(cmd.OutOrStdout(), s.sim.State())
		if err != nil {
			return err
		}

		if savePath != "" {
			err = saveSnapshot(s.sim, savePath)
			if err != nil {
				return err
			}
		}

		return s.Close()
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().String("file", "", "Read commands from a script file")
	runCmd.Flags().String("save", "", "Write a JSON snapshot when done")
	runCmd.Flags().String("load", "", "Start from a JSON snapshot")
}

func collectCommands(args []string, file string) ([]vm.Command, error) {
	commands, err := parseWords(args)
	if err != nil {
		return nil, err
	}

	if file == "" {
		return commands, nil
	}

	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fromFile, err := parseScript(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}

	return append(commands, fromFile...), nil
}

func loadSnapshot(sim *simulator.Simulator, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return sim.Load(f, simulator.JSONCodec{})
}

func saveSnapshot(sim *simulator.Simulator, path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	defer func() {
		err = errors.Join(err, f.Close())
	}()

	return sim.Save(f, simulator.JSONCodec{})
}
