package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sarchlab/memsim/monitoring"
	"github.com/sarchlab/memsim/simulator"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the memory system over HTTP.",
	Long: "`serve` starts the monitoring server. With --autoplay, the " +
		"commands of a script are applied one per --interval.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		autoplay, _ := cmd.Flags().GetString("autoplay")
		interval, _ := cmd.Flags().GetDuration("interval")

		if interval <= 0 {
			return fmt.Errorf("interval must be positive, got %v", interval)
		}

		s := newSession(cfg, "memsim", os.Stderr)
		defer s.Close()

		monitor := monitoring.NewMonitor(s.sim).
			WithPortNumber(cfg.Port).
			WithTagCounter(s.tags).
			WithBrowser(cfg.Open)

		ctx, stop := signal.NotifyContext(cmd.Context(),
			os.Interrupt, syscall.SIGTERM)
		defer stop()

		var player *simulator.Player

		if autoplay != "" {
			commands, err := collectCommands(nil, autoplay)
			if err != nil {
				return err
			}

			player = simulator.NewPlayer(s.sim, commands, interval)
			monitor.WithPlayer(player)
		}

		monitor.StartServer()

		if player != nil {
			player.Start(ctx)
		}

		<-ctx.Done()

		if player != nil {
			player.Stop()
		}

		shutdownCtx, cancel := context.WithTimeout(
			context.Background(), 5*time.Second)
		defer cancel()

		err := monitor.StopServer(shutdownCtx)
		if err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		return s.Close()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().Int("port", 0,
		"Port of the server, a random one is used below 1000")
	serveCmd.Flags().Bool("open", false, "Open the server in a browser")
	serveCmd.Flags().String("autoplay", "",
		"Script whose commands are applied one by one")
	serveCmd.Flags().Duration("interval", 500*time.Millisecond,
		"Time between two commands of the script")
}
