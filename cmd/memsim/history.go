package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sarchlab/memsim/datarecording"
)

var historyCmd = &cobra.Command{
	Use:   "history [file]",
	Short: "List the commands recorded into a SQLite file.",
	Long: "`history` reads the file given as argument, or the file set " +
		"with --record or MEMSIM_RECORD.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		session, _ := cmd.Flags().GetString("session")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		path := cfg.Record
		if len(args) > 0 {
			path = args[0]
		}

		if path == "" {
			return fmt.Errorf("no recording file given")
		}

		return printHistory(cmd.Context(), cmd.OutOrStdout(),
			path, session, limit, offset)
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().String("session", "",
		"Only list the commands of one session")
	historyCmd.Flags().Int("limit", 0,
		"Maximum number of commands to list, 0 for all")
	historyCmd.Flags().Int("offset", 0,
		"Number of commands to skip before listing")
}

func printHistory(
	ctx context.Context,
	w io.Writer,
	path, session string,
	limit, offset int,
) error {
	if limit < 0 || offset < 0 {
		return fmt.Errorf("limit and offset cannot be negative")
	}

	filename := strings.TrimSuffix(path, ".sqlite3") + ".sqlite3"

	_, err := os.Stat(filename)
	if err != nil {
		return err
	}

	reader := datarecording.NewReader(filename)
	defer reader.Close()

	entries, total, err := datarecording.ReadCommands(
		ctx, reader, session, limit, offset)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Session\tSeq\tCommand\tOutcome\tFaults\tFrames\tPressure")

	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%d\t%d\t%s\n",
			e.Session, e.Seq, e.Command, e.Outcome,
			e.PageFaults, e.UsedFrames, e.Pressure)
	}

	err = tw.Flush()
	if err != nil {
		return err
	}

	if offset > 0 {
		fmt.Fprintf(w, "%d of %d commands after the first %d\n",
			len(entries), total, offset)

		return nil
	}

	fmt.Fprintf(w, "%d of %d commands\n", len(entries), total)

	return nil
}
