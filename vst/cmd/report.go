package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sarchlab/vst/datarecording"
	"github.com/sarchlab/vst/stats"
	"github.com/sarchlab/vst/tracing"
)

var reportCmd = &cobra.Command{
	Use:   "report <db>",
	Short: "Summarize a recorded replay.",
	Long: "`report <db>` reads the SQLite file written by `run --record` " +
		"and prints the final statistics, the flash operations by kind " +
		"and the FTL tasks by kind.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reader, err := datarecording.NewReader(args[0])
		if err != nil {
			return err
		}
		defer reader.Close()

		return printRecording(cmd.Context(), cmd.OutOrStdout(), reader)
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
}

func printRecording(
	ctx context.Context,
	out io.Writer,
	reader datarecording.DataReader,
) error {
	reader.MapTable(stats.SummaryTable, stats.SummaryEntry{})
	reader.MapTable(stats.FlashOpsTable, stats.OpEntry{})
	reader.MapTable(tracing.TraceTable, tracing.TaskTableEntry{})

	rows, _, err := reader.Query(ctx, stats.SummaryTable,
		datarecording.QueryParams{Limit: 1})
	if err != nil {
		return fmt.Errorf("cannot read summary: %w", err)
	}

	if len(rows) == 0 {
		fmt.Fprintln(out, "Replay did not finish")
	} else {
		s := rows[0].(*stats.SummaryEntry)
		verdict := "Fail!"
		if s.Passed {
			verdict = "Pass!"
		}

		fmt.Fprintf(out, "%s\n"+
			"Bytes read: %d\nBytes written: %d\n"+
			"Write amplification: %.3f\n",
			verdict, s.BytesRead, s.BytesWritten, s.WriteAmplification)
	}

	kinds := []stats.OpKind{
		stats.OpRead, stats.OpWrite, stats.OpCopyback, stats.OpErase,
	}
	for _, kind := range kinds {
		n, err := count(ctx, reader, stats.FlashOpsTable, string(kind))
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "Flash %s: %d\n", kind, n)
	}

	for _, kind := range []string{"req_in", "gc"} {
		n, err := count(ctx, reader, tracing.TraceTable, kind)
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "Tasks %s: %d\n", kind, n)
	}

	return nil
}

func count(
	ctx context.Context,
	reader datarecording.DataReader,
	table, kind string,
) (int, error) {
	_, n, err := reader.Query(ctx, table, datarecording.QueryParams{
		Where: "Kind = ?",
		Args:  []any{kind},
		Limit: 1,
	})
	if err != nil {
		return 0, fmt.Errorf("cannot count %s in %s: %w", kind, table, err)
	}

	return n, nil
}
