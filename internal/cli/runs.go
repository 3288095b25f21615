package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newRunsCmd(cc *cliContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent snapshot refreshes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			if limit <= 0 {
				return fmt.Errorf("invalid argument %d for \"--limit\": must be positive", limit)
			}
			a, err := openApp(cc.cfg)
			if err != nil {
				return err
			}
			defer closeApp(a, &err)

			runs, err := a.runs.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No load runs recorded.")
				return nil
			}
			for _, r := range runs {
				line := fmt.Sprintf("%s  %-7s  read %4d  wrote %4d  %8s  %s",
					r.StartedAt.Local().Format(time.DateTime), r.Status, r.RowsRead, r.RowsWritten,
					r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond), r.Source)
				if r.Error != "" {
					line += "  error: " + r.Error
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show")
	return cmd
}
