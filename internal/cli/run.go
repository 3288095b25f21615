package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"countryreport/internal/report"
	"countryreport/internal/service"
)

func newRunCmd(cc *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Refresh the snapshot, then print the report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			a, err := openApp(cc.cfg)
			if err != nil {
				return err
			}
			defer closeApp(a, &err)

			if err := load(cmd.Context(), a, nil); err != nil {
				return err
			}
			return printReport(cmd.Context(), cmd.OutOrStdout(), a, "text")
		},
	}
}

func newLoadCmd(cc *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "load",
		Short: "Refresh the snapshot without printing the report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			a, err := openApp(cc.cfg)
			if err != nil {
				return err
			}
			defer closeApp(a, &err)

			return load(cmd.Context(), a, cmd.OutOrStdout())
		},
	}
}

func newReportCmd(cc *cliContext) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the report for the stored snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			if format != "text" && format != "json" {
				return fmt.Errorf("invalid argument %q for \"--format\": want text or json", format)
			}
			a, err := openApp(cc.cfg)
			if err != nil {
				return err
			}
			defer closeApp(a, &err)

			return printReport(cmd.Context(), cmd.OutOrStdout(), a, format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text or json")
	return cmd
}

// load runs one refresh. When summary is non-nil a one-line result is written to it.
func load(ctx context.Context, a *app, summary io.Writer) error {
	svc, err := a.refresher(nil)
	if err != nil {
		return err
	}
	result, err := svc.Refresh(ctx)
	if err != nil {
		return err
	}
	if summary != nil {
		fmt.Fprintf(summary, "Loaded %d countries in %s\n", result.RowsWritten, result.Duration.Round(time.Millisecond))
	}
	return nil
}

func printReport(ctx context.Context, w io.Writer, a *app, format string) error {
	rep, err := report.Build(ctx, a.countries)
	if errors.Is(err, report.ErrNoSnapshot) {
		return fmt.Errorf("%w: run \"countryreport load\" first", err)
	}
	if err != nil {
		return err
	}
	if format == "json" {
		return report.RenderJSON(w, rep)
	}
	return report.Render(w, rep, a.locale)
}

// reportOnRefresh prints a fresh report every time a refresh succeeds.
func reportOnRefresh(w io.Writer, a *app) service.EventEmitter {
	return service.EmitterFunc(func(ctx context.Context, event string, _ any) {
		if event != service.EventRefreshed {
			return
		}
		if err := printReport(ctx, w, a, "text"); err != nil {
			fmt.Fprintf(w, "report failed: %v\n", err)
		}
	})
}
