package cli

import (
	"github.com/spf13/cobra"

	"countryreport/internal/service"
)

func newWatchCmd(cc *cliContext) *cobra.Command {
	var schedule string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep the snapshot fresh and print a report after every refresh",
		Long: `watch refreshes once, then again on every schedule tick and, when the
source is a local file, whenever that file is written. A failed refresh is
logged and the previous snapshot stays in place. Stop with Ctrl-C.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			cfg := cc.cfg
			if cmd.Flags().Changed("schedule") {
				cfg.Schedule = schedule
			}

			a, err := openApp(cfg)
			if err != nil {
				return err
			}
			defer closeApp(a, &err)

			svc, err := a.refresher(reportOnRefresh(cmd.OutOrStdout(), a))
			if err != nil {
				return err
			}
			return svc.Watch(cmd.Context(), service.WatchOptions{
				Schedule: cfg.Schedule,
				FilePath: cfg.Source.File,
			})
		},
	}
	cmd.Flags().StringVar(&schedule, "schedule", service.DefaultSchedule, "Refresh schedule (cron spec or @every <duration>)")
	return cmd
}
