package cli

import (
	"github.com/spf13/cobra"

	mcpserver "countryreport/internal/mcp"
)

func newMCPCmd(cc *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the snapshot tools over MCP (stdio)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			a, err := openApp(cc.cfg)
			if err != nil {
				return err
			}
			defer closeApp(a, &err)

			svc, err := a.refresher(nil)
			if err != nil {
				return err
			}
			srv := mcpserver.New(mcpserver.Deps{
				Refresher: svc,
				Reports:   a.countries,
				Runs:      a.runs,
				Store:     a.db,
				Locale:    a.locale,
				Version:   version,
			})
			return srv.ServeStdio()
		},
	}
}
