package commands

import (
	"github.com/spf13/cobra"

	"ovpnscale/config"
	"ovpnscale/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve rendered configs over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		app := &server.App{}
		if err := app.Initialize(cfg); err != nil {
			return err
		}
		return app.Run()
	},
}
