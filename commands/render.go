package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"ovpnscale/internal/controller"
	"ovpnscale/internal/repo"
)

var showChecksum bool

func init() {
	renderCmd.PersistentFlags().BoolVar(&showChecksum, "checksum", false, "print the sha256 of the output to stderr")
	renderCmd.AddCommand(renderServerCmd, renderClientCmd)
}

func newRenderer(d *gorm.DB) *controller.Renderer {
	return controller.NewRenderer(repo.NewServerStore(d), repo.NewClientStore(d), repo.NewCertStore(d), repo.NewPKIStore(d))
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Print a rendered config file",
}

var renderServerCmd = &cobra.Command{
	Use:   "server <id>",
	Short: "Render a server config",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRender(cmd, args[0], (*controller.Renderer).RenderServer)
	},
}

var renderClientCmd = &cobra.Command{
	Use:   "client <id>",
	Short: "Render a client config",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRender(cmd, args[0], (*controller.Renderer).RenderClient)
	},
}

type renderFunc func(*controller.Renderer, context.Context, uint) (*controller.Artifact, error)

func runRender(cmd *cobra.Command, arg string, fn renderFunc) error {
	id, err := strconv.ParseUint(arg, 10, 32)
	if err != nil {
		return fmt.Errorf("invalid id %q", arg)
	}
	_, d, err := setup()
	if err != nil {
		return err
	}
	defer closeDB(d)

	a, err := fn(newRenderer(d), cmd.Context(), uint(id))
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), a.Text)
	if showChecksum {
		fmt.Fprintln(cmd.ErrOrStderr(), a.Checksum)
	}
	return nil
}
