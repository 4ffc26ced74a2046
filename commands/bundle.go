package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var bundleOut string

func init() {
	bundleCmd.Flags().StringVarP(&bundleOut, "output", "o", "", "write the archive to this file (default <name>.tar.gz)")
}

var bundleCmd = &cobra.Command{
	Use:   "bundle <certificate>",
	Short: "Write a client bundle (config, CA, certificate, key) as tar.gz",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, d, err := setup()
		if err != nil {
			return err
		}
		defer closeDB(d)

		b, err := newRenderer(d).ClientBundle(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		out := bundleOut
		if out == "" {
			out = args[0] + ".tar.gz"
		}
		if err := os.WriteFile(out, b.Archive, 0o600); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s sha256:%s\n", out, b.Checksum)
		return nil
	},
}
