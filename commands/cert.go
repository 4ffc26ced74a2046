package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"ovpnscale/internal/pki"
	"ovpnscale/internal/repo"
)

var activate bool

func init() {
	certIssueCmd.Flags().BoolVar(&activate, "activate", false, "mark the certificate active after issuing")
	certCmd.AddCommand(certIssueCmd, certRevokeOwnerCmd)
}

var certCmd = &cobra.Command{
	Use:   "cert",
	Short: "Manage certificate material",
}

var certIssueCmd = &cobra.Command{
	Use:   "issue <name>",
	Short: "Issue key and certificate for a stored certificate identity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, d, err := setup()
		if err != nil {
			return err
		}
		defer closeDB(d)
		ctx := cmd.Context()

		certs := repo.NewCertStore(d)
		c, err := certs.Get(ctx, args[0])
		if err != nil {
			return err
		}
		svc := pki.New(repo.NewPKIStore(d))
		ca, err := svc.EnsureRootCA(ctx, cfg.PKI.CAName, 10*cfg.PKI.CertTTL)
		if err != nil {
			return err
		}
		if err := svc.Issue(ctx, ca, c, cfg.PKI.CertTTL); err != nil {
			return err
		}
		if activate {
			if err := certs.SetActive(ctx, c.Name, true); err != nil {
				return err
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s issued by %s, valid until %s\n", c.Name, ca.Name, c.NotAfter.UTC().Format(time.RFC3339))
		return nil
	},
}

var certRevokeOwnerCmd = &cobra.Command{
	Use:   "delete-owner <owner>",
	Short: "Delete every certificate of an owner",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, d, err := setup()
		if err != nil {
			return err
		}
		defer closeDB(d)
		n, err := repo.NewCertStore(d).DeleteByOwner(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d certificate(s) deleted\n", n)
		return nil
	},
}
