package cli

import (
	"fmt"

	"github.com/jlynch25/golang-ticketing/minting"
	"github.com/jlynch25/golang-ticketing/wallet"
	"github.com/spf13/cobra"
)

func (a *app) mintCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mint",
		Short: "Bulk ticket issuance",
	}
	cmd.AddCommand(a.mintBatchCmd())
	return cmd
}

// issuer returns what batch minting runs against and the identity it acts
// as.
func (a *app) issuer() (minting.Issuer, wallet.Address, error) {
	if a.nodeAddr != "" {
		client, err := a.remote()
		if err != nil {
			return nil, "", err
		}
		return client, client.Identity(), nil
	}
	if a.signer == "" {
		return nil, "", ErrNoSigner
	}
	l, err := a.openLedger()
	if err != nil {
		return nil, "", err
	}
	return l.program, wallet.Address(a.signer), nil
}

func (a *app) mintBatchCmd() *cobra.Command {
	var b minting.Batch
	cmd := &cobra.Command{
		Use:   "batch EVENT",
		Short: "Mint a ticket for every pinned descriptor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			issuer, authority, err := a.issuer()
			if err != nil {
				return err
			}
			b.Event, b.Authority = wallet.Address(args[0]), authority

			report, err := b.Run(cmd.Context(), issuer, a.log)
			if report != nil {
				for _, m := range report.Minted {
					fmt.Fprintf(a.out, "%s\t%s\t%s\n", m.FileName, m.Ticket.Seat, m.Ticket.Address)
				}
				fmt.Fprintf(a.out, "Minted %d, skipped %d\n", len(report.Minted), len(report.Skipped))
			}
			return err
		},
	}
	cmd.Flags().StringVar(&b.HashesPath, "hashes", "metadata_hashes.csv", "file_name,ipfs_hash list")
	cmd.Flags().StringVar(&b.ManifestPath, "manifest", "metadata-manifest.csv", "file_name,unique_id list")
	cmd.Flags().StringVar(&b.DescriptorDir, "metadata-dir", "metadata", "directory holding the descriptors")
	return cmd
}
