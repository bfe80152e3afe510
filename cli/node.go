package cli

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/jlynch25/golang-ticketing/network"
	"github.com/perlin-network/noise"
	"github.com/spf13/cobra"
)

// ErrNodeRemote is returned when node start is given --node.
var ErrNodeRemote = errors.New("node start serves the local ledger; use --config to set bootstrap peers")

func (a *app) nodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "node",
		Short: "Run a ledger node",
	}
	cmd.AddCommand(a.nodeStartCmd())
	return cmd
}

func (a *app) nodeStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Serve the local ledger to peers until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.nodeAddr != "" {
				return ErrNodeRemote
			}
			ctx := cmd.Context()

			l, err := a.openLedger()
			if err != nil {
				return err
			}
			if _, err := l.program.Initialize(ctx); err != nil {
				return err
			}

			cfg, err := a.nodeConfig(false)
			if err != nil {
				return err
			}
			node, err := network.NewNode(cfg, l.program, a.log)
			if err != nil {
				return err
			}
			if err := node.Listen(); err != nil {
				return err
			}

			node.Bootstrap(ctx, a.cfg.Node.Bootstrap...)
			node.Discover()
			fmt.Fprintf(a.out, "Serving %s as %s. Ctrl-C to stop.\n", node.Addr(), node.Identity())

			return network.WaitForShutdown(node)
		},
	}
}

func (a *app) keygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate a node identity key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pub, priv, err := noise.GenerateKeys(nil)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Private key: %s\n", hex.EncodeToString(priv[:]))
			fmt.Fprintf(a.out, "Public key:  %s\n", hex.EncodeToString(pub[:]))
			fmt.Fprintf(a.out, "Address:     %s\n", network.IdentityOf(pub))
			return nil
		},
	}
}
