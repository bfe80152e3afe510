// Package cli is the ticketing command line.
package cli

import (
	"context"
	"io"
	"os"

	"github.com/jlynch25/golang-ticketing/ticketing"
	"github.com/spf13/cobra"
)

// Execute runs the command line and exits non-zero on failure.
func Execute() {
	if err := run(context.Background(), os.Stdout, os.Args[1:]); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, out io.Writer, args []string) error {
	a := newApp(out)
	defer a.close()

	root := a.rootCmd()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "ticketing",
		Short:        "Event ticketing on a shared ledger",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
	}
	root.SetOut(a.out)
	root.SetErr(a.out)

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", os.Getenv("TICKETING_CONFIG"), "path to a YAML config file")
	flags.StringVar(&a.signer, "signer", os.Getenv("TICKETING_SIGNER"), "address acting on the local ledger")
	flags.StringVar(&a.nodeAddr, "node", "", "submit to the node at this address instead of the local ledger")

	root.AddCommand(
		a.initCmd(),
		a.eventCmd(),
		a.ticketCmd(),
		a.metadataCmd(),
		a.mintCmd(),
		a.journalCmd(),
		a.nodeCmd(),
		a.keygenCmd(),
	)
	return root
}

func (a *app) initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize the program on the ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.run(cmd.Context(), false, ticketing.NewInstruction(ticketing.OpInitialize))
			if err != nil {
				return err
			}
			return a.printJSON(res.Program)
		},
	}
}
