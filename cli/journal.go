package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jlynch25/golang-ticketing/ticketing"
	"github.com/spf13/cobra"
)

// ErrRemoteJournal is returned when journal commands are given --node.
var ErrRemoteJournal = errors.New("the journal can only be read from the local ledger")

func (a *app) journalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Inspect the operation journal",
	}
	cmd.AddCommand(a.journalPrintCmd())
	return cmd
}

func (a *app) journalPrintCmd() *cobra.Command {
	var verify bool
	cmd := &cobra.Command{
		Use:   "print",
		Short: "Print the journal from newest to oldest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.nodeAddr != "" {
				return ErrRemoteJournal
			}
			l, err := a.openLedger()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			if verify {
				if err := l.journal.Verify(ctx); err != nil {
					return err
				}
				fmt.Fprintln(a.out, "Journal verified")
			}

			iter, err := l.journal.Iterator(ctx)
			if err != nil {
				return err
			}
			for {
				block, err := iter.Next()
				if err != nil {
					return err
				}
				if block == nil {
					return nil
				}

				fmt.Fprintf(a.out, "Height: %d (%s)\n", block.Height, humanize.Time(time.Unix(block.Timestamp, 0)))
				fmt.Fprintf(a.out, "Previous Hash: %x\n", block.PrevHash)
				fmt.Fprintf(a.out, "Hash: %x\n", block.Hash)
				if change, err := ticketing.DecodeChange(block); err == nil {
					fmt.Fprintf(a.out, "Op: %s by %s\n", change.Op, change.Caller)
				}
				fmt.Fprintln(a.out)
			}
		},
	}
	cmd.Flags().BoolVar(&verify, "verify", false, "check every hash link first")
	return cmd
}
