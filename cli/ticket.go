package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/jlynch25/golang-ticketing/ticketing"
	"github.com/jlynch25/golang-ticketing/wallet"
	"github.com/spf13/cobra"
)

func (a *app) ticketCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ticket",
		Short: "Mint, verify, transfer and inspect tickets",
	}
	cmd.AddCommand(
		a.ticketMintCmd(),
		a.ticketVerifyCmd(),
		a.ticketTransferCmd(),
		a.ticketShowCmd(),
		a.ticketListCmd(),
	)
	return cmd
}

func (a *app) ticketMintCmd() *cobra.Command {
	var seat, category, ref string
	cmd := &cobra.Command{
		Use:   "mint EVENT",
		Short: "Mint a ticket for an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ins := ticketing.NewInstruction(ticketing.OpMintTicket)
			ins.Event = wallet.Address(args[0])
			ins.Seat, ins.Category, ins.Metadata = seat, category, ref

			res, err := a.run(cmd.Context(), true, ins)
			if err != nil {
				return err
			}
			a.printTicket(res.Ticket)
			return nil
		},
	}
	cmd.Flags().StringVar(&seat, "seat", "", "seat label")
	cmd.Flags().StringVar(&category, "category", "", "ticket category")
	cmd.Flags().StringVar(&ref, "metadata", "", "metadata reference, e.g. ipfs://<hash>")
	cmd.MarkFlagRequired("seat")
	cmd.MarkFlagRequired("category")
	cmd.MarkFlagRequired("metadata")
	return cmd
}

func (a *app) ticketVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify TICKET",
		Short: "Check a ticket in",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ins := ticketing.NewInstruction(ticketing.OpVerifyTicket)
			ins.Ticket = wallet.Address(args[0])
			if _, err := a.run(cmd.Context(), true, ins); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Ticket verified: %s\n", args[0])
			return nil
		},
	}
}

func (a *app) ticketTransferCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "transfer TICKET NEW_OWNER",
		Short: "Hand a ticket to a new owner",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ins := ticketing.NewInstruction(ticketing.OpTransferTicket)
			ins.Ticket, ins.NewOwner = wallet.Address(args[0]), wallet.Address(args[1])
			res, err := a.run(cmd.Context(), true, ins)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Ticket %s now owned by %s\n", res.Ticket.Address, res.Ticket.Owner)
			return nil
		},
	}
}

func (a *app) ticketShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show TICKET",
		Short: "Print a ticket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ins := ticketing.NewInstruction(ticketing.OpGetTicket)
			ins.Ticket = wallet.Address(args[0])
			res, err := a.run(cmd.Context(), false, ins)
			if err != nil {
				return err
			}
			a.printTicket(res.Ticket)
			return nil
		},
	}
}

func (a *app) ticketListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list EVENT",
		Short: "List the tickets of an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ins := ticketing.NewInstruction(ticketing.OpListTickets)
			ins.Event = wallet.Address(args[0])
			res, err := a.run(cmd.Context(), false, ins)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TICKET\tSEAT\tCATEGORY\tSCANNED\tOWNER")
			for _, t := range res.Tickets {
				fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\n", t.Address, t.Seat, t.Category, t.Scanned, t.Owner)
			}
			return w.Flush()
		},
	}
}
