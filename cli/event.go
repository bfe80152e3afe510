package cli

import (
	"fmt"
	"time"

	"github.com/jlynch25/golang-ticketing/ticketing"
	"github.com/jlynch25/golang-ticketing/wallet"
	"github.com/spf13/cobra"
)

func (a *app) eventCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "event",
		Short: "Create, inspect and close events",
	}
	cmd.AddCommand(a.eventCreateCmd(), a.eventShowCmd(), a.eventCloseCmd())
	return cmd
}

func (a *app) eventCreateCmd() *cobra.Command {
	var (
		name, venue, date string
		unix              int64
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an event owned by the signer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ins := ticketing.NewInstruction(ticketing.OpInitializeEvent)
			ins.Name, ins.Venue, ins.Date = name, venue, unix
			if date != "" {
				t, err := time.Parse(time.RFC3339, date)
				if err != nil {
					return fmt.Errorf("--date: %w", err)
				}
				ins.Date = t.Unix()
			}

			res, err := a.run(cmd.Context(), true, ins)
			if err != nil {
				return err
			}
			a.printEvent(res.Event)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "event name")
	cmd.Flags().StringVar(&venue, "venue", "", "venue")
	cmd.Flags().StringVar(&date, "date", "", "start time, RFC 3339")
	cmd.Flags().Int64Var(&unix, "unix", 0, "start time, unix seconds")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("venue")
	return cmd
}

func (a *app) eventShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show EVENT",
		Short: "Print an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ins := ticketing.NewInstruction(ticketing.OpGetEvent)
			ins.Event = wallet.Address(args[0])
			res, err := a.run(cmd.Context(), false, ins)
			if err != nil {
				return err
			}
			a.printEvent(res.Event)
			return nil
		},
	}
}

func (a *app) eventCloseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "close EVENT",
		Short: "Close an event. Its tickets remain.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ins := ticketing.NewInstruction(ticketing.OpCloseEvent)
			ins.Event = wallet.Address(args[0])
			if _, err := a.run(cmd.Context(), true, ins); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Event closed: %s\n", args[0])
			return nil
		},
	}
}
