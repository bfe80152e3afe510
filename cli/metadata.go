package cli

import (
	"fmt"

	"github.com/jlynch25/golang-ticketing/metadata"
	"github.com/spf13/cobra"
)

func (a *app) metadataCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metadata",
		Short: "Produce ticket metadata descriptors",
	}
	cmd.AddCommand(a.metadataGenerateCmd())
	return cmd
}

func (a *app) metadataGenerateCmd() *cobra.Command {
	var (
		dir, prefix string
		count       int
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write one descriptor per seat using the metadata section of the config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if count < 1 {
				return fmt.Errorf("--count must be at least 1, got %d", count)
			}
			template := a.cfg.Metadata
			if f := cmd.Flags().Lookup("vip"); f.Changed {
				template.VIPCount, _ = cmd.Flags().GetInt("vip")
			}
			if f := cmd.Flags().Lookup("event-name"); f.Changed {
				template.EventName, _ = cmd.Flags().GetString("event-name")
			}

			paths, err := metadata.Generate(dir, template, metadata.Seats(prefix, count), a.log)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Generated %d descriptors in %s\n", len(paths), dir)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "out", "metadata", "output directory")
	cmd.Flags().StringVar(&prefix, "row", "A", "seat label prefix")
	cmd.Flags().IntVar(&count, "count", 200, "number of seats")
	cmd.Flags().Int("vip", 0, "number of leading VIP seats")
	cmd.Flags().String("event-name", "", "event name used in descriptor names")
	return cmd
}
