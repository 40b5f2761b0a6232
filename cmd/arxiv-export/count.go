package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (a *app) newCountCmd() *cobra.Command {
	opts := &urlFlags{}
	cmd := &cobra.Command{
		Use:   "count",
		Short: "Print the number of results for a search URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			query, err := opts.parse()
			if err != nil {
				return err
			}
			client, release := a.newClient(cmd)
			defer release()

			total, err := a.newExporter(client).Total(cmd.Context(), query)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), total)
			return nil
		},
	}
	opts.register(cmd)
	return cmd
}
