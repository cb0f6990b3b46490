package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mirrorsync/internal/ipc"
)

func newSyncCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Request an immediate sync of queued photos",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Sync()
				if err != nil {
					return err
				}
				if resp.Scheduled {
					fmt.Fprintln(cmd.OutOrStdout(), "Sync scheduled")
				}
				return nil
			})
		},
	}
}
