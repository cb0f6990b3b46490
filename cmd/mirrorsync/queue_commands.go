package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"mirrorsync/internal/ipc"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the pending upload queue",
	}

	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueRemoveCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))
	queueCmd.AddCommand(newQueueHealthCommand(ctx))

	return queueCmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List pending uploads in sync order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.QueueList()
				if err != nil {
					return err
				}
				if len(resp.Items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				table := renderTable(
					[]string{"ID", "Title", "File", "Size", "Retries", "Queued"},
					buildQueueListRows(resp.Items),
					3, 4,
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}
}

func buildQueueListRows(items []ipc.UploadItem) [][]string {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		title := item.Title
		if title == "" {
			title = "(untitled)"
		}
		rows = append(rows, []string{
			shortID(item.ID),
			title,
			item.FileName,
			humanize.Bytes(uint64(item.SizeBytes)),
			strconv.Itoa(item.RetryCount),
			formatQueuedAt(item.CreatedAt),
		})
	}
	return rows
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatQueuedAt(created string) string {
	ts, err := time.Parse(time.RFC3339, created)
	if err != nil {
		return created
	}
	return humanize.Time(ts)
}

func newQueueRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id> [id...]",
		Short: "Remove pending uploads by id",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.QueueRemove(args)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d upload(s)\n", resp.Removed)
				return nil
			})
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var confirmed bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove all pending uploads",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirmed {
				return fmt.Errorf("refusing to clear the queue without --yes")
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.QueueClear()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d upload(s)\n", resp.Removed)
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&confirmed, "yes", "y", false, "Confirm clearing every pending upload")
	return cmd
}

func newQueueHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show queue and database diagnostics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				health, err := client.QueueHealth()
				if err != nil {
					return err
				}
				db, err := client.DatabaseHealth()
				if err != nil && db == nil {
					return err
				}

				stdout := cmd.OutOrStdout()
				colorize := shouldColorize(stdout)

				fmt.Fprintln(stdout, renderSectionHeader("Queue Health", colorize))
				fmt.Fprintln(stdout, renderStatusLine("Pending", statusOK, strconv.Itoa(health.Pending), colorize))
				retryKind := statusOK
				if health.Retrying > 0 {
					retryKind = statusWarn
				}
				fmt.Fprintln(stdout, renderStatusLine("Retrying", retryKind, strconv.Itoa(health.Retrying), colorize))
				if health.OldestWaitSecs > 0 {
					wait := (time.Duration(health.OldestWaitSecs) * time.Second).String()
					fmt.Fprintln(stdout, renderStatusLine("Oldest wait", statusInfo, wait, colorize))
				}

				if db != nil {
					fmt.Fprintln(stdout)
					fmt.Fprintln(stdout, renderSectionHeader("Database", colorize))
					fmt.Fprintln(stdout, renderStatusLine("Path", statusOK, db.DBPath, colorize))
					fmt.Fprintln(stdout, renderStatusLine("Readable", boolKind(db.DatabaseReadable), yesNo(db.DatabaseReadable), colorize))
					fmt.Fprintln(stdout, renderStatusLine("Table", boolKind(db.TableExists), yesNo(db.TableExists), colorize))
					fmt.Fprintln(stdout, renderStatusLine("Integrity", boolKind(db.IntegrityCheck), yesNo(db.IntegrityCheck), colorize))
					fmt.Fprintln(stdout, renderStatusLine("Uploads", statusOK, strconv.Itoa(db.TotalUploads), colorize))
					if db.Error != "" {
						fmt.Fprintln(stdout, renderStatusLine("Error", statusError, db.Error, colorize))
					}
				}
				return err
			})
		},
	}
}

func boolKind(ok bool) statusKind {
	if ok {
		return statusOK
	}
	return statusError
}
