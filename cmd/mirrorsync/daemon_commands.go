package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"mirrorsync/internal/ipc"
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the mirrorsync daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()

			if client, err := ctx.dialClient(); err == nil {
				defer client.Close()
				resp, rpcErr := client.Start()
				if rpcErr != nil {
					return rpcErr
				}
				if resp.Started {
					fmt.Fprintln(stdout, "Daemon started")
				} else if strings.Contains(resp.Message, "already running") {
					fmt.Fprintln(stdout, "Daemon already running")
				} else {
					fmt.Fprintln(stdout, resp.Message)
				}
				return nil
			}

			fmt.Fprintln(stdout, "Daemon not running, launching...")
			if err := launchDaemon(ctx); err != nil {
				return err
			}
			if err := waitForSocket(ctx, 10*time.Second); err != nil {
				return err
			}
			fmt.Fprintln(stdout, "Daemon started")
			return nil
		},
	}

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the mirrorsync daemon (completely terminates the process)",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			client, err := ctx.dialClient()
			if err != nil {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			defer client.Close()

			status, err := client.Status()
			if err != nil {
				return err
			}
			if _, err := client.Stop(); err != nil {
				return err
			}
			if status.PID > 0 {
				fmt.Fprintf(stdout, "Stopping daemon process (pid %d)...\n", status.PID)
				if err := syscall.Kill(status.PID, syscall.SIGTERM); err != nil && !errors.Is(err, syscall.ESRCH) {
					return fmt.Errorf("terminate daemon process: %w", err)
				}
			}
			fmt.Fprintln(stdout, "Daemon stopped")
			return nil
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon and queue status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				status, err := client.Status()
				if err != nil {
					return err
				}

				stdout := cmd.OutOrStdout()
				colorize := shouldColorize(stdout)

				fmt.Fprintln(stdout, renderSectionHeader("Daemon", colorize))
				runningKind := statusWarn
				if status.Running {
					runningKind = statusOK
				}
				fmt.Fprintln(stdout, renderStatusLine("Syncing", runningKind, yesNo(status.Running), colorize))
				onlineKind := statusWarn
				onlineDetail := "offline"
				if status.Online {
					onlineKind = statusOK
					onlineDetail = "online"
				}
				fmt.Fprintln(stdout, renderStatusLine("Connectivity", onlineKind, onlineDetail, colorize))
				fmt.Fprintln(stdout, renderStatusLine("PID", statusOK, strconv.Itoa(status.PID), colorize))
				fmt.Fprintln(stdout, renderStatusLine("Database", statusOK, status.QueueDBPath, colorize))
				fmt.Fprintln(stdout)

				fmt.Fprintln(stdout, renderSectionHeader("Queue", colorize))
				rows := [][]string{
					{"Pending", strconv.Itoa(status.Pending)},
					{"Retrying", strconv.Itoa(status.Retrying)},
				}
				fmt.Fprintln(stdout, renderTable([]string{"State", "Count"}, rows, 1))

				if status.LastCycle != nil {
					fmt.Fprintln(stdout)
					fmt.Fprintln(stdout, renderSectionHeader("Last Sync", colorize))
					cycle := status.LastCycle
					fmt.Fprintln(stdout, renderStatusLine("Trigger", statusOK, cycle.Trigger, colorize))
					fmt.Fprintln(stdout, renderStatusLine("Synced", statusOK, strconv.Itoa(cycle.Synced), colorize))
					failedKind := statusOK
					if cycle.Failed > 0 {
						failedKind = statusWarn
					}
					fmt.Fprintln(stdout, renderStatusLine("Failed", failedKind, strconv.Itoa(cycle.Failed), colorize))
					if cycle.Evicted > 0 {
						fmt.Fprintln(stdout, renderStatusLine("Evicted", statusWarn, strconv.Itoa(cycle.Evicted), colorize))
					}
					fmt.Fprintln(stdout, renderStatusLine("Finished", statusOK, cycle.FinishedAt, colorize))
				}
				return nil
			})
		},
	}

	return []*cobra.Command{startCmd, stopCmd, statusCmd}
}

func launchDaemon(ctx *commandContext) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}
	daemonExe := filepath.Join(filepath.Dir(exe), "mirrorsyncd")
	if _, statErr := os.Stat(daemonExe); statErr != nil {
		daemonExe, err = exec.LookPath("mirrorsyncd")
		if err != nil {
			return fmt.Errorf("locate mirrorsyncd binary: %w", err)
		}
	}

	args := []string{}
	if ctx.configFlag != nil {
		if cfgPath := strings.TrimSpace(*ctx.configFlag); cfgPath != "" {
			args = append(args, "--config", cfgPath)
		}
	}
	launch := exec.Command(daemonExe, args...)
	launch.Stdout = nil
	launch.Stderr = nil
	launch.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := launch.Start(); err != nil {
		return fmt.Errorf("launch daemon: %w", err)
	}
	return launch.Process.Release()
}

func waitForSocket(ctx *commandContext, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		client, err := ipc.Dial(ctx.socketPath())
		if err == nil {
			client.Close()
			return nil
		}
		time.Sleep(200 * time.Millisecond)
	}
	return fmt.Errorf("daemon did not come up within %s", timeout)
}
