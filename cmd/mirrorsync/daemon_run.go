package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"mirrorsync/internal/daemon"
	"mirrorsync/internal/ipc"
	"mirrorsync/internal/logging"
	"mirrorsync/internal/notifications"
	"mirrorsync/internal/queue"
	"mirrorsync/internal/syncer"
	"mirrorsync/internal/uploader"
)

// newDaemonRunCommand runs the daemon in the foreground. Useful under
// process supervisors and for debugging; `mirrorsync start` launches the
// detached mirrorsyncd binary instead.
func newDaemonRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run the mirrorsync daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			runCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			store, err := queue.Open(cfg)
			if err != nil {
				return fmt.Errorf("open upload store: %w", err)
			}

			client := uploader.NewClient(cfg, logger)
			notifier := notifications.NewService(cfg)
			watcher := syncer.NewWatcher(cfg, client.ProbeURL(), logger)
			manager := syncer.NewManager(cfg, store, client, notifier, watcher, logger)

			d, err := daemon.New(cfg, store, manager, notifier, logger)
			if err != nil {
				return fmt.Errorf("create daemon: %w", err)
			}
			defer d.Close()

			ipcServer, err := ipc.NewServer(runCtx, cfg.SocketPath(), d, logger)
			if err != nil {
				return fmt.Errorf("start IPC server: %w", err)
			}
			defer ipcServer.Close()
			ipcServer.Serve()

			if err := d.Start(runCtx); err != nil {
				return fmt.Errorf("daemon start: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "mirrorsync daemon running (ctrl-c to stop)")
			<-runCtx.Done()
			logger.Info("mirrorsync daemon shutting down")
			return nil
		},
	}
}
