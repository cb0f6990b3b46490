package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"mirrorsync/internal/config"
	"mirrorsync/internal/daemon"
	"mirrorsync/internal/ipc"
	"mirrorsync/internal/logging"
	"mirrorsync/internal/notifications"
	"mirrorsync/internal/queue"
	"mirrorsync/internal/syncer"
	"mirrorsync/internal/uploader"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open upload store", logging.Error(err))
		return
	}

	client := uploader.NewClient(cfg, logger)
	notifier := notifications.NewService(cfg)
	watcher := syncer.NewWatcher(cfg, client.ProbeURL(), logger)
	manager := syncer.NewManager(cfg, store, client, notifier, watcher, logger)

	d, err := daemon.New(cfg, store, manager, notifier, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		return
	}
	defer d.Close()

	ipcServer, err := ipc.NewServer(ctx, cfg.SocketPath(), d, logger)
	if err != nil {
		logger.Error("start IPC server", logging.Error(err))
		return
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		return
	}

	<-ctx.Done()
	logger.Info("mirrorsyncd shutting down")
}
