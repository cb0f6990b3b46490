package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"strings"
	"sync"
	"time"

	"log/slog"

	"mirrorsync/internal/daemon"
	"mirrorsync/internal/logging"
	"mirrorsync/internal/queue"
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	daemon    *daemon.Daemon
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logger, ctx: ctx}
	if err := rpcServer.RegisterName("Mirror", srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		daemon:    d,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				s.logger.Warn("accept failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "ipc_accept_failed"),
					logging.String("impact", "IPC clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "Check socket permissions and restart the daemon if needed"))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldEventType, "ipc_socket_cleanup_failed"),
			logging.String("impact", "stale IPC socket may block future starts"),
			logging.String(logging.FieldErrorHint, "Remove the socket file manually or rerun mirrorsync stop"))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) log() *slog.Logger {
	if s.logger == nil {
		return logging.NewNop()
	}
	return s.logger.With(logging.String(logging.FieldComponent, "ipc"))
}

func convertUpload(upload *queue.Upload) UploadItem {
	return UploadItem{
		ID:          upload.ID,
		UserID:      upload.Payload.UserID,
		ChallengeID: upload.Payload.ChallengeID,
		FileName:    upload.Payload.FileName,
		Title:       upload.Payload.Title,
		Note:        upload.Payload.Note,
		Latitude:    upload.Payload.Latitude,
		Longitude:   upload.Payload.Longitude,
		SizeBytes:   int64(len(upload.Payload.Content)),
		CreatedAt:   upload.CreatedAt.Format(time.RFC3339),
		RetryCount:  upload.RetryCount,
	}
}

func (s *service) Start(_ StartRequest, resp *StartResponse) error {
	s.log().Debug("daemon start requested")
	if err := s.daemon.Start(s.ctx); err != nil {
		resp.Started = false
		resp.Message = err.Error()
		return nil
	}
	resp.Started = true
	resp.Message = "daemon started"
	s.log().Info("daemon started via IPC",
		logging.String(logging.FieldEventType, "daemon_start"))
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.log().Debug("daemon stop requested")
	s.daemon.Stop()
	resp.Stopped = true
	s.log().Info("daemon stopped via IPC",
		logging.String(logging.FieldEventType, "daemon_stop"))
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status(s.ctx)
	resp.Running = status.Running
	resp.Online = status.Online
	resp.PID = os.Getpid()
	resp.Pending = status.Queue.Pending
	resp.Retrying = status.Queue.Retrying
	resp.QueueDBPath = status.QueueDBPath
	resp.LockPath = status.LockFilePath
	if status.LastCycle != nil {
		resp.LastCycle = &CycleSummary{
			Trigger:    string(status.LastCycle.Trigger),
			Synced:     status.LastCycle.Synced,
			Failed:     status.LastCycle.Failed,
			Evicted:    status.LastCycle.Evicted,
			FinishedAt: status.LastCycle.FinishedAt.Format(time.RFC3339),
		}
	}
	return nil
}

func (s *service) Submit(req SubmitRequest, resp *SubmitResponse) error {
	if strings.TrimSpace(req.UserID) == "" {
		return errors.New("submit requires a user id")
	}
	if len(req.Content) == 0 {
		return errors.New("submit requires photo content")
	}
	s.log().Debug("submission received",
		logging.String("user_id", req.UserID),
		logging.Int("size_bytes", len(req.Content)))

	result, err := s.daemon.Submit(s.ctx, queue.Payload{
		UserID:      req.UserID,
		ChallengeID: req.ChallengeID,
		FileName:    req.FileName,
		Title:       req.Title,
		Note:        req.Note,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		Content:     req.Content,
	})
	if err != nil {
		return err
	}
	resp.Delivered = result.Delivered
	resp.UploadID = result.UploadID
	resp.PhotoURL = result.Location.PhotoURL
	resp.SubmissionID = result.Location.SubmissionID
	return nil
}

func (s *service) Sync(_ SyncRequest, resp *SyncResponse) error {
	s.log().Debug("manual sync requested")
	s.daemon.RequestSync()
	resp.Scheduled = true
	s.log().Info("manual sync scheduled",
		logging.String(logging.FieldEventType, "manual_sync"))
	return nil
}

func (s *service) QueueList(_ QueueListRequest, resp *QueueListResponse) error {
	uploads, err := s.daemon.ListQueue(s.ctx)
	if err != nil {
		return err
	}
	resp.Items = make([]UploadItem, 0, len(uploads))
	for _, upload := range uploads {
		if upload == nil {
			continue
		}
		resp.Items = append(resp.Items, convertUpload(upload))
	}
	return nil
}

func (s *service) QueueRemove(req QueueRemoveRequest, resp *QueueRemoveResponse) error {
	if len(req.IDs) == 0 {
		return errors.New("queue remove requires at least one id")
	}
	s.log().Debug("queue remove requested", logging.Int("item_count", len(req.IDs)))
	var removed int64
	for _, id := range req.IDs {
		ok, err := s.daemon.RemoveUpload(s.ctx, id)
		if err != nil {
			return err
		}
		if ok {
			removed++
		}
	}
	resp.Removed = removed
	s.log().Info("queue items removed",
		logging.String(logging.FieldEventType, "queue_remove"),
		logging.Int64("removed_count", removed))
	return nil
}

func (s *service) QueueClear(_ QueueClearRequest, resp *QueueClearResponse) error {
	s.log().Debug("queue clear requested")
	removed, err := s.daemon.ClearQueue(s.ctx)
	if err != nil {
		return err
	}
	resp.Removed = removed
	s.log().Info("queue cleared",
		logging.String(logging.FieldEventType, "queue_clear"),
		logging.Int64("removed_count", removed))
	return nil
}

func (s *service) QueueHealth(_ QueueHealthRequest, resp *QueueHealthResponse) error {
	health, err := s.daemon.QueueHealth(s.ctx)
	if err != nil {
		return err
	}
	resp.Pending = health.Pending
	resp.Retrying = health.Retrying
	resp.OldestWaitSecs = int64(health.OldestWait.Seconds())
	resp.DBPath = s.daemon.Status(s.ctx).QueueDBPath
	return nil
}

func (s *service) DatabaseHealth(_ DatabaseHealthRequest, resp *DatabaseHealthResponse) error {
	health, err := s.daemon.DatabaseHealth(s.ctx)
	if err != nil && health.Error == "" {
		return err
	}
	resp.DBPath = health.DBPath
	resp.DatabaseExists = health.DatabaseExists
	resp.DatabaseReadable = health.DatabaseReadable
	resp.TableExists = health.TableExists
	resp.IntegrityCheck = health.IntegrityCheck
	resp.TotalUploads = health.TotalUploads
	resp.Error = health.Error
	if err != nil {
		return err
	}
	return nil
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	sent, message, err := s.daemon.TestNotification(s.ctx)
	resp.Sent = sent
	resp.Message = message
	return err
}
