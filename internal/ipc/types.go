package ipc

// StartRequest resumes background syncing after a stop.
type StartRequest struct{}

// StartResponse indicates whether the daemon was started.
type StartResponse struct {
	Started bool   `json:"started"`
	Message string `json:"message"`
}

// StopRequest stops background syncing.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// CycleSummary mirrors the most recent drain cycle for status callers.
type CycleSummary struct {
	Trigger    string `json:"trigger"`
	Synced     int    `json:"synced"`
	Failed     int    `json:"failed"`
	Evicted    int    `json:"evicted"`
	FinishedAt string `json:"finished_at"`
}

// StatusResponse represents combined daemon/sync status information.
type StatusResponse struct {
	Running     bool          `json:"running"`
	Online      bool          `json:"online"`
	PID         int           `json:"pid"`
	Pending     int           `json:"pending"`
	Retrying    int           `json:"retrying"`
	LastCycle   *CycleSummary `json:"last_cycle"`
	QueueDBPath string        `json:"queue_db_path"`
	LockPath    string        `json:"lock_path"`
}

// SubmitRequest carries a new photo submission. Content travels base64
// encoded through the JSON codec.
type SubmitRequest struct {
	UserID      string   `json:"user_id"`
	ChallengeID int64    `json:"challenge_id"`
	FileName    string   `json:"file_name"`
	Title       string   `json:"title"`
	Note        string   `json:"note"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	Content     []byte   `json:"content"`
}

// SubmitResponse reports how the submission was handled.
type SubmitResponse struct {
	Delivered    bool   `json:"delivered"`
	UploadID     string `json:"upload_id"`
	PhotoURL     string `json:"photo_url"`
	SubmissionID string `json:"submission_id"`
}

// SyncRequest schedules a manual drain cycle.
type SyncRequest struct{}

// SyncResponse confirms the drain was scheduled.
type SyncResponse struct {
	Scheduled bool `json:"scheduled"`
}

// UploadItem describes one pending upload for CLI callers. The photo bytes
// are deliberately omitted; only their size crosses the socket.
type UploadItem struct {
	ID          string   `json:"id"`
	UserID      string   `json:"user_id"`
	ChallengeID int64    `json:"challenge_id"`
	FileName    string   `json:"file_name"`
	Title       string   `json:"title"`
	Note        string   `json:"note"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	SizeBytes   int64    `json:"size_bytes"`
	CreatedAt   string   `json:"created_at"`
	RetryCount  int      `json:"retry_count"`
}

// QueueListRequest fetches the pending queue.
type QueueListRequest struct{}

// QueueListResponse contains queue entries in drain order.
type QueueListResponse struct {
	Items []UploadItem `json:"items"`
}

// QueueRemoveRequest removes specific uploads by id.
type QueueRemoveRequest struct {
	IDs []string `json:"ids"`
}

// QueueRemoveResponse reports number of removed entries.
type QueueRemoveResponse struct {
	Removed int64 `json:"removed"`
}

// QueueClearRequest removes all pending uploads.
type QueueClearRequest struct{}

// QueueClearResponse reports number of removed entries.
type QueueClearResponse struct {
	Removed int64 `json:"removed"`
}

// QueueHealthRequest fetches aggregate diagnostics.
type QueueHealthRequest struct{}

// QueueHealthResponse reports queue health information.
type QueueHealthResponse struct {
	Pending        int    `json:"pending"`
	Retrying       int    `json:"retrying"`
	OldestWaitSecs int64  `json:"oldest_wait_secs"`
	DBPath         string `json:"db_path"`
}

// DatabaseHealthRequest fetches detailed database diagnostics.
type DatabaseHealthRequest struct{}

// DatabaseHealthResponse reports database health information.
type DatabaseHealthResponse struct {
	DBPath           string `json:"db_path"`
	DatabaseExists   bool   `json:"database_exists"`
	DatabaseReadable bool   `json:"database_readable"`
	TableExists      bool   `json:"table_exists"`
	IntegrityCheck   bool   `json:"integrity_check"`
	TotalUploads     int    `json:"total_uploads"`
	Error            string `json:"error"`
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports notification test outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
