package queue

import "time"

// Payload carries the submission fields captured in the foreground. Content is
// the raw photo bytes; Note and the coordinates are optional.
type Payload struct {
	UserID      string
	ChallengeID int64
	FileName    string
	Title       string
	Note        string
	Latitude    *float64
	Longitude   *float64
	Content     []byte
}

// Upload is a queued, not-yet-delivered photo submission. Only RetryCount
// changes after insertion; records are otherwise immutable until removed.
type Upload struct {
	ID         string
	Payload    Payload
	CreatedAt  time.Time
	RetryCount int
}

// HealthSummary describes aggregate queue counts for diagnostics.
type HealthSummary struct {
	Pending    int
	Retrying   int
	OldestWait time.Duration
}

// DatabaseHealth captures diagnostic information about the queue database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	TableExists      bool
	IntegrityCheck   bool
	TotalUploads     int
	Error            string
}
