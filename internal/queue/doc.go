// Package queue persists pending photo uploads in SQLite so submissions
// captured while offline survive process restarts until delivered or evicted.
//
// The queue is the sole source of truth for work not yet durably delivered.
// Records are immutable after insertion except for the retry counter; an
// upload is deleted only when delivery succeeded or its retry budget is
// exhausted.
package queue
