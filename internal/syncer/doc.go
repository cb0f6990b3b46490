// Package syncer owns the drain loop that moves queued uploads to the
// backend. Triggers from connectivity changes, manual requests, and new
// submissions all coalesce into single-flight drain cycles, and each
// non-empty cycle ends with one aggregate notification.
package syncer
