// Package daemon coordinates the long-running mirrorsync process.
//
// It wires configuration, the upload store, the sync manager, and
// notifications into a single lifecycle with flock-based locking to prevent
// multiple instances. The daemon exposes the submission entry point, queue
// maintenance helpers, and health summaries consumed over IPC.
//
// Keep orchestration logic here: drain semantics live in the syncer while the
// daemon focuses on startup, shutdown, and high level coordination.
package daemon
