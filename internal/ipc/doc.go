// Package ipc provides JSON-RPC daemon control over a Unix domain socket.
//
// The server wraps the daemon facade and exposes submission, manual sync,
// queue inspection, and health endpoints; the client is used by the CLI.
package ipc
