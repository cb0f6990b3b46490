// Command mirrorsync is the CLI for controlling the mirrorsync daemon:
// submitting photos, triggering syncs, and inspecting the pending queue.
package main
