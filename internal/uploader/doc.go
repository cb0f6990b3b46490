// Package uploader performs the two-phase remote write for a photo
// submission: a binary object write to storage under a deterministic path,
// then the create_submission RPC registering its metadata.
package uploader
