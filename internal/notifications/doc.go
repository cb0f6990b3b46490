// Package notifications delivers user-visible push notifications through
// ntfy, with a noop fallback when no topic is configured.
package notifications
