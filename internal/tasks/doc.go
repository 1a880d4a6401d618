// Package tasks implements the long-running and optimistic operations of the client.
//
// # Job Polling
//
// [Poller] submits a generation job and follows it until the server reports
// completed or failed:
//
//	Idle → Submitting → Polling → Completed | Failed
//	                      ↓
//	                  Cancelled
//
// The first status check runs as soon as the job is created; afterwards a check is
// scheduled only once the previous one resolved, every 3s while the job is pending or
// processing and every 5s after a network failure. Any other error ends the loop.
// Cancelling bumps a generation counter, so a response that arrives late is discarded.
//
// # Optimistic Mutations
//
// [Optimistic] applies a change locally, commits it to the server and restores the
// captured value on failure. [LikeTracker] and [Gallery] are built on it, and
// [NotificationFeed] uses it to clear the unread badge.
//
// # Progress Reporting
//
// Operations report [ProgressUpdate] values on a channel. Sends use select with default
// so a slow reader never stalls polling.
package tasks
