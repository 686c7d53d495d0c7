// Package notifier delivers best-effort owner notifications for
// materialized task instances.
//
// Delivery is fire-and-forget from the engine's perspective: enqueueing
// never blocks the batch pass, the queue drops when full, and sink failures
// are logged but never surface to materialization. Outbound messages are
// rate limited.
//
// # Sinks
//
// The service delegates delivery to a Sink. The Telegram sink sends to a
// fixed chat; the log sink (default) records notifications at info level so
// deployments without a chat target still get a trace.
package notifier
