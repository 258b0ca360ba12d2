// Package redis implements the Redis-backed collaborators of the service.
//
// Provides IdempotencyStore (first-response replay for keyed writes), UnreadCountCache
// (read-through cache of inbox unread counts) and LeaderLease (single-runner lease for the
// reconciler). Every client is instrumented by MetricsHook and guarded by CircuitBreakerHook.
package redis
