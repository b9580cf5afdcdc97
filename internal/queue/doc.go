// Package queue provides the durable, prioritized job broker feeding the
// worker pools. It owns job lifecycle metadata (attempts, backoff,
// retention, stall detection) independent of business logic; delivery is
// at-least-once and workers claim jobs through an explicit Acquire step
// before producing side effects. The in-memory implementation serves local
// development and tests; the contract admits Redis-backed or managed
// brokers without changes to producers or consumers.
package queue
