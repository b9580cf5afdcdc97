// Package audit provides the append-only sink for lifecycle transitions and
// job outcomes: a durable store-backed sink, an optional Kafka broadcast, a
// fan-out combinator, and an in-memory recorder for tests. Sinks are
// observational; their failures never propagate into pipeline control flow.
package audit
