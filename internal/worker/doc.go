// Package worker runs the asynchronous pipeline stages. A Pool consumes
// one job type from the broker with bounded concurrency and a sliding
// window rate limit; Handlers hold the per-stage logic and are the only
// code that drives note lifecycle transitions during processing.
package worker
