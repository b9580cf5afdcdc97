// Package service holds the producer-facing pipeline operations:
// scheduling stage jobs for notes, inspecting and cancelling them, and
// the explicit retry path for errored notes.
package service
