// Package lifecycle owns the note status state machine. Status advances
// only through Transition triggers; concurrent transitions on one note
// serialize through a per-note lock plus a compare-and-swap store update,
// and stale triggers from at-least-once job delivery are absorbed as
// no-ops rather than errors.
package lifecycle
