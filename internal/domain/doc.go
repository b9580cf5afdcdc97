// Package domain defines the core business entities of the voice-note
// pipeline: notes and their processing status, uploaded media references,
// transcripts, summaries, follow-up actions, and audit events. Entities
// carry their own validation; status transitions are owned by the
// lifecycle package.
package domain
