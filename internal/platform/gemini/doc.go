// Package gemini implements the summarization provider contract on top of
// Google's Gemini API. It prompts the model for a strict JSON summary of a
// transcript and maps API, safety, and parse failures onto the provider
// error taxonomy (transient vs. permanent).
package gemini
