// Package provider defines the contracts for interchangeable speech-to-text
// and summarization backends, their shared error taxonomy, and the built-in
// mock backend. It abstracts the details of external AI service integration
// (sherpa-onnx, Gemini) so the pipeline can invoke providers without
// coupling to a specific backend. Concrete cloud/local implementations live
// under internal/platform; construction by name is handled by the factory
// subpackage.
package provider
