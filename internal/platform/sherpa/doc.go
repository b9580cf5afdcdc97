// Package sherpa implements the speech-to-text provider contract on top of
// a local sherpa-onnx offline transducer recognizer. Audio arrives as WAV
// bytes (PCM16), is decoded in memory, and runs through one offline decode
// pass per job.
package sherpa
