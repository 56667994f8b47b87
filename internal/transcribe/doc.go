// Package transcribe implements the speech-to-text stage. It uploads the
// acquired media file to an OpenAI-compatible transcription endpoint and
// stores the segments in the canonical "[start -> end] text" form.
package transcribe
