// Package transcript defines the canonical transcript text format shared by
// the transcribe and synthesize stages.
package transcript
