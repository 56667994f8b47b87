package workflow

import (
	"notesmith/internal/queue"
	"notesmith/internal/stage"
)

// Decision is the planner's verdict for a job.
type Decision struct {
	// Stage is the entry stage; empty when Completed is set.
	Stage stage.Name
	// Completed reports that every checkpoint is present.
	Completed bool
	// Reason is a short human-readable explanation.
	Reason string
}

// Plan returns the earliest stage whose output is not yet valid and
// persisted. fileExists verifies the media checkpoint still points at a real
// file while the transcript still needs it; a nil fileExists trusts the
// recorded path. Plan has no side effects.
func Plan(job *queue.Job, fileExists func(string) bool) Decision {
	switch {
	case job == nil:
		return Decision{Stage: stage.Acquire, Reason: "job missing"}
	case !job.HasMedia():
		return Decision{Stage: stage.Acquire, Reason: "media not acquired"}
	case !job.HasTranscript() && fileExists != nil && !fileExists(job.MediaPath):
		return Decision{Stage: stage.Acquire, Reason: "media file missing"}
	case !job.HasTranscript():
		return Decision{Stage: stage.Transcribe, Reason: "transcript missing"}
	case !job.HasNotes():
		return Decision{Stage: stage.Synthesize, Reason: "notes missing"}
	default:
		return Decision{Completed: true, Reason: "notes present"}
	}
}

// Invalidate returns the patch that clears the input a precondition failure
// in name proved unusable. Transcribe drops the media checkpoint; Synthesize
// drops the transcript. Other stages have no upstream artifact to clear.
func Invalidate(name stage.Name) queue.Patch {
	switch name {
	case stage.Transcribe:
		return queue.Patch{}.WithMedia("", "")
	case stage.Synthesize:
		return queue.Patch{}.WithTranscript("")
	default:
		return queue.Patch{}
	}
}
