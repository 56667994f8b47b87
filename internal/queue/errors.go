package queue

import (
	"errors"
	"fmt"
)

// ErrInvariant is returned when a create or patch would leave a job in a
// state the pipeline never produces. Nothing is written.
var ErrInvariant = errors.New("job invariant violated")

func invariantError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvariant, fmt.Sprintf(format, args...))
}

// Validate checks the job record invariants:
// completed requires notes, notes require a transcript, a transcript
// requires media, and last_error is present exactly when the job failed.
func Validate(job Job) error {
	if _, ok := statusSet[job.Status]; !ok {
		return invariantError("unknown status %q", job.Status)
	}
	if job.SourceRef == "" {
		return invariantError("source reference required")
	}
	if job.Status == StatusCompleted && job.Notes == "" {
		return invariantError("completed job requires notes")
	}
	if job.Notes != "" && job.Transcript == "" {
		return invariantError("notes require a transcript")
	}
	if job.Transcript != "" && job.MediaPath == "" {
		return invariantError("transcript requires a media location")
	}
	if job.Status == StatusFailed && job.LastError == "" {
		return invariantError("failed job requires last_error")
	}
	if job.Status != StatusFailed && job.LastError != "" {
		return invariantError("last_error is only kept on failed jobs")
	}
	return nil
}
