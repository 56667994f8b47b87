package api

import (
	"slices"
	"time"

	"notesmith/internal/notes"
	"notesmith/internal/preflight"
	"notesmith/internal/queue"
	"notesmith/internal/stage"
	"notesmith/internal/workflow"
)

// FromJob converts a job record to its full API representation, including
// transcript, notes, and the parsed note sections.
func FromJob(job *queue.Job) Job {
	dto := FromJobSummary(job)
	if job == nil {
		return dto
	}
	dto.Transcript = job.Transcript
	dto.Notes = job.Notes
	if job.HasNotes() {
		doc := notes.Parse(job.Notes)
		if doc.Summary != (notes.Section{}) {
			summary := fromSection(doc.Summary)
			dto.Summary = &summary
		}
		for _, section := range doc.Sections {
			dto.Sections = append(dto.Sections, fromSection(section))
		}
	}
	return dto
}

// FromJobSummary converts a job record without transcript or notes bodies.
func FromJobSummary(job *queue.Job) Job {
	if job == nil {
		return Job{}
	}
	return Job{
		ID:            job.ID,
		SourceRef:     job.SourceRef,
		Status:        string(job.Status),
		Stage:         job.Stage,
		MediaID:       job.MediaID,
		MediaPath:     job.MediaPath,
		HasTranscript: job.HasTranscript(),
		HasNotes:      job.HasNotes(),
		Halted:        job.Halted,
		LastError:     job.LastError,
		CreatedAt:     FormatTime(job.CreatedAt),
		UpdatedAt:     FormatTime(job.UpdatedAt),
	}
}

// FromJobs converts a slice of job records into summary DTOs.
func FromJobs(jobs []*queue.Job) []Job {
	if len(jobs) == 0 {
		return nil
	}
	out := make([]Job, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, FromJobSummary(job))
	}
	return out
}

func fromSection(section notes.Section) NoteSection {
	return NoteSection{Title: section.Title, Timestamp: section.Timestamp, Body: section.Body}
}

// FromSubmitResult converts an intake result.
func FromSubmitResult(result workflow.SubmitResult) SubmitResponse {
	return SubmitResponse{
		JobID:     result.JobID,
		TaskID:    result.TaskID,
		SourceRef: result.SourceRef,
		Status:    string(result.Status),
		Cached:    result.Cached,
	}
}

// FromFeedSubmissions converts feed import results.
func FromFeedSubmissions(submissions []workflow.FeedSubmission) FeedResponse {
	entries := make([]FeedEntryResult, 0, len(submissions))
	for _, submission := range submissions {
		entry := FeedEntryResult{
			Title: submission.Entry.Title,
			Ref:   submission.Entry.Ref,
			Error: submission.Error,
		}
		if submission.Entry.Published != nil {
			entry.Published = FormatTime(*submission.Entry.Published)
		}
		if submission.Error == "" {
			result := FromSubmitResult(submission.Result)
			entry.Submit = &result
		}
		entries = append(entries, entry)
	}
	return FeedResponse{Entries: entries}
}

// FromStatusSummary converts a workflow status summary to API payload.
func FromStatusSummary(summary workflow.StatusSummary) WorkflowStatus {
	wf := WorkflowStatus{
		Running:     summary.Running,
		Workers:     summary.Workers,
		QueueStats:  MergeQueueStats(summary.QueueStats),
		TaskStats:   MergeTaskStats(summary.TaskStats),
		LastError:   summary.LastError,
		StageHealth: StageHealthSlice(summary.StageHealth),
	}
	if summary.LastJob != nil {
		last := FromJobSummary(summary.LastJob)
		wf.LastJob = &last
	}
	return wf
}

// MergeQueueStats produces a string-keyed representation of job counts with
// every status present.
func MergeQueueStats(stats map[queue.Status]int) map[string]int {
	out := make(map[string]int, len(queue.AllStatuses()))
	for _, status := range queue.AllStatuses() {
		out[string(status)] = stats[status]
	}
	return out
}

// MergeTaskStats produces a string-keyed representation of task counts.
func MergeTaskStats(stats map[queue.TaskStatus]int) map[string]int {
	out := make(map[string]int, len(stats))
	for status, count := range stats {
		out[string(status)] = count
	}
	return out
}

// StageHealthSlice converts a stage health map into a deterministic slice.
func StageHealthSlice(health map[string]stage.Health) []StageHealth {
	if len(health) == 0 {
		return nil
	}
	names := make([]string, 0, len(health))
	for name := range health {
		names = append(names, name)
	}
	slices.Sort(names)

	out := make([]StageHealth, 0, len(names))
	for _, name := range names {
		h := health[name]
		out = append(out, StageHealth{Name: name, Ready: h.Ready, Detail: h.Detail})
	}
	return out
}

// FromPreflight converts preflight results.
func FromPreflight(results []preflight.Result) []CheckStatus {
	out := make([]CheckStatus, 0, len(results))
	for _, result := range results {
		out = append(out, CheckStatus{Name: result.Name, Passed: result.Passed, Detail: result.Detail})
	}
	return out
}

// FormatTime converts a time to RFC3339 or returns empty string.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

// ParseTime parses a timestamp produced by FormatTime. It returns the zero
// time for empty or malformed values.
func ParseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t
	}
	return time.Time{}
}
