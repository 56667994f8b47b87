package main

import (
	"fmt"
	"strings"

	"notesmith/internal/api"
)

var jobColumns = []column{
	{header: "ID", maxWidth: 36},
	{header: "Source", maxWidth: 48},
	{header: "Status"},
	{header: "Stage"},
	{header: "Updated"},
	{header: "Error", maxWidth: 40},
}

func buildJobRows(jobs []api.Job) [][]string {
	rows := make([][]string, 0, len(jobs))
	for _, job := range jobs {
		status := job.Status
		if job.Halted {
			status += " (halted)"
		}
		rows = append(rows, []string{
			job.ID,
			job.SourceRef,
			status,
			dash(job.Stage),
			dash(job.UpdatedAt),
			dash(job.LastError),
		})
	}
	return rows
}

var feedColumns = []column{
	{header: "Title", maxWidth: 40},
	{header: "Published"},
	{header: "Job", maxWidth: 36},
	{header: "Result", maxWidth: 40},
}

func buildFeedRows(entries []api.FeedEntryResult) [][]string {
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		job, result := "-", "error: "+entry.Error
		if entry.Submit != nil {
			job = entry.Submit.JobID
			result = describeSubmit(*entry.Submit)
		}
		title := entry.Title
		if strings.TrimSpace(title) == "" {
			title = entry.Ref
		}
		rows = append(rows, []string{title, dash(entry.Published), job, result})
	}
	return rows
}

func describeSubmit(resp api.SubmitResponse) string {
	switch {
	case resp.Cached:
		return "cached notes reused"
	case resp.TaskID != "":
		return "queued"
	default:
		return "already " + resp.Status
	}
}

func renderSubmit(resp api.SubmitResponse) string {
	switch {
	case resp.Cached:
		return fmt.Sprintf("Notes for %s already exist; cached copy saved as job %s\n", resp.SourceRef, resp.JobID)
	case resp.TaskID != "":
		return fmt.Sprintf("Job %s queued (task %s)\n", resp.JobID, resp.TaskID)
	default:
		return fmt.Sprintf("Job %s is already %s\n", resp.JobID, resp.Status)
	}
}

func renderJobDetail(job api.Job, sections bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Job:        %s\n", job.ID)
	fmt.Fprintf(&b, "Source:     %s\n", job.SourceRef)
	status := job.Status
	if job.Halted {
		status += " (halted)"
	}
	fmt.Fprintf(&b, "Status:     %s\n", status)
	if job.Stage != "" {
		fmt.Fprintf(&b, "Stage:      %s\n", job.Stage)
	}
	if job.MediaPath != "" {
		fmt.Fprintf(&b, "Media:      %s\n", job.MediaPath)
	}
	fmt.Fprintf(&b, "Transcript: %s\n", yesNo(job.HasTranscript))
	fmt.Fprintf(&b, "Notes:      %s\n", yesNo(job.HasNotes))
	if job.LastError != "" {
		fmt.Fprintf(&b, "Error:      %s\n", job.LastError)
	}
	fmt.Fprintf(&b, "Created:    %s\n", dash(job.CreatedAt))
	fmt.Fprintf(&b, "Updated:    %s\n", dash(job.UpdatedAt))

	if !job.HasNotes {
		return b.String()
	}
	b.WriteString("\n")
	if !sections {
		b.WriteString(strings.TrimSpace(job.Notes))
		b.WriteString("\n")
		return b.String()
	}
	if job.Summary == nil && len(job.Sections) == 0 {
		b.WriteString("No structured sections found in notes\n")
		return b.String()
	}
	if job.Summary != nil {
		writeSection(&b, *job.Summary)
	}
	for _, section := range job.Sections {
		writeSection(&b, section)
	}
	return b.String()
}

func writeSection(b *strings.Builder, section api.NoteSection) {
	title := strings.TrimSpace(section.Title)
	if title == "" {
		title = "Untitled"
	}
	if section.Timestamp != "" {
		fmt.Fprintf(b, "## %s %s\n", title, section.Timestamp)
	} else {
		fmt.Fprintf(b, "## %s\n", title)
	}
	if body := strings.TrimSpace(section.Body); body != "" {
		b.WriteString(body)
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

func dash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
