package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusProcessing,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns every known job status in lifecycle order.
func AllStatuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// ParseStatus converts a string into a Status if recognized.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	_, ok := statusSet[normalized]
	return normalized, ok
}

// Job is the durable record for one pipeline run over a source reference.
// Empty strings mean the artifact is absent.
type Job struct {
	ID         string
	SourceRef  string
	Status     Status
	MediaID    string
	MediaPath  string
	Transcript string
	Notes      string
	LastError  string
	Stage      string
	Halted     bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// HasMedia reports whether the acquire checkpoint is recorded.
func (j *Job) HasMedia() bool { return j != nil && j.MediaPath != "" }

// HasTranscript reports whether the transcribe checkpoint is recorded.
func (j *Job) HasTranscript() bool { return j != nil && j.Transcript != "" }

// HasNotes reports whether the synthesize checkpoint is recorded.
func (j *Job) HasNotes() bool { return j != nil && j.Notes != "" }

// IsTerminal reports whether the job is completed or failed.
func (j *Job) IsTerminal() bool {
	return j != nil && (j.Status == StatusCompleted || j.Status == StatusFailed)
}

// JobInit carries the fields accepted by Store.Create. Status defaults to
// pending.
type JobInit struct {
	SourceRef  string
	Status     Status
	MediaID    string
	MediaPath  string
	Transcript string
	Notes      string
}

// Patch is a partial update applied atomically by Store.Update. Nil fields
// are left unchanged; a pointer to "" clears the column.
type Patch struct {
	Status     *Status
	MediaID    *string
	MediaPath  *string
	Transcript *string
	Notes      *string
	LastError  *string
	Stage      *string
	Halted     *bool
}

func (p Patch) WithStatus(status Status) Patch {
	p.Status = &status
	return p
}

func (p Patch) WithMedia(id, path string) Patch {
	p.MediaID = &id
	p.MediaPath = &path
	return p
}

func (p Patch) WithTranscript(text string) Patch {
	p.Transcript = &text
	return p
}

func (p Patch) WithNotes(text string) Patch {
	p.Notes = &text
	return p
}

func (p Patch) WithLastError(message string) Patch {
	p.LastError = &message
	return p
}

// ClearLastError is shorthand for WithLastError("").
func (p Patch) ClearLastError() Patch {
	return p.WithLastError("")
}

func (p Patch) WithStage(stage string) Patch {
	p.Stage = &stage
	return p
}

func (p Patch) WithHalted(halted bool) Patch {
	p.Halted = &halted
	return p
}

// Merge overlays the non-nil fields of other onto p.
func (p Patch) Merge(other Patch) Patch {
	if other.Status != nil {
		p.Status = other.Status
	}
	if other.MediaID != nil {
		p.MediaID = other.MediaID
	}
	if other.MediaPath != nil {
		p.MediaPath = other.MediaPath
	}
	if other.Transcript != nil {
		p.Transcript = other.Transcript
	}
	if other.Notes != nil {
		p.Notes = other.Notes
	}
	if other.LastError != nil {
		p.LastError = other.LastError
	}
	if other.Stage != nil {
		p.Stage = other.Stage
	}
	if other.Halted != nil {
		p.Halted = other.Halted
	}
	return p
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p == Patch{}
}

// Apply returns a copy of job with the patch applied.
func (p Patch) Apply(job Job) Job {
	if p.Status != nil {
		job.Status = *p.Status
	}
	if p.MediaID != nil {
		job.MediaID = strings.TrimSpace(*p.MediaID)
	}
	if p.MediaPath != nil {
		job.MediaPath = strings.TrimSpace(*p.MediaPath)
	}
	if p.Transcript != nil {
		job.Transcript = *p.Transcript
	}
	if p.Notes != nil {
		job.Notes = *p.Notes
	}
	if p.LastError != nil {
		job.LastError = strings.TrimSpace(*p.LastError)
	}
	if p.Stage != nil {
		job.Stage = strings.TrimSpace(*p.Stage)
	}
	if p.Halted != nil {
		job.Halted = *p.Halted
	}
	return job
}

// Order controls the creation-time ordering of Find results.
type Order int

const (
	OrderNewest Order = iota
	OrderOldest
)

// Filter narrows Store.Find. Zero values match everything.
type Filter struct {
	SourceRef     string
	Statuses      []Status
	HasNotes      *bool
	HasTranscript *bool
	Order         Order
	Limit         int
}

// TaskStatus is the delivery state of a queued unit of work.
type TaskStatus string

const (
	TaskQueued  TaskStatus = "queued"
	TaskRunning TaskStatus = "running"
	TaskDone    TaskStatus = "done"
	TaskDead    TaskStatus = "dead"
)

// Task asks a worker to run the next planned stage for a job.
type Task struct {
	ID          string
	JobID       string
	Stage       string
	Payload     string
	Status      TaskStatus
	Attempts    int
	AvailableAt time.Time
	ClaimedAt   *time.Time
	HeartbeatAt *time.Time
	LastError   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// HealthSummary describes aggregated job and task counts.
type HealthSummary struct {
	Total        int
	Pending      int
	Processing   int
	Failed       int
	Completed    int
	QueuedTasks  int
	RunningTasks int
	DeadTasks    int
}

// DatabaseHealth captures diagnostic information about the record store.
type DatabaseHealth struct {
	Driver         string
	Location       string
	Reachable      bool
	SchemaVersion  int64
	TablesPresent  []string
	MissingTables  []string
	IntegrityCheck bool
	TotalJobs      int
	Error          string
}
