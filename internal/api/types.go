package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Job describes a job record in a transport-friendly format.
type Job struct {
	ID            string        `json:"id"`
	SourceRef     string        `json:"sourceRef"`
	Status        string        `json:"status"`
	Stage         string        `json:"stage,omitempty"`
	MediaID       string        `json:"mediaId,omitempty"`
	MediaPath     string        `json:"mediaPath,omitempty"`
	HasTranscript bool          `json:"hasTranscript"`
	HasNotes      bool          `json:"hasNotes"`
	Halted        bool          `json:"halted"`
	LastError     string        `json:"lastError,omitempty"`
	CreatedAt     string        `json:"createdAt,omitempty"`
	UpdatedAt     string        `json:"updatedAt,omitempty"`
	Transcript    string        `json:"transcript,omitempty"`
	Notes         string        `json:"notes,omitempty"`
	Summary       *NoteSection  `json:"summary,omitempty"`
	Sections      []NoteSection `json:"sections,omitempty"`
}

// NoteSection is one parsed block of generated notes.
type NoteSection struct {
	Title     string `json:"title"`
	Timestamp string `json:"timestamp,omitempty"`
	Body      string `json:"body"`
}

// SubmitRequest is the body of POST /api/notes.
type SubmitRequest struct {
	URL string `json:"url"`
}

// FeedRequest is the body of POST /api/notes/feed.
type FeedRequest struct {
	URL   string `json:"url"`
	Limit int    `json:"limit,omitempty"`
}

// SubmitResponse reports the job a submission created or touched.
type SubmitResponse struct {
	JobID     string `json:"jobId"`
	TaskID    string `json:"taskId,omitempty"`
	SourceRef string `json:"sourceRef"`
	Status    string `json:"status"`
	Cached    bool   `json:"cached"`
}

// FeedEntryResult pairs one feed entry with its submission outcome.
type FeedEntryResult struct {
	Title     string          `json:"title"`
	Ref       string          `json:"ref"`
	Published string          `json:"published,omitempty"`
	Submit    *SubmitResponse `json:"submit,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// FeedResponse wraps the results of a feed import.
type FeedResponse struct {
	Entries []FeedEntryResult `json:"entries"`
}

// RegenerateAllResponse reports how many jobs were queued for synthesis.
type RegenerateAllResponse struct {
	Queued int `json:"queued"`
}

// JobListResponse wraps a collection of jobs.
type JobListResponse struct {
	Jobs []Job `json:"jobs"`
}

// JobResponse wraps a single job.
type JobResponse struct {
	Job Job `json:"job"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// WorkflowStatus summarizes workflow execution state.
type WorkflowStatus struct {
	Running     bool           `json:"running"`
	Workers     int            `json:"workers"`
	QueueStats  map[string]int `json:"queueStats"`
	TaskStats   map[string]int `json:"taskStats"`
	LastError   string         `json:"lastError,omitempty"`
	LastJob     *Job           `json:"lastJob,omitempty"`
	StageHealth []StageHealth  `json:"stageHealth"`
}

// StageHealth mirrors readiness reporting for workflow stages.
type StageHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// CheckStatus captures one preflight check.
type CheckStatus struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running       bool           `json:"running"`
	PID           int            `json:"pid"`
	StoreDriver   string         `json:"storeDriver"`
	StoreLocation string         `json:"storeLocation"`
	LockFilePath  string         `json:"lockFilePath"`
	Workflow      WorkflowStatus `json:"workflow"`
	Checks        []CheckStatus  `json:"checks"`
}
