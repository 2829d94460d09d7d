package crawler

import (
	"net/http"
	"time"
)

// ContentType is the coarse category assigned to every crawled page.
type ContentType string

// Content type tags stored in the tipo_contenido index field.
const (
	ContentTypeNews    ContentType = "news"
	ContentTypeBlog    ContentType = "blog"
	ContentTypeArticle ContentType = "article"
	ContentTypePage    ContentType = "page"
	ContentTypeUnknown ContentType = "unknown"
)

// Document is the unit of work product of a crawl run. JSON names follow the
// search index schema; the same shape is written to the backup file.
type Document struct {
	ID          string      `json:"id"`
	Title       string      `json:"titulo"`
	Body        string      `json:"contenido_es"`
	URL         string      `json:"url"`
	Domain      string      `json:"dominio"`
	Year        *int        `json:"anio,omitempty"`
	ContentType ContentType `json:"tipo_contenido"`
}

// RunParams are the knobs of a single crawl run.
type RunParams struct {
	StartURL string        `json:"start_url"`
	Delay    time.Duration `json:"delay"`
	MaxPages int           `json:"max_pages"`
}

// RunStats counts frontier transitions during a run.
type RunStats struct {
	// Visited is the number of URLs whose fetch attempt started.
	Visited int `json:"visited"`
	// Fetched is the number of URLs that produced a document.
	Fetched int `json:"fetched"`
	// Failed is the number of fetch or extraction failures.
	Failed int `json:"failed"`
	// Skipped counts queue entries discarded because they were already visited.
	Skipped int `json:"skipped"`
}

// RunResult is everything known about a finished run.
type RunResult struct {
	RunID       string     `json:"run_id"`
	Params      RunParams  `json:"params"`
	Documents   []Document `json:"-"`
	Stats       RunStats   `json:"stats"`
	Submitted   bool       `json:"submitted"`
	SubmitError string     `json:"submit_error,omitempty"`
	BackupURI   string     `json:"backup_uri,omitempty"`
	BackupError string     `json:"backup_error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  time.Time  `json:"finished_at"`
}

// Summary condenses a RunResult for job status responses.
func (r RunResult) Summary() RunSummary {
	return RunSummary{
		Documents:   len(r.Documents),
		Stats:       r.Stats,
		Submitted:   r.Submitted,
		SubmitError: r.SubmitError,
		BackupURI:   r.BackupURI,
		BackupError: r.BackupError,
	}
}

// RunSummary is the compact outcome of a run attached to a Job.
type RunSummary struct {
	Documents   int      `json:"documents"`
	Stats       RunStats `json:"stats"`
	Submitted   bool     `json:"submitted"`
	SubmitError string   `json:"submit_error,omitempty"`
	BackupURI   string   `json:"backup_uri,omitempty"`
	BackupError string   `json:"backup_error,omitempty"`
}

// RunNotification is published once a run has been submitted and backed up.
type RunNotification struct {
	RunID      string    `json:"run_id"`
	StartURL   string    `json:"start_url"`
	Documents  int       `json:"documents"`
	Submitted  bool      `json:"submitted"`
	BackupURI  string    `json:"backup_uri,omitempty"`
	FinishedAt time.Time `json:"finished_at"`
}

// MessageKey keys broker messages by run so one run's events stay ordered.
func (n RunNotification) MessageKey() string {
	return n.RunID
}

// FetchRequest captures everything needed to fetch a URL.
type FetchRequest struct {
	URL     string
	Headers http.Header
}

// FetchResponse is the result returned by a Fetcher implementation.
type FetchResponse struct {
	URL         string
	FinalURL    string
	StatusCode  int
	ContentType string
	Headers     http.Header
	Body        []byte
	Duration    time.Duration
}

// ExtractedPage is the text and link content pulled out of one HTML document.
type ExtractedPage struct {
	Title string
	Body  string
	// Links holds raw href values in document order.
	Links []string
}

// JobStatus represents the lifecycle state of a crawl job.
type JobStatus string

// Job status values persisted in the job store.
const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCanceled  JobStatus = "canceled"
)

// Terminal reports whether no further transitions happen from s.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusSucceeded, JobStatusFailed, JobStatusCanceled:
		return true
	default:
		return false
	}
}

// Job is the metadata persisted for each crawl submitted through the API.
type Job struct {
	ID        string      `json:"id"`
	Status    JobStatus   `json:"status"`
	Params    RunParams   `json:"params"`
	Submitted time.Time   `json:"submitted_at"`
	Started   *time.Time  `json:"started_at,omitempty"`
	Finished  *time.Time  `json:"finished_at,omitempty"`
	ErrorText string      `json:"error_text,omitempty"`
	Summary   *RunSummary `json:"summary,omitempty"`
}

// QueueItem wraps a job ready to run.
type QueueItem struct {
	JobID     string
	Params    RunParams
	Submitted int64
}
