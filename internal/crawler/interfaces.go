package crawler

import (
	"context"
	"io"
	"time"
)

// Fetcher retrieves a single URL.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (FetchResponse, error)
}

// Extractor pulls title, text and links out of raw markup.
type Extractor interface {
	Extract(markup []byte) (ExtractedPage, error)
}

// HostLimiter blocks until a request to the URL's host may proceed.
type HostLimiter interface {
	Wait(ctx context.Context, rawURL string) error
}

// Pacer enforces the politeness delay between consecutive fetches.
type Pacer interface {
	Pause(ctx context.Context, delay time.Duration)
}

// Indexer submits a finished batch of documents to the search index.
type Indexer interface {
	Submit(ctx context.Context, docs []Document) error
}

// BlobStore writes raw artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

// Publisher pushes run completion events to Pub/Sub, Kafka or similar.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// RunRecorder keeps a history row per finished run.
type RunRecorder interface {
	RecordRun(ctx context.Context, result RunResult) error
}

// JobStore persists API job metadata.
type JobStore interface {
	CreateJob(ctx context.Context, job Job) error
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errText string, summary *RunSummary) error
	GetJob(ctx context.Context, jobID string) (Job, error)
}

// Queue provides enqueue/dequeue semantics for crawl jobs.
type Queue interface {
	Enqueue(ctx context.Context, job QueueItem) error
	Dequeue(ctx context.Context) (QueueItem, error)
}

// Clock supplies timestamps.
type Clock interface {
	Now() time.Time
}

// IDGenerator mints run and job identifiers.
type IDGenerator interface {
	NewID() (string, error)
}
