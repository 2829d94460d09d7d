package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/sitesearch-crawler/internal/backup"
	"github.com/JakeFAU/sitesearch-crawler/internal/clock/system"
	"github.com/JakeFAU/sitesearch-crawler/internal/crawler"
	"github.com/JakeFAU/sitesearch-crawler/internal/extract"
	mempub "github.com/JakeFAU/sitesearch-crawler/internal/publisher/memory"
	memstore "github.com/JakeFAU/sitesearch-crawler/internal/storage/memory"
)

var fixedNow = time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC)

// siteFetcher serves canned HTML keyed by URL.
type siteFetcher struct {
	pages map[string]string
}

func (f *siteFetcher) Fetch(_ context.Context, req crawler.FetchRequest) (crawler.FetchResponse, error) {
	body, ok := f.pages[req.URL]
	if !ok {
		return crawler.FetchResponse{}, fmt.Errorf("%w: 404", crawler.ErrStatus)
	}
	return crawler.FetchResponse{
		URL:         req.URL,
		FinalURL:    req.URL,
		StatusCode:  200,
		ContentType: "text/html; charset=utf-8",
		Body:        []byte(body),
	}, nil
}

type noPause struct{}

func (noPause) Pause(context.Context, time.Duration) {}

type fakeIndexer struct {
	mu      sync.Mutex
	err     error
	batches [][]crawler.Document
}

func (f *fakeIndexer) Submit(_ context.Context, docs []crawler.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, docs)
	return f.err
}

type failingStore struct{}

func (failingStore) PutObject(context.Context, string, string, io.Reader) (string, error) {
	return "", errors.New("disk full")
}

type staticIDs struct{ id string }

func (s staticIDs) NewID() (string, error) { return s.id, nil }

func testSite() *siteFetcher {
	return &siteFetcher{pages: map[string]string{
		"https://site.test/": `<html><head><title>Home</title></head><body>
			<p>Founded in 1998.</p>
			<a href="/blog/post">post</a>
			<a href="https://other.test/">elsewhere</a>
			<a href="/missing">missing</a>
		</body></html>`,
		"https://site.test/blog/post": `<html><head><title>Post</title></head><body>Hello</body></html>`,
	}}
}

func newTestRunner(t *testing.T, fetcher crawler.Fetcher, sinks Sinks, cfg Config) *Runner {
	t.Helper()
	runner, err := NewRunner(
		Pipeline{Fetcher: fetcher, Extractor: extract.New(), Pacer: noPause{}},
		sinks,
		staticIDs{id: "run-1"},
		system.Stopped{At: fixedNow},
		cfg,
		zap.NewNop(),
	)
	require.NoError(t, err)
	return runner
}

func TestRunnerExecuteFullPipeline(t *testing.T) {
	t.Parallel()

	blobs := memstore.NewBlobStore()
	writer, err := backup.New(blobs, "runs")
	require.NoError(t, err)
	indexer := &fakeIndexer{}
	publisher := mempub.New()
	runs := memstore.NewRunStore()

	runner := newTestRunner(t, testSite(), Sinks{
		Indexer:   indexer,
		Backup:    writer,
		Publisher: publisher,
		Recorder:  runs,
	}, Config{Topic: "crawl-runs"})

	result, err := runner.Execute(context.Background(), "", crawler.RunParams{
		StartURL: "https://site.test/",
		MaxPages: 10,
	})
	require.NoError(t, err)

	require.Equal(t, "run-1", result.RunID)
	require.Len(t, result.Documents, 2)
	require.Equal(t, "https://site.test/", result.Documents[0].ID)
	require.Equal(t, crawler.ContentTypeBlog, result.Documents[1].ContentType)
	require.Equal(t, crawler.RunStats{Visited: 3, Fetched: 2, Failed: 1}, result.Stats)
	require.True(t, result.Submitted)
	require.Empty(t, result.SubmitError)
	require.Equal(t, "memory://runs/run-1.json", result.BackupURI)
	require.Equal(t, fixedNow, result.StartedAt)
	require.Equal(t, fixedNow, result.FinishedAt)

	require.Len(t, indexer.batches, 1)
	require.Equal(t, result.Documents, indexer.batches[0])

	stored, ok := blobs.Object("runs/run-1.json")
	require.True(t, ok)
	var backedUp []crawler.Document
	require.NoError(t, json.Unmarshal(stored, &backedUp))
	require.Equal(t, result.Documents, backedUp)

	msgs := publisher.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, "crawl-runs", msgs[0].Topic)
	require.Equal(t, "run-1", msgs[0].Key)
	var note crawler.RunNotification
	require.NoError(t, json.Unmarshal(msgs[0].Data, &note))
	require.Equal(t, 2, note.Documents)
	require.True(t, note.Submitted)
	require.Equal(t, result.BackupURI, note.BackupURI)

	recorded := runs.Runs()
	require.Len(t, recorded, 1)
	require.Equal(t, "run-1", recorded[0].RunID)
}

func TestRunnerKeepsGivenRunID(t *testing.T) {
	t.Parallel()

	runner := newTestRunner(t, testSite(), Sinks{}, Config{})
	result, err := runner.Execute(context.Background(), "job-42", crawler.RunParams{
		StartURL: "https://site.test/",
		MaxPages: 1,
	})
	require.NoError(t, err)
	require.Equal(t, "job-42", result.RunID)
	require.Len(t, result.Documents, 1)
	require.False(t, result.Submitted)
}

func TestRunnerSubmissionFailureStillBacksUp(t *testing.T) {
	t.Parallel()

	blobs := memstore.NewBlobStore()
	writer, err := backup.New(blobs, "")
	require.NoError(t, err)
	indexer := &fakeIndexer{err: fmt.Errorf("%w: status 503", crawler.ErrSubmit)}

	runner := newTestRunner(t, testSite(), Sinks{Indexer: indexer, Backup: writer},
		Config{BackupObjectName: "datos_crawled.json"})
	result, err := runner.Execute(context.Background(), "", crawler.RunParams{
		StartURL: "https://site.test/",
		MaxPages: 5,
	})
	require.NoError(t, err)

	require.False(t, result.Submitted)
	require.Contains(t, result.SubmitError, "status 503")
	require.Len(t, result.Documents, 2)
	require.Equal(t, "memory://datos_crawled.json", result.BackupURI)
	_, ok := blobs.Object("datos_crawled.json")
	require.True(t, ok)
}

func TestRunnerSkipsSubmitWithoutDocuments(t *testing.T) {
	t.Parallel()

	blobs := memstore.NewBlobStore()
	writer, err := backup.New(blobs, "runs")
	require.NoError(t, err)
	indexer := &fakeIndexer{}

	runner := newTestRunner(t, &siteFetcher{}, Sinks{Indexer: indexer, Backup: writer}, Config{})
	result, err := runner.Execute(context.Background(), "", crawler.RunParams{
		StartURL: "https://site.test/",
		MaxPages: 5,
	})
	require.NoError(t, err)

	require.Empty(t, indexer.batches)
	require.False(t, result.Submitted)
	require.Empty(t, result.SubmitError)
	stored, ok := blobs.Object("runs/run-1.json")
	require.True(t, ok)
	require.JSONEq(t, "[]", string(stored))
}

func TestRunnerBackupFailureIsRecorded(t *testing.T) {
	t.Parallel()

	writer, err := backup.New(failingStore{}, "runs")
	require.NoError(t, err)
	indexer := &fakeIndexer{}

	runner := newTestRunner(t, testSite(), Sinks{Indexer: indexer, Backup: writer}, Config{})
	result, err := runner.Execute(context.Background(), "", crawler.RunParams{
		StartURL: "https://site.test/",
		MaxPages: 5,
	})
	require.NoError(t, err)

	require.True(t, result.Submitted)
	require.Empty(t, result.BackupURI)
	require.Contains(t, result.BackupError, "disk full")
}

func TestRunnerRejectsInvalidParams(t *testing.T) {
	t.Parallel()

	runner := newTestRunner(t, testSite(), Sinks{}, Config{})
	_, err := runner.Execute(context.Background(), "", crawler.RunParams{
		StartURL: "ftp://site.test/",
		MaxPages: 5,
	})
	require.Error(t, err)

	_, err = runner.Execute(context.Background(), "", crawler.RunParams{
		StartURL: "https://site.test/",
		MaxPages: 0,
	})
	require.Error(t, err)
}

func TestNewRunnerRequiresFetcherAndExtractor(t *testing.T) {
	t.Parallel()

	_, err := NewRunner(Pipeline{Extractor: extract.New()}, Sinks{}, nil, nil, Config{}, nil)
	require.Error(t, err)
	_, err = NewRunner(Pipeline{Fetcher: testSite()}, Sinks{}, nil, nil, Config{}, nil)
	require.Error(t, err)

	runner, err := NewRunner(Pipeline{Fetcher: testSite(), Extractor: extract.New()}, Sinks{}, nil, nil, Config{}, nil)
	require.NoError(t, err)
	require.NotNil(t, runner.ids)
	require.NotNil(t, runner.clock)
}

func TestDeriveFinalStatus(t *testing.T) {
	t.Parallel()

	docs := []crawler.Document{{ID: "https://site.test/"}}
	canceled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name    string
		ctx     context.Context
		result  crawler.RunResult
		status  crawler.JobStatus
		errText string
	}{
		{"succeeded", context.Background(), crawler.RunResult{Documents: docs, Submitted: true}, crawler.JobStatusSucceeded, ""},
		{"no documents", context.Background(), crawler.RunResult{}, crawler.JobStatusFailed, "no pages were fetched"},
		{"submit error", context.Background(), crawler.RunResult{Documents: docs, SubmitError: "solr down"}, crawler.JobStatusFailed, "solr down"},
		{"backup error", context.Background(), crawler.RunResult{Documents: docs, BackupError: "disk full"}, crawler.JobStatusFailed, "disk full"},
		{"canceled", canceled, crawler.RunResult{Documents: docs}, crawler.JobStatusCanceled, "run canceled"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			status, errText := deriveFinalStatus(tt.ctx, tt.result)
			require.Equal(t, tt.status, status)
			require.Equal(t, tt.errText, errText)
		})
	}
}
