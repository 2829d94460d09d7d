package crawler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSite serves pages as "title|body|link,link" strings.
type fakeSite struct {
	mu       sync.Mutex
	pages    map[string]string
	failures map[string]error
	fetched  []string
}

func (s *fakeSite) Fetch(_ context.Context, req FetchRequest) (FetchResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetched = append(s.fetched, req.URL)
	if err, ok := s.failures[req.URL]; ok {
		return FetchResponse{}, err
	}
	page, ok := s.pages[req.URL]
	if !ok {
		return FetchResponse{}, fmt.Errorf("%w: 404", ErrStatus)
	}
	return FetchResponse{URL: req.URL, FinalURL: req.URL, StatusCode: 200, Body: []byte(page)}, nil
}

type pipeExtractor struct{}

func (pipeExtractor) Extract(markup []byte) (ExtractedPage, error) {
	parts := strings.SplitN(string(markup), "|", 3)
	for len(parts) < 3 {
		parts = append(parts, "")
	}
	var links []string
	if parts[2] != "" {
		links = strings.Split(parts[2], ",")
	}
	return ExtractedPage{Title: parts[0], Body: parts[1], Links: links}, nil
}

type countingPacer struct {
	pauses int
}

func (p *countingPacer) Pause(context.Context, time.Duration) { p.pauses++ }

func newTestOrchestrator(t *testing.T, site *fakeSite, start string, maxPages int) (*Orchestrator, *countingPacer) {
	t.Helper()
	pacer := &countingPacer{}
	o, err := NewOrchestrator(
		RunParams{StartURL: start, MaxPages: maxPages, Delay: time.Second},
		site, pipeExtractor{}, nil, nil, pacer, nil,
	)
	require.NoError(t, err)
	return o, pacer
}

func TestOrchestratorBreadthFirst(t *testing.T) {
	site := &fakeSite{pages: map[string]string{
		"https://a.example/":      "Home|Founded 1998|/one,/two",
		"https://a.example/one":   "One|text|/three",
		"https://a.example/two":   "Two|text|",
		"https://a.example/three": "Three|text|",
	}}
	o, pacer := newTestOrchestrator(t, site, "https://a.example/", 10)

	result := o.Run(context.Background())

	var urls []string
	for _, doc := range result.Documents {
		urls = append(urls, doc.URL)
	}
	assert.Equal(t, []string{
		"https://a.example/",
		"https://a.example/one",
		"https://a.example/two",
		"https://a.example/three",
	}, urls)
	require.NotNil(t, result.Documents[0].Year)
	assert.Equal(t, 1998, *result.Documents[0].Year)
	assert.Equal(t, "a.example", result.Documents[0].Domain)
	assert.Equal(t, result.Documents[0].URL, result.Documents[0].ID)
	assert.Equal(t, RunStats{Visited: 4, Fetched: 4}, result.Stats)
	assert.Equal(t, 3, pacer.pauses, "no pause after the final fetch")
	assert.Equal(t, StateTerminal, o.State())
}

func TestOrchestratorDomainScoping(t *testing.T) {
	site := &fakeSite{pages: map[string]string{
		"https://a.example/x":     "X|text|https://b.example/y,https://a.example:8443/z,/local",
		"https://a.example/local": "Local|text|",
		"https://b.example/y":     "Y|text|",
	}}
	o, _ := newTestOrchestrator(t, site, "https://a.example/x", 10)

	o.Run(context.Background())

	assert.Equal(t, []string{"https://a.example/x", "https://a.example/local"}, site.fetched)
}

func TestOrchestratorVisitedIdempotence(t *testing.T) {
	site := &fakeSite{pages: map[string]string{
		"https://a.example/":  "Home|text|/b,/b#frag,/",
		"https://a.example/b": "B|text|/,/b",
	}}
	o, _ := newTestOrchestrator(t, site, "https://a.example/", 10)

	result := o.Run(context.Background())

	assert.Equal(t, []string{"https://a.example/", "https://a.example/b"}, site.fetched)
	assert.Len(t, result.Documents, 2)
}

func TestOrchestratorBudgetCap(t *testing.T) {
	pages := map[string]string{}
	var links []string
	for i := range 20 {
		links = append(links, fmt.Sprintf("/p%d", i))
		pages[fmt.Sprintf("https://a.example/p%d", i)] = "P|text|"
	}
	pages["https://a.example/"] = "Home|text|" + strings.Join(links, ",")
	site := &fakeSite{pages: pages}

	for _, maxPages := range []int{1, 3, 7} {
		site.fetched = nil
		o, _ := newTestOrchestrator(t, site, "https://a.example/", maxPages)
		result := o.Run(context.Background())
		assert.Len(t, result.Documents, maxPages)
		assert.LessOrEqual(t, len(site.fetched), maxPages)
	}
}

func TestOrchestratorFetchFailureIsNonFatal(t *testing.T) {
	site := &fakeSite{
		pages: map[string]string{
			"https://a.example/":     "Home|text|/broken,/html,/ok",
			"https://a.example/ok":   "OK|text|/broken",
			"https://a.example/html": "should not be reached|text|",
		},
		failures: map[string]error{
			"https://a.example/html": fmt.Errorf("%w: image/png", ErrNotHTML),
		},
	}
	o, _ := newTestOrchestrator(t, site, "https://a.example/", 10)

	result := o.Run(context.Background())

	require.Len(t, result.Documents, 2)
	assert.Equal(t, RunStats{Visited: 4, Fetched: 2, Failed: 2}, result.Stats)
	assert.Equal(t, []string{
		"https://a.example/",
		"https://a.example/broken",
		"https://a.example/html",
		"https://a.example/ok",
	}, site.fetched, "a failed URL is visited once and never retried")
}

func TestOrchestratorStepTransitions(t *testing.T) {
	site := &fakeSite{pages: map[string]string{"https://a.example/": "Home|text|"}}
	o, _ := newTestOrchestrator(t, site, "https://a.example/", 5)

	assert.Equal(t, StateInit, o.State())
	assert.Equal(t, StateTerminal, o.Step(context.Background()))
	assert.Len(t, o.Documents(), 1)
	assert.Equal(t, StateTerminal, o.Step(context.Background()))
	assert.Len(t, site.fetched, 1)
}

func TestOrchestratorCanceledContext(t *testing.T) {
	site := &fakeSite{pages: map[string]string{"https://a.example/": "Home|text|/next"}}
	o, _ := newTestOrchestrator(t, site, "https://a.example/", 5)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := o.Run(ctx)

	assert.Empty(t, result.Documents)
	assert.Empty(t, site.fetched)
}

func TestNewOrchestratorValidation(t *testing.T) {
	site := &fakeSite{}
	testCases := []struct {
		name   string
		params RunParams
	}{
		{"missing url", RunParams{MaxPages: 1}},
		{"bad scheme", RunParams{StartURL: "ftp://a.example/", MaxPages: 1}},
		{"no host", RunParams{StartURL: "https:///x", MaxPages: 1}},
		{"zero budget", RunParams{StartURL: "https://a.example/"}},
		{"negative delay", RunParams{StartURL: "https://a.example/", MaxPages: 1, Delay: -time.Second}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewOrchestrator(tc.params, site, pipeExtractor{}, nil, nil, nil, nil)
			require.Error(t, err)
		})
	}

	_, err := NewOrchestrator(RunParams{StartURL: "https://a.example/", MaxPages: 1}, nil, pipeExtractor{}, nil, nil, nil, nil)
	require.Error(t, err)
}

func TestIndependentRunsDoNotShareState(t *testing.T) {
	site := &fakeSite{pages: map[string]string{
		"https://a.example/":  "Home|text|/b",
		"https://a.example/b": "B|text|",
	}}
	first, _ := newTestOrchestrator(t, site, "https://a.example/", 5)
	second, _ := newTestOrchestrator(t, site, "https://a.example/", 5)

	assert.Len(t, first.Run(context.Background()).Documents, 2)
	assert.Len(t, second.Run(context.Background()).Documents, 2)
}
