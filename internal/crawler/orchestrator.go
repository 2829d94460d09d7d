package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/sitesearch-crawler/internal/metrics"
)

// State is the orchestrator's position in the crawl state machine.
type State int

// States of a crawl run.
const (
	StateInit State = iota
	StateStep
	StateTerminal
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateStep:
		return "step"
	case StateTerminal:
		return "terminal"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Validate checks run parameters before a run is created.
func (p RunParams) Validate() error {
	if p.StartURL == "" {
		return errors.New("start url is required")
	}
	u, err := url.Parse(p.StartURL)
	if err != nil {
		return fmt.Errorf("parse start url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("start url scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("start url must include a host")
	}
	if p.MaxPages <= 0 {
		return errors.New("max pages must be > 0")
	}
	if p.Delay < 0 {
		return errors.New("delay must be >= 0")
	}
	return nil
}

// Orchestrator drives one crawl run. All frontier state is owned by the
// instance, so independent runs never share visited sets or queues.
type Orchestrator struct {
	params     RunParams
	startURL   string
	startHost  string
	fetcher    Fetcher
	extractor  Extractor
	classifier *Classifier
	limiter    HostLimiter
	pacer      Pacer
	logger     *zap.Logger

	state    State
	frontier *Frontier
	results  []Document
	stats    RunStats
}

// NewOrchestrator validates params and wires the run's collaborators. A nil
// classifier uses the default rules, a nil limiter never blocks and a nil pacer
// sleeps on a timer.
func NewOrchestrator(
	params RunParams,
	fetcher Fetcher,
	extractor Extractor,
	classifier *Classifier,
	limiter HostLimiter,
	pacer Pacer,
	logger *zap.Logger,
) (*Orchestrator, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if fetcher == nil {
		return nil, errors.New("fetcher is required")
	}
	if extractor == nil {
		return nil, errors.New("extractor is required")
	}
	if classifier == nil {
		classifier = NewClassifier()
	}
	if pacer == nil {
		pacer = NewTimerPacer()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	start, err := url.Parse(params.StartURL)
	if err != nil {
		return nil, fmt.Errorf("parse start url: %w", err)
	}
	return &Orchestrator{
		params:     params,
		startURL:   CanonicalURL(start),
		startHost:  start.Host,
		fetcher:    fetcher,
		extractor:  extractor,
		classifier: classifier,
		limiter:    limiter,
		pacer:      pacer,
		logger:     logger,
		state:      StateInit,
	}, nil
}

// State reports the current state.
func (o *Orchestrator) State() State {
	return o.state
}

// Stats returns the counters accumulated so far.
func (o *Orchestrator) Stats() RunStats {
	return o.stats
}

// Documents returns the documents produced so far in fetch-completion order.
func (o *Orchestrator) Documents() []Document {
	return o.results
}

// Init resets the frontier to the start URL.
func (o *Orchestrator) Init() {
	o.frontier = NewFrontier(o.startURL)
	o.results = nil
	o.stats = RunStats{}
	o.state = StateStep
}

// Step performs one transition and returns the resulting state.
func (o *Orchestrator) Step(ctx context.Context) State {
	if o.state == StateInit {
		o.Init()
	}
	if o.state == StateTerminal {
		return o.state
	}
	if o.done(ctx) {
		o.state = StateTerminal
		return o.state
	}

	current, _ := o.frontier.Pop()
	if !o.frontier.MarkVisited(current) {
		o.stats.Skipped++
		return o.state
	}
	o.stats.Visited++

	if doc, ok := o.visit(ctx, current); ok {
		o.results = append(o.results, doc)
		o.stats.Fetched++
	} else {
		o.stats.Failed++
	}

	if o.done(ctx) {
		o.state = StateTerminal
		return o.state
	}
	o.pacer.Pause(ctx, o.params.Delay)
	return o.state
}

// Run loops Step until the run is terminal.
func (o *Orchestrator) Run(ctx context.Context) RunResult {
	started := time.Now().UTC()
	o.logger.Info("crawl started",
		zap.String("start_url", o.startURL),
		zap.Int("max_pages", o.params.MaxPages),
		zap.Duration("delay", o.params.Delay),
	)
	for o.Step(ctx) != StateTerminal {
	}
	result := RunResult{
		Params:     o.params,
		Documents:  o.results,
		Stats:      o.stats,
		StartedAt:  started,
		FinishedAt: time.Now().UTC(),
	}
	o.logger.Info("crawl finished",
		zap.String("start_url", o.startURL),
		zap.Int("documents", len(o.results)),
		zap.Int("visited", o.stats.Visited),
		zap.Int("failed", o.stats.Failed),
	)
	return result
}

func (o *Orchestrator) done(ctx context.Context) bool {
	if o.frontier.Len() == 0 || len(o.results) >= o.params.MaxPages {
		return true
	}
	return ctx.Err() != nil
}

func (o *Orchestrator) visit(ctx context.Context, current string) (Document, bool) {
	if o.limiter != nil {
		if err := o.limiter.Wait(ctx, current); err != nil {
			o.logger.Warn("rate limiter wait failed", zap.String("url", current), zap.Error(err))
			metrics.ObserveCrawl(current, "canceled", 0)
			return Document{}, false
		}
	}

	resp, err := o.fetcher.Fetch(ctx, FetchRequest{URL: current})
	if err != nil {
		o.logger.Warn("fetch failed", zap.String("url", current), zap.Error(err))
		metrics.ObserveCrawl(current, failureStatus(err), len(resp.Body))
		return Document{}, false
	}

	page, err := o.extractor.Extract(resp.Body)
	if err != nil {
		o.logger.Warn("extract failed", zap.String("url", current), zap.Error(err))
		metrics.ObserveCrawl(current, "extract_error", len(resp.Body))
		return Document{}, false
	}

	base := resp.FinalURL
	if base == "" {
		base = current
	}
	for _, link := range NormalizeLinks(base, page.Links, o.frontier) {
		if HostOf(link) != o.startHost {
			continue
		}
		o.frontier.Push(link)
	}

	year, contentType := o.classifier.Classify(page.Title, current, page.Body)
	metrics.ObserveCrawl(current, "ok", len(resp.Body))
	return Document{
		ID:          current,
		Title:       page.Title,
		Body:        page.Body,
		URL:         current,
		Domain:      HostOf(current),
		Year:        year,
		ContentType: contentType,
	}, true
}

func failureStatus(err error) string {
	switch {
	case errors.Is(err, ErrNotHTML):
		return "not_html"
	case errors.Is(err, ErrStatus):
		return "bad_status"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}
