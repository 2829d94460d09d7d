// Package solr talks to an Apache Solr core: bulk document updates for the
// crawler, plus the select and suggest handlers used by the search commands.
package solr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/sitesearch-crawler/internal/crawler"
	"github.com/JakeFAU/sitesearch-crawler/internal/metrics"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultSuggester = "mySuggester"
	// maxErrorBody bounds how much of a failed response is kept in the error.
	maxErrorBody = 512
)

// Config locates the Solr core.
type Config struct {
	// BaseURL is the core URL, e.g. http://localhost:8983/solr/mi_core_es.
	BaseURL   string
	Timeout   time.Duration
	Suggester string
}

// Client is a minimal Solr HTTP client.
type Client struct {
	cfg        Config
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// New builds a Client. A nil httpClient gets one with cfg.Timeout.
func New(cfg Config, httpClient *http.Client, logger *zap.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("solr base url is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("parse solr base url: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Suggester == "" {
		cfg.Suggester = defaultSuggester
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:        cfg,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// Submit posts all documents in one update request with an explicit commit.
// Failures wrap crawler.ErrSubmit; docs is never modified.
func (c *Client) Submit(ctx context.Context, docs []crawler.Document) error {
	if docs == nil {
		docs = []crawler.Document{}
	}
	payload, err := json.Marshal(docs)
	if err != nil {
		metrics.ObserveSubmission("failure", len(docs))
		return fmt.Errorf("%w: encode documents: %w", crawler.ErrSubmit, err)
	}

	endpoint := c.baseURL + "/update?commit=true"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		metrics.ObserveSubmission("failure", len(docs))
		return fmt.Errorf("%w: build request: %w", crawler.ErrSubmit, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ObserveSubmission("failure", len(docs))
		return fmt.Errorf("%w: %w", crawler.ErrSubmit, err)
	}
	defer closeBody(resp.Body, c.logger)

	if err := checkStatus(resp); err != nil {
		metrics.ObserveSubmission("failure", len(docs))
		return fmt.Errorf("%w: %w", crawler.ErrSubmit, err)
	}
	metrics.ObserveSubmission("success", len(docs))
	c.logger.Info("documents submitted", zap.Int("count", len(docs)))
	return nil
}

// Ping checks the core's ping handler.
func (c *Client) Ping(ctx context.Context) error {
	var out struct {
		Status string `json:"status"`
	}
	if err := c.getJSON(ctx, "admin/ping", url.Values{}, &out); err != nil {
		return err
	}
	if !strings.EqualFold(out.Status, "OK") {
		return fmt.Errorf("solr ping status %q", out.Status)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, handler string, params url.Values, out any) error {
	params.Set("wt", "json")
	endpoint := c.baseURL + "/" + handler + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build %s request: %w", handler, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("solr %s: %w", handler, err)
	}
	defer closeBody(resp.Body, c.logger)

	if err := checkStatus(resp); err != nil {
		return fmt.Errorf("solr %s: %w", handler, err)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", handler, err)
	}
	return nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
}

func closeBody(body io.Closer, logger *zap.Logger) {
	if err := body.Close(); err != nil {
		logger.Debug("close solr response body", zap.Error(err))
	}
}
