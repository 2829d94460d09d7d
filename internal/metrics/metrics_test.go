package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSanitizeSite(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"standard http", "http://example.com/path", "example.com"},
		{"standard https", "https://Example.com/path", "example.com"},
		{"no scheme", "example.com/path", "example.com"},
		{"just host", "example.com", "example.com"},
		{"host with port", "example.com:8080", "example.com"},
		{"ip address", "192.168.1.1", "192.168.1.1"},
		{"invalid url", "http://%", "unknown"},
		{"empty string", "", "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeSite(tc.input); got != tc.expected {
				t.Errorf("SanitizeSite(%q) = %q; want %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestInit(t *testing.T) {
	// Call Init multiple times to test idempotency.
	Init()
	Init()

	if crawlerPagesTotal == nil || crawlerBytesTotal == nil || crawlerRunsTotal == nil ||
		indexSubmissionsTotal == nil || httpRequestsTotal == nil || httpRequestDurationSeconds == nil {
		t.Fatal("Init() did not initialize metrics collectors")
	}
}

func TestObserveCrawl(t *testing.T) {
	ObserveCrawl("https://crawl.example/a", "ok", 128)
	if val := testutil.ToFloat64(crawlerPagesTotal.WithLabelValues("crawl.example", "ok")); val != 1 {
		t.Errorf("Expected crawlerPagesTotal to be 1, got %f", val)
	}
	if val := testutil.ToFloat64(crawlerBytesTotal.WithLabelValues("crawl.example")); val != 128 {
		t.Errorf("Expected crawlerBytesTotal to be 128, got %f", val)
	}
}

func TestObserveSubmission(t *testing.T) {
	before := testutil.ToFloat64(indexSubmittedDocumentsTotal)
	ObserveSubmission("success", 3)
	ObserveSubmission("failure", 5)
	if val := testutil.ToFloat64(indexSubmittedDocumentsTotal) - before; val != 3 {
		t.Errorf("Expected 3 submitted documents, got %f", val)
	}
	if val := testutil.ToFloat64(indexSubmissionsTotal.WithLabelValues("failure")); val < 1 {
		t.Errorf("Expected failure outcome to be counted, got %f", val)
	}
}

// Fuzz test for SanitizeSite.
func FuzzSanitizeSite(f *testing.F) {
	testcases := []string{"http://example.com", "https://google.com", "ftp://example.com"}
	for _, tc := range testcases {
		f.Add(tc)
	}
	f.Fuzz(func(t *testing.T, orig string) {
		sanitized := SanitizeSite(orig)
		if sanitized == "" {
			t.Errorf("SanitizeSite(%q) returned an empty string", orig)
		}
	})
}
