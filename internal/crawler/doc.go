// Package crawler implements the crawl-and-index core: the URL frontier, the
// link normalizer, the content classifier, and the orchestrator that drives a
// single crawl run from a seed URL to a finished batch of index documents.
//
// Fetching and HTML extraction are injected through the Fetcher and Extractor
// interfaces so each state transition of a run can be exercised in isolation.
package crawler
