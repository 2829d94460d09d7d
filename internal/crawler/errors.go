package crawler

import (
	"errors"
	"fmt"
)

var (
	// ErrFetch marks any failure to retrieve a page. The orchestrator skips
	// the URL and keeps crawling.
	ErrFetch = errors.New("fetch failed")
	// ErrStatus is returned for non-2xx responses.
	ErrStatus = fmt.Errorf("%w: unexpected status", ErrFetch)
	// ErrNotHTML is returned when the response is not an HTML document.
	ErrNotHTML = fmt.Errorf("%w: content is not html", ErrFetch)
	// ErrSubmit marks a rejected or failed bulk submission to the index.
	ErrSubmit = errors.New("index submission failed")
	// ErrJobNotFound is returned by job stores for unknown IDs.
	ErrJobNotFound = errors.New("job not found")
	// ErrJobExists is returned when a job ID is created twice.
	ErrJobExists = errors.New("job already exists")
)
