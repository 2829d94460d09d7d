// Package backup writes the documents of a crawl run to durable storage as a
// JSON array, independent of whether index submission succeeded.
package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/JakeFAU/sitesearch-crawler/internal/crawler"
)

const contentType = "application/json; charset=utf-8"

// Writer serializes documents to a BlobStore.
type Writer struct {
	store  crawler.BlobStore
	prefix string
}

// New returns a Writer placing objects under prefix.
func New(store crawler.BlobStore, prefix string) (*Writer, error) {
	if store == nil {
		return nil, errors.New("blob store is required")
	}
	return &Writer{store: store, prefix: strings.Trim(prefix, "/")}, nil
}

// Write stores docs at {prefix}/{name} and returns the URI.
// Output is indented with non-ASCII text and HTML characters kept verbatim.
func (w *Writer) Write(ctx context.Context, name string, docs []crawler.Document) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", errors.New("backup name is required")
	}
	payload, err := Encode(docs)
	if err != nil {
		return "", err
	}
	uri, err := w.store.PutObject(ctx, path.Join(w.prefix, name), contentType, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("write backup %s: %w", name, err)
	}
	return uri, nil
}

// Encode renders docs as the backup file body. A nil slice encodes as [].
func Encode(docs []crawler.Document) ([]byte, error) {
	if docs == nil {
		docs = []crawler.Document{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(docs); err != nil {
		return nil, fmt.Errorf("encode backup: %w", err)
	}
	return buf.Bytes(), nil
}
