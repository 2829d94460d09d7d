package solr

import (
	"context"
	"net/url"
	"strings"
	"unicode/utf8"
)

const (
	minSuggestPrefix = 2
	suggestCount     = "5"
)

type suggestResponse struct {
	Suggest map[string]map[string]struct {
		Suggestions []struct {
			Term string `json:"term"`
		} `json:"suggestions"`
	} `json:"suggest"`
}

// Suggest returns autocomplete terms for prefix. Prefixes shorter than two
// characters return nothing without contacting Solr.
func (c *Client) Suggest(ctx context.Context, prefix string) ([]string, error) {
	prefix = strings.TrimSpace(prefix)
	if utf8.RuneCountInString(prefix) < minSuggestPrefix {
		return []string{}, nil
	}
	params := url.Values{}
	params.Set("suggest.q", prefix)
	params.Set("suggest.count", suggestCount)

	var raw suggestResponse
	if err := c.getJSON(ctx, "suggest", params, &raw); err != nil {
		return nil, err
	}
	terms := []string{}
	for _, item := range raw.Suggest[c.cfg.Suggester][prefix].Suggestions {
		terms = append(terms, item.Term)
	}
	return terms, nil
}
