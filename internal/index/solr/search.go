package solr

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Fields faceted by Search.
var facetFields = []string{"dominio_facet", "anio", "tipo_contenido"}

const (
	defaultRows     = 10
	snippetFallback = 200
)

// Query is a free-text search with paging and filter queries.
type Query struct {
	Text    string
	Start   int
	Rows    int
	Filters []string
}

// Hit is one ranked document.
type Hit struct {
	ID          string  `json:"id"`
	Title       string  `json:"titulo"`
	URL         string  `json:"url"`
	Domain      string  `json:"dominio,omitempty"`
	Year        string  `json:"anio,omitempty"`
	ContentType string  `json:"tipo_contenido,omitempty"`
	Snippet     string  `json:"snippet"`
	Score       float64 `json:"score"`
}

// FacetValue is one bucket of a facet field.
type FacetValue struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// SearchResult is the parsed select response.
type SearchResult struct {
	NumFound   int                     `json:"num_found"`
	Hits       []Hit                   `json:"hits"`
	Facets     map[string][]FacetValue `json:"facets"`
	Suggestion string                  `json:"suggestion,omitempty"`
}

type selectResponse struct {
	Response struct {
		NumFound int                          `json:"numFound"`
		Docs     []map[string]json.RawMessage `json:"docs"`
	} `json:"response"`
	Highlighting map[string]map[string][]string `json:"highlighting"`
	FacetCounts  struct {
		FacetFields map[string][]json.RawMessage `json:"facet_fields"`
	} `json:"facet_counts"`
	Spellcheck struct {
		Suggestions []json.RawMessage `json:"suggestions"`
	} `json:"spellcheck"`
}

// Search runs an edismax query with highlighting, facets and spellcheck.
func (c *Client) Search(ctx context.Context, q Query) (SearchResult, error) {
	rows := q.Rows
	if rows <= 0 {
		rows = defaultRows
	}
	params := selectParams(q.Text, q.Start, rows)
	for _, fq := range q.Filters {
		if strings.TrimSpace(fq) != "" {
			params.Add("fq", fq)
		}
	}

	var raw selectResponse
	if err := c.getJSON(ctx, "select", params, &raw); err != nil {
		return SearchResult{}, err
	}
	return parseSelect(raw), nil
}

func selectParams(text string, start, rows int) url.Values {
	params := url.Values{
		"q":                     {text},
		"defType":               {"edismax"},
		"qf":                    {"titulo^3.0 contenido_es^1.0"},
		"pf":                    {"titulo^5.0"},
		"tie":                   {"0.1"},
		"start":                 {strconv.Itoa(start)},
		"rows":                  {strconv.Itoa(rows)},
		"fl":                    {"*,score"},
		"hl":                    {"true"},
		"hl.fl":                 {"contenido_es"},
		"hl.snippets":           {"3"},
		"hl.fragsize":           {"200"},
		"facet":                 {"true"},
		"facet.field":           append([]string(nil), facetFields...),
		"facet.limit":           {"20"},
		"spellcheck":            {"true"},
		"spellcheck.q":          {text},
		"spellcheck.dictionary": {"default"},
		"spellcheck.count":      {"5"},
		"spellcheck.collate":    {"true"},
	}
	return params
}

func parseSelect(raw selectResponse) SearchResult {
	result := SearchResult{
		NumFound: raw.Response.NumFound,
		Hits:     make([]Hit, 0, len(raw.Response.Docs)),
		Facets:   make(map[string][]FacetValue, len(facetFields)),
	}
	for _, doc := range raw.Response.Docs {
		hit := Hit{
			ID:          firstString(doc["id"]),
			Title:       firstString(doc["titulo"]),
			URL:         firstString(doc["url"]),
			Domain:      firstString(doc["dominio"]),
			Year:        firstString(doc["anio"]),
			ContentType: firstString(doc["tipo_contenido"]),
		}
		if score, ok := doc["score"]; ok {
			_ = json.Unmarshal(score, &hit.Score)
		}
		if snippets := raw.Highlighting[hit.ID]["contenido_es"]; len(snippets) > 0 {
			hit.Snippet = snippets[0]
		} else {
			hit.Snippet = truncate(firstString(doc["contenido_es"]), snippetFallback) + "..."
		}
		result.Hits = append(result.Hits, hit)
	}
	for _, field := range facetFields {
		result.Facets[field] = parseFacet(raw.FacetCounts.FacetFields[field])
	}
	result.Suggestion = firstSuggestion(raw.Spellcheck.Suggestions)
	return result
}

// parseFacet reads Solr's flat [value, count, value, count, ...] list.
func parseFacet(flat []json.RawMessage) []FacetValue {
	values := make([]FacetValue, 0, len(flat)/2)
	for i := 0; i+1 < len(flat); i += 2 {
		var count int
		if err := json.Unmarshal(flat[i+1], &count); err != nil {
			continue
		}
		values = append(values, FacetValue{Value: scalarString(flat[i]), Count: count})
	}
	return values
}

// firstSuggestion returns the first correction for the first misspelled term.
// Solr emits suggestions as ["term", {"suggestion": [...]}, ...].
func firstSuggestion(list []json.RawMessage) string {
	if len(list) < 2 {
		return ""
	}
	var entry struct {
		Suggestion []json.RawMessage `json:"suggestion"`
	}
	if err := json.Unmarshal(list[1], &entry); err != nil || len(entry.Suggestion) == 0 {
		return ""
	}
	var word string
	if err := json.Unmarshal(entry.Suggestion[0], &word); err != nil {
		return ""
	}
	return word
}

// firstString handles both single and multivalued Solr fields.
func firstString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		if len(list) == 0 {
			return ""
		}
		return scalarString(list[0])
	}
	return scalarString(raw)
}

func scalarString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
