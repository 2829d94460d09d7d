package crawler

import (
	"regexp"
	"strconv"
	"strings"
)

// Boundaries are Unicode-aware; \b only knows ASCII word characters.
var yearPattern = regexp.MustCompile(`(?:^|[^\p{L}\p{N}_])(19[0-9]{2}|20[0-9]{2})(?:$|[^\p{L}\p{N}_])`)

// ContentRule tags a page when Match returns true. Inputs are lowercased.
type ContentRule struct {
	Name  string
	Tag   ContentType
	Match func(lowerTitle, lowerURL string) bool
}

// DefaultContentRules returns the built-in rule table in precedence order.
func DefaultContentRules() []ContentRule {
	return []ContentRule{
		{
			Name: "news-title",
			Tag:  ContentTypeNews,
			Match: func(title, _ string) bool {
				return strings.Contains(title, "noticia") || strings.Contains(title, "news")
			},
		},
		{
			Name: "blog-url",
			Tag:  ContentTypeBlog,
			Match: func(_, u string) bool {
				return strings.Contains(u, "blog")
			},
		},
		{
			Name: "wiki-url",
			Tag:  ContentTypeArticle,
			Match: func(_, u string) bool {
				return strings.Contains(u, "wiki")
			},
		},
		{
			Name: "encyclopedia-url",
			Tag:  ContentTypeArticle,
			Match: func(_, u string) bool {
				return strings.Contains(u, "encyclopedia")
			},
		},
	}
}

// Classifier derives a year and a content type from page metadata.
type Classifier struct {
	rules []ContentRule
}

// NewClassifier builds a classifier; with no rules it uses DefaultContentRules.
func NewClassifier(rules ...ContentRule) *Classifier {
	if len(rules) == 0 {
		rules = DefaultContentRules()
	}
	return &Classifier{rules: rules}
}

// Classify returns the first year found in body (nil if none) and the tag of
// the first matching rule, falling back to ContentTypePage.
func (c *Classifier) Classify(title, rawURL, body string) (*int, ContentType) {
	year := ExtractYear(body)
	lowerTitle := strings.ToLower(title)
	lowerURL := strings.ToLower(rawURL)
	for _, rule := range c.rules {
		if rule.Match != nil && rule.Match(lowerTitle, lowerURL) {
			return year, rule.Tag
		}
	}
	return year, ContentTypePage
}

// ExtractYear returns the first standalone year in 1900-2099, or nil.
func ExtractYear(text string) *int {
	match := yearPattern.FindStringSubmatch(text)
	if match == nil {
		return nil
	}
	year, err := strconv.Atoi(match[1])
	if err != nil {
		return nil
	}
	return &year
}
