// Package extract turns raw HTML into the title, flattened text and anchor
// targets used to build index documents.
package extract

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/sitesearch-crawler/internal/crawler"
)

// strippedElements never contribute text or links.
const strippedElements = "script, style, nav, footer"

var (
	lineBreaks = regexp.MustCompile(`\r\n|[\n\r\v\f\x1c\x1d\x1e\x{85}\x{2028}\x{2029}]`)
	wideSpaces = regexp.MustCompile(` {2,}`)
)

// HTMLExtractor implements crawler.Extractor with goquery.
type HTMLExtractor struct{}

// New returns an HTMLExtractor.
func New() *HTMLExtractor {
	return &HTMLExtractor{}
}

// Extract parses markup and returns its title, normalized body text and the
// href of every remaining anchor in document order.
func (e *HTMLExtractor) Extract(markup []byte) (crawler.ExtractedPage, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(markup))
	if err != nil {
		return crawler.ExtractedPage{}, fmt.Errorf("parse html: %w", err)
	}
	doc.Find(strippedElements).Remove()

	page := crawler.ExtractedPage{
		Title: strings.TrimSpace(doc.Find("title").First().Text()),
	}
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok {
			page.Links = append(page.Links, href)
		}
	})
	page.Body = NormalizeText(doc.Text())
	return page, nil
}

// NormalizeText flattens text: each line is trimmed, split on runs of two or
// more spaces, and the non-empty fragments are joined with single spaces.
func NormalizeText(text string) string {
	var fragments []string
	for _, line := range lineBreaks.Split(text, -1) {
		for _, fragment := range wideSpaces.Split(strings.TrimSpace(line), -1) {
			if fragment = strings.TrimSpace(fragment); fragment != "" {
				fragments = append(fragments, fragment)
			}
		}
	}
	return strings.Join(fragments, " ")
}
