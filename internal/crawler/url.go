package crawler

import (
	"net/url"
	"strings"
)

// VisitedSet reports whether a canonical URL has already been fetched.
type VisitedSet interface {
	Visited(canonical string) bool
}

var (
	skippedSuffixes = []string{".pdf", ".jpg", ".png", ".gif", ".zip"}
	skippedKeywords = []string{"/print", "/pdf", "/download", "/share"}
)

// CanonicalURL reduces u to scheme://host/path?query. Fragments and userinfo
// are dropped; an empty query leaves no trailing "?". The path is written in
// escaped form: valid escapes stay as written and bytes that need escaping
// (such as spaces) are percent-encoded.
func CanonicalURL(u *url.URL) string {
	var b strings.Builder
	b.WriteString(u.Scheme)
	b.WriteString("://")
	b.WriteString(u.Host)
	b.WriteString(u.EscapedPath())
	if u.RawQuery != "" {
		b.WriteByte('?')
		b.WriteString(u.RawQuery)
	}
	return b.String()
}

// Canonicalize parses raw and returns its canonical form.
func Canonicalize(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	return CanonicalURL(u), nil
}

// IsCrawlable reports whether a canonical URL may enter the frontier.
// The suffix check is case-sensitive while the keyword check is not.
func IsCrawlable(canonical string, visited VisitedSet) bool {
	u, err := url.Parse(canonical)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	if u.Host == "" {
		return false
	}
	if visited != nil && visited.Visited(canonical) {
		return false
	}
	for _, suffix := range skippedSuffixes {
		if strings.HasSuffix(canonical, suffix) {
			return false
		}
	}
	lower := strings.ToLower(canonical)
	for _, kw := range skippedKeywords {
		if strings.Contains(lower, kw) {
			return false
		}
	}
	return true
}

// NormalizeLinks resolves hrefs against base, canonicalizes them and keeps the
// crawlable ones. Output is deduplicated in first-seen order.
func NormalizeLinks(base string, hrefs []string, visited VisitedSet) []string {
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil
	}
	seen := make(map[string]struct{}, len(hrefs))
	out := make([]string, 0, len(hrefs))
	for _, href := range hrefs {
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			continue
		}
		canonical := CanonicalURL(baseURL.ResolveReference(ref))
		if _, dup := seen[canonical]; dup {
			continue
		}
		if !IsCrawlable(canonical, visited) {
			continue
		}
		seen[canonical] = struct{}{}
		out = append(out, canonical)
	}
	return out
}

// HostOf returns the host component of a URL, or "" if it cannot be parsed.
func HostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Host
}
