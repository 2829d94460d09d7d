package crawler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyPrecedence(t *testing.T) {
	c := NewClassifier()
	testCases := []struct {
		name  string
		title string
		url   string
		want  ContentType
	}{
		{"title outranks url", "Breaking Noticia", "https://es.wiki.test/page", ContentTypeNews},
		{"english news", "Daily NEWS digest", "https://site.test/blog/x", ContentTypeNews},
		{"blog url", "Thoughts", "https://site.test/Blog/post", ContentTypeBlog},
		{"blog before wiki", "Thoughts", "https://wiki.test/blog", ContentTypeBlog},
		{"wiki url", "Go", "https://es.wikipedia.org/wiki/Go", ContentTypeArticle},
		{"encyclopedia url", "Go", "https://encyclopedia.test/go", ContentTypeArticle},
		{"default", "Home", "https://site.test/", ContentTypePage},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, got := c.Classify(tc.title, tc.url, "")
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestClassifyCustomRules(t *testing.T) {
	c := NewClassifier(ContentRule{
		Name:  "docs",
		Tag:   ContentTypeArticle,
		Match: func(_, u string) bool { return u == "https://site.test/docs" },
	})
	_, got := c.Classify("Breaking news", "https://site.test/docs", "")
	assert.Equal(t, ContentTypeArticle, got)

	_, got = c.Classify("Breaking news", "https://site.test/other", "")
	assert.Equal(t, ContentTypePage, got)
}

func TestDefaultContentRulesReturnsCopy(t *testing.T) {
	rules := DefaultContentRules()
	rules[0].Tag = ContentTypeUnknown
	assert.Equal(t, ContentTypeNews, DefaultContentRules()[0].Tag)
}

func TestExtractYear(t *testing.T) {
	year := ExtractYear("Published in 1998 and reviewed in 2020")
	require.NotNil(t, year)
	assert.Equal(t, 1998, *year)

	year = ExtractYear("Projected for 2087.")
	require.NotNil(t, year)
	assert.Equal(t, 2087, *year)

	assert.Nil(t, ExtractYear("no years here, only 1850 and 21000"))
	assert.Nil(t, ExtractYear("code 119990"))
}

func TestExtractYearUnicodeBoundaries(t *testing.T) {
	tests := []struct {
		text string
		want *int
	}{
		{text: "é1998", want: nil},
		{text: "1998ñ", want: nil},
		{text: "ref٣1998", want: nil},
		{text: "snake_1998", want: nil},
		{text: "año 1998.", want: intPtr(1998)},
		{text: "«2005»", want: intPtr(2005)},
		{text: "é1998 y después 2010", want: intPtr(2010)},
		{text: "1999", want: intPtr(1999)},
	}
	for _, tc := range tests {
		t.Run(tc.text, func(t *testing.T) {
			assert.Equal(t, tc.want, ExtractYear(tc.text))
		})
	}
}

func intPtr(v int) *int { return &v }

func TestClassifyReturnsYear(t *testing.T) {
	year, tag := NewClassifier().Classify("Home", "https://site.test/", "Founded 1975")
	require.NotNil(t, year)
	assert.Equal(t, 1975, *year)
	assert.Equal(t, ContentTypePage, tag)
}
