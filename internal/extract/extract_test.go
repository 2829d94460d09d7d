package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractStripsScripts(t *testing.T) {
	page, err := New().Extract([]byte(`<html><head><title>T</title><script>alert(1)</script></head><body><p>Hello</p></body></html>`))
	require.NoError(t, err)
	assert.Contains(t, page.Body, "Hello")
	assert.NotContains(t, page.Body, "alert(1)")
}

func TestExtractRemovesChromeElements(t *testing.T) {
	markup := `<html>
<head>
  <title>
     Página de prueba
  </title>
  <style>body { color: red }</style>
</head>
<body>
  <nav><a href="/menu">Menu</a></nav>
  <h1>Heading</h1>
  <p>First    second</p>
  <p>  third line  </p>
  <a href="/article#top">Read more</a>
  <a name="anchor">no href</a>
  <a href="https://other.test/">External</a>
  <footer><a href="/legal">Legal</a> footer text</footer>
</body>
</html>`

	page, err := New().Extract([]byte(markup))
	require.NoError(t, err)

	assert.Equal(t, "Página de prueba", page.Title)
	assert.Equal(t, []string{"/article#top", "https://other.test/"}, page.Links)
	assert.NotContains(t, page.Body, "color: red")
	assert.NotContains(t, page.Body, "Menu")
	assert.NotContains(t, page.Body, "footer text")
	assert.Contains(t, page.Body, "Heading")
	assert.Contains(t, page.Body, "First second")
	assert.Contains(t, page.Body, "third line")
	assert.NotContains(t, page.Body, "  ")
}

func TestExtractMissingTitle(t *testing.T) {
	page, err := New().Extract([]byte(`<p>only text</p>`))
	require.NoError(t, err)
	assert.Equal(t, "", page.Title)
	assert.Equal(t, "only text", page.Body)
	assert.Empty(t, page.Links)
}

func TestNormalizeText(t *testing.T) {
	testCases := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"blank lines", "\n\n   \n", ""},
		{"single spaces kept", "one two three", "one two three"},
		{"wide spaces split", "left     right", "left right"},
		{"lines joined", "a\r\nb\rc\nd", "a b c d"},
		{"tabs stay inside fragments", "a\tb", "a\tb"},
		{"unicode separators", "a b\u0085c", "a b c"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NormalizeText(tc.in))
		})
	}
}
