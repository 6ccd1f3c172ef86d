package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wikiPage = `<!DOCTYPE html>
<html>
<head>
  <title>Password Reset</title>
  <style>body { color: red; }</style>
</head>
<body>
  <nav><a href="/">Home</a> | <a href="/wiki">Wiki</a></nav>
  <main>
    <h1>Password reset</h1>
    <p>Users must be able to reset a forgotten password by email.</p>
    <ul>
      <li>Reset links expire after 30 minutes.</li>
      <li>Links are single use.</li>
    </ul>
  </main>
  <script>track();</script>
</body>
</html>`

func TestHTMLParser_Parse(t *testing.T) {
	doc, err := NewHTMLParser().Parse("reset.html", []byte(wikiPage))
	require.NoError(t, err)

	assert.Equal(t, "reset.html", doc.Filename)
	assert.Equal(t, "Password Reset", doc.Title())
	assert.Equal(t, wikiPage, doc.Content)

	assert.Contains(t, doc.Body, "# Password reset")
	assert.Contains(t, doc.Body, "Users must be able to reset a forgotten password by email.")
	assert.Contains(t, doc.Body, "Reset links expire after 30 minutes.")

	assert.NotContains(t, doc.Body, "Home")
	assert.NotContains(t, doc.Body, "track()")
	assert.NotContains(t, doc.Body, "color: red")
	assert.NotContains(t, doc.Body, "\n\n\n")
}

func TestHTMLParser_NoMainUsesBody(t *testing.T) {
	doc, err := NewHTMLParser().Parse("frag.htm", []byte(`<p>The API must return <strong>404</strong> for unknown ids.</p>`))
	require.NoError(t, err)

	assert.Contains(t, doc.Body, "The API must return **404** for unknown ids.")
	assert.False(t, doc.HasFrontmatter())
}

func TestHTMLParser_CanParse(t *testing.T) {
	p := NewHTMLParser()
	assert.True(t, p.CanParse("text/html"))
	assert.True(t, p.CanParse("application/xhtml+xml"))
	assert.False(t, p.CanParse("text/plain"))
}
