package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	r := NewRenderer()

	html, err := r.Render("**bold** and ~~gone~~")
	require.NoError(t, err)
	assert.Contains(t, html, "<strong>bold</strong>")
	assert.Contains(t, html, "<del>gone</del>")

	html, err = r.Render("see https://example.com")
	require.NoError(t, err)
	assert.Contains(t, html, `href="https://example.com"`)
}

func TestRenderSanitizes(t *testing.T) {
	r := NewRenderer()

	html, err := r.Render("hello <script>alert(1)</script> <a href=\"javascript:alert(1)\">x</a>")
	require.NoError(t, err)
	assert.NotContains(t, html, "<script")
	assert.NotContains(t, html, "javascript:")
}

func TestRenderBlank(t *testing.T) {
	html, err := NewRenderer().Render("  \n ")
	require.NoError(t, err)
	assert.Empty(t, html)
}
