package parser

import (
	"testing"

	"github.com/c360studio/casegen/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_GetByMimeType(t *testing.T) {
	r := NewRegistry()

	t.Run("direct match", func(t *testing.T) {
		p := r.GetByMimeType("text/markdown")
		require.NotNil(t, p)
		assert.Equal(t, "text/markdown", p.MimeType())
	})

	t.Run("CanParse fallback", func(t *testing.T) {
		p := r.GetByMimeType("text/x-markdown")
		require.NotNil(t, p)
		assert.Equal(t, "text/markdown", p.MimeType())
	})

	t.Run("structured text handled by text parser", func(t *testing.T) {
		for _, mime := range []string{"application/json", "application/yaml", "application/xml"} {
			p := r.GetByMimeType(mime)
			require.NotNil(t, p, mime)
			assert.Equal(t, "text/plain", p.MimeType(), mime)
		}
	})

	t.Run("no parser for unknown type", func(t *testing.T) {
		assert.Nil(t, r.GetByMimeType("application/octet-stream"))
	})
}

func TestRegistry_GetByExtension(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		filename string
		wantMime string
	}{
		{"requirements.md", "text/markdown"},
		{"REQUIREMENTS.MARKDOWN", "text/markdown"},
		{"notes.txt", "text/plain"},
		{"petstore.yaml", "text/plain"},
		{"petstore.json", "text/plain"},
		{"export.xml", "text/plain"},
		{"page.html", "text/html"},
		{"brief.pdf", "application/pdf"},
		{"brief.docx", ""},
		{"noextension", ""},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			p := r.GetByExtension(tt.filename)
			if tt.wantMime == "" {
				assert.Nil(t, p)
				return
			}
			require.NotNil(t, p)
			assert.Equal(t, tt.wantMime, p.MimeType())
		})
	}
}

func TestRegistry_Parse(t *testing.T) {
	r := NewRegistry()

	t.Run("sets mime type", func(t *testing.T) {
		doc, err := r.Parse("docs/login.md", []byte("# Login\n"))
		require.NoError(t, err)
		assert.Equal(t, "text/markdown", doc.MimeType)
		assert.Equal(t, "login.md", doc.Filename)
	})

	t.Run("unsupported extension", func(t *testing.T) {
		_, err := r.Parse("brief.docx", []byte("PK"))
		require.Error(t, err)
		assert.ErrorIs(t, err, source.ErrUnsupported)
		assert.Contains(t, err.Error(), "brief.docx")
	})
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()
	before := len(r.ListMimeTypes())

	r.Register(NewMarkdownParser())
	assert.Len(t, r.ListMimeTypes(), before, "re-registering replaces")
	assert.Equal(t, []string{"application/pdf", "text/html", "text/markdown", "text/plain"}, r.ListMimeTypes())
}

func TestMimeTypeFromExtension(t *testing.T) {
	assert.Equal(t, "text/markdown", MimeTypeFromExtension(".MD"))
	assert.Equal(t, "application/pdf", MimeTypeFromExtension(".pdf"))
	assert.Equal(t, "application/octet-stream", MimeTypeFromExtension(".exe"))
}

func TestSupportedExtensions_AllResolve(t *testing.T) {
	r := NewRegistry()
	for _, ext := range SupportedExtensions() {
		assert.NotNil(t, r.GetByExtension("file"+ext), ext)
	}
}

func TestGenerateDocID(t *testing.T) {
	id := GenerateDocID("md", "docs/Login Flow_v2.md", []byte("x"))
	assert.Regexp(t, `^md\.login-flow-v2\.[0-9a-f]{12}$`, id)

	assert.Equal(t, id, GenerateDocID("md", "other/Login Flow_v2.md", []byte("x")), "stable across directories")
	assert.NotEqual(t, id, GenerateDocID("md", "docs/Login Flow_v2.md", []byte("y")))
}
