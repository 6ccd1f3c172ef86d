package parser

import (
	"bytes"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/c360studio/casegen/source"
	"golang.org/x/net/html"
)

var blankRunRe = regexp.MustCompile(`\n{3,}`)

// strippedElements never carry requirement text.
var strippedElements = map[string]bool{
	"script": true, "style": true, "noscript": true, "nav": true,
	"iframe": true, "object": true, "embed": true, "form": true,
}

// HTMLParser converts HTML pages (exported wiki pages, saved tickets) to
// markdown. The page title becomes the "title" frontmatter key.
type HTMLParser struct {
	converter *md.Converter
}

// NewHTMLParser creates a new HTML parser.
func NewHTMLParser() *HTMLParser {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())
	return &HTMLParser{converter: converter}
}

// Parse converts the page body, or its <main> element when present.
func (p *HTMLParser) Parse(filename string, content []byte) (*source.Document, error) {
	root, err := html.Parse(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}

	title := ""
	if n := findElement(root, "title"); n != nil && n.FirstChild != nil {
		title = strings.TrimSpace(n.FirstChild.Data)
	}

	removeElements(root)
	target := findElement(root, "main")
	if target == nil {
		target = findElement(root, "body")
	}
	if target == nil {
		target = root
	}

	var rendered strings.Builder
	if err := html.Render(&rendered, target); err != nil {
		return nil, fmt.Errorf("render HTML: %w", err)
	}

	markdown, err := p.converter.ConvertString(rendered.String())
	if err != nil {
		return nil, fmt.Errorf("convert HTML to markdown: %w", err)
	}
	markdown = strings.TrimSpace(blankRunRe.ReplaceAllString(markdown, "\n\n"))

	doc := &source.Document{
		ID:       GenerateDocID("html", filename, content),
		Filename: filepath.Base(filename),
		Content:  string(content),
		Body:     markdown,
	}
	if title != "" {
		doc.Frontmatter = map[string]any{"title": title}
	}
	return doc, nil
}

// CanParse returns true if this parser can handle the given MIME type.
func (p *HTMLParser) CanParse(mimeType string) bool {
	return mimeType == "text/html" || mimeType == "application/xhtml+xml"
}

// MimeType returns the primary MIME type for this parser.
func (p *HTMLParser) MimeType() string {
	return "text/html"
}

// findElement returns the first element named tag in document order.
func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

// removeElements detaches every stripped element under n.
func removeElements(n *html.Node) {
	var doomed []*html.Node
	var collect func(*html.Node)
	collect = func(node *html.Node) {
		if node.Type == html.ElementNode && strippedElements[node.Data] {
			doomed = append(doomed, node)
			return
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	for _, node := range doomed {
		node.Parent.RemoveChild(node)
	}
}
