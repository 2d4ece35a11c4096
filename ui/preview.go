package ui

import (
	markdown "github.com/MichaelMure/go-term-markdown"
	gomarkdown "github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/parser"
)

// renderMarkdown renders content for the terminal. Autolinking is off so
// plain URLs stay plain and the terminal can detect them itself.
func renderMarkdown(content string, width int) string {
	if width < 20 {
		width = 80
	}
	ext := markdown.Extensions() &^ parser.Autolink
	p := parser.NewWithExtensions(ext)
	doc := p.Parse([]byte(content))
	return string(gomarkdown.Render(doc, markdown.NewRenderer(width-4, 0)))
}
