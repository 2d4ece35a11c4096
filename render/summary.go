package render

import (
	"strings"

	"github.com/gomarkdown/markdown/ast"
	"github.com/gomarkdown/markdown/parser"
	"github.com/mattn/go-runewidth"
)

// Summarize returns the plain text of the first heading or paragraph of a
// Markdown document, truncated to width display cells.
func Summarize(markdown string, width int) string {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	doc := p.Parse([]byte(markdown))

	var summary string
	ast.WalkFunc(doc, func(node ast.Node, entering bool) ast.WalkStatus {
		if !entering {
			return ast.GoToNext
		}
		switch node.(type) {
		case *ast.Heading, *ast.Paragraph:
			if text := collapse(plainText(node)); text != "" {
				summary = text
				return ast.Terminate
			}
			return ast.SkipChildren
		}
		return ast.GoToNext
	})

	if summary == "" {
		summary = collapse(markdown)
	}
	if width > 0 {
		summary = runewidth.Truncate(summary, width, "...")
	}
	return summary
}

func plainText(node ast.Node) string {
	var b strings.Builder
	ast.WalkFunc(node, func(n ast.Node, entering bool) ast.WalkStatus {
		if !entering {
			return ast.GoToNext
		}
		switch leaf := n.(type) {
		case *ast.Text:
			b.Write(leaf.Literal)
		case *ast.Code:
			b.Write(leaf.Literal)
		case *ast.Softbreak, *ast.Hardbreak:
			b.WriteByte(' ')
		}
		return ast.GoToNext
	})
	return b.String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
