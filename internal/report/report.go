// Package report assembles the Markdown analysis report.
package report

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Heading is the fixed first line of every report.
const Heading = "# Analysis Report"

// Document is the content of one report.
type Document struct {
	Narrative string
	// Images are file names relative to the report, in generation order.
	Images []string
}

// Assemble renders the report: heading, narrative, then one titled image
// reference per artifact.
func Assemble(d Document) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n%s\n", Heading, strings.TrimSpace(d.Narrative))
	for _, img := range d.Images {
		title := Title(img)
		fmt.Fprintf(&b, "\n## %s\n\n![%s](%s)\n", title, title, img)
	}
	return b.String()
}

var titleCaser = cases.Title(language.English)

// Title turns an image file name such as sales_2024_histogram.png into
// "Sales 2024 Histogram".
func Title(file string) string {
	base := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	words := strings.Fields(strings.NewReplacer("_", " ", "-", " ").Replace(base))
	return titleCaser.String(strings.Join(words, " "))
}

// HTML renders Markdown as a standalone HTML page.
func HTML(md string) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	r := html.NewRenderer(html.RendererOptions{
		Title: "Analysis Report",
		Flags: html.CommonFlags | html.CompletePage,
	})
	return markdown.ToHTML([]byte(md), p, r)
}
