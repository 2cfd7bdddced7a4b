package source

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

var skippedElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"iframe":   true,
	"template": true,
	"svg":      true,
}

var blockElements = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "ul": true, "ol": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"section": true, "article": true, "header": true, "footer": true,
	"table": true, "thead": true, "tbody": true, "pre": true, "blockquote": true,
	"dl": true, "dt": true, "dd": true, "hr": true, "form": true,
}

// HTMLText returns the visible text of an HTML document and its <title>.
// Table rows are rendered as "| a | b |" lines so HURIDOCS field tables
// exported to HTML keep the layout the detector reads.
func HTMLText(r io.Reader) (text string, title string, err error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", "", err
	}

	var b strings.Builder
	render(&b, doc, &title)
	return tidyLines(b.String()), strings.TrimSpace(title), nil
}

func render(b *strings.Builder, n *html.Node, title *string) {
	switch n.Type {
	case html.TextNode:
		writeText(b, n.Data)
		return
	case html.ElementNode:
		if skippedElements[n.Data] {
			return
		}
		switch n.Data {
		case "title":
			if *title == "" {
				*title = collapse(innerText(n))
			}
			return
		case "tr":
			writeRow(b, n)
			return
		case "pre":
			newline(b)
			b.WriteString(innerText(n))
			newline(b)
			return
		}
		if blockElements[n.Data] {
			newline(b)
			defer newline(b)
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		render(b, c, title)
	}
}

func writeText(b *strings.Builder, data string) {
	text := collapse(data)
	if text == "" {
		return
	}
	if s := b.String(); s != "" && !strings.HasSuffix(s, "\n") && !strings.HasSuffix(s, " ") {
		b.WriteString(" ")
	}
	b.WriteString(text)
}

func writeRow(b *strings.Builder, tr *html.Node) {
	var cells []string
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.Data == "td" || c.Data == "th") {
			cells = append(cells, collapse(innerText(c)))
		}
	}
	if len(cells) == 0 {
		return
	}
	newline(b)
	b.WriteString("| ")
	b.WriteString(strings.Join(cells, " | "))
	b.WriteString(" |\n")
}

// newline ends the current line unless it is already ended
func newline(b *strings.Builder) {
	if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
		b.WriteString("\n")
	}
}

// innerText concatenates all descendant text, skipping invisible elements
func innerText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skippedElements[n.Data] {
			return
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		if n.Type == html.ElementNode && n.Data == "br" {
			b.WriteString("\n")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// tidyLines trims every line and folds runs of blank lines into one
func tidyLines(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := true
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			if !blank {
				out = append(out, "")
			}
			blank = true
			continue
		}
		out = append(out, line)
		blank = false
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
