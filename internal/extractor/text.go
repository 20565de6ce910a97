package extractor

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var (
	trailingSpacePattern = regexp.MustCompile(`[ \t]+\n`)
	blankLinesPattern    = regexp.MustCompile(`\n{3,}`)
	editMarkerPattern    = regexp.MustCompile(`(?i)[ \t]*\[edit\]`)
)

// blockElements break inline text; their boundaries become whitespace.
var blockElements = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"br": true, "dd": true, "div": true, "dl": true, "dt": true,
	"figcaption": true, "figure": true, "footer": true, "h1": true,
	"h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"header": true, "hr": true, "li": true, "main": true, "nav": true,
	"ol": true, "p": true, "pre": true, "section": true, "table": true,
	"tbody": true, "td": true, "tfoot": true, "th": true, "thead": true,
	"tr": true, "ul": true,
}

// normalizeBlock drops trailing line whitespace, collapses runs of blank
// lines to one and trims the result.
func normalizeBlock(text string) string {
	text = trailingSpacePattern.ReplaceAllString(text, "\n")
	text = blankLinesPattern.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// collapseSpace folds all whitespace runs to single spaces.
func collapseSpace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// nodeText concatenates the text below n. Block element boundaries are
// separated by a space. Subtrees for which skip returns true are ignored.
func nodeText(n *html.Node, skip func(*html.Node) bool) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		switch c.Type {
		case html.TextNode:
			sb.WriteString(c.Data)
		case html.ElementNode:
			if skip != nil && skip(c) {
				return
			}
			block := blockElements[c.Data]
			if block {
				sb.WriteByte(' ')
			}
			for gc := c.FirstChild; gc != nil; gc = gc.NextSibling {
				walk(gc)
			}
			if block {
				sb.WriteByte(' ')
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c)
	}
	return sb.String()
}

// nodesText is nodeText over several roots.
func nodesText(nodes []*html.Node) string {
	parts := make([]string, 0, len(nodes))
	for _, n := range nodes {
		parts = append(parts, nodeText(n, nil))
	}
	return strings.Join(parts, " ")
}

// preText returns the raw text of a preformatted block with <br> as newline.
func preText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		switch c.Type {
		case html.TextNode:
			sb.WriteString(c.Data)
		case html.ElementNode:
			if c.Data == "br" {
				sb.WriteByte('\n')
				return
			}
			for gc := c.FirstChild; gc != nil; gc = gc.NextSibling {
				walk(gc)
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c)
	}
	return sb.String()
}

// blockLines returns the non-empty lines of n, where block element
// boundaries start a new line and whitespace inside a line is collapsed.
func blockLines(n *html.Node) []string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		switch c.Type {
		case html.TextNode:
			sb.WriteString(strings.ReplaceAll(c.Data, "\n", " "))
		case html.ElementNode:
			block := blockElements[c.Data]
			if block {
				sb.WriteByte('\n')
			}
			for gc := c.FirstChild; gc != nil; gc = gc.NextSibling {
				walk(gc)
			}
			if block {
				sb.WriteByte('\n')
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c)
	}

	var lines []string
	for line := range strings.SplitSeq(sb.String(), "\n") {
		if line = collapseSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
