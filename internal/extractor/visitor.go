package extractor

import (
	"strings"

	"github.com/nao1215/markdown"
	"golang.org/x/net/html"
)

// nodeKind is the closed set of node kinds the walker distinguishes.
type nodeKind int

const (
	kindOther nodeKind = iota
	kindHeading
	kindParagraph
	kindListItem
	kindPreformatted
	kindBlockquote
	kindTable
)

// classify maps an element to its kind. Headings also return their level.
func classify(n *html.Node) (nodeKind, int) {
	if n.Type != html.ElementNode {
		return kindOther, 0
	}
	switch n.Data {
	case "h1":
		return kindHeading, 1
	case "h2":
		return kindHeading, 2
	case "h3":
		return kindHeading, 3
	case "h4":
		return kindHeading, 4
	case "h5":
		return kindHeading, 5
	case "p":
		return kindParagraph, 0
	case "li":
		return kindListItem, 0
	case "pre":
		return kindPreformatted, 0
	case "blockquote":
		return kindBlockquote, 0
	case "table":
		return kindTable, 0
	default:
		return kindOther, 0
	}
}

// walker collects text blocks in document order.
// Each visited node produces zero or one block.
type walker struct {
	blocks []string
}

func (w *walker) walkChildren(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.visit(c)
	}
}

func (w *walker) visit(n *html.Node) {
	kind, level := classify(n)
	switch kind {
	case kindHeading:
		w.push(renderHeading(level, collapseSpace(nodeText(n, nil))))
	case kindParagraph:
		w.push(collapseSpace(nodeText(n, nil)))
	case kindListItem:
		// Nested lists become their own items.
		w.push(collapseSpace(nodeText(n, isList)))
		w.walkNestedLists(n)
	case kindPreformatted:
		w.push(renderCode(preText(n)))
	case kindBlockquote:
		w.push(renderQuote(blockLines(n)))
	case kindTable:
		w.push(flattenTable(n))
	default:
		if n.Type == html.ElementNode || n.Type == html.DocumentNode {
			w.walkChildren(n)
		}
	}
}

func (w *walker) walkNestedLists(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if isList(c) {
			w.walkChildren(c)
			continue
		}
		if c.Type == html.ElementNode {
			w.walkNestedLists(c)
		}
	}
}

// push normalizes a block and keeps it if non-empty.
func (w *walker) push(text string) {
	text = normalizeBlock(html.UnescapeString(text))
	if text != "" {
		w.blocks = append(w.blocks, text)
	}
}

func (w *walker) body() string {
	return joinBlocks(w.blocks)
}

func isList(n *html.Node) bool {
	return n.Type == html.ElementNode && (n.Data == "ul" || n.Data == "ol")
}

func renderHeading(level int, text string) string {
	if text == "" {
		return ""
	}
	var sb strings.Builder
	md := markdown.NewMarkdown(&sb)
	switch level {
	case 1:
		md.H1(text)
	case 2:
		md.H2(text)
	case 3:
		md.H3(text)
	case 4:
		md.H4(text)
	default:
		md.H5(text)
	}
	return md.String()
}

func renderCode(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	var sb strings.Builder
	md := markdown.NewMarkdown(&sb)
	md.CodeBlocks(markdown.SyntaxHighlight("text"), strings.Trim(text, "\n"))
	return md.String()
}

func renderQuote(lines []string) string {
	quoted := make([]string, 0, len(lines))
	for _, line := range lines {
		quoted = append(quoted, "> "+line)
	}
	return strings.Join(quoted, "\n")
}

// flattenTable renders one line per row with cell texts joined by " | ".
// Rows of nested tables are left to the cells that contain them.
func flattenTable(table *html.Node) string {
	var rows []string
	var visit func(n *html.Node)
	visit = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.Data {
			case "table":
				continue
			case "tr":
				if row := tableRow(c); row != "" {
					rows = append(rows, row)
				}
			default:
				visit(c)
			}
		}
	}
	visit(table)
	return strings.Join(rows, "\n")
}

func tableRow(tr *html.Node) string {
	var cells []string
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || (c.Data != "td" && c.Data != "th") {
			continue
		}
		if text := collapseSpace(nodeText(c, nil)); text != "" {
			cells = append(cells, text)
		}
	}
	return strings.Join(cells, " | ")
}
