package extractor

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/wikiexport/internal/model"
)

// contentRootSelectors are tried in order to locate the article body.
var contentRootSelectors = []string{
	"#mw-content-text",
	"#bodyContent",
	"body",
}

// chromeSelectors match non-content regions removed before walking.
var chromeSelectors = []string{
	".mw-editsection",
	".toc",
	".navbox",
	".metadata",
	".mw-jump-link",
	".printfooter",
	"sup.reference",
	"ol.references",
}

// Page is the result of extracting one HTML document.
type Page struct {
	// Document is the extracted page.
	Document model.PageDocument

	// Links are the outbound links in document order, without duplicates.
	Links []model.CrawlURL
}

// Extract parses htmlBody and returns the page document for pageURL.
// An empty Body means no content root was found or it held no text.
func Extract(htmlBody []byte, pageURL model.CrawlURL, fetchedAt time.Time) (model.PageDocument, error) {
	doc, err := parse(htmlBody)
	if err != nil {
		return model.PageDocument{}, err
	}
	return extractDocument(doc, pageURL, fetchedAt), nil
}

// ExtractPage parses htmlBody once and returns both the document and the
// outbound links. Links are resolved against baseURL, which is usually the
// final URL after redirects.
func ExtractPage(htmlBody []byte, pageURL model.CrawlURL, baseURL string, fetchedAt time.Time) (*Page, error) {
	doc, err := parse(htmlBody)
	if err != nil {
		return nil, err
	}
	if baseURL == "" {
		baseURL = pageURL.String()
	}

	// Links come from the whole page, so collect them before chrome removal.
	links := collectLinks(doc, baseURL)

	return &Page{
		Document: extractDocument(doc, pageURL, fetchedAt),
		Links:    links,
	}, nil
}

func parse(htmlBody []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(htmlBody))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParseHTML, err)
	}
	return doc, nil
}

func extractDocument(doc *goquery.Document, pageURL model.CrawlURL, fetchedAt time.Time) model.PageDocument {
	doc.Find("script, style, noscript").Remove()

	title := resolveTitle(doc)

	root := contentRoot(doc)
	if root == nil {
		return model.NewPageDocument(pageURL, title, "", fetchedAt)
	}

	for _, sel := range chromeSelectors {
		root.Find(sel).Remove()
	}

	w := &walker{}
	for _, n := range root.Nodes {
		w.walkChildren(n)
	}

	return model.NewPageDocument(pageURL, title, w.body(), fetchedAt)
}

// resolveTitle returns the first heading, else <title>, else "".
// model.NewPageDocument falls back to the URL for an empty title.
func resolveTitle(doc *goquery.Document) string {
	if h := doc.Find("#firstHeading").First(); h.Length() > 0 {
		if title := collapseSpace(nodesText(h.Nodes)); title != "" {
			return title
		}
	}
	if t := doc.Find("title").First(); t.Length() > 0 {
		return collapseSpace(nodesText(t.Nodes))
	}
	return ""
}

func contentRoot(doc *goquery.Document) *goquery.Selection {
	for _, sel := range contentRootSelectors {
		if s := doc.Find(sel).First(); s.Length() > 0 {
			return s
		}
	}
	return nil
}

// joinBlocks joins rendered blocks and applies the final cleanup.
func joinBlocks(blocks []string) string {
	md := strings.Join(blocks, "\n\n")
	md = editMarkerPattern.ReplaceAllString(md, "")
	return normalizeBlock(md)
}

// IsEmpty reports whether a body has no content after trimming.
func IsEmpty(body string) bool {
	return strings.TrimSpace(body) == ""
}
