package extractor

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/wikiexport/internal/model"
)

// ignoredHrefPrefixes are link targets that never lead to a page.
var ignoredHrefPrefixes = []string{"#", "mailto:", "javascript:"}

// ExtractLinks returns the normalized absolute targets of every anchor in
// htmlBody, resolved against baseURL. Duplicates collapse to the first
// occurrence, so the order is document order.
func ExtractLinks(htmlBody []byte, baseURL string) ([]model.CrawlURL, error) {
	doc, err := parse(htmlBody)
	if err != nil {
		return nil, err
	}
	return collectLinks(doc, baseURL), nil
}

func collectLinks(doc *goquery.Document, baseURL string) []model.CrawlURL {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}

	seen := make(map[model.CrawlURL]bool)
	links := make([]model.CrawlURL, 0)

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || hasIgnoredPrefix(href) {
			return
		}

		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		u, err := model.NormalizeURL(base.ResolveReference(ref).String())
		if err != nil {
			return
		}
		if !seen[u] {
			seen[u] = true
			links = append(links, u)
		}
	})

	return links
}

func hasIgnoredPrefix(href string) bool {
	lower := strings.ToLower(href)
	for _, prefix := range ignoredHrefPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}
