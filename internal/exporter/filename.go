package exporter

import (
	"crypto/sha1" //nolint:gosec // used as a stable filename hash, not for security
	"encoding/hex"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/nao1215/wikiexport/internal/model"
)

const (
	// maxSlugLength caps the path-derived part of a filename.
	maxSlugLength = 80

	// hashLength is the number of hex digits of the URL hash.
	hashLength = 16

	// pageExt is the page document extension.
	pageExt = ".md"
)

var nonAlnumPattern = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// FilenameFor returns the page filename for u: "<slug>__<hash>.md".
//
// The hash is the first 16 hex digits of SHA-1 over the URL text, so the
// same URL always maps to the same file across runs. The slug is the URL
// path with accents folded to ASCII and every run of other characters
// replaced by "-", capped at 80 characters. An empty slug becomes "index".
func FilenameFor(u model.CrawlURL) string {
	sum := sha1.Sum([]byte(u.String())) //nolint:gosec
	return slugFor(u) + "__" + hex.EncodeToString(sum[:])[:hashLength] + pageExt
}

func slugFor(u model.CrawlURL) string {
	path := ""
	if parsed, err := u.Parse(); err == nil {
		path = parsed.EscapedPath()
		if unescaped, err := url.PathUnescape(path); err == nil {
			path = unescaped
		}
	}
	path = strings.Trim(path, "/")

	slug := nonAlnumPattern.ReplaceAllString(foldASCII(path), "-")
	if len(slug) > maxSlugLength {
		slug = slug[:maxSlugLength]
	}
	slug = strings.Trim(slug, "-")
	if slug == "" {
		return "index"
	}
	return slug
}

// foldASCII strips combining marks so that "Café" becomes "Cafe".
func foldASCII(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return folded
}
