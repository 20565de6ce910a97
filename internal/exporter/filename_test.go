package exporter

import (
	"fmt"
	"regexp"
	"strings"
	"testing"

	"github.com/nao1215/wikiexport/internal/model"
)

var filenamePattern = regexp.MustCompile(`^[a-zA-Z0-9-]{1,80}__[0-9a-f]{16}\.md$`)

func TestFilenameFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		url      model.CrawlURL
		wantSlug string
	}{
		{"article", "https://wiki.example.org/wiki/Ring_of_Brodgar", "wiki-Ring-of-Brodgar"},
		{"root", "https://wiki.example.org/", "index"},
		{"no path", "https://wiki.example.org", "index"},
		{"escaped accent", "https://wiki.example.org/wiki/Caf%C3%A9", "wiki-Cafe"},
		{"namespace", "https://wiki.example.org/wiki/Category:Buildings", "wiki-Category-Buildings"},
		{"query is not part of slug", "https://wiki.example.org/wiki/Stone?x=1", "wiki-Stone"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := FilenameFor(tt.url)
			if !filenamePattern.MatchString(got) {
				t.Errorf("FilenameFor(%q) = %q, does not match %s", tt.url, got, filenamePattern)
			}
			if !strings.HasPrefix(got, tt.wantSlug+"__") {
				t.Errorf("FilenameFor(%q) = %q, want slug %q", tt.url, got, tt.wantSlug)
			}
		})
	}
}

func TestFilenameForKnownHash(t *testing.T) {
	t.Parallel()

	got := FilenameFor("https://example.org/")
	want := "index__" + sha1Prefix("https://example.org/") + ".md"
	if got != want {
		t.Errorf("FilenameFor() = %q, want %q", got, want)
	}
}

func TestFilenameForLongPath(t *testing.T) {
	t.Parallel()

	u := model.CrawlURL("https://wiki.example.org/wiki/" + strings.Repeat("Long_Title_", 20))
	got := FilenameFor(u)
	slug, _, _ := strings.Cut(got, "__")
	if len(slug) > maxSlugLength {
		t.Errorf("slug length = %d, want <= %d", len(slug), maxSlugLength)
	}
	if strings.HasSuffix(slug, "-") || strings.HasPrefix(slug, "-") {
		t.Errorf("slug %q has leading or trailing dash", slug)
	}
}

func TestFilenameForStableAndCollisionFree(t *testing.T) {
	t.Parallel()

	const n = 10000
	seen := make(map[string]model.CrawlURL, n)
	for i := range n {
		u := model.CrawlURL(fmt.Sprintf("https://wiki.example.org/wiki/Page_%d", i))
		name := FilenameFor(u)
		if again := FilenameFor(u); again != name {
			t.Fatalf("FilenameFor(%q) not deterministic: %q vs %q", u, name, again)
		}
		if prev, ok := seen[name]; ok {
			t.Fatalf("collision: %q and %q both map to %q", prev, u, name)
		}
		seen[name] = u
	}

	// URLs that differ only in characters the slug folds away still differ.
	a := FilenameFor("https://wiki.example.org/wiki/A_B")
	b := FilenameFor("https://wiki.example.org/wiki/A-B")
	if a == b {
		t.Errorf("expected distinct filenames, both %q", a)
	}
}
