package crawler

import (
	"context"
	"time"

	"github.com/nao1215/wikiexport/internal/extractor"
	"github.com/nao1215/wikiexport/internal/fetcher"
	"github.com/nao1215/wikiexport/internal/model"
	"github.com/nao1215/wikiexport/internal/politeness"
)

// fetchResult is handed from a worker to the dispatcher.
type fetchResult struct {
	url       model.CrawlURL
	resp      *fetcher.Response
	page      *extractor.Page
	fetchedAt time.Time
	err       error
}

// process waits for a politeness slot, fetches u and extracts it.
// It runs on a worker goroutine and must not touch dispatcher state.
func (e *Engine) process(ctx context.Context, sched *politeness.Scheduler, u model.CrawlURL) fetchResult {
	res := fetchResult{url: u}

	if err := sched.WaitForSlot(ctx); err != nil {
		res.err = err
		return res
	}

	resp, err := e.fetcher.Fetch(ctx, u)
	sched.Done()
	res.fetchedAt = e.clock.Now()
	if err != nil {
		res.err = err
		return res
	}
	res.resp = resp

	base := resp.FinalURL
	if base == "" {
		base = u.String()
	}
	page, err := extractor.ExtractPage(resp.Body, u, base, res.fetchedAt)
	if err != nil {
		// Treat unparsable HTML like a page without content.
		e.logger.Debug("extract failed", "url", u, "error", err)
		page = &extractor.Page{Document: model.NewPageDocument(u, "", "", res.fetchedAt)}
	}
	res.page = page
	return res
}
