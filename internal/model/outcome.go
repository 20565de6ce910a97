package model

// Outcome records what happened to a URL after it was dequeued.
// Every dequeued URL ends with exactly one outcome.
type Outcome string

const (
	// OutcomeExported means the page was written and added to the manifest.
	OutcomeExported Outcome = "exported"

	// OutcomeOffOrigin means the URL is on a different scheme or host.
	OutcomeOffOrigin Outcome = "off_origin"

	// OutcomeOutsidePrefix means the URL path is outside the configured prefix.
	OutcomeOutsidePrefix Outcome = "outside_prefix"

	// OutcomeExcluded means the URL matched an exclude pattern
	// (old revisions, edit and history views, diffs).
	OutcomeExcluded Outcome = "excluded"

	// OutcomeRobotsDisallowed means robots.txt forbids the URL.
	OutcomeRobotsDisallowed Outcome = "robots_disallowed"

	// OutcomeHTTPStatus means the server answered with a non-2xx status.
	OutcomeHTTPStatus Outcome = "http_status"

	// OutcomeNotHTML means the response was not an HTML document.
	OutcomeNotHTML Outcome = "not_html"

	// OutcomeFetchError means the request failed at network level
	// (timeout, DNS, connection reset) or the body could not be read.
	OutcomeFetchError Outcome = "fetch_error"

	// OutcomeEmptyBody means extraction produced no content.
	OutcomeEmptyBody Outcome = "empty_body"
)

// AllOutcomes lists every outcome in reporting order.
var AllOutcomes = []Outcome{
	OutcomeExported,
	OutcomeOffOrigin,
	OutcomeOutsidePrefix,
	OutcomeExcluded,
	OutcomeRobotsDisallowed,
	OutcomeHTTPStatus,
	OutcomeNotHTML,
	OutcomeFetchError,
	OutcomeEmptyBody,
}

// String returns the outcome label.
func (o Outcome) String() string {
	return string(o)
}

// IsGateRejection reports whether the URL was rejected before any network I/O.
func (o Outcome) IsGateRejection() bool {
	switch o {
	case OutcomeOffOrigin, OutcomeOutsidePrefix, OutcomeExcluded, OutcomeRobotsDisallowed:
		return true
	default:
		return false
	}
}

// IsFetchFailure reports whether the fetch itself failed, as opposed to
// returning a page that was deliberately skipped.
func (o Outcome) IsFetchFailure() bool {
	return o == OutcomeFetchError || o == OutcomeHTTPStatus
}
