package politeness

import (
	"time"

	"github.com/nao1215/wikiexport/internal/model"
)

// DefaultDelay is the shortest delay between requests. It is also used when
// neither an override nor a robots crawl delay is available.
const DefaultDelay = time.Second

// EffectiveDelay resolves the minimum delay between requests as the largest of
// DefaultDelay, the robots crawl delay and the override. An override can slow
// the crawl down but never undercut the site's Crawl-delay or the default.
// On a tie the override is reported as the source, then robots.
func EffectiveDelay(override *time.Duration, robotsDelay time.Duration, hasRobots bool) (time.Duration, model.DelaySource) {
	delay, source := DefaultDelay, model.DelaySourceDefault
	if hasRobots && robotsDelay >= delay {
		delay, source = robotsDelay, model.DelaySourceRobots
	}
	if override != nil && *override >= delay {
		delay, source = *override, model.DelaySourceOverride
	}
	return delay, source
}
