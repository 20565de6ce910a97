package robots

import (
	"bufio"
	"math"
	"strconv"
	"strings"
	"time"
)

// ParseCrawlDelay scans robots.txt text for a Crawl-delay directive that
// applies to userAgent.
//
// Consecutive User-agent lines form one group. A group applies when one of
// its agents is "*", equals userAgent, or equals the product token of
// userAgent (the part before the first "/"), compared case-insensitively.
// The first applicable Crawl-delay wins and scanning stops there.
func ParseCrawlDelay(text, userAgent string) (time.Duration, bool) {
	ua := strings.ToLower(strings.TrimSpace(userAgent))
	token := ua
	if i := strings.IndexAny(token, "/ "); i >= 0 {
		token = token[:i]
	}

	var (
		agents    []string
		inUAGroup bool
	)

	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		switch key {
		case "user-agent":
			if !inUAGroup {
				agents = agents[:0]
			}
			agents = append(agents, strings.ToLower(value))
			inUAGroup = true
		case "crawl-delay":
			inUAGroup = false
			if !groupMatches(agents, ua, token) {
				continue
			}
			if d, ok := parseSeconds(value); ok {
				return d, true
			}
		default:
			inUAGroup = false
		}
	}

	return 0, false
}

func groupMatches(agents []string, ua, token string) bool {
	for _, a := range agents {
		if a == "*" || (a != "" && (a == ua || a == token)) {
			return true
		}
	}
	return false
}

func parseSeconds(value string) (time.Duration, bool) {
	secs, err := strconv.ParseFloat(value, 64)
	if err != nil || secs < 0 || math.IsNaN(secs) || math.IsInf(secs, 0) {
		return 0, false
	}
	return time.Duration(secs * float64(time.Second)), true
}
