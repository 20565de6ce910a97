package robots

import "errors"

// ErrRobotsUnavailable is returned by Load when robots.txt answered with a
// non-2xx status. The accompanying policy is permissive.
var ErrRobotsUnavailable = errors.New("robots.txt unavailable")
