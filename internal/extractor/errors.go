package extractor

import "errors"

// ErrParseHTML is returned when the document cannot be parsed.
var ErrParseHTML = errors.New("failed to parse html")
