package corpus

import "errors"

var (
	// ErrNotDirectory is returned when a directory corpus path points at
	// something other than a directory.
	ErrNotDirectory = errors.New("corpus path is not a directory")

	// ErrInvalidStartURL is returned when a crawl is started from a URL that
	// cannot be parsed or has no host.
	ErrInvalidStartURL = errors.New("invalid start URL")

	// ErrNoPages is returned when a crawl finishes without fetching a single
	// HTML page.
	ErrNoPages = errors.New("no pages could be fetched")
)
