package feed

import "errors"

var (
	// ErrFeedClosed is returned when publishing or subscribing on a feed
	// that has been shut down.
	ErrFeedClosed = errors.New("change feed closed")
)
