package exception

import "errors"

var (
	ErrFeedClosed        = errors.New("feed: transport closed")
	ErrFeedNotRunning    = errors.New("feed: transport not running")
	ErrFeedAuthRejected  = errors.New("feed: authentication rejected")
	ErrSubscribeRejected = errors.New("feed: subscribe rejected")
	ErrRetriesExhausted  = errors.New("feed: retries exhausted")
)
