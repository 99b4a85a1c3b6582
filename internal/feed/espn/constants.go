package espn

import "time"

const (
	feedName           = "espn"
	defaultHTTPTimeout = 10 * time.Second
	defaultUserAgent   = "matchday-notifier/1.0"
	statusPrefix       = "STATUS_"
	errorBodyLimit     = 512
)
