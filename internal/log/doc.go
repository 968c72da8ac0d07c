// Package log builds slog loggers that mask sensitive values.
//
// Crawling a corpus behind a login means cookies, authorization headers and
// proxy credentials pass through the program. SecureHandler masks attribute
// values whose key names such data (cookie, authorization, token, ...) or
// whose value looks like a bearer token or JWT, and strips passwords from
// URLs, even in verbose mode.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	logger.Debug("crawl settings", "cookie", cookie, "proxy", "socks5://u:p@host:1080")
package log
