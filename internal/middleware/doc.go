// Package middleware provides the HTTP middleware of the web UI server:
// W3C access logging with download tokens redacted, Prometheus request
// metrics labelled by route template, and gzip compression of text
// responses.
package middleware
