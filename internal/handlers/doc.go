// Package handlers provides the HTTP API behind the web UI.
//
// It includes handlers for:
//   - Selecting a video (multipart upload) and starting a conversion
//   - Polling the conversion session
//   - Fetching the finished GIF once, and a poster preview of it
//   - Health, readiness and version information
package handlers
