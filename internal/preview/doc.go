// Package preview renders a still poster of a finished GIF so the web UI
// can show what was produced next to the download link.
package preview
