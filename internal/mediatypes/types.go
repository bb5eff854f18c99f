package mediatypes

import (
	"path/filepath"
	"strings"
)

// Kind classifies a selected input file.
type Kind string

const (
	// KindVideo is a container FFmpeg is expected to decode.
	KindVideo Kind = "video"
	// KindAnimation is an already animated image (GIF, APNG, animated WebP).
	KindAnimation Kind = "animation"
	// KindOther is anything else. It is still handed to the engine.
	KindOther Kind = "other"
)

// GIFMimeType is the media type of every produced artifact.
const GIFMimeType = "image/gif"

// VideoExtensions maps file extensions to whether they are common video containers.
var VideoExtensions = map[string]bool{
	".mp4":  true,
	".mkv":  true,
	".avi":  true,
	".mov":  true,
	".wmv":  true,
	".flv":  true,
	".webm": true,
	".m4v":  true,
	".mpeg": true,
	".mpg":  true,
	".3gp":  true,
	".ts":   true,
	".ogv":  true,
}

// AnimationExtensions maps file extensions of animated image formats.
var AnimationExtensions = map[string]bool{
	".gif":  true,
	".apng": true,
	".webp": true,
}

// MimeTypes maps file extensions to their MIME types.
var MimeTypes = map[string]string{
	".mp4":  "video/mp4",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
	".mov":  "video/quicktime",
	".wmv":  "video/x-ms-wmv",
	".flv":  "video/x-flv",
	".webm": "video/webm",
	".m4v":  "video/x-m4v",
	".mpeg": "video/mpeg",
	".mpg":  "video/mpeg",
	".3gp":  "video/3gpp",
	".ts":   "video/mp2t",
	".ogv":  "video/ogg",

	".gif":  GIFMimeType,
	".apng": "image/apng",
	".webp": "image/webp",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
}

// Ext returns the lowercase extension of name including the dot. A name
// consisting only of a leading-dot part has no extension.
func Ext(name string) string {
	base := filepath.Base(name)
	if strings.LastIndex(base, ".") <= 0 {
		return ""
	}
	return strings.ToLower(filepath.Ext(base))
}

// KindOf classifies name by its extension.
func KindOf(name string) Kind {
	ext := Ext(name)
	if VideoExtensions[ext] {
		return KindVideo
	}
	if AnimationExtensions[ext] {
		return KindAnimation
	}
	return KindOther
}

// MimeType returns the MIME type for name.
// Returns "application/octet-stream" if the extension is not recognized.
func MimeType(name string) string {
	if mime, ok := MimeTypes[Ext(name)]; ok {
		return mime
	}
	return "application/octet-stream"
}

// IsLikelyConvertible reports whether name looks like something FFmpeg
// can turn into a GIF. Callers only warn on false; FFmpeg has the final
// word.
func IsLikelyConvertible(name string) bool {
	return KindOf(name) != KindOther
}
