package media

import (
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
)

// RecognizedExtensions is the set of container formats the library
// will acknowledge when scanning the media directory. Files with any
// other extension are invisible to the reconciler.
var RecognizedExtensions = []string{"mp4", "webm", "mkv"}

// VideoRecord is one library entry describing a downloaded or
// discovered video file. The ID doubles as the on-disk filename stem
// and is immutable once the record is created.
type VideoRecord struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	Filename      string  `json:"filename"`
	Duration      int     `json:"duration"`
	Thumbnail     string  `json:"thumbnail"`
	OriginalURL   string  `json:"original_url"`
	SourceVideoID string  `json:"source_video_id,omitempty"`
	FileSizeMB    float64 `json:"file_size"`
}

// PlaceholderTitle derives the synthesized title used for records
// discovered on disk without any accompanying metadata.
func PlaceholderTitle(id string) string {
	prefix := id
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}

	return fmt.Sprintf("Video %s", prefix)
}

// Extension returns the record's file extension without the leading dot.
func (record *VideoRecord) Extension() string {
	return strings.TrimPrefix(filepath.Ext(record.Filename), ".")
}

// ContentType resolves the MIME type used when serving the record's
// file for playback. Unknown extensions fall back to video/mp4.
func (record *VideoRecord) ContentType() string {
	switch record.Extension() {
	case "webm":
		return "video/webm"
	case "mkv":
		return "video/x-matroska"
	default:
		return "video/mp4"
	}
}

// EmbedVideoID resolves the platform-assigned identifier used when
// constructing a third-party embeddable player. The stored source ID
// is preferred; if it's absent we fall back to re-deriving it from the
// original URL. An empty string is returned when neither yields one.
func (record *VideoRecord) EmbedVideoID() string {
	if record.SourceVideoID != "" {
		return record.SourceVideoID
	}

	return DeriveSourceVideoID(record.OriginalURL)
}

var sourceIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:youtu\.be/)([A-Za-z0-9_-]{11})`),
	regexp.MustCompile(`(?:/shorts/)([A-Za-z0-9_-]{11})`),
	regexp.MustCompile(`(?:/embed/)([A-Za-z0-9_-]{11})`),
}

// DeriveSourceVideoID pattern-matches common URL shapes for the
// originating platform's own video identifier (the 'v' query parameter,
// or the path segment of short-link/shorts/embed URLs). Returns an
// empty string when no shape matches.
func DeriveSourceVideoID(rawURL string) string {
	if rawURL == "" {
		return ""
	}

	if parsed, err := url.Parse(rawURL); err == nil {
		if v := parsed.Query().Get("v"); v != "" {
			return v
		}
	}

	for _, pattern := range sourceIDPatterns {
		if groups := pattern.FindStringSubmatch(rawURL); len(groups) == 2 {
			return groups[1]
		}
	}

	return ""
}
