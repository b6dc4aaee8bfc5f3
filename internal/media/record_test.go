package media_test

import (
	"testing"

	"github.com/shunxiangg/YTvid-storage/internal/media"
	"github.com/stretchr/testify/assert"
)

func Test_DeriveSourceVideoID(t *testing.T) {
	tests := []struct {
		summary  string
		url      string
		expected string
	}{
		{"watch url", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"watch url with extra params", "https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=42s", "dQw4w9WgXcQ"},
		{"short link", "https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"shorts", "https://www.youtube.com/shorts/abcDEF12345", "abcDEF12345"},
		{"embed", "https://www.youtube.com/embed/abcDEF12345", "abcDEF12345"},
		{"no id present", "https://example.com/some/video.mp4", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.summary, func(t *testing.T) {
			assert.Equal(t, tt.expected, media.DeriveSourceVideoID(tt.url))
		})
	}
}

func Test_ContentType(t *testing.T) {
	tests := []struct {
		summary  string
		filename string
		expected string
	}{
		{"mp4", "abc.mp4", "video/mp4"},
		{"webm", "abc.webm", "video/webm"},
		{"mkv", "abc.mkv", "video/x-matroska"},
		{"unknown extension defaults to mp4", "abc.avi", "video/mp4"},
	}

	for _, tt := range tests {
		t.Run(tt.summary, func(t *testing.T) {
			record := media.VideoRecord{Filename: tt.filename}
			assert.Equal(t, tt.expected, record.ContentType())
		})
	}
}

func Test_PlaceholderTitle(t *testing.T) {
	assert.Equal(t, "Video abc123", media.PlaceholderTitle("abc123"))
	assert.Equal(t, "Video 12345678", media.PlaceholderTitle("123456789abcdef"))
}

func Test_EmbedVideoID_PrefersStoredSourceID(t *testing.T) {
	record := media.VideoRecord{
		SourceVideoID: "storedID1234",
		OriginalURL:   "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
	}
	assert.Equal(t, "storedID1234", record.EmbedVideoID())
}

func Test_EmbedVideoID_FallsBackToOriginalURL(t *testing.T) {
	record := media.VideoRecord{OriginalURL: "https://youtu.be/dQw4w9WgXcQ"}
	assert.Equal(t, "dQw4w9WgXcQ", record.EmbedVideoID())

	bare := media.VideoRecord{}
	assert.Equal(t, "", bare.EmbedVideoID())
}

func Test_SizeInMegabytes(t *testing.T) {
	assert.Equal(t, 1.0, media.SizeInMegabytes(1024*1024))
	assert.Equal(t, 2.5, media.SizeInMegabytes(2621440))
	assert.Equal(t, 0.1, media.SizeInMegabytes(104858))
}
