package download_test

import (
	"errors"
	"testing"

	"github.com/shunxiangg/YTvid-storage/internal/download"
	"github.com/stretchr/testify/assert"
)

func Test_Classify(t *testing.T) {
	tests := []struct {
		summary      string
		errorMessage string
		expectedKind download.FailureKind
	}{
		{"ffmpeg missing", "ERROR: ffmpeg is not installed on this host", download.ToolMissing},
		{"extractor binary missing", `exec: "yt-dlp": executable file not found in $PATH`, download.ToolMissing},
		{"format unavailable", "ERROR: Requested format is not available", download.FormatUnavailable},
		{"bot check", "ERROR: Sign in to confirm you're not a bot. Use --cookies", download.AuthRequired},
		{"premium only", "ERROR: This video is available for Premium users only", download.PremiumRequired},
		{"premium only alternate phrasing", "ERROR: This video is only available for Premium users", download.PremiumRequired},
		{"private video", "ERROR: Private video. Sign in if you've been granted access", download.PrivateContent},
		{"removed", "ERROR: Video unavailable. This video has been removed", download.ContentUnavailable},
		{"no info", "Failed to extract video information", download.ExtractionFailed},
		{"anything else", "some completely novel failure", download.Unclassified},
	}

	for _, tt := range tests {
		t.Run(tt.summary, func(t *testing.T) {
			failure := download.Classify(errors.New(tt.errorMessage))
			assert.Equal(t, tt.expectedKind, failure.Kind)
			assert.NotEmpty(t, failure.Message)
		})
	}
}

func Test_Classify_FirstMatchWins(t *testing.T) {
	// "Private video" appears after the bot-check needle in the chain,
	// so a message containing both classifies as AuthRequired.
	failure := download.Classify(errors.New("Sign in to confirm you're not a bot; Private video"))
	assert.Equal(t, download.AuthRequired, failure.Kind)
}

func Test_Classify_UnclassifiedSurfacesRawMessage(t *testing.T) {
	failure := download.Classify(errors.New("some completely novel failure"))
	assert.Equal(t, download.Unclassified, failure.Kind)
	assert.Contains(t, failure.Message, "some completely novel failure")
}

func Test_Classify_UserFacingMessages(t *testing.T) {
	privateFailure := download.Classify(errors.New("ERROR: Private video"))
	assert.Equal(t, "This video is private and cannot be accessed.", privateFailure.Message)

	authFailure := download.Classify(errors.New("Sign in to confirm you're not a bot"))
	assert.Contains(t, authFailure.Message, "authentication")
}
