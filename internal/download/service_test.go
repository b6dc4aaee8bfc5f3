package download_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gotest.tools/v3/fs"

	"github.com/shunxiangg/YTvid-storage/internal/download"
	"github.com/shunxiangg/YTvid-storage/internal/event"
	"github.com/shunxiangg/YTvid-storage/internal/media"
	"github.com/shunxiangg/YTvid-storage/pkg/logger"
)

func init() {
	logger.SetMinLoggingLevel(logger.ERROR.Level())
}

var defaultEventBus = event.New()

type mockExtractor struct {
	mock.Mock
}

func (m *mockExtractor) Extract(ctx context.Context, url string, outputTemplate string) (*download.ExtractedInfo, error) {
	args := m.Called(ctx, url, outputTemplate)
	if v, ok := args.Get(0).(*download.ExtractedInfo); ok {
		return v, args.Error(1)
	}

	return nil, args.Error(1)
}

// produceFile mimics the extractor writing its output file, choosing
// the extension the way yt-dlp's format negotiation would.
func produceFile(t *testing.T, ext string) func(mock.Arguments) {
	t.Helper()

	return func(args mock.Arguments) {
		outputTemplate := args.String(2)
		path := strings.Replace(outputTemplate, "%(ext)s", ext, 1)
		assert.Nil(t, os.WriteFile(path, []byte("video bytes"), 0644))
	}
}

func newTestStore(t *testing.T) *media.Store {
	t.Helper()

	storeDir := fs.NewDir(t, "ytvs_store_test")
	t.Cleanup(storeDir.Remove)

	return media.NewStore(storeDir.Join("videos.json"))
}

func Test_Download_SuccessStoresCompleteRecord(t *testing.T) {
	mediaDir := fs.NewDir(t, "ytvs_download_test")
	defer mediaDir.Remove()
	store := newTestStore(t)

	sourceURL := "https://www.youtube.com/watch?v=dQw4w9WgXcQ"
	extractorMock := new(mockExtractor)
	extractorMock.
		On("Extract", mock.Anything, sourceURL, mock.Anything).
		Run(produceFile(t, "mp4")).
		Return(&download.ExtractedInfo{Title: "Sample", Duration: 42, Thumbnail: "https://example.com/t.jpg"}, nil)

	service := download.NewService(mediaDir.Path(), extractorMock, nil, store, defaultEventBus)
	result := service.Download(context.Background(), sourceURL)

	assert.True(t, result.Success)
	assert.Equal(t, "Sample", result.Title)
	assert.NotEmpty(t, result.VideoID)

	record := store.Get(result.VideoID)
	assert.NotNil(t, record)
	assert.Equal(t, "Sample", record.Title)
	assert.Equal(t, 42, record.Duration)
	assert.Equal(t, "https://example.com/t.jpg", record.Thumbnail)
	assert.Equal(t, sourceURL, record.OriginalURL)
	assert.Equal(t, "dQw4w9WgXcQ", record.SourceVideoID)
	assert.Equal(t, result.VideoID+".mp4", record.Filename)
	assert.FileExists(t, mediaDir.Join(record.Filename))

	extractorMock.AssertExpectations(t)
}

func Test_Download_ExtensionIsExtractorsChoice(t *testing.T) {
	mediaDir := fs.NewDir(t, "ytvs_download_test")
	defer mediaDir.Remove()
	store := newTestStore(t)

	extractorMock := new(mockExtractor)
	extractorMock.
		On("Extract", mock.Anything, mock.Anything, mock.Anything).
		Run(produceFile(t, "webm")).
		Return(&download.ExtractedInfo{Title: "Sample"}, nil)

	service := download.NewService(mediaDir.Path(), extractorMock, nil, store, defaultEventBus)
	result := service.Download(context.Background(), "https://example.com/video")

	assert.True(t, result.Success)
	record := store.Get(result.VideoID)
	assert.Equal(t, result.VideoID+".webm", record.Filename)
	assert.Equal(t, "video/webm", record.ContentType())
}

func Test_Download_EmptyURLFailsFast(t *testing.T) {
	mediaDir := fs.NewDir(t, "ytvs_download_test")
	defer mediaDir.Remove()

	extractorMock := new(mockExtractor)
	service := download.NewService(mediaDir.Path(), extractorMock, nil, newTestStore(t), defaultEventBus)

	result := service.Download(context.Background(), "   ")
	assert.False(t, result.Success)
	assert.Equal(t, "No URL provided", result.Message)
	extractorMock.AssertNotCalled(t, "Extract")
}

func Test_Download_FailureIsClassifiedAndLeavesNoTrace(t *testing.T) {
	mediaDir := fs.NewDir(t, "ytvs_download_test")
	defer mediaDir.Remove()
	store := newTestStore(t)

	extractorMock := new(mockExtractor)
	extractorMock.
		On("Extract", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("ERROR: Private video. Sign in if you've been granted access"))

	service := download.NewService(mediaDir.Path(), extractorMock, nil, store, defaultEventBus)
	result := service.Download(context.Background(), "https://www.youtube.com/watch?v=private")

	assert.False(t, result.Success)
	assert.Equal(t, "This video is private and cannot be accessed.", result.Message)
	assert.Zero(t, store.Count())

	entries, err := os.ReadDir(mediaDir.Path())
	assert.Nil(t, err)
	assert.Empty(t, entries)
}

func Test_Download_MissingOutputFileIsAFailure(t *testing.T) {
	mediaDir := fs.NewDir(t, "ytvs_download_test")
	defer mediaDir.Remove()
	store := newTestStore(t)

	// Extractor reports success but never produced a file.
	extractorMock := new(mockExtractor)
	extractorMock.
		On("Extract", mock.Anything, mock.Anything, mock.Anything).
		Return(&download.ExtractedInfo{Title: "Sample"}, nil)

	service := download.NewService(mediaDir.Path(), extractorMock, nil, store, defaultEventBus)
	result := service.Download(context.Background(), "https://example.com/video")

	assert.False(t, result.Success)
	assert.Equal(t, "File was not downloaded correctly", result.Message)
	assert.Zero(t, store.Count())
}

func Test_Download_MissingTitleGetsPlaceholder(t *testing.T) {
	mediaDir := fs.NewDir(t, "ytvs_download_test")
	defer mediaDir.Remove()
	store := newTestStore(t)

	extractorMock := new(mockExtractor)
	extractorMock.
		On("Extract", mock.Anything, mock.Anything, mock.Anything).
		Run(produceFile(t, "mp4")).
		Return(&download.ExtractedInfo{}, nil)

	service := download.NewService(mediaDir.Path(), extractorMock, nil, store, defaultEventBus)
	result := service.Download(context.Background(), "https://example.com/video")

	assert.True(t, result.Success)
	record := store.Get(result.VideoID)
	assert.Equal(t, media.PlaceholderTitle(result.VideoID), record.Title)
	assert.Equal(t, filepath.Base(mediaDir.Join(record.Filename)), record.Filename)
}
