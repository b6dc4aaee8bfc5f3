package library_test

import (
	"testing"

	"github.com/shunxiangg/YTvid-storage/internal/event"
	"github.com/shunxiangg/YTvid-storage/internal/library"
	"github.com/shunxiangg/YTvid-storage/internal/media"
	"github.com/shunxiangg/YTvid-storage/pkg/logger"
	"github.com/stretchr/testify/assert"
	"gotest.tools/v3/fs"
)

func init() {
	logger.SetMinLoggingLevel(logger.ERROR.Level())
}

// A default event bus which should be used as a NOOP event bus. DO NOT
// subscribe to this inside of a test as the subscribers are not removed
// between tests.
var defaultEventBus = event.New()

func newTestService(t *testing.T, mediaDir *fs.Dir) (*library.Service, *media.Store) {
	t.Helper()

	storeDir := fs.NewDir(t, "ytvs_store_test")
	t.Cleanup(storeDir.Remove)

	store := media.NewStore(storeDir.Join("videos.json"))
	service, err := library.New(library.Config{
		MediaDirPath:     mediaDir.Path(),
		ForceSyncSeconds: 300,
	}, store, defaultEventBus)
	assert.Nil(t, err)

	return service, store
}

func Test_New_RejectsFileAsMediaPath(t *testing.T) {
	dir := fs.NewDir(t, "ytvs_library_test", fs.WithFile("not_a_dir", "contents"))
	defer dir.Remove()

	storeDir := fs.NewDir(t, "ytvs_store_test")
	defer storeDir.Remove()
	store := media.NewStore(storeDir.Join("videos.json"))

	_, err := library.New(library.Config{MediaDirPath: dir.Join("not_a_dir")}, store, defaultEventBus)
	assert.ErrorContains(t, err, "is not a directory")
}

func Test_New_CreatesMissingMediaDirectory(t *testing.T) {
	dir := fs.NewDir(t, "ytvs_library_test")
	defer dir.Remove()

	storeDir := fs.NewDir(t, "ytvs_store_test")
	defer storeDir.Remove()
	store := media.NewStore(storeDir.Join("videos.json"))

	service, err := library.New(library.Config{MediaDirPath: dir.Join("missing", "media")}, store, defaultEventBus)
	assert.Nil(t, err)
	assert.DirExists(t, service.MediaDirPath())
}

func Test_Videos_ReconcilesBeforeListing(t *testing.T) {
	dir := fs.NewDir(t, "ytvs_library_test", fs.WithFile("abc123.mp4", "video bytes"))
	defer dir.Remove()

	service, _ := newTestService(t, dir)

	records := service.Videos()
	assert.Len(t, records, 1)
	assert.Equal(t, "abc123", records[0].ID)
	assert.Equal(t, "Video abc123", records[0].Title)
}

func Test_Video_UnknownIDIsNotFound(t *testing.T) {
	dir := fs.NewDir(t, "ytvs_library_test")
	defer dir.Remove()

	service, _ := newTestService(t, dir)

	_, err := service.Video("no-such-id")
	assert.ErrorIs(t, err, library.ErrRecordNotFound)
}

func Test_Delete_UnknownIDIsNotFound(t *testing.T) {
	dir := fs.NewDir(t, "ytvs_library_test")
	defer dir.Remove()

	service, _ := newTestService(t, dir)
	assert.ErrorIs(t, service.Delete("no-such-id"), library.ErrRecordNotFound)
}

func Test_Delete_RemovesRecordAndFile(t *testing.T) {
	dir := fs.NewDir(t, "ytvs_library_test", fs.WithFile("abc123.mp4", "video bytes"))
	defer dir.Remove()

	service, store := newTestService(t, dir)
	service.Reconcile()
	assert.NotNil(t, store.Get("abc123"))

	assert.Nil(t, service.Delete("abc123"))
	assert.Nil(t, store.Get("abc123"))
	assert.NoFileExists(t, dir.Join("abc123.mp4"))
}

func Test_Delete_SucceedsWhenFileAlreadyRemoved(t *testing.T) {
	dir := fs.NewDir(t, "ytvs_library_test")
	defer dir.Remove()

	service, store := newTestService(t, dir)
	store.Put(&media.VideoRecord{ID: "abc123", Title: "Gone", Filename: "abc123.mp4"})

	// The file was removed out-of-band; the record's absence from the
	// store is the contract that matters.
	assert.Nil(t, service.Delete("abc123"))
	assert.Nil(t, store.Get("abc123"))
	assert.Empty(t, service.Videos())
}

func Test_ResolvePlayback(t *testing.T) {
	dir := fs.NewDir(t, "ytvs_library_test", fs.WithFile("abc123.webm", "video bytes"))
	defer dir.Remove()

	service, store := newTestService(t, dir)
	service.Reconcile()
	store.Put(&media.VideoRecord{ID: "stale", Title: "Stale", Filename: "stale.mp4"})

	tests := []struct {
		summary             string
		id                  string
		expectedErr         error
		expectedContentType string
	}{
		{"present record and file", "abc123", nil, "video/webm"},
		{"unknown id", "no-such-id", library.ErrRecordNotFound, ""},
		{"stale record with missing file", "stale", library.ErrFileMissing, ""},
	}

	for _, tt := range tests {
		t.Run(tt.summary, func(t *testing.T) {
			playback, err := service.ResolvePlayback(tt.id)
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
				return
			}

			assert.Nil(t, err)
			assert.Equal(t, tt.expectedContentType, playback.ContentType)
			assert.FileExists(t, playback.Path)
		})
	}
}
