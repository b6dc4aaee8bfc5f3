package download

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/shunxiangg/YTvid-storage/internal/event"
	"github.com/shunxiangg/YTvid-storage/internal/media"
	"github.com/shunxiangg/YTvid-storage/internal/scrape"
	"github.com/shunxiangg/YTvid-storage/pkg/logger"
)

var log = logger.Get("DownloadServ")

type (
	extractor interface {
		Extract(ctx context.Context, url string, outputTemplate string) (*ExtractedInfo, error)
	}

	pageScraper interface {
		ScrapeOpenGraph(ctx context.Context, pageURL string) (*scrape.PageMeta, error)
	}

	recordStore interface {
		Put(*media.VideoRecord)
	}

	// Result is the structured outcome every download request resolves
	// to; failure paths never propagate an error to the caller.
	Result struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
		VideoID string `json:"video_id,omitempty"`
		Title   string `json:"title,omitempty"`
	}

	// Service wraps the external extraction capability: it generates the
	// identifier, delegates to the extractor, locates the produced file
	// and persists the resulting record.
	Service struct {
		mediaDirPath string
		extractor    extractor
		scraper      pageScraper
		store        recordStore
		eventBus     event.EventDispatcher
	}
)

func NewService(mediaDirPath string, extractor extractor, scraper pageScraper, store recordStore, eventBus event.EventDispatcher) *Service {
	return &Service{
		mediaDirPath: mediaDirPath,
		extractor:    extractor,
		scraper:      scraper,
		store:        store,
		eventBus:     eventBus,
	}
}

// Download runs the full create operation for the provided URL: a fresh
// identifier is generated, the extractor is directed to write its
// output with that identifier as the filename stem, and on success a
// complete record is stored and persisted.
//
// The request either fully succeeds and the video becomes present, or
// fails and leaves no trace; there is no intermediate state visible to
// other requests. A failed extraction is classified into a user-facing
// message and never surfaces as an error.
func (service *Service) Download(ctx context.Context, url string) Result {
	url = strings.TrimSpace(url)
	if url == "" {
		return Result{Success: false, Message: "No URL provided"}
	}

	videoID := uuid.New().String()
	outputTemplate := filepath.Join(service.mediaDirPath, videoID+".%(ext)s")

	info, err := service.extractor.Extract(ctx, url, outputTemplate)
	if err != nil {
		failure := Classify(err)
		log.Errorf("Download error (%s): %v\n", failure.Kind, err)
		return Result{Success: false, Message: failure.Message}
	}

	// The extension was the extractor's choice, so locate the produced
	// file by stem. Exactly one match is expected.
	matches, err := filepath.Glob(filepath.Join(service.mediaDirPath, videoID+".*"))
	if err != nil || len(matches) == 0 {
		log.Errorf("Extractor reported success for %s but no file matches %s.*\n", url, videoID)
		return Result{Success: false, Message: "File was not downloaded correctly"}
	}

	filePath := matches[0]
	var sizeMB float64
	if fileInfo, err := os.Stat(filePath); err == nil {
		sizeMB = media.SizeInMegabytes(fileInfo.Size())
	}

	record := &media.VideoRecord{
		ID:            videoID,
		Title:         info.Title,
		Filename:      filepath.Base(filePath),
		Duration:      int(info.Duration),
		Thumbnail:     info.Thumbnail,
		OriginalURL:   url,
		SourceVideoID: media.DeriveSourceVideoID(url),
		FileSizeMB:    sizeMB,
	}

	service.fillMissingMetadata(ctx, record)

	service.store.Put(record)
	service.eventBus.Dispatch(event.DOWNLOAD_COMPLETE, videoID)
	service.eventBus.Dispatch(event.LIBRARY_UPDATE, videoID)

	log.Emit(logger.SUCCESS, "Stored video %s ('%s', %.2fMB)\n", videoID, record.Title, sizeMB)
	return Result{
		Success: true,
		Message: "Video downloaded successfully!",
		VideoID: videoID,
		Title:   record.Title,
	}
}

// fillMissingMetadata scrapes the source page's Open Graph tags when the
// extractor's own metadata came back incomplete. Best effort only; the
// record keeps its placeholder values if the page is unreachable.
func (service *Service) fillMissingMetadata(ctx context.Context, record *media.VideoRecord) {
	if service.scraper == nil || (record.Title != "" && record.Thumbnail != "") {
		if record.Title == "" {
			record.Title = media.PlaceholderTitle(record.ID)
		}
		return
	}

	meta, err := service.scraper.ScrapeOpenGraph(ctx, record.OriginalURL)
	if err != nil {
		log.Debugf("Open Graph fallback for %s failed: %v\n", record.OriginalURL, err)
		if record.Title == "" {
			record.Title = media.PlaceholderTitle(record.ID)
		}
		return
	}

	if record.Title == "" {
		if meta.Title != "" {
			record.Title = meta.Title
		} else {
			record.Title = media.PlaceholderTitle(record.ID)
		}
	}
	if record.Thumbnail == "" {
		record.Thumbnail = meta.Image
	}
}
