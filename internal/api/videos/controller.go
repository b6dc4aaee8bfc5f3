package videos

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/shunxiangg/YTvid-storage/internal/download"
	"github.com/shunxiangg/YTvid-storage/internal/library"
	"github.com/shunxiangg/YTvid-storage/internal/media"
)

type (
	DownloadRequest struct {
		URL string `json:"url" validate:"required"`
	}

	// VideoDto is the response shape used by endpoints returning
	// library entries.
	VideoDto struct {
		ID            string  `json:"id"`
		Title         string  `json:"title"`
		Filename      string  `json:"filename"`
		Duration      int     `json:"duration"`
		Thumbnail     string  `json:"thumbnail"`
		OriginalURL   string  `json:"original_url"`
		SourceVideoID string  `json:"source_video_id,omitempty"`
		FileSizeMB    float64 `json:"file_size"`
	}

	OutcomeDto struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}

	DownloadService interface {
		Download(ctx context.Context, url string) download.Result
	}

	LibraryService interface {
		Videos() []*media.VideoRecord
		Delete(id string) error
		ResolvePlayback(id string) (*library.Playback, error)
	}

	// Controller defines the JSON routes of the video library: submit a
	// download, list, delete and watch.
	Controller struct {
		validate        *validator.Validate
		downloadService DownloadService
		libraryService  LibraryService
	}
)

func New(validate *validator.Validate, downloadService DownloadService, libraryService LibraryService) *Controller {
	return &Controller{validate: validate, downloadService: downloadService, libraryService: libraryService}
}

// SetRoutes accepts the Echo group for the video endpoints and sets the
// routes on it.
func (controller *Controller) SetRoutes(eg *echo.Group) {
	eg.POST("/download", controller.download)
	eg.GET("/videos", controller.list)
	eg.POST("/delete/:id", controller.delete)
	eg.GET("/watch/:id", controller.watch)
}

// download runs the blocking create operation. The request holds for
// the full duration of the external extraction; there is no mechanism
// to abort it once underway.
func (controller *Controller) download(ec echo.Context) error {
	var request DownloadRequest
	if err := ec.Bind(&request); err != nil {
		return ec.JSON(http.StatusBadRequest, OutcomeDto{Success: false, Message: "Invalid request data"})
	}
	if err := controller.validate.Struct(&request); err != nil {
		return ec.JSON(http.StatusBadRequest, OutcomeDto{Success: false, Message: "No URL provided"})
	}

	// Deliberately not the request context: a client disconnect must
	// not stop an in-progress extraction.
	result := controller.downloadService.Download(context.Background(), request.URL)
	return ec.JSON(http.StatusOK, result)
}

// list triggers a reconcile pass and returns every record, so files
// dropped into the media directory out-of-band show up here.
func (controller *Controller) list(ec echo.Context) error {
	records := controller.libraryService.Videos()
	dtos := make([]VideoDto, len(records))
	for k, v := range records {
		dtos[k] = NewDto(v)
	}

	return ec.JSON(http.StatusOK, dtos)
}

func (controller *Controller) delete(ec echo.Context) error {
	id := ec.Param("id")
	if err := controller.libraryService.Delete(id); err != nil {
		if errors.Is(err, library.ErrRecordNotFound) {
			return ec.JSON(http.StatusNotFound, OutcomeDto{Success: false, Message: "Video not found"})
		}

		return ec.JSON(http.StatusInternalServerError, OutcomeDto{Success: false, Message: err.Error()})
	}

	return ec.JSON(http.StatusOK, OutcomeDto{Success: true, Message: "Video deleted successfully"})
}

// watch serves the raw media bytes with the content type resolved from
// the record's file extension.
func (controller *Controller) watch(ec echo.Context) error {
	id := ec.Param("id")
	playback, err := controller.libraryService.ResolvePlayback(id)
	if err != nil {
		if errors.Is(err, library.ErrRecordNotFound) || errors.Is(err, library.ErrFileMissing) {
			return echo.NewHTTPError(http.StatusNotFound, "Video not found")
		}

		return err
	}

	ec.Response().Header().Set(echo.HeaderContentType, playback.ContentType)
	return ec.File(playback.Path)
}

// NewDto creates a VideoDto from the stored record.
func NewDto(record *media.VideoRecord) VideoDto {
	return VideoDto{
		ID:            record.ID,
		Title:         record.Title,
		Filename:      record.Filename,
		Duration:      record.Duration,
		Thumbnail:     record.Thumbnail,
		OriginalURL:   record.OriginalURL,
		SourceVideoID: record.SourceVideoID,
		FileSizeMB:    record.FileSizeMB,
	}
}
