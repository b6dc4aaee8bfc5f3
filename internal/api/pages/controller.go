package pages

import (
	"embed"
	"errors"
	"html/template"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shunxiangg/YTvid-storage/internal/library"
	"github.com/shunxiangg/YTvid-storage/internal/media"
)

//go:embed templates/*.html
var templateFS embed.FS

type (
	LibraryService interface {
		Video(id string) (*media.VideoRecord, error)
	}

	// Controller serves the HTML surface: the landing page, the video
	// detail page and the third-party embed page.
	Controller struct {
		libraryService LibraryService
	}

	// Renderer adapts the embedded html/template set to echo's
	// Renderer interface.
	Renderer struct {
		templates *template.Template
	}

	videoPageData struct {
		Video *media.VideoRecord
	}

	embedPageData struct {
		Video        *media.VideoRecord
		EmbedVideoID string
	}
)

func NewRenderer() *Renderer {
	return &Renderer{
		templates: template.Must(template.ParseFS(templateFS, "templates/*.html")),
	}
}

func (renderer *Renderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	return renderer.templates.ExecuteTemplate(w, name, data)
}

func New(libraryService LibraryService) *Controller {
	return &Controller{libraryService: libraryService}
}

// SetRoutes accepts the Echo group for the HTML pages and sets the
// routes on it.
func (controller *Controller) SetRoutes(eg *echo.Group) {
	eg.GET("/", controller.index)
	eg.GET("/video/:id", controller.video)
	eg.GET("/embed/:id", controller.embed)
}

func (controller *Controller) index(ec echo.Context) error {
	return ec.Render(http.StatusOK, "index.html", nil)
}

func (controller *Controller) video(ec echo.Context) error {
	record, err := controller.libraryService.Video(ec.Param("id"))
	if err != nil {
		if errors.Is(err, library.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Video not found")
		}

		return err
	}

	return ec.Render(http.StatusOK, "video.html", videoPageData{Video: record})
}

// embed renders a page referencing the originating platform's own
// player, preferring the stored source video ID and falling back to
// re-deriving it from the original URL.
func (controller *Controller) embed(ec echo.Context) error {
	record, err := controller.libraryService.Video(ec.Param("id"))
	if err != nil {
		if errors.Is(err, library.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Video not found")
		}

		return err
	}

	return ec.Render(http.StatusOK, "embed.html", embedPageData{
		Video:        record,
		EmbedVideoID: record.EmbedVideoID(),
	})
}
