package api

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/mitchellh/go-homedir"
	"github.com/shunxiangg/YTvid-storage/internal/api/pages"
	"github.com/shunxiangg/YTvid-storage/internal/api/videos"
	"github.com/shunxiangg/YTvid-storage/internal/event"
	"github.com/shunxiangg/YTvid-storage/internal/http/websocket"
	"github.com/shunxiangg/YTvid-storage/internal/library"
	"github.com/shunxiangg/YTvid-storage/internal/media"
	"github.com/shunxiangg/YTvid-storage/pkg/logger"
)

var log = logger.Get("API")

type (
	RestConfig struct {
		HostAddr string `yaml:"host_address" env:"API_HOST_ADDR" env-default:"0.0.0.0:10000"`

		// Reported by the debug endpoint so an operator can see at a
		// glance whether credential material is being picked up.
		CookieFilePaths []string
	}

	controller interface {
		SetRoutes(*echo.Group)
	}

	// libraryService is the union of the controller-facing library
	// surfaces, plus what the debug endpoint needs.
	libraryService interface {
		Videos() []*media.VideoRecord
		Video(id string) (*media.VideoRecord, error)
		Delete(id string) error
		ResolvePlayback(id string) (*library.Playback, error)
		MediaDirPath() string
	}

	recordStore interface {
		Count() int
		IDs() []string
	}

	// The RestGateway is a thin wrapper around the Echo HTTP router.
	// Its sole responsibility is to create the routes the server
	// exposes, manage the activity websocket, and translate library
	// events into broadcasts.
	RestGateway struct {
		config          *RestConfig
		ec              *echo.Echo
		socket          *websocket.SocketHub
		videoController controller
		pagesController controller
		libraryService  libraryService
		store           recordStore
		activityChannel event.HandlerChannel
	}
)

// NewRestGateway constructs the Echo router and populates it with the
// routes defined by the various controllers.
func NewRestGateway(
	config *RestConfig,
	downloadService videos.DownloadService,
	libraryService libraryService,
	store recordStore,
	eventBus event.EventCoordinator,
) *RestGateway {
	ec := echo.New()
	ec.HidePort = true
	ec.HideBanner = true
	ec.Renderer = pages.NewRenderer()

	validate := validator.New()
	socket := websocket.New()

	gateway := &RestGateway{
		config:          config,
		ec:              ec,
		socket:          socket,
		videoController: videos.New(validate, downloadService, libraryService),
		pagesController: pages.New(libraryService),
		libraryService:  libraryService,
		store:           store,
		activityChannel: make(event.HandlerChannel, 16),
	}

	eventBus.RegisterHandlerChannel(gateway.activityChannel, event.LIBRARY_UPDATE, event.DOWNLOAD_COMPLETE)
	socket.WithConnectionCallback(gateway.connectionSnapshot)

	ec.Use(middleware.Logger())
	ec.Use(middleware.Recover())

	root := ec.Group("")
	gateway.videoController.SetRoutes(root)
	gateway.pagesController.SetRoutes(root)

	ec.GET("/debug", gateway.debug)
	ec.GET("/activity/ws", func(ec echo.Context) error {
		gateway.socket.UpgradeToSocket(ec.Response(), ec.Request())
		return nil
	})

	return gateway
}

// Run starts the HTTP router, the websocket hub and the activity pump,
// and blocks until the provided context is cancelled.
func (gateway *RestGateway) Run(parentCtx context.Context) error {
	ctx, ctxCancel := context.WithCancelCause(parentCtx)
	wg := &sync.WaitGroup{}

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Infof("Listening on %s\n", gateway.config.HostAddr)
		if err := gateway.ec.Start(gateway.config.HostAddr); err != nil {
			ctxCancel(err)
		}
	}()

	go func(ec *echo.Echo) {
		<-ctx.Done()
		ec.Close()
	}(gateway.ec)

	wg.Add(1)
	go func() {
		defer wg.Done()
		gateway.socket.Start(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		gateway.pumpActivity(ctx)
	}()

	wg.Wait()

	// The parent context being cancelled is a normal shutdown, not an
	// error case we should report.
	if cause := context.Cause(ctx); cause != ctx.Err() {
		return cause
	}

	return nil
}

// pumpActivity forwards library events from the event bus to every
// connected websocket client.
func (gateway *RestGateway) pumpActivity(ctx context.Context) {
	for {
		select {
		case handlerEvent := <-gateway.activityChannel:
			gateway.socket.Send(&websocket.SocketMessage{
				Title: strings.ToUpper(strings.ReplaceAll(string(handlerEvent.Event), ":", "_")),
				Body:  map[string]interface{}{"video_id": handlerEvent.Payload},
				Type:  websocket.Update,
			})
		case <-ctx.Done():
			return
		}
	}
}

func (gateway *RestGateway) connectionSnapshot() map[string]interface{} {
	records := gateway.libraryService.Videos()
	dtos := make([]videos.VideoDto, len(records))
	for k, v := range records {
		dtos[k] = videos.NewDto(v)
	}

	return map[string]interface{}{"videos": dtos}
}

// debug reports operational diagnostics: directory contents and
// permissions, record counts, cookie file status and registered routes.
func (gateway *RestGateway) debug(ec echo.Context) error {
	mediaDirPath := gateway.libraryService.MediaDirPath()

	filesInMediaDir := make([]string, 0)
	mediaDirReadable := false
	if entries, err := os.ReadDir(mediaDirPath); err == nil {
		mediaDirReadable = true
		for _, entry := range entries {
			filesInMediaDir = append(filesInMediaDir, entry.Name())
		}
	}

	mediaDirWritable := false
	if probe, err := os.CreateTemp(mediaDirPath, ".writecheck"); err == nil {
		mediaDirWritable = true
		probe.Close()
		os.Remove(probe.Name())
	}

	cookieStatus := make(map[string]interface{}, len(gateway.config.CookieFilePaths))
	for _, path := range gateway.config.CookieFilePaths {
		expanded, err := homedir.Expand(path)
		if err != nil {
			expanded = path
		}

		status := map[string]interface{}{"exists": false, "size_bytes": 0}
		if info, err := os.Stat(expanded); err == nil {
			status["exists"] = true
			status["size_bytes"] = info.Size()
		}
		cookieStatus[path] = status
	}

	routes := make([]string, 0)
	for _, route := range gateway.ec.Routes() {
		routes = append(routes, route.Method+" "+route.Path)
	}

	workingDir, _ := os.Getwd()
	_, mediaDirErr := os.Stat(mediaDirPath)

	return ec.JSON(http.StatusOK, map[string]interface{}{
		"app_directory":      workingDir,
		"media_directory":    filepath.Clean(mediaDirPath),
		"media_dir_exists":   mediaDirErr == nil,
		"media_dir_readable": mediaDirReadable,
		"media_dir_writable": mediaDirWritable,
		"files_in_media_dir": filesInMediaDir,
		"videos_count":       gateway.store.Count(),
		"videos_keys":        gateway.store.IDs(),
		"cookie_files":       cookieStatus,
		"routes":             routes,
	})
}
