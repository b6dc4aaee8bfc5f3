package internal

import (
	"context"
	"fmt"
	"sync"

	"github.com/shunxiangg/YTvid-storage/internal/api"
	"github.com/shunxiangg/YTvid-storage/internal/download"
	"github.com/shunxiangg/YTvid-storage/internal/event"
	"github.com/shunxiangg/YTvid-storage/internal/library"
	"github.com/shunxiangg/YTvid-storage/internal/media"
	"github.com/shunxiangg/YTvid-storage/internal/scrape"
	"github.com/shunxiangg/YTvid-storage/pkg/logger"
)

var log = logger.Get("Core")

type RunnableService interface {
	Run(context.Context) error
}

// ytvsImpl is the top-level object for the server, responsible for
// initialising the record store, the library and download services and
// the REST gateway, and for running them to completion.
type ytvsImpl struct {
	eventBus event.EventCoordinator
	config   YtvsConfig

	store           *media.Store
	libraryService  *library.Service
	downloadService *download.Service
	restGateway     *api.RestGateway
}

func New(config YtvsConfig) *ytvsImpl {
	log.Debugf("Bootstrapping services using config: %#v\n", config)
	ytvs := &ytvsImpl{
		eventBus: event.New(),
		config:   config,
		store:    media.NewStore(config.MetadataPath),
	}

	if serv, err := library.New(library.Config{
		MediaDirPath:     config.MediaDirPath,
		ForceSyncSeconds: config.ForceSyncSeconds,
	}, ytvs.store, ytvs.eventBus); err == nil {
		ytvs.libraryService = serv
	} else {
		panic(fmt.Sprintf("failed to construct library service due to error: %s", err.Error()))
	}

	extractorClient := download.NewClient(download.ClientConfig{
		BinaryPath:       config.YtDlpBinPath,
		FormatPreference: config.FormatPreference,
		PlayerClient:     config.PlayerClient,
		CookieFilePaths:  config.CookieFilePaths,
	})
	ytvs.downloadService = download.NewService(config.MediaDirPath, extractorClient, scrape.New(), ytvs.store, ytvs.eventBus)

	ytvs.restGateway = api.NewRestGateway(
		&api.RestConfig{HostAddr: config.HostAddr(), CookieFilePaths: config.CookieFilePaths},
		ytvs.downloadService,
		ytvs.libraryService,
		ytvs.store,
		ytvs.eventBus,
	)

	return ytvs
}

// Run restores the record store from its JSON document, reconciles it
// against the media directory, and brings up all services. This
// function will not return until the server is stopped; to stop it,
// the provided context must be cancelled. Errors from which the server
// cannot recover will also cause it to stop.
func (ytvs *ytvsImpl) Run(parent context.Context) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	crashHandler := func(label string, err error) {
		log.Emit(logger.FATAL, "Service crash (%s)! %s\n", label, err.Error())
		cancel()
	}

	// A corrupted metadata document never prevents startup; the
	// reconcile pass that follows rebuilds records from disk contents.
	ytvs.store.Load()
	ytvs.libraryService.Reconcile()

	wg := &sync.WaitGroup{}
	ytvs.spawnAsyncService(ctx, wg, ytvs.libraryService, "library-service", crashHandler)
	ytvs.spawnAsyncService(ctx, wg, ytvs.restGateway, "rest-gateway", crashHandler)
	log.Emit(logger.SUCCESS, "Services spawned!\n")

	wg.Wait()
	return nil
}

// spawnAsyncService runs the provided service as its own goroutine,
// ensuring the service waitgroup is updated correctly and that a panic
// inside a service is reported as a crash rather than taking down the
// process silently.
func (ytvs *ytvsImpl) spawnAsyncService(ctx context.Context, wg *sync.WaitGroup, service RunnableService, serviceLabel string, crashHandler func(string, error)) {
	log.Emit(logger.NEW, "Spawning %s\n", serviceLabel)
	wg.Add(1)

	go func(wg *sync.WaitGroup, label string, crash func(string, error)) {
		defer func() {
			if r := recover(); r != nil {
				crash(label, fmt.Errorf("panic %v", r))
			}
		}()

		defer wg.Done()
		if err := service.Run(ctx); err != nil {
			crash(label, err)
		}
	}(wg, serviceLabel, crashHandler)
}
