package library

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rjeczalik/notify"
	"github.com/shunxiangg/YTvid-storage/internal/event"
	"github.com/shunxiangg/YTvid-storage/internal/media"
	"github.com/shunxiangg/YTvid-storage/pkg/logger"
)

var log = logger.Get("LibraryServ")

var (
	// ErrRecordNotFound indicates the requested video ID has no record
	// in the store.
	ErrRecordNotFound = errors.New("no video record found for the provided ID")

	// ErrFileMissing indicates a record exists but its underlying media
	// file is gone from the media directory (removed out-of-band).
	ErrFileMissing = errors.New("video file is missing from the media directory")
)

type (
	// Config controls where the library lives and how eagerly the
	// reconciler re-scans it.
	Config struct {
		// The directory containing the downloaded media files.
		MediaDirPath string

		// The library uses a directory watcher, but a 'force' sync is
		// performed on a regular interval to protect against the
		// watcher failing.
		ForceSyncSeconds int
	}

	recordStore interface {
		Get(id string) *media.VideoRecord
		Delete(id string)
		All() []*media.VideoRecord
		ReconcileWith(mediaDirPath string) (int, error)
	}

	// Playback carries the file-serving instructions resolved for a
	// watch request.
	Playback struct {
		Path        string
		ContentType string
	}

	// Service owns the media directory: it reconciles the record store
	// against the files actually on disk and performs the delete and
	// retrieve lifecycle operations.
	Service struct {
		config   Config
		store    recordStore
		eventBus event.EventDispatcher
	}
)

// New creates the library service, validating that the configured media
// directory exists (it is created when missing; a path pointing at an
// existing file is an error).
func New(config Config, store recordStore, eventBus event.EventDispatcher) (*Service, error) {
	if info, err := os.Stat(config.MediaDirPath); err == nil {
		if !info.IsDir() {
			return nil, fmt.Errorf("media path '%s' is not a directory", config.MediaDirPath)
		}
	} else if errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(config.MediaDirPath, os.ModeDir|os.ModePerm); err != nil {
			return nil, fmt.Errorf("media path '%s' could not be created: %w", config.MediaDirPath, err)
		}
	} else {
		return nil, fmt.Errorf("media path '%s' could not be accessed: %w", config.MediaDirPath, err)
	}

	return &Service{config: config, store: store, eventBus: eventBus}, nil
}

// Run watches the media directory for changes, reconciling the record
// store whenever the OS reports activity and on a regular force-sync
// interval irrespective of the watcher. To stop the service, cancel the
// provided context.
func (service *Service) Run(ctx context.Context) error {
	fsNotifyChannel := make(chan notify.EventInfo, 8)
	if err := notify.Watch(service.config.MediaDirPath, fsNotifyChannel, notify.Create, notify.Remove, notify.Rename); err != nil {
		return fmt.Errorf("failed to watch media directory: %w", err)
	}
	defer notify.Stop(fsNotifyChannel)

	forceSyncChannel := time.NewTicker(time.Second * time.Duration(service.config.ForceSyncSeconds))
	defer forceSyncChannel.Stop()

	service.Reconcile()

	for {
		select {
		case <-fsNotifyChannel:
			service.Reconcile()
		case <-forceSyncChannel.C:
			service.Reconcile()
		case <-ctx.Done():
			return nil
		}
	}
}

// Reconcile makes the record store consistent with whatever media files
// actually exist in the media directory. Files already represented in
// the store are left untouched; unknown files gain a minimal record.
// The procedure is idempotent and safe to run on every listing request.
func (service *Service) Reconcile() {
	added, err := service.store.ReconcileWith(service.config.MediaDirPath)
	if err != nil {
		log.Errorf("Media directory scan failed: %v\n", err)
		return
	}

	if added > 0 {
		service.eventBus.Dispatch(event.LIBRARY_UPDATE, "")
	}
}

// Videos runs a reconcile pass and then returns every record in the
// store. This is the mechanism by which files dropped into the media
// directory out-of-band become visible to listings.
func (service *Service) Videos() []*media.VideoRecord {
	service.Reconcile()
	return service.store.All()
}

// Video returns the record for the provided ID, or ErrRecordNotFound.
func (service *Service) Video(id string) (*media.VideoRecord, error) {
	record := service.store.Get(id)
	if record == nil {
		return nil, ErrRecordNotFound
	}

	return record, nil
}

// Delete removes the record for the provided ID along with its on-disk
// file. Failure to remove the file is logged but not fatal; the
// record's absence from the store is the contract that matters to
// callers, so the record is always removed and the store persisted.
func (service *Service) Delete(id string) error {
	record := service.store.Get(id)
	if record == nil {
		return ErrRecordNotFound
	}

	filePath := filepath.Join(service.config.MediaDirPath, record.Filename)
	if err := os.Remove(filePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warnf("Failed to remove file %s for deleted video %s: %v\n", filePath, id, err)
	}

	service.store.Delete(id)
	service.eventBus.Dispatch(event.LIBRARY_UPDATE, id)

	log.Emit(logger.REMOVE, "Deleted video %s ('%s')\n", id, record.Title)
	return nil
}

// ResolvePlayback looks up the record for the provided ID and returns
// file-serving instructions for it. The file's continued existence is
// verified here; a stale record whose file was removed out-of-band
// resolves to ErrFileMissing.
func (service *Service) ResolvePlayback(id string) (*Playback, error) {
	record := service.store.Get(id)
	if record == nil {
		return nil, ErrRecordNotFound
	}

	filePath := filepath.Join(service.config.MediaDirPath, record.Filename)
	if _, err := os.Stat(filePath); err != nil {
		return nil, ErrFileMissing
	}

	return &Playback{Path: filePath, ContentType: record.ContentType()}, nil
}

// MediaDirPath exposes the configured media directory for the debug
// endpoint.
func (service *Service) MediaDirPath() string {
	return service.config.MediaDirPath
}
