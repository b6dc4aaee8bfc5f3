package media

import (
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/shunxiangg/YTvid-storage/pkg/logger"
)

var storeLogger = logger.Get("RecordStore")

// Store holds the authoritative mapping of video ID to VideoRecord for
// the process lifetime, durably mirrored to a single JSON document.
//
// All access is guarded by an internal mutex; concurrent requests that
// both mutate the store (two simultaneous downloads, a download racing
// a delete) serialize here. The document on disk is always rewritten
// wholesale, never incrementally patched, so it can never be left
// syntactically invalid by a partial update.
type Store struct {
	mutex        sync.Mutex
	documentPath string
	records      map[string]*VideoRecord
}

// NewStore creates a record store mirrored to the JSON document at the
// provided path. The store starts empty; call Load to restore state.
func NewStore(documentPath string) *Store {
	return &Store{
		documentPath: documentPath,
		records:      make(map[string]*VideoRecord),
	}
}

// Load reads the JSON document if present. A corrupted document must
// never prevent the service from starting: on parse failure the store
// resets to empty and reports needsReconcile=true so the caller can
// rebuild records from the media directory contents.
func (store *Store) Load() (needsReconcile bool) {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	raw, err := os.ReadFile(store.documentPath)
	if errors.Is(err, os.ErrNotExist) {
		return false
	} else if err != nil {
		storeLogger.Errorf("Failed to read metadata document %s: %v\n", store.documentPath, err)
		store.records = make(map[string]*VideoRecord)
		return true
	}

	var loaded map[string]*VideoRecord
	if err := json.Unmarshal(raw, &loaded); err != nil {
		storeLogger.Errorf("Metadata document %s is corrupt (%v), resetting store\n", store.documentPath, err)
		store.records = make(map[string]*VideoRecord)
		return true
	}

	for id, record := range loaded {
		if record == nil {
			delete(loaded, id)
			continue
		}

		// Default missing fields rather than trusting the document.
		if record.ID == "" {
			record.ID = id
		}
		if record.Title == "" {
			record.Title = PlaceholderTitle(record.ID)
		}
	}

	store.records = loaded
	storeLogger.Infof("Loaded %d videos from metadata document\n", len(loaded))
	return false
}

// Save serializes the entire mapping to the JSON document, overwriting
// it. Persistence failure must not fail an in-flight request; errors
// are logged and swallowed, and the in-memory store remains
// authoritative until the next successful save.
func (store *Store) Save() {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	store.save()
}

func (store *Store) save() {
	raw, err := json.Marshal(store.records)
	if err != nil {
		storeLogger.Errorf("Failed to serialize record store: %v\n", err)
		return
	}

	// Write-then-rename so a crash mid-save cannot corrupt the document.
	tmpPath := store.documentPath + ".tmp"
	if err := os.WriteFile(tmpPath, raw, 0644); err != nil {
		storeLogger.Errorf("Failed to persist record store: %v\n", err)
		return
	}
	if err := os.Rename(tmpPath, store.documentPath); err != nil {
		storeLogger.Errorf("Failed to persist record store: %v\n", err)
		return
	}

	storeLogger.Verbosef("Saved %d videos to metadata document\n", len(store.records))
}

// Get returns the record for the provided ID, or nil if absent.
func (store *Store) Get(id string) *VideoRecord {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	return store.records[id]
}

// Put inserts or replaces the record keyed by its ID and persists the
// store in the same critical section.
func (store *Store) Put(record *VideoRecord) {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	store.records[record.ID] = record
	store.save()
}

// Delete removes the record for the provided ID (if any) and persists
// the store in the same critical section.
func (store *Store) Delete(id string) {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	delete(store.records, id)
	store.save()
}

// All returns the stored records ordered by title for stable listings.
func (store *Store) All() []*VideoRecord {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	records := make([]*VideoRecord, 0, len(store.records))
	for _, record := range store.records {
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Title < records[j].Title })

	return records
}

// Count returns the number of records currently held.
func (store *Store) Count() int {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	return len(store.records)
}

// IDs returns the keys of the store, used by the debug endpoint.
func (store *Store) IDs() []string {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	ids := make([]string, 0, len(store.records))
	for id := range store.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return ids
}

// ReconcileWith enumerates files in the media directory whose extension
// is recognized, derives a candidate ID from each filename stem, and
// synthesizes a minimal record for any file the store doesn't already
// know about. Existing records always win, however stale their
// metadata. The store is persisted only if records were added, making
// the procedure idempotent and safe to run on every listing request.
//
// The scan-and-update sequence holds the store mutex throughout so a
// concurrent download or delete cannot interleave with it.
func (store *Store) ReconcileWith(mediaDirPath string) (added int, err error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	entries, err := os.ReadDir(mediaDirPath)
	if err != nil {
		return 0, err
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		ext := strings.TrimPrefix(filepath.Ext(entry.Name()), ".")
		if !isRecognizedExtension(ext) {
			continue
		}

		id := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		if _, exists := store.records[id]; exists {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			storeLogger.Warnf("Skipping discovered file %s: %v\n", entry.Name(), err)
			continue
		}

		store.records[id] = &VideoRecord{
			ID:         id,
			Title:      PlaceholderTitle(id),
			Filename:   entry.Name(),
			Duration:   0,
			FileSizeMB: SizeInMegabytes(info.Size()),
		}
		added++
	}

	if added > 0 {
		storeLogger.Emit(logger.NEW, "Discovered %d new videos in %s\n", added, mediaDirPath)
		store.save()
	}

	return added, nil
}

// SizeInMegabytes converts a byte count to megabytes rounded to two
// decimal places, the precision recorded on every VideoRecord.
func SizeInMegabytes(sizeBytes int64) float64 {
	return math.Round(float64(sizeBytes)/(1024*1024)*100) / 100
}

func isRecognizedExtension(ext string) bool {
	for _, recognized := range RecognizedExtensions {
		if ext == recognized {
			return true
		}
	}

	return false
}
