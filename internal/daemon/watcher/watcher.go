// Package watcher handles file system watching for the daemon.
package watcher

import (
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Debounce is how long a path has to stay quiet before its change is
// reported.
const Debounce = 100 * time.Millisecond

// EventType represents the type of file system event.
type EventType int

// Event types for file system changes.
const (
	EventSettingsChanged EventType = iota // settings.yaml written or replaced
	EventManifestChanged                  // the companion's host manifest changed
)

func (t EventType) String() string {
	switch t {
	case EventSettingsChanged:
		return "settings"
	case EventManifestChanged:
		return "manifest"
	default:
		return "unknown"
	}
}

// Event represents a file system change event.
type Event struct {
	Type EventType
	Path string
}

// Watcher watches the settings file and the companion's host manifests.
type Watcher struct {
	fsWatcher    *fsnotify.Watcher
	eventsChan   chan Event
	done         chan struct{}
	settingsFile string

	mu           sync.RWMutex
	manifestName string // <host>.json
	manifestDirs map[string]bool

	debounce   map[string]*time.Timer
	debounceMu sync.Mutex
}

// New creates a watcher for settingsFile.
func New(settingsFile string) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsWatcher:    fsWatcher,
		eventsChan:   make(chan Event, 100),
		done:         make(chan struct{}),
		settingsFile: filepath.Clean(settingsFile),
		manifestDirs: make(map[string]bool),
		debounce:     make(map[string]*time.Timer),
	}

	return w, nil
}

// Events returns the channel for receiving events.
func (w *Watcher) Events() <-chan Event {
	return w.eventsChan
}

// Start starts the watcher. The directory of the settings file is watched
// rather than the file so atomic replaces are seen.
func (w *Watcher) Start() error {
	if err := w.fsWatcher.Add(filepath.Dir(w.settingsFile)); err != nil {
		return err
	}

	go w.processEvents()

	return nil
}

// Stop stops the watcher.
func (w *Watcher) Stop() {
	close(w.done)
	_ = w.fsWatcher.Close()

	w.debounceMu.Lock()
	for path, timer := range w.debounce {
		timer.Stop()
		delete(w.debounce, path)
	}
	w.debounceMu.Unlock()
}

// WatchManifests watches the manifest directories for hostName's manifest.
// Directories that don't exist are skipped.
func (w *Watcher) WatchManifests(hostName string, dirs []string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for dir := range w.manifestDirs {
		_ = w.fsWatcher.Remove(dir)
	}
	w.manifestDirs = make(map[string]bool)
	w.manifestName = hostName + ".json"

	for _, dir := range dirs {
		dir = filepath.Clean(dir)
		if _, err := os.Stat(dir); err != nil {
			continue
		}
		if err := w.fsWatcher.Add(dir); err != nil {
			log.Printf("[watcher] Warning: failed to watch %s: %v", dir, err)
			continue
		}
		w.manifestDirs[dir] = true
	}
	log.Printf("[watcher] Watching %d manifest dirs for %s", len(w.manifestDirs), w.manifestName)
}

// processEvents processes file system events.
func (w *Watcher) processEvents() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.Printf("[watcher] Watcher error: %v", err)
		}
	}
}

// handleEvent processes a single file system event.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	// Atomic writes (write tmp, rename to target) show up as Create or
	// Rename on the target.
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
		return
	}

	eventType, ok := w.classify(event.Name)
	if !ok {
		return
	}
	w.debounceEvent(event.Name, func() {
		log.Printf("[watcher] %s changed: %s", eventType, event.Name)
		select {
		case w.eventsChan <- Event{Type: eventType, Path: event.Name}:
		case <-w.done:
		}
	})
}

func (w *Watcher) classify(path string) (EventType, bool) {
	path = filepath.Clean(path)
	if path == w.settingsFile {
		return EventSettingsChanged, true
	}

	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.manifestDirs[filepath.Dir(path)] && filepath.Base(path) == w.manifestName {
		return EventManifestChanged, true
	}
	return 0, false
}

// debounceEvent debounces events for the same path.
func (w *Watcher) debounceEvent(path string, fn func()) {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	// Cancel existing timer
	if timer, ok := w.debounce[path]; ok {
		timer.Stop()
	}

	w.debounce[path] = time.AfterFunc(Debounce, func() {
		w.debounceMu.Lock()
		delete(w.debounce, path)
		w.debounceMu.Unlock()
		fn()
	})
}
