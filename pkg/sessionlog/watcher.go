package sessionlog

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// Watcher keeps the index in sync when session files are created,
// removed, or renamed outside the store (an operator pruning by hand,
// another process sharing the directory). Events are debounced so a
// burst of file churn triggers a single resync.
type Watcher struct {
	store    *Store
	watcher  *fsnotify.Watcher
	debounce time.Duration

	mu       sync.Mutex
	timer    *time.Timer
	done     chan struct{}
	stopOnce sync.Once
}

// NewWatcher starts watching the store's sessions directory.
func NewWatcher(store *Store, debounce time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	if debounce == 0 {
		debounce = 500 * time.Millisecond
	}

	w := &Watcher{
		store:    store,
		watcher:  fsw,
		debounce: debounce,
		done:     make(chan struct{}),
	}

	if err := fsw.Add(store.Dir()); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch sessions directory: %w", err)
	}

	go w.run()

	log.Info().Str("dir", store.Dir()).Msg("Session watcher started")
	return w, nil
}

// Stop shuts the watcher down. Safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.watcher.Close()

		w.mu.Lock()
		if w.timer != nil {
			w.timer.Stop()
		}
		w.mu.Unlock()
	})
}

func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !strings.HasSuffix(event.Name, activeSuffix) {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.scheduleSync()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Msg("Session watcher error")

		case <-w.done:
			return
		}
	}
}

func (w *Watcher) scheduleSync() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		select {
		case <-w.done:
			return
		default:
		}
		if err := w.store.SyncIndex(); err != nil {
			log.Error().Err(err).Msg("Failed to resync session index")
		}
	})
}
