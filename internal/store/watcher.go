package store

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces the events of one save. An atomic replace shows
// up as a Create, often followed by a Chmod or Write.
const DefaultDebounce = 50 * time.Millisecond

// PrefsWatcher reloads a Prefs whenever its file is changed by another
// process, then calls onChange.
type PrefsWatcher struct {
	prefs    *Prefs
	onChange func()
	logger   *slog.Logger
	debounce time.Duration

	watcher *fsnotify.Watcher
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
}

// WatchPrefs starts watching the directory holding prefs' file. Watching the
// directory rather than the file survives the tmp+rename used by Set.
func WatchPrefs(prefs *Prefs, onChange func(), logger *slog.Logger) (*PrefsWatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(prefs.Path())); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(prefs.Path()), err)
	}

	pw := &PrefsWatcher{
		prefs:    prefs,
		onChange: onChange,
		logger:   logger,
		debounce: DefaultDebounce,
		watcher:  watcher,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go pw.loop()
	return pw, nil
}

func (pw *PrefsWatcher) loop() {
	defer close(pw.done)

	name := filepath.Base(pw.prefs.Path())
	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case event, ok := <-pw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				timer.Reset(pw.debounce)
			}

		case <-timer.C:
			pw.reload()

		case err, ok := <-pw.watcher.Errors:
			if !ok {
				return
			}
			pw.logger.Warn("preference watcher error", "error", err)

		case <-pw.stop:
			return
		}
	}
}

func (pw *PrefsWatcher) reload() {
	if err := pw.prefs.Reload(); err != nil {
		pw.logger.Warn("failed to reload preferences", "path", pw.prefs.Path(), "error", err)
		return
	}
	pw.logger.Debug("preferences reloaded", "path", pw.prefs.Path())
	if pw.onChange != nil {
		pw.onChange()
	}
}

// Stop stops watching. It is safe to call more than once.
func (pw *PrefsWatcher) Stop() error {
	var err error
	pw.once.Do(func() {
		close(pw.stop)
		<-pw.done
		err = pw.watcher.Close()
	})
	return err
}
