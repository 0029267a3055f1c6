package feather2d

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 100 * time.Millisecond

// ConfigWatcher reloads a configuration file whenever it changes on disk.
// Invalid files are reported on Errors and the previous configuration stays in use.
type ConfigWatcher struct {
	watcher *fsnotify.Watcher
	path    string
	Configs chan Config
	Errors  chan error
	closeCh chan struct{}
	done    chan struct{}
	once    sync.Once
}

// WatchConfig starts watching the file at path.
// The parent directory is watched so that editors replacing the file are noticed.
func WatchConfig(path string) (*ConfigWatcher, error) {
	path = filepath.Clean(path)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		_ = w.Close()
		return nil, err
	}

	watcher := &ConfigWatcher{
		watcher: w,
		path:    path,
		Configs: make(chan Config, 4),
		Errors:  make(chan error, 1),
		closeCh: make(chan struct{}),
		done:    make(chan struct{}),
	}
	go watcher.run()
	return watcher, nil
}

func (w *ConfigWatcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.closeCh)
		err = w.watcher.Close()
		<-w.done
		close(w.Configs)
		close(w.Errors)
	})
	return err
}

// run reloads the file once no event was seen for watchDebounce
func (w *ConfigWatcher) run() {
	defer close(w.done)

	timer := time.NewTimer(watchDebounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			timer.Reset(watchDebounce)
		case <-timer.C:
			config, err := LoadConfig(w.path)
			if err != nil {
				w.report(err)
				continue
			}
			select {
			case w.Configs <- config:
			case <-w.closeCh:
				return
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.report(err)
		case <-w.closeCh:
			return
		}
	}
}

// report drops the error when the previous one was not read yet
func (w *ConfigWatcher) report(err error) {
	select {
	case w.Errors <- err:
	default:
	}
}
