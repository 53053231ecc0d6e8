package atconfig

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/launchdarkly/go-sdk-common/v3/ldlog"
)

const retryDuration = time.Second

type fileWatcher struct {
	watcher *fsnotify.Watcher
	loggers ldlog.Loggers
	reload  func()
	path    string
	absPath string
}

// WatchFile loads a file like File and reloads it whenever it is modified, until Close is
// called. A reload that fails keeps the previous values.
func WatchFile(path string, loggers ldlog.Loggers) (*FileProvider, error) {
	fp, err := File(path)
	if err != nil {
		return nil, err
	}
	fp.loggers = loggers
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("unable to create file watcher: %w", err)
	}
	fp.closeCh = make(chan struct{})
	fw := &fileWatcher{watcher: watcher, loggers: loggers, reload: fp.reload, path: fp.path}
	go fw.run(fp.closeCh)
	return fp, nil
}

func (fw *fileWatcher) run(closeCh <-chan struct{}) {
	retryCh := make(chan struct{}, 1)
	scheduleRetry := func() {
		time.AfterFunc(retryDuration, func() {
			select {
			case retryCh <- struct{}{}:
			default:
			}
		})
	}
	for {
		if err := fw.setupWatch(); err != nil {
			fw.loggers.Error(err)
			scheduleRetry()
		}
		// Reloading after the watch is set up means a change made in between is not missed.
		fw.reload()

		if fw.waitForEvents(closeCh, retryCh) {
			return
		}
	}
}

func (fw *fileWatcher) setupWatch() error {
	dir := filepath.Dir(fw.path)
	realDir, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return fmt.Errorf("unable to evaluate symlinks for %q: %w", dir, err)
	}
	fw.absPath = filepath.Join(realDir, filepath.Base(fw.path))
	if err = fw.watcher.Add(fw.absPath); err != nil {
		return fmt.Errorf("unable to watch path %q: %w", fw.absPath, err)
	}
	if err = fw.watcher.Add(realDir); err != nil {
		return fmt.Errorf("unable to watch path %q: %w", realDir, err)
	}
	return nil
}

func (fw *fileWatcher) waitForEvents(closeCh <-chan struct{}, retryCh <-chan struct{}) bool {
	for {
		select {
		case <-closeCh:
			if err := fw.watcher.Close(); err != nil {
				fw.loggers.Errorf("Error closing file watcher: %s", err)
			}
			return true
		case event := <-fw.watcher.Events:
			if event.Name != fw.absPath {
				continue
			}
			drain[fsnotify.Event](fw.watcher.Events)
			return false
		case err := <-fw.watcher.Errors:
			fw.loggers.Errorf("File watcher error: %s", err)
		case <-retryCh:
			drain(retryCh)
			return false
		}
	}
}

func drain[T any](ch <-chan T) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}
