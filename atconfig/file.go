package atconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/launchdarkly/go-sdk-common/v3/ldlog"

	"github.com/atinternet/go-tracker/subsystems"
)

// FileProvider reads configuration from a file. A provider created by WatchFile rereads the
// file whenever it changes; one created by File reads it once.
type FileProvider struct {
	path    string
	values  Map
	loggers ldlog.Loggers
	closeCh chan struct{}
	once    sync.Once
	lock    sync.RWMutex
}

var _ subsystems.ConfigProvider = (*FileProvider)(nil)

// File loads a JSON, JSONC or YAML file. The format is chosen by extension.
func File(path string) (*FileProvider, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("unable to determine absolute path for %q", path)
	}
	fp := &FileProvider{path: abs, loggers: ldlog.NewDisabledLoggers()}
	if err := fp.load(); err != nil {
		return nil, err
	}
	return fp, nil
}

func (fp *FileProvider) load() error {
	data, err := os.ReadFile(fp.path)
	if err != nil {
		return fmt.Errorf("unable to read configuration file: %w", err)
	}
	values, err := Parse(data, FormatForPath(fp.path))
	if err != nil {
		return fmt.Errorf("%w [%s]", err, fp.path)
	}
	fp.lock.Lock()
	fp.values = values
	fp.lock.Unlock()
	return nil
}

// reload keeps the previous values when the file cannot be read or parsed.
func (fp *FileProvider) reload() {
	if err := fp.load(); err != nil {
		fp.loggers.Errorf("Unable to reload configuration: %s", err)
		return
	}
	fp.loggers.Infof("Reloaded configuration from %s", fp.path)
}

// Get returns the value for key.
func (fp *FileProvider) Get(key string) (string, bool) {
	fp.lock.RLock()
	defer fp.lock.RUnlock()
	return fp.values.Get(key)
}

// All returns a copy of every entry.
func (fp *FileProvider) All() map[string]string {
	fp.lock.RLock()
	defer fp.lock.RUnlock()
	return fp.values.All()
}

// Close stops watching the file. It is a no-op for providers created by File.
func (fp *FileProvider) Close() error {
	fp.once.Do(func() {
		if fp.closeCh != nil {
			close(fp.closeCh)
		}
	})
	return nil
}
