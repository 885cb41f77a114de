package config

import (
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

// ReloadFunc is called when config reload is triggered.
// Returns error if reload fails (logged but doesn't stop watcher).
// The configPath parameter is the path to the configuration file.
type ReloadFunc func(configPath string) error

// Watcher wraps an *fsnotify.Watcher with the one-re-arm-then-give-up
// policy spec.md §7's WatcherLost row requires: if the underlying
// watcher dies unexpectedly (not via an explicit Close), the watch
// loop rebuilds it exactly once; a second loss, or a re-arm that
// itself fails, closes Lost() so the caller can exit(3).
type Watcher struct {
	inner   *fsnotify.Watcher
	lost    chan struct{}
	closing atomic.Bool
}

// Close stops watching. It is safe to call from the caller that owns
// the Watcher; it marks the closure as intentional so the watch loop
// does not treat it as a loss requiring re-arm.
func (w *Watcher) Close() error {
	w.closing.Store(true)
	return w.inner.Close()
}

// Lost is closed when the watcher could not be kept alive despite one
// re-arm attempt. The caller should treat this as the WatcherLost
// error kind of spec.md §7 and exit with code 3.
func (w *Watcher) Lost() <-chan struct{} {
	return w.lost
}

func (w *Watcher) rearm(configDir string) bool {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		log.Errorf("config watcher re-arm failed: %v", err)
		return false
	}
	if err := fsw.Add(configDir); err != nil {
		log.Errorf("config watcher re-arm failed: %v", err)
		_ = fsw.Close()
		return false
	}
	w.inner = fsw
	log.Warn("config watcher re-armed after unexpected loss")
	return true
}

// WatchConfigFile watches config file for changes and triggers reload.
//
// IMPORTANT: Watches directory (not file) for atomic write compatibility.
// Text editors like vim and emacs use atomic writes (write to temp file,
// then rename). Watching the file directly misses these changes because
// the original inode is replaced. Watching the directory catches both
// direct writes and atomic renames.
//
// The watcher:
//   - Watches the directory containing the config file
//   - Filters events to only react to the specific config file
//   - Triggers reload on Write, Create, or Remove events
//   - Logs errors but continues watching (graceful degradation)
//   - Re-arms itself once if lost unexpectedly; a second loss closes Lost()
//
// Returns the watcher for cleanup (caller should defer watcher.Close()).
// Returns error if watcher creation or directory watch setup fails.
//
// Usage:
//
//	watcher, err := WatchConfigFile("/path/to/config.yaml", server.ReloadConfig)
//	if err != nil {
//	    log.Warnf("File watcher setup failed: %v", err)
//	} else {
//	    defer watcher.Close()
//	    select {
//	    case <-watcher.Lost():
//	        os.Exit(3)
//	    ...
//	    }
//	}
func WatchConfigFile(configPath string, reloadFn ReloadFunc) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// Watch directory (not file) - editors use atomic writes (temp file + rename)
	// which would break file-level watching since the inode changes
	configDir := filepath.Dir(configPath)
	configName := filepath.Base(configPath)

	if err := fsw.Add(configDir); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	w := &Watcher{inner: fsw, lost: make(chan struct{})}

	go watchLoop(w, configDir, configName, configPath, reloadFn)

	log.Infof("Watching config file: %s", configPath)
	return w, nil
}

func watchLoop(w *Watcher, configDir, configName, configPath string, reloadFn ReloadFunc) {
	rearmed := false

	handleLoss := func() bool {
		if w.closing.Load() {
			return false
		}
		if rearmed || !w.rearm(configDir) {
			log.Error("config watcher lost and re-arm unavailable, giving up")
			close(w.lost)
			return false
		}
		rearmed = true
		return true
	}

	for {
		select {
		case event, ok := <-w.inner.Events:
			if !ok {
				if handleLoss() {
					continue
				}
				return
			}
			// Filter for our config file and write/create/remove events
			if filepath.Base(event.Name) == configName {
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) {
					log.Info("Config file changed, reloading...")
					if err := reloadFn(configPath); err != nil {
						log.Errorf("Configuration reload failed: %v", err)
					}
				}
			}
		case err, ok := <-w.inner.Errors:
			if !ok {
				if handleLoss() {
					continue
				}
				return
			}
			log.Errorf("File watcher error: %v", err)
		}
	}
}
