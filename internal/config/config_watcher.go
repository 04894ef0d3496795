package config

import (
	"crypto/sha256"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

const (
	reloadDebounce = 100 * time.Millisecond
	pollInterval   = 5 * time.Second
)

// digest fingerprints the config file; a missing file has the zero digest.
func digest(path string) [sha256.Size]byte {
	if path == "" {
		return [sha256.Size]byte{}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return [sha256.Size]byte{}
	}
	return sha256.Sum256(data)
}

// watch runs until Stop. Editors that save by rename replace the inode, so the
// parent directory is watched and events are filtered by name.
func (cm *ConfigManager) watch() {
	watcher, err := fsnotify.NewWatcher()
	if err == nil {
		if err = watcher.Add(filepath.Dir(cm.configPath)); err != nil {
			watcher.Close()
		}
	}
	if err != nil {
		log.WithError(err).WithField("path", cm.configPath).Warn("config watcher unavailable, polling instead")
		go cm.poll()
		return
	}
	log.WithField("path", cm.configPath).Debug("watching config file")
	go cm.consume(watcher)
}

func (cm *ConfigManager) consume(watcher *fsnotify.Watcher) {
	defer watcher.Close()
	target := filepath.Clean(cm.configPath)

	// A nil channel blocks, so the select ignores it until something is pending.
	var settle <-chan time.Time
	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) == target && ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				settle = time.After(reloadDebounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.WithError(err).Warn("config watcher error")
		case <-settle:
			settle = nil
			cm.reloadIfChanged()
		case <-cm.stopCh:
			return
		}
	}
}

func (cm *ConfigManager) poll() {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			cm.reloadIfChanged()
		case <-cm.stopCh:
			return
		}
	}
}

// reloadIfChanged skips saves that leave the content identical.
func (cm *ConfigManager) reloadIfChanged() {
	sum := digest(cm.configPath)
	cm.mu.RLock()
	same := sum == cm.digest
	cm.mu.RUnlock()
	if same {
		return
	}
	if err := cm.Reload(); err != nil {
		log.WithError(err).WithField("path", cm.configPath).Warn("config reload failed, keeping previous configuration")
	}
}
