package config

import (
	"context"
	"crypto/sha256"
	"sync"

	"fuelcoach-go/internal/events"
	log "github.com/sirupsen/logrus"
)

// ConfigManager owns the live configuration and reloads it when the file changes.
// The API section is resolved once at boot; reloads only touch hot-reloadable fields
// (offline capacity/pacing, debug, log file).
type ConfigManager struct {
	mu         sync.RWMutex
	configPath string
	config     *Config
	digest     [sha256.Size]byte
	stopCh     chan struct{}
	stopOnce   sync.Once
	watching   bool

	publisher events.Publisher
	onReload  []func(*Config)
}

// NewConfigManager loads the configuration at path.
func NewConfigManager(path string) (*ConfigManager, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	return &ConfigManager{
		configPath: path,
		config:     cfg,
		digest:     digest(path),
		stopCh:     make(chan struct{}),
	}, nil
}

// Config returns a snapshot of the current configuration.
func (cm *ConfigManager) Config() *Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config.Clone()
}

// SetEventPublisher wires config.updated notifications.
func (cm *ConfigManager) SetEventPublisher(p events.Publisher) {
	cm.mu.Lock()
	cm.publisher = p
	cm.mu.Unlock()
}

// OnReload registers fn to run with the new config after each successful reload.
func (cm *ConfigManager) OnReload(fn func(*Config)) {
	if fn == nil {
		return
	}
	cm.mu.Lock()
	cm.onReload = append(cm.onReload, fn)
	cm.mu.Unlock()
}

// StartWatching begins watching the config file for changes. It is a no-op without a path.
func (cm *ConfigManager) StartWatching() {
	cm.mu.Lock()
	if cm.watching || cm.configPath == "" {
		cm.mu.Unlock()
		return
	}
	cm.watching = true
	cm.mu.Unlock()
	cm.watch()
}

// Stop ends the watcher goroutine.
func (cm *ConfigManager) Stop() {
	cm.stopOnce.Do(func() { close(cm.stopCh) })
}

// Reload re-reads the file and env, keeping the boot-time API section.
func (cm *ConfigManager) Reload() error {
	next, err := Load(cm.configPath)
	if err != nil {
		return err
	}

	cm.mu.Lock()
	next.API = cm.config.API
	next.Storage = cm.config.Storage
	cm.config = next
	cm.digest = digest(cm.configPath)
	publisher := cm.publisher
	hooks := append([]func(*Config){}, cm.onReload...)
	cm.mu.Unlock()

	snapshot := next.Clone()
	for _, fn := range hooks {
		fn(snapshot)
	}
	if publisher != nil {
		publisher.Publish(context.Background(), events.TopicConfigUpdated, snapshot, map[string]string{"path": cm.configPath})
	}
	log.WithField("path", cm.configPath).Info("configuration reloaded")
	return nil
}
