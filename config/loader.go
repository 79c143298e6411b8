package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"
	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"
)

const reloadDebounce = 100 * time.Millisecond

// Load reads the file at path (defaults when it does not exist), applies
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg, err := loadConfigFromFile(path)
	if err != nil {
		return nil, err
	}

	cfg.ApplyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// DefaultPath returns ~/.config/touchbridge/config.ini
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "config.ini"
	}
	return filepath.Join(dir, "touchbridge", "config.ini")
}

func loadConfigFromFile(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".ini", ".conf", "":
		file, err := ini.Load(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode INI config: %w", err)
		}
		if err := file.MapTo(cfg); err != nil {
			return nil, fmt.Errorf("failed to map INI config: %w", err)
		}
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("failed to decode TOML config: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode YAML config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}

	cfg.Source = path
	return cfg, nil
}

// Loader keeps the current configuration and reloads it when the file changes.
type Loader struct {
	path string

	mu       sync.RWMutex
	config   *Config
	onChange []func(*Config)
	debounce *time.Timer
	closed   bool

	watcher *fsnotify.Watcher
	ctx     context.Context
	cancel  context.CancelFunc
	errChan chan error
}

func NewLoader(path string) *Loader {
	ctx, cancel := context.WithCancel(context.Background())
	return &Loader{
		path:    path,
		ctx:     ctx,
		cancel:  cancel,
		errChan: make(chan error, 1),
	}
}

func (l *Loader) Load() (*Config, error) {
	cfg, err := Load(l.path)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.config = cfg
	l.mu.Unlock()
	return cfg, nil
}

func (l *Loader) Config() *Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.config
}

// OnChange registers a callback invoked with every successfully reloaded config.
func (l *Loader) OnChange(cb func(*Config)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onChange = append(l.onChange, cb)
}

// Errors delivers reload failures; the previous config stays active.
func (l *Loader) Errors() <-chan error {
	return l.errChan
}

// Watch starts watching the directory of the config file.
func (l *Loader) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	if err := watcher.Add(filepath.Dir(l.path)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch config directory: %w", err)
	}

	l.watcher = watcher
	go l.watchLoop()
	return nil
}

func (l *Loader) watchLoop() {
	for {
		select {
		case <-l.ctx.Done():
			return

		case event, ok := <-l.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(l.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			l.scheduleReload()

		case err, ok := <-l.watcher.Errors:
			if !ok {
				return
			}
			l.reportError(err)
		}
	}
}

// scheduleReload restarts the debounce timer. Bursts of writes reload once.
func (l *Loader) scheduleReload() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	if l.debounce != nil {
		l.debounce.Stop()
	}
	l.debounce = time.AfterFunc(reloadDebounce, l.reload)
}

func (l *Loader) reload() {
	cfg, err := Load(l.path)
	if err != nil {
		l.reportError(fmt.Errorf("failed to reload config: %w", err))
		return
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.config = cfg
	callbacks := append([]func(*Config){}, l.onChange...)
	l.mu.Unlock()

	for _, cb := range callbacks {
		cb(cfg)
	}
}

func (l *Loader) reportError(err error) {
	select {
	case l.errChan <- err:
	default:
	}
}

// Close stops watching. A reload still waiting on the debounce is dropped.
func (l *Loader) Close() error {
	l.mu.Lock()
	l.closed = true
	if l.debounce != nil {
		l.debounce.Stop()
	}
	l.mu.Unlock()

	l.cancel()
	if l.watcher != nil {
		return l.watcher.Close()
	}
	return nil
}
