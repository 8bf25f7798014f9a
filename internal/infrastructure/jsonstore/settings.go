package jsonstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const settingsFile = "settings.json"

// DefaultSettings is the fixed settings schema with first-run values.
// Stored settings are deep-merged over these, so new keys appear for
// existing installations without migration.
func DefaultSettings() map[string]interface{} {
	return map[string]interface{}{
		"llm": map[string]interface{}{
			"provider":    "ollama",
			"model":       "llama3.2",
			"temperature": 0.7,
			"ollama_url":  "http://localhost:11434",
		},
		"integrations": map[string]interface{}{
			"vscode": map[string]interface{}{
				"enabled":     true,
				"binary_path": "/usr/local/bin/code",
				"projects":    map[string]interface{}{},
			},
			"macos": map[string]interface{}{
				"enabled": true,
			},
			"git": map[string]interface{}{
				"enabled": true,
			},
		},
		"filesystem": map[string]interface{}{
			"allowed_directories":  []interface{}{},
			"require_confirmation": []interface{}{"delete"},
			"blacklist_patterns":   []interface{}{"*.env", "*.key", "**/node_modules", "**/.git"},
		},
		"notifications": map[string]interface{}{
			"enabled":  false,
			"ntfy_url": "https://ntfy.sh",
			"topic":    "home-hub",
		},
		"agents": map[string]interface{}{
			"max_concurrent":  5,
			"timeout_minutes": 30,
		},
		"system_prompts": map[string]interface{}{
			"general": "You are the Home Hub assistant. You control local integrations and prefer taking actions over explaining them.",
		},
		"quick_actions": []interface{}{},
	}
}

// SettingsStore persists the deep-merged settings document at
// <dataDir>/settings.json. Reads are served from an in-memory cache that a
// fsnotify watcher invalidates when the file changes on disk, so manual
// edits take effect without a restart.
type SettingsStore struct {
	path   string
	logger zerolog.Logger

	mu      sync.Mutex
	cached  map[string]interface{}
	watcher *fsnotify.Watcher
	done    chan struct{}
}

func NewSettingsStore(dataDir string, logger zerolog.Logger) (*SettingsStore, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	s := &SettingsStore{
		path:   filepath.Join(dataDir, settingsFile),
		logger: logger.With().Str("service", "settings").Logger(),
		done:   make(chan struct{}),
	}

	watcher, err := fsnotify.NewWatcher()
	if err == nil {
		if err := watcher.Add(dataDir); err != nil {
			_ = watcher.Close()
		} else {
			s.watcher = watcher
			go s.watch()
		}
	}
	return s, nil
}

// Close stops the file watcher.
func (s *SettingsStore) Close() {
	close(s.done)
	if s.watcher != nil {
		_ = s.watcher.Close()
	}
}

func (s *SettingsStore) watch() {
	for {
		select {
		case <-s.done:
			return
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != settingsFile {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove) != 0 {
				s.mu.Lock()
				s.cached = nil
				s.mu.Unlock()
				s.logger.Debug().Msg("settings cache invalidated")
			}
		case _, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

// Load returns the defaults deep-merged with the stored document. A missing
// file is created with defaults.
func (s *SettingsStore) Load() (map[string]interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cached != nil {
		return deepCopy(s.cached), nil
	}

	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		defaults := DefaultSettings()
		if err := s.write(defaults); err != nil {
			return nil, err
		}
		s.cached = defaults
		return deepCopy(defaults), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var stored map[string]interface{}
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("parse settings: %w", err)
	}
	merged := deepMerge(DefaultSettings(), stored)
	s.cached = merged
	return deepCopy(merged), nil
}

// Update deep-merges partial into the current document, persists it, and
// returns the result.
func (s *SettingsStore) Update(partial map[string]interface{}) (map[string]interface{}, error) {
	current, err := s.Load()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	merged := deepMerge(current, partial)
	if err := s.write(merged); err != nil {
		return nil, err
	}
	s.cached = merged
	return deepCopy(merged), nil
}

func (s *SettingsStore) write(doc map[string]interface{}) error {
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return os.Rename(tmp, s.path)
}

// AgentLimits returns agents.max_concurrent and agents.timeout_minutes with
// schema defaults for missing or malformed values.
func (s *SettingsStore) AgentLimits() (int, time.Duration) {
	maxConcurrent, timeoutMinutes := 5, 30
	doc, err := s.Load()
	if err != nil {
		s.logger.Warn().Err(err).Msg("settings load failed; using default agent limits")
		return maxConcurrent, time.Duration(timeoutMinutes) * time.Minute
	}
	if agents, ok := doc["agents"].(map[string]interface{}); ok {
		if v, ok := asInt(agents["max_concurrent"]); ok && v > 0 {
			maxConcurrent = v
		}
		if v, ok := asInt(agents["timeout_minutes"]); ok && v > 0 {
			timeoutMinutes = v
		}
	}
	return maxConcurrent, time.Duration(timeoutMinutes) * time.Minute
}

// NotificationConfig returns the notifications subtree.
func (s *SettingsStore) NotificationConfig() (enabled bool, ntfyURL, topic string) {
	ntfyURL, topic = "https://ntfy.sh", "home-hub"
	doc, err := s.Load()
	if err != nil {
		return false, ntfyURL, topic
	}
	n, ok := doc["notifications"].(map[string]interface{})
	if !ok {
		return false, ntfyURL, topic
	}
	if v, ok := n["enabled"].(bool); ok {
		enabled = v
	}
	if v, ok := n["ntfy_url"].(string); ok && v != "" {
		ntfyURL = v
	}
	if v, ok := n["topic"].(string); ok && v != "" {
		topic = v
	}
	return enabled, ntfyURL, topic
}

func asInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		return int(i), err == nil
	}
	return 0, false
}

// deepMerge overlays override onto base, recursing into nested objects.
// Non-object values in override replace the base value wholesale.
func deepMerge(base, override map[string]interface{}) map[string]interface{} {
	result := deepCopy(base)
	for key, value := range override {
		if existing, ok := result[key].(map[string]interface{}); ok {
			if overlay, ok := value.(map[string]interface{}); ok {
				result[key] = deepMerge(existing, overlay)
				continue
			}
		}
		result[key] = value
	}
	return result
}

func deepCopy(doc map[string]interface{}) map[string]interface{} {
	raw, _ := json.Marshal(doc)
	var out map[string]interface{}
	_ = json.Unmarshal(raw, &out)
	return out
}
