// Package store persists earplay preferences on disk.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// SchemaVersion is the current preferences file schema version.
const SchemaVersion = 1

// prefsFile is the on-disk layout of the preferences file.
type prefsFile struct {
	SchemaVersion int               `json:"schema_version"`
	Values        map[string]string `json:"values"`
}

// Prefs is a small durable key/value store of string preferences.
// Every Set is written through to disk.
type Prefs struct {
	mu     sync.RWMutex
	path   string
	values map[string]string
}

// OpenPrefs loads the preferences file at path.
// A missing file yields an empty store; the file is created on first Set.
func OpenPrefs(path string) (*Prefs, error) {
	if path == "" {
		return nil, errors.New("preferences path must not be empty")
	}

	p := &Prefs{
		path:   path,
		values: make(map[string]string),
	}
	if err := p.Reload(); err != nil {
		return nil, err
	}
	return p, nil
}

// Path returns the backing file path.
func (p *Prefs) Path() string {
	return p.path
}

// Get returns the value stored under key.
func (p *Prefs) Get(key string) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.values[key]
	return v, ok
}

// Set stores value under key and saves the file.
func (p *Prefs) Set(key, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	prev, had := p.values[key]
	p.values[key] = value

	if err := p.save(); err != nil {
		if had {
			p.values[key] = prev
		} else {
			delete(p.values, key)
		}
		return err
	}
	return nil
}

// Delete removes key and saves the file.
func (p *Prefs) Delete(key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.values[key]; !ok {
		return nil
	}
	delete(p.values, key)
	return p.save()
}

// All returns a copy of every stored preference.
func (p *Prefs) All() map[string]string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return maps.Clone(p.values)
}

// ModTime returns when the file was last written, zero if it doesn't exist.
func (p *Prefs) ModTime() time.Time {
	info, err := os.Stat(p.path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}

// Reload re-reads the file, replacing the in-memory values.
// A corrupted file is treated as empty.
func (p *Prefs) Reload() error {
	data, err := os.ReadFile(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			p.replace(make(map[string]string))
			return nil
		}
		return fmt.Errorf("failed to read preferences: %w", err)
	}

	var file prefsFile
	if err := json.Unmarshal(data, &file); err != nil || file.Values == nil {
		p.replace(make(map[string]string))
		return nil
	}

	p.replace(file.Values)
	return nil
}

func (p *Prefs) replace(values map[string]string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values = values
}

// save writes the file atomically. Callers hold p.mu.
func (p *Prefs) save() error {
	dir := filepath.Dir(p.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create preferences directory: %w", err)
	}

	data, err := json.MarshalIndent(prefsFile{
		SchemaVersion: SchemaVersion,
		Values:        p.values,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal preferences: %w", err)
	}

	// Write atomically via temp file
	tmpPath := p.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write preferences: %w", err)
	}
	if err := os.Rename(tmpPath, p.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to replace preferences: %w", err)
	}
	return nil
}
