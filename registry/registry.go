// Package registry is the metadata directory for element classes:
// factories registered by name with a rank, instantiation by name, and
// a JSON metadata cache behind a filesystem abstraction so tests run
// fully in memory.
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/spf13/afero"

	"github.com/avfoundry/go-streamline/core"
	"github.com/avfoundry/go-streamline/internal/errors"
	"github.com/avfoundry/go-streamline/internal/logger"
)

// Environment variables configuring the registry collaborator.
const (
	envPluginPath   = "STREAMLINE_PLUGIN_PATH"
	envCachePath    = "STREAMLINE_REGISTRY"
	envDisableCache = "STREAMLINE_REGISTRY_DISABLE"
	envNoCacheWrite = "STREAMLINE_REGISTRY_NO_WRITE"
)

// defaultCachePath is used when STREAMLINE_REGISTRY is unset.
const defaultCachePath = ".streamline-registry.json"

// Config captures the environment-driven registry settings.
type Config struct {
	PluginPath   string
	CachePath    string
	DisableCache bool
	NoCacheWrite bool
}

// ConfigFromEnv reads the registry configuration from the environment.
func ConfigFromEnv() Config {
	cfg := Config{
		PluginPath:   os.Getenv(envPluginPath),
		CachePath:    os.Getenv(envCachePath),
		DisableCache: os.Getenv(envDisableCache) != "",
		NoCacheWrite: os.Getenv(envNoCacheWrite) != "",
	}
	if cfg.CachePath == "" {
		cfg.CachePath = defaultCachePath
	}
	return cfg
}

// Factory describes one element class: how to instantiate it and the
// metadata ranking it against alternatives.
type Factory struct {
	Name        string
	Description string
	Rank        int
	PadTemplates []*core.PadTemplate
	// New builds an instance with the given element name.
	New func(instanceName string) core.ElementProvider
}

// cacheEntry is the serialized metadata of a factory.
type cacheEntry struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Rank        int    `json:"rank"`
}

// Registry holds the registered factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]*Factory
	fs        afero.Fs
	cfg       Config
}

// New creates a registry over the given filesystem (nil = OS fs) using
// the environment configuration.
func New(fs afero.Fs) *Registry {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Registry{
		factories: make(map[string]*Factory),
		fs:        fs,
		cfg:       ConfigFromEnv(),
	}
}

var (
	defaultOnce sync.Once
	defaultReg  *Registry
)

// Default returns the process-wide registry.
func Default() *Registry {
	defaultOnce.Do(func() { defaultReg = New(nil) })
	return defaultReg
}

// Register adds a factory; duplicate names are rejected.
func (r *Registry) Register(f *Factory) error {
	if f == nil || f.Name == "" || f.New == nil {
		return errors.NewCoreError("registry.register", fmt.Errorf("incomplete factory"))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.factories[f.Name]; ok {
		return errors.NewCoreError("registry.register", fmt.Errorf("factory %q already registered", f.Name))
	}
	r.factories[f.Name] = f
	logger.Debug("factory registered", "factory", f.Name, "rank", f.Rank)
	return nil
}

// Find returns the factory for name or nil.
func (r *Registry) Find(name string) *Factory {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.factories[name]
}

// Factories returns all factories sorted by descending rank, ties by
// name.
func (r *Registry) Factories() []*Factory {
	r.mu.RLock()
	out := make([]*Factory, 0, len(r.factories))
	for _, f := range r.factories {
		out = append(out, f)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rank != out[j].Rank {
			return out[i].Rank > out[j].Rank
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// FindBest returns the highest-ranked factory among the given names
// that is actually registered, or nil.
func (r *Registry) FindBest(names ...string) *Factory {
	var best *Factory
	for _, n := range names {
		f := r.Find(n)
		if f == nil {
			continue
		}
		if best == nil || f.Rank > best.Rank {
			best = f
		}
	}
	return best
}

// Make instantiates an element by factory name.
func (r *Registry) Make(factoryName, instanceName string) (core.ElementProvider, error) {
	f := r.Find(factoryName)
	if f == nil {
		return nil, errors.NewCoreError("registry.make", fmt.Errorf("no factory %q", factoryName))
	}
	if instanceName == "" {
		instanceName = factoryName + "0"
	}
	return f.New(instanceName), nil
}

// SaveCache writes factory metadata to the cache path. Disabled by the
// no-write and disable flags.
func (r *Registry) SaveCache() error {
	if r.cfg.DisableCache || r.cfg.NoCacheWrite {
		return nil
	}
	entries := make([]cacheEntry, 0)
	for _, f := range r.Factories() {
		entries = append(entries, cacheEntry{Name: f.Name, Description: f.Description, Rank: f.Rank})
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return afero.WriteFile(r.fs, r.cfg.CachePath, data, 0o644)
}

// LoadCache reads cached metadata and applies rank overrides to
// already-registered factories. Missing cache files are not an error.
func (r *Registry) LoadCache() error {
	if r.cfg.DisableCache {
		return nil
	}
	if ok, _ := afero.Exists(r.fs, r.cfg.CachePath); !ok {
		return nil
	}
	data, err := afero.ReadFile(r.fs, r.cfg.CachePath)
	if err != nil {
		return err
	}
	var entries []cacheEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return errors.NewCoreError("registry.load_cache", fmt.Errorf("corrupt cache %s: %w", r.cfg.CachePath, err))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range entries {
		if f, ok := r.factories[e.Name]; ok {
			f.Rank = e.Rank
		}
	}
	return nil
}
