package asset

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/lixenwraith/ember/core"
)

// Hints carries loading guidance the runtime may honour.
type Hints struct {
	Priority   int    `yaml:"priority"`
	Preload    bool   `yaml:"preload"`
	Persistent bool   `yaml:"persistent"`
	MemoryPool string `yaml:"memoryPool,omitempty"`
}

// Variant is a per-platform substitute file.
type Variant struct {
	Platform string `yaml:"platform"`
	Path     string `yaml:"path"`
}

// Metadata is the persisted record for one tracked asset.
type Metadata struct {
	ID           string    `yaml:"id"`
	Path         string    `yaml:"path"`
	ContentHash  string    `yaml:"contentHash"`
	Kind         Kind      `yaml:"kind"`
	CustomTag    string    `yaml:"customTag,omitempty"`
	FileSize     int64     `yaml:"fileSize"`
	MemoryWeight int64     `yaml:"memoryWeight"`
	Dependencies []string  `yaml:"dependencies,omitempty"`
	Hints        Hints     `yaml:"hints"`
	Variants     []Variant `yaml:"variants,omitempty"`
}

// Catalog is the set of tracked assets rooted at a content directory.
type Catalog struct {
	mu      sync.RWMutex
	root    string
	records map[string]*Metadata // keyed by relative path
}

// NewCatalog tracks assets under root.
func NewCatalog(root string) *Catalog {
	return &Catalog{
		root:    root,
		records: make(map[string]*Metadata),
	}
}

// Track stats and hashes the file at relative path rel, derives its
// kind from the extension when not already recorded, and stores the
// refreshed record. Re-tracking an unchanged file keeps its identity.
func (c *Catalog) Track(rel string) (*Metadata, error) {
	full := filepath.Join(c.root, rel)
	info, err := os.Stat(full)
	if err != nil {
		return nil, &core.FileSystemError{Path: rel, Err: err}
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, &core.FileSystemError{Path: rel, Err: err}
	}
	sum := sha256.Sum256(data)

	c.mu.Lock()
	defer c.mu.Unlock()

	m, ok := c.records[rel]
	if !ok {
		kind, tag := KindFromPath(rel)
		m = &Metadata{
			ID:        rel,
			Path:      rel,
			Kind:      kind,
			CustomTag: tag,
		}
		c.records[rel] = m
	}
	m.ContentHash = hex.EncodeToString(sum[:])
	m.FileSize = info.Size()
	if m.MemoryWeight == 0 {
		m.MemoryWeight = info.Size()
	}
	return m, nil
}

// Lookup returns the record for a relative path.
func (c *Catalog) Lookup(rel string) (*Metadata, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.records[rel]
	return m, ok
}

// Changed reports whether the on-disk content differs from the
// recorded hash. Untracked paths report changed.
func (c *Catalog) Changed(rel string) bool {
	c.mu.RLock()
	m, ok := c.records[rel]
	prior := ""
	if ok {
		prior = m.ContentHash
	}
	c.mu.RUnlock()
	if !ok {
		return true
	}
	data, err := os.ReadFile(filepath.Join(c.root, rel))
	if err != nil {
		return true
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]) != prior
}

// Paths lists tracked relative paths in stable order.
func (c *Catalog) Paths() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.records))
	for rel := range c.records {
		out = append(out, rel)
	}
	sort.Strings(out)
	return out
}

// catalogFile is the on-disk YAML layout. Readers ignore unknown
// fields, so newer writers stay compatible.
type catalogFile struct {
	Assets []*Metadata `yaml:"assets"`
}

// Save persists every record to the given YAML file.
func (c *Catalog) Save(path string) error {
	c.mu.RLock()
	file := catalogFile{Assets: make([]*Metadata, 0, len(c.records))}
	for _, rel := range c.pathsLocked() {
		file.Assets = append(file.Assets, c.records[rel])
	}
	c.mu.RUnlock()

	data, err := yaml.Marshal(&file)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return &core.FileSystemError{Path: path, Err: err}
	}
	return nil
}

// Load replaces the catalogue with records read from a YAML file.
func (c *Catalog) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &core.FileSystemError{Path: path, Err: err}
	}
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return &core.InvalidInputError{Details: "asset catalogue " + path + ": " + err.Error()}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = make(map[string]*Metadata, len(file.Assets))
	for _, m := range file.Assets {
		if m.Path == "" {
			continue
		}
		if m.Kind == "" {
			m.Kind, m.CustomTag = KindFromPath(m.Path)
		}
		c.records[m.Path] = m
	}
	return nil
}

func (c *Catalog) pathsLocked() []string {
	out := make([]string, 0, len(c.records))
	for rel := range c.records {
		out = append(out, rel)
	}
	sort.Strings(out)
	return out
}
