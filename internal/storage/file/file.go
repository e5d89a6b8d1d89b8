// Package file implements the storage.Backend interface as a YAML document
// holding the record list under a "fields" key.
package file

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

type document struct {
	Fields []string `yaml:"fields"`
}

// Backend reads and writes a single YAML file.
type Backend struct {
	path string
	mu   sync.Mutex
}

// New creates a file backend at path.
func New(path string) *Backend {
	return &Backend{path: path}
}

// Path returns the file location.
func (b *Backend) Path() string { return b.path }

// Init creates the parent directory.
func (b *Backend) Init() error {
	if err := os.MkdirAll(filepath.Dir(b.path), 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	return nil
}

func (b *Backend) Close() error { return nil }

// Load reads the record list. A missing file yields no records.
func (b *Backend) Load() ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	data, err := os.ReadFile(b.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", b.path, err)
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", b.path, err)
	}
	return doc.Fields, nil
}

// Save writes the records to a temporary file and renames it over the old one.
func (b *Backend) Save(records []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if records == nil {
		records = []string{}
	}
	data, err := yaml.Marshal(document{Fields: records})
	if err != nil {
		return fmt.Errorf("encoding fields: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(b.path), filepath.Base(b.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), b.path); err != nil {
		return fmt.Errorf("replacing %s: %w", b.path, err)
	}
	return nil
}
