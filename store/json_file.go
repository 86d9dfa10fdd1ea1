package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
)

// JsonFileName is the file JsonFileStore keeps under its data directory.
const JsonFileName = "store.json"

// JsonFileStore stores every key in a single JSON object on disk, the way a
// browser's local storage maps string keys to string values.
//
// Layout:
//
//	data_dir/
//	  store.json   # {"habit-ids": "[\"a\"]", "a": "{...}"}
type JsonFileStore struct {
	mu     sync.RWMutex
	dir    string
	closed bool
}

func NewJsonFileStore(dir string) (*JsonFileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &JsonFileStore{dir: dir}, nil
}

func (s *JsonFileStore) Name() string {
	return "json"
}

func (s *JsonFileStore) path() string {
	return filepath.Join(s.dir, JsonFileName)
}

// loadFile reads the whole object. A missing file is an empty store; a file
// that does not parse is an error, never silently treated as empty.
func (s *JsonFileStore) loadFile() (map[string]string, error) {
	data, err := os.ReadFile(s.path())
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, err
	}
	result := map[string]string{}
	if len(data) == 0 {
		return result, nil
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path(), err)
	}
	return result, nil
}

// saveFile writes to a temp file and renames it so readers never observe a
// partially written object.
func (s *JsonFileStore) saveFile(data map[string]string) error {
	b, err := json.Marshal(data, json.Deterministic(true), jsontext.WithIndent("  "))
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, JsonFileName+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.path())
}

func (s *JsonFileStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return "", false, ErrClosed
	}
	data, err := s.loadFile()
	if err != nil {
		return "", false, err
	}
	v, ok := data[key]
	return v, ok, nil
}

func (s *JsonFileStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	data, err := s.loadFile()
	if err != nil {
		return err
	}
	data[key] = value
	return s.saveFile(data)
}

func (s *JsonFileStore) Keys(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	data, err := s.loadFile()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *JsonFileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

var _ Backend = (*JsonFileStore)(nil)
