package storage

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/natefinch/atomic"
	"golang.org/x/crypto/sha3"
)

// FilePrefix starts every file name FileStore writes.
const FilePrefix = "FuzzLine-"

// FileStore allocates in memory and persists flushed buffers to a directory.
// Files are named after the hash of their content, so identical outputs are
// written once.
type FileStore struct {
	*MemoryStore
	dir string

	mu      sync.Mutex
	written map[string]string
}

// NewFileStore creates dir if needed and returns a store writing into it.
func NewFileStore(dir string, limit int) (*FileStore, error) {
	if err := EnsureDir(dir); err != nil {
		return nil, errors.Wrapf(err, "failed to create output directory %s", dir)
	}
	return &FileStore{
		MemoryStore: NewMemoryStore(limit),
		dir:         dir,
		written:     make(map[string]string),
	}, nil
}

// Dir returns the output directory.
func (s *FileStore) Dir() string {
	return s.dir
}

// Flush writes the content under key (without terminator) to disk and
// releases it from memory. It returns the file path and whether a new file
// was created.
func (s *FileStore) Flush(key string) (string, bool, error) {
	content, err := s.Content(key)
	if err != nil {
		return "", false, err
	}
	name := ContentName(content)
	path := filepath.Join(s.dir, name)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.written[name]; ok {
		s.Release(key)
		return path, false, nil
	}
	if err := atomic.WriteFile(path, bytes.NewReader(content)); err != nil {
		return "", false, errors.Wrapf(err, "failed to write %s", path)
	}
	s.written[name] = key
	s.Release(key)
	return path, true, nil
}

// Written returns the number of distinct files written.
func (s *FileStore) Written() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.written)
}

// ContentName derives a file name from the hash of content.
func ContentName(content []byte) string {
	h := sha3.New256()
	h.Write(content)
	return fmt.Sprintf("%s%v", FilePrefix, common.Bytes2Hex(h.Sum(nil)))
}

// FileExists checks if a file exists
func FileExists(filename string) bool {
	_, err := os.Stat(filename)
	return err == nil
}

// EnsureDir ensures a directory exists, creates it if it doesn't
func EnsureDir(dirPath string) error {
	if !FileExists(dirPath) {
		return os.MkdirAll(dirPath, 0755)
	}
	return nil
}
