package credential

import (
	"bufio"
	"os"
	"strings"
	"sync"
	"time"
)

// FileSource reads credential keys from a plain text file: one key per line,
// blank lines and '#' comments ignored. The file's mtime is cached so
// repeated loads of an unchanged file are cheap enough to call before every
// acquire. A missing file is not an error; it yields the last known keys.
type FileSource struct {
	path string

	mu       sync.Mutex
	lastMod  time.Time
	lastKeys []string
}

// NewFileSource creates a source for the given key file path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Path returns the watched file path.
func (s *FileSource) Path() string {
	return s.path
}

// Load returns the current key list. The result is cached against the file's
// modification time.
func (s *FileSource) Load() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := os.Stat(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return s.lastKeys, nil
		}
		return nil, err
	}

	if !info.ModTime().After(s.lastMod) {
		return s.lastKeys, nil
	}

	f, err := os.Open(s.path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var keys []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		keys = append(keys, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	s.lastMod = info.ModTime()
	s.lastKeys = keys
	return keys, nil
}
