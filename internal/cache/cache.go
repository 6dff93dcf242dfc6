package cache

import (
	"io/fs"
	"os"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Reader returns file contents. It is satisfied by *ContentCache and by
// plain os-backed readers in tests.
type Reader interface {
	Read(path string) (string, error)
}

type entry struct {
	size    int64
	modTime time.Time
	content string
}

// Stats reports cache effectiveness.
type Stats struct {
	Entries int
	Hits    int64
	Misses  int64
}

// ContentCache keeps recently read file contents in memory. Entries are
// validated against the file's size and modification time on every read, so
// a stale entry is never returned for a file that changed on disk.
type ContentCache struct {
	entries *lru.Cache[string, entry]
	hits    atomic.Int64
	misses  atomic.Int64

	stat     func(string) (fs.FileInfo, error)
	readFile func(string) ([]byte, error)
}

// New constructs a cache holding at most size files.
func New(size int) (*ContentCache, error) {
	entries, err := lru.New[string, entry](size)
	if err != nil {
		return nil, err
	}
	return &ContentCache{
		entries:  entries,
		stat:     os.Stat,
		readFile: os.ReadFile,
	}, nil
}

// Read returns the contents of path, serving it from memory when the file is
// unchanged since it was cached.
func (c *ContentCache) Read(path string) (string, error) {
	info, err := c.stat(path)
	if err != nil {
		c.entries.Remove(path)
		return "", err
	}
	if info.IsDir() {
		return "", &fs.PathError{Op: "read", Path: path, Err: fs.ErrInvalid}
	}

	if cached, ok := c.entries.Get(path); ok {
		if cached.size == info.Size() && cached.modTime.Equal(info.ModTime()) {
			c.hits.Add(1)
			return cached.content, nil
		}
	}

	c.misses.Add(1)
	data, err := c.readFile(path)
	if err != nil {
		c.entries.Remove(path)
		return "", err
	}

	content := string(data)
	c.entries.Add(path, entry{size: info.Size(), modTime: info.ModTime(), content: content})
	return content, nil
}

// Invalidate drops any cached contents for path.
func (c *ContentCache) Invalidate(path string) {
	c.entries.Remove(path)
}

// Purge empties the cache.
func (c *ContentCache) Purge() {
	c.entries.Purge()
}

func (c *ContentCache) Stats() Stats {
	return Stats{
		Entries: c.entries.Len(),
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
	}
}

// OSReader reads straight from disk without caching.
type OSReader struct{}

func (OSReader) Read(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
