package index

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Paintersrp/recall/internal/cache"
	"github.com/Paintersrp/recall/internal/catalog"
	"github.com/Paintersrp/recall/internal/config"
	"github.com/Paintersrp/recall/internal/constants"
	"github.com/Paintersrp/recall/internal/pathutil"
)

// ErrClosed signals that the index service has been shut down and cannot be
// used to produce new snapshots.
var ErrClosed = errors.New("index service closed")

// ErrUnavailable indicates that no snapshot has been published yet.
var ErrUnavailable = errors.New("file index unavailable")

// ErrForbidden is returned when a read targets a path outside every
// configured root.
var ErrForbidden = errors.New("path outside configured roots")

// Snapshot is an immutable view of the catalog at one version.
type Snapshot struct {
	Version   int64          `json:"version"`
	UpdatedAt time.Time      `json:"updatedAt"`
	Files     []catalog.File `json:"files"`
}

// Clone returns a copy whose file slice is independent of the receiver.
func (s Snapshot) Clone() Snapshot {
	files := make([]catalog.File, len(s.Files))
	copy(files, s.Files)
	s.Files = files
	return s
}

// Change answers a polling client asking whether anything moved since a
// version it already holds.
type Change struct {
	Changed   bool      `json:"changed"`
	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Stats captures lightweight instrumentation about the file index.
type Stats struct {
	Version     int64     `json:"version"`
	Files       int       `json:"files"`
	LastRebuild time.Time `json:"lastRebuild"`
	Pending     int       `json:"pending"`
	Subscribers int       `json:"subscribers"`
}

// Scanner produces the file list for a rebuild.
type Scanner interface {
	Scan() []catalog.File
}

// Watcher delivers raw filesystem event paths to notify until ctx ends or
// the watcher is closed.
type Watcher interface {
	Watch(ctx context.Context, notify func(path string)) error
	Close() error
}

type Option func(*Service)

func WithDebounce(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.debounce = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithScanner(scanner Scanner) Option {
	return func(s *Service) {
		if scanner != nil {
			s.scanner = scanner
		}
	}
}

func WithWatcher(w Watcher) Option {
	return func(s *Service) { s.watcher = w }
}

// WithReader sets the content source used by ReadFile.
func WithReader(r cache.Reader) Option {
	return func(s *Service) {
		if r != nil {
			s.reader = r
		}
	}
}

// Service owns the catalog for a directory layout. It rebuilds the catalog
// when relevant filesystem events settle and publishes each result as a new
// snapshot.
type Service struct {
	paths    config.Paths
	scanner  Scanner
	reader   cache.Reader
	watcher  Watcher
	logger   *slog.Logger
	debounce time.Duration
	now      func() time.Time

	current atomic.Pointer[Snapshot]

	// rebuildMu serializes rebuilds so versions are handed out in order.
	rebuildMu sync.Mutex

	mu          sync.Mutex
	timer       *time.Timer
	generation  uint64
	pending     int
	lastRebuild time.Time
	subscribers map[int]func(Snapshot)
	nextSubID   int
	closed      bool
	cancel      context.CancelFunc
}

// NewService constructs a file index for the given layout. Nothing is
// scanned until Start, Rebuild or the first Snapshot call.
func NewService(paths config.Paths, opts ...Option) *Service {
	s := &Service{
		paths:       paths,
		reader:      cache.OSReader{},
		logger:      slog.Default(),
		debounce:    constants.DefaultDebounce,
		now:         time.Now,
		subscribers: make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.scanner == nil {
		s.scanner = catalog.NewScanner(paths, constants.DefaultWatchDepth, s.logger)
	}
	return s
}

// Paths returns the layout the service indexes.
func (s *Service) Paths() config.Paths {
	return s.paths
}

// Start publishes the initial snapshot and begins watching for changes. The
// watcher is stopped when ctx is cancelled or the service is closed.
func (s *Service) Start(ctx context.Context) error {
	if s == nil {
		return ErrUnavailable
	}
	if _, err := s.Rebuild(); err != nil {
		return err
	}
	if s.watcher == nil {
		return nil
	}

	watchCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		cancel()
		return ErrClosed
	}
	s.cancel = cancel
	s.mu.Unlock()

	if err := s.watcher.Watch(watchCtx, func(path string) { s.Notify(path) }); err != nil {
		cancel()
		return fmt.Errorf("start watcher: %w", err)
	}
	return nil
}

// Snapshot returns a copy of the current catalog. The first call builds it
// if Start has not run.
func (s *Service) Snapshot() Snapshot {
	if s == nil {
		return Snapshot{Files: []catalog.File{}}
	}
	if snap := s.current.Load(); snap != nil {
		return snap.Clone()
	}

	snap, err := s.Rebuild()
	if err != nil {
		if latest := s.current.Load(); latest != nil {
			return latest.Clone()
		}
		return Snapshot{Files: []catalog.File{}}
	}
	return snap
}

// Version reports the current snapshot version without copying files.
func (s *Service) Version() int64 {
	if s == nil {
		return 0
	}
	if snap := s.current.Load(); snap != nil {
		return snap.Version
	}
	return 0
}

// Changes reports whether the catalog moved past since.
func (s *Service) Changes(since int64) Change {
	snap := s.current.Load()
	if snap == nil {
		return Change{Changed: since != 0}
	}
	return Change{
		Changed:   snap.Version != since,
		Version:   snap.Version,
		UpdatedAt: snap.UpdatedAt,
	}
}

// Subscribe registers fn to receive every newly published snapshot. The
// returned function removes the subscription.
func (s *Service) Subscribe(fn func(Snapshot)) func() {
	if s == nil || fn == nil {
		return func() {}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return func() {}
	}

	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subscribers, id)
			s.mu.Unlock()
		})
	}
}

// Notify is the entry point for filesystem events. Irrelevant paths are
// dropped; otherwise a rebuild is scheduled once events stop arriving for
// the debounce interval. It reports whether the event was accepted.
func (s *Service) Notify(path string) bool {
	if s == nil || !catalog.IsRelevant(s.paths, path) {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}

	s.pending++
	s.generation++
	gen := s.generation
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, func() { s.fire(gen) })
	return true
}

func (s *Service) fire(gen uint64) {
	s.mu.Lock()
	if s.closed || gen != s.generation {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.mu.Unlock()

	if _, err := s.Rebuild(); err != nil && !errors.Is(err, ErrClosed) {
		s.logger.Warn("index: rebuild failed", "error", err)
	}
}

// Rebuild rescans every root and publishes the result as the next version.
// Subscribers are invoked synchronously after publication.
func (s *Service) Rebuild() (Snapshot, error) {
	if s == nil {
		return Snapshot{}, ErrUnavailable
	}

	s.rebuildMu.Lock()
	defer s.rebuildMu.Unlock()

	if s.isClosed() {
		return Snapshot{}, ErrClosed
	}

	started := s.now()
	files := s.scanner.Scan()
	if files == nil {
		files = []catalog.File{}
	}

	var version int64 = 1
	if prev := s.current.Load(); prev != nil {
		version = prev.Version + 1
	}

	snap := &Snapshot{Version: version, UpdatedAt: s.now(), Files: files}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Snapshot{}, ErrClosed
	}
	s.current.Store(snap)
	s.lastRebuild = snap.UpdatedAt
	s.pending = 0
	listeners := make([]func(Snapshot), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	s.logger.Debug("index: rebuilt catalog",
		"version", version,
		"files", len(files),
		"duration", s.now().Sub(started),
	)

	for _, fn := range listeners {
		fn(snap.Clone())
	}
	return snap.Clone(), nil
}

// Stats returns instrumentation about the index lifecycle.
func (s *Service) Stats() Stats {
	if s == nil {
		return Stats{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stats := Stats{
		LastRebuild: s.lastRebuild,
		Pending:     s.pending,
		Subscribers: len(s.subscribers),
	}
	if snap := s.current.Load(); snap != nil {
		stats.Version = snap.Version
		stats.Files = len(snap.Files)
	}
	return stats
}

// ReadFile returns the contents of a file under one of the configured roots.
// Paths outside every root fail with ErrForbidden regardless of whether they
// exist.
func (s *Service) ReadFile(path string) (string, error) {
	if s == nil {
		return "", ErrUnavailable
	}
	if s.isClosed() {
		return "", ErrClosed
	}

	abs, err := filepath.Abs(pathutil.NormalizePath(path))
	if err != nil || path == "" {
		return "", ErrForbidden
	}
	if !s.allowed(abs) {
		return "", ErrForbidden
	}

	content, err := s.reader.Read(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("read %s: %w", abs, fs.ErrNotExist)
		}
		return "", fmt.Errorf("read %s: %w", abs, err)
	}
	return content, nil
}

func (s *Service) allowed(abs string) bool {
	for _, root := range s.paths.Roots() {
		if pathutil.Within(root, abs) && abs != pathutil.NormalizePath(root) {
			return true
		}
	}
	return false
}

// Close stops the watcher and any pending rebuild. Later rebuilds return
// ErrClosed.
func (s *Service) Close() error {
	if s == nil {
		return nil
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.subscribers = make(map[int]func(Snapshot))
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}

func (s *Service) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
