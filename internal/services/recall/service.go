package recall

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Paintersrp/recall/internal/cache"
	"github.com/Paintersrp/recall/internal/recall"
	"github.com/Paintersrp/recall/internal/search"
	indexsvc "github.com/Paintersrp/recall/internal/services/index"
)

// Snapshotter is the part of the file index the recall service reads.
type Snapshotter interface {
	Snapshot() indexsvc.Snapshot
	Version() int64
}

// Stats describes the index currently serving queries.
type Stats struct {
	Files      int               `json:"files"`
	Sessions   int               `json:"sessions"`
	Documents  int               `json:"documents"`
	UpdatedAt  time.Time         `json:"updatedAt"`
	BuiltAt    time.Time         `json:"builtAt"`
	Version    int64             `json:"version"`
	Categories []recall.Category `json:"categories"`
}

// Service answers recall queries against a fuzzy index that is rebuilt
// lazily whenever the file index publishes a new version.
type Service struct {
	files   Snapshotter
	reader  cache.Reader
	config  search.Config
	logger  *slog.Logger
	current atomic.Pointer[search.Index]
	builds  atomic.Int64
}

func NewService(files Snapshotter, reader cache.Reader, cfg search.Config, logger *slog.Logger) *Service {
	if reader == nil {
		reader = cache.OSReader{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{files: files, reader: reader, config: cfg, logger: logger}
}

// Index returns the fuzzy index for the current catalog version, building
// it if the cached one is stale. Concurrent callers may build in parallel;
// the last one to finish wins.
func (s *Service) Index() *search.Index {
	version := s.files.Version()
	if idx := s.current.Load(); idx != nil && version != 0 && idx.Version() == version {
		return idx
	}

	started := time.Now()
	snap := s.files.Snapshot()
	if idx := s.current.Load(); idx != nil && idx.Version() == snap.Version {
		return idx
	}

	builder := recall.Builder{Reader: s.reader, Logger: s.logger}
	idx := search.NewIndex(builder.Build(snap), s.config)
	s.current.Store(idx)
	s.builds.Add(1)

	s.logger.Info("recall: index built",
		"version", snap.Version,
		"documents", idx.Len(),
		"duration", time.Since(started),
	)
	return idx
}

// Search validates raw and runs it against the current index.
func (s *Service) Search(raw search.RawRequest) ([]search.Result, error) {
	req, err := search.NormalizeRequest(raw)
	if err != nil {
		return nil, err
	}
	return s.Index().Recall(req), nil
}

// Stats reports metadata for the current index, building it if needed.
func (s *Service) Stats() Stats {
	idx := s.Index()
	corpus := idx.Corpus()
	categories := corpus.Categories
	if categories == nil {
		categories = []recall.Category{}
	}
	return Stats{
		Files:      corpus.TotalIndexedFiles,
		Sessions:   corpus.TotalIndexedSessions,
		Documents:  idx.Len(),
		UpdatedAt:  corpus.UpdatedAt,
		BuiltAt:    corpus.BuiltAt,
		Version:    corpus.Version,
		Categories: categories,
	}
}

// Builds reports how many indexes the service has constructed.
func (s *Service) Builds() int64 {
	return s.builds.Load()
}
