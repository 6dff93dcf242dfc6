package state

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/spf13/viper"

	"github.com/Paintersrp/recall/internal/auth"
	"github.com/Paintersrp/recall/internal/cache"
	"github.com/Paintersrp/recall/internal/catalog"
	"github.com/Paintersrp/recall/internal/config"
	"github.com/Paintersrp/recall/internal/constants"
	"github.com/Paintersrp/recall/internal/convlog"
	"github.com/Paintersrp/recall/internal/logging"
	"github.com/Paintersrp/recall/internal/search"
	indexsvc "github.com/Paintersrp/recall/internal/services/index"
	recallsvc "github.com/Paintersrp/recall/internal/services/recall"
)

// State is the process-wide composition root. Services are created on first
// use so short-lived commands only pay for what they touch.
type State struct {
	Config *config.Config
	Home   string
	Paths  config.Paths
	Logger *slog.Logger
	Cache  *cache.ContentCache

	closeLog func() error

	indexOnce sync.Once
	index     *indexsvc.Service

	recallOnce sync.Once
	recall     *recallsvc.Service
}

func NewState() (*State, error) {
	home, err := GetHomeDir()
	if err != nil {
		return nil, err
	}

	cfg, err := LoadConfig(home)
	if err != nil {
		return nil, err
	}

	level, err := config.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	logger, closeLog := logging.Setup(cfg.Log.File, level)

	return New(cfg, logger, closeLog)
}

// New assembles a state from an already loaded configuration.
func New(cfg *config.Config, logger *slog.Logger, closeLog func() error) (*State, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	if closeLog == nil {
		closeLog = func() error { return nil }
	}

	contents, err := cache.New(cfg.Index.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create content cache: %w", err)
	}

	return &State{
		Config:   cfg,
		Home:     cfg.Home(),
		Paths:    cfg.ResolvedPaths(),
		Logger:   logger,
		Cache:    contents,
		closeLog: closeLog,
	}, nil
}

// FileIndex returns the shared file index service. The watcher is attached
// but only runs once the caller starts the service.
func (s *State) FileIndex() *indexsvc.Service {
	s.indexOnce.Do(func() {
		logger := logging.Component(s.Logger, "index")
		depth := s.Config.Index.WatchDepth

		opts := []indexsvc.Option{
			indexsvc.WithLogger(logger),
			indexsvc.WithDebounce(s.Config.Index.Debounce),
			indexsvc.WithReader(s.Cache),
			indexsvc.WithScanner(catalog.NewScanner(s.Paths, depth, logging.Component(s.Logger, "catalog"))),
		}

		watcher, err := NewRootWatcher(s.Paths, depth, logging.Component(s.Logger, "watcher"))
		if err != nil {
			logger.Warn("file watching disabled", "error", err)
		} else {
			opts = append(opts, indexsvc.WithWatcher(watcher))
		}

		s.index = indexsvc.NewService(s.Paths, opts...)
	})
	return s.index
}

// Recall returns the shared recall service.
func (s *State) Recall() *recallsvc.Service {
	s.recallOnce.Do(func() {
		s.recall = recallsvc.NewService(
			s.FileIndex(),
			s.Cache,
			search.DefaultConfig(),
			logging.Component(s.Logger, "recall"),
		)
	})
	return s.recall
}

// ConversationLogger builds the transcript-to-markdown logger. Settings the
// config file leaves empty fall back to the OPENCLAW_* environment.
func (s *State) ConversationLogger() *convlog.Logger {
	cfg := config.ResolveLogger(s.Config.Logger, os.Getenv, s.Home)
	return convlog.New(s.Paths, cfg, logging.Component(s.Logger, "convlog"))
}

// Authenticator returns nil when no API secret is configured.
func (s *State) Authenticator() (*auth.Authenticator, error) {
	if s.Config.Server.AuthSecret == "" {
		return nil, nil
	}
	return auth.New(s.Config.Server.AuthSecret)
}

func GetHomeDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory. err: %s", err)
	}

	return home, nil
}

func LoadConfig(home string) (*config.Config, error) {
	viper.AddConfigPath(home + constants.ConfigDir)
	viper.SetConfigName(constants.ConfigFile)
	viper.SetConfigType(constants.ConfigFileType)
	config.BindEnv()

	if err := config.EnsureConfigExists(home); err != nil {
		return nil, err
	}

	return config.Load(home)
}

// Close releases resources associated with the state, including the file
// index, its watcher and the log file.
func (s *State) Close() error {
	if s == nil {
		return nil
	}

	var errs []error
	if s.index != nil {
		if err := s.index.Close(); err != nil && !errors.Is(err, indexsvc.ErrClosed) {
			errs = append(errs, err)
		}
	}
	if s.closeLog != nil {
		if err := s.closeLog(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}
