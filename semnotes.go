// Package semnotes provides a persistent, content-addressable embedding
// store for a collection of notes, with staleness-aware synchronization
// and cosine-similarity search.
package semnotes

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/semnotes/semnotes/internal/config"
	"github.com/semnotes/semnotes/internal/errortypes"
	"github.com/semnotes/semnotes/internal/notes"
	"github.com/semnotes/semnotes/internal/provider"
	"github.com/semnotes/semnotes/internal/search"
	"github.com/semnotes/semnotes/internal/server"
	"github.com/semnotes/semnotes/internal/store"
	"github.com/semnotes/semnotes/internal/syncer"
	"github.com/semnotes/semnotes/internal/telemetry"
	"github.com/semnotes/semnotes/internal/watch"
)

// Config represents the configuration for the semnotes service.
type Config = config.Config

// Stats summarizes the state of the embedding store.
type Stats struct {
	TotalEmbeddings int       `json:"totalEmbeddings"`
	Provider        string    `json:"provider,omitempty"`
	Model           string    `json:"model,omitempty"`
	Dimensions      int       `json:"dimensions,omitempty"`
	LastUpdated     time.Time `json:"lastUpdated,omitempty"`
}

// Service is the semnotes service: it owns the document source, the
// embedding store, the provider, and the engines built on them.
type Service struct {
	config     *config.Config
	source     notes.Source
	store      store.Store
	provider   provider.Provider
	syncer     *syncer.Engine
	search     *search.Engine
	queue      *watch.Queue
	metrics    *telemetry.MetricsCollector
	toolServer server.NoteToolServer
	logger     *slog.Logger
}

// ServiceOptions defines the options for creating a new Service.
type ServiceOptions struct {
	Config     *Config      // Pre-filled config. If nil, ConfigPath is used.
	ConfigPath string       // Path to config file. Used if Config is nil. If both are empty, DefaultConfig() is used.
	Logger     *slog.Logger // External logger. If nil, slog.Default() is used.
}

// NewService creates a new semnotes Service with the given options.
// If opts.Config is provided, it is used directly. Otherwise, if
// opts.ConfigPath is provided, configuration is loaded from that path.
// If neither is provided, DefaultConfig() is used.
func NewService(opts ServiceOptions) (*Service, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var cfg *Config
	var err error

	if opts.Config != nil {
		cfg = opts.Config
		logger.Info("Using provided Config object for service initialization")
	} else if opts.ConfigPath != "" {
		logger.Info("Loading configuration for service initialization", "path", opts.ConfigPath)
		cfg, err = config.LoadConfigWithPath(opts.ConfigPath)
		if err != nil {
			logger.Error("Failed to load configuration from path", "path", opts.ConfigPath, "error", err)
			return nil, errortypes.ConfigError(err, "failed to load configuration from path: "+opts.ConfigPath)
		}
	} else {
		logger.Warn("No Config object or ConfigPath provided, using default configuration")
		cfg = DefaultConfig()
	}

	source, st, prov, err := CreateComponents(cfg, logger)
	if err != nil {
		logger.Error("Failed to create components during service initialization", "error", err)
		return nil, err
	}

	metrics := telemetry.NewMetricsCollector()
	syncEngine := syncer.NewEngine(source, st, prov, metrics)
	searchEngine := search.NewEngine(st, prov, metrics)

	svc := &Service{
		config:   cfg,
		source:   source,
		store:    st,
		provider: prov,
		syncer:   syncEngine,
		search:   searchEngine,
		metrics:  metrics,
		logger:   logger,
	}

	svc.queue = watch.NewQueue(svc.flushEditedPaths, cfg.Debounce(), cfg.Source.ExcludedFolders, metrics)

	logger.Info("Initializing note tool server component")
	mcpServer := server.NewNoteToolServer(source, st, syncEngine, searchEngine, cfg.Source.ExcludedFolders)
	if err := mcpServer.Initialize(); err != nil {
		logger.Error("Failed to initialize MCP note tool server component", "error", err)
		return nil, errortypes.ConfigError(err, "failed to initialize MCP note tool server component")
	}
	svc.toolServer = mcpServer

	logger.Info("semnotes service successfully initialized")
	return svc, nil
}

// DefaultConfig returns the default configuration for the semnotes
// service.
func DefaultConfig() *Config {
	return config.NewConfig()
}

// CreateComponents creates and initializes the document source, the
// embedding store, and the provider without creating a service
// instance. This is useful for callers that need direct access to the
// components.
func CreateComponents(cfg *Config, logger *slog.Logger) (notes.Source, store.Store, provider.Provider, error) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("Initializing note source", "root", cfg.Source.Root)
	source := notes.NewDirSource(cfg.Source.Root)

	logger.Info("Initializing embedding store", "backend", cfg.Store.Backend, "path", cfg.Store.Path)
	var st store.Store
	switch cfg.Store.Backend {
	case "sqlite":
		st = store.NewSQLiteStore(cfg.Store.Path)
	case "file", "":
		st = store.NewFileStore(cfg.Store.Path)
	default:
		err := errors.New("unknown store backend: " + cfg.Store.Backend)
		logger.Error("Failed to select store backend", "backend", cfg.Store.Backend)
		return nil, nil, nil, errortypes.ConfigError(err, "failed to initialize embedding store")
	}
	if err := st.Initialize(); err != nil {
		logger.Error("Failed to initialize embedding store", "path", cfg.Store.Path, "error", err)
		return nil, nil, nil, err
	}

	logger.Info("Initializing embedding provider", "provider", cfg.Provider.Name, "dimensions", cfg.Provider.Dimensions)
	prov, err := provider.New(cfg.Provider.Name, provider.Config{
		APIKey:     cfg.Provider.ApiKey,
		ModelID:    cfg.Provider.Model,
		Dimensions: cfg.Provider.Dimensions,
	})
	if err != nil {
		logger.Error("Failed to initialize embedding provider", "provider", cfg.Provider.Name, "error", err)
		return nil, nil, nil, errortypes.ConfigError(err, "failed to initialize embedding provider")
	}

	logger.Info("Components successfully initialized")
	return source, st, prov, nil
}

// Start starts the semnotes service on the MCP stdio transport.
func (s *Service) Start() error {
	s.logger.Info("Starting semnotes service")
	return s.toolServer.Start()
}

// Stop stops the semnotes service and releases its resources.
func (s *Service) Stop() error {
	s.logger.Info("Stopping semnotes service")
	s.queue.Stop()

	if err := s.toolServer.Stop(); err != nil {
		s.logger.Error("Error stopping tool server", "error", err)
		return err
	}

	s.logger.Info("Closing embedding store")
	if err := s.store.Close(); err != nil {
		s.logger.Error("Failed to close embedding store", "error", err)
		return err
	}

	s.logger.Info("semnotes service stopped")
	return nil
}

// notConfigured guards the public operations against a half-built
// service.
func (s *Service) notConfigured() error {
	if s == nil || s.store == nil || s.provider == nil || s.source == nil {
		return errortypes.NotConfiguredError(errors.New("service components missing"), "semnotes service is not configured")
	}
	return nil
}

// IsAvailable reports whether the service can reach its embedding
// provider.
func (s *Service) IsAvailable() bool {
	if s.notConfigured() != nil {
		return false
	}
	return s.provider.IsAvailable()
}

// EmbedNote embeds the note with the given id, skipping the provider
// call when the stored embedding is still fresh.
func (s *Service) EmbedNote(ctx context.Context, noteID string) (*syncer.Result, error) {
	if err := s.notConfigured(); err != nil {
		return nil, err
	}
	return s.syncer.EmbedOne(ctx, noteID)
}

// EmbedNoteByPath embeds the note at the given collection-relative
// path.
func (s *Service) EmbedNoteByPath(ctx context.Context, path string) (*syncer.Result, error) {
	if err := s.notConfigured(); err != nil {
		return nil, err
	}
	note, err := s.source.FindByPath(path)
	if err != nil {
		return nil, err
	}
	return s.syncer.EmbedNote(ctx, note)
}

// ForceEmbedNote re-embeds the note regardless of freshness.
func (s *Service) ForceEmbedNote(ctx context.Context, noteID string) (*syncer.Result, error) {
	if err := s.notConfigured(); err != nil {
		return nil, err
	}
	return s.syncer.ForceEmbed(ctx, noteID)
}

// EmbedAllNotes embeds every note in the collection, re-embedding the
// stale ones and skipping the fresh ones.
func (s *Service) EmbedAllNotes(ctx context.Context, onProgress syncer.ProgressFunc) (*syncer.BatchResult, error) {
	if err := s.notConfigured(); err != nil {
		return nil, err
	}
	return s.syncer.EmbedAll(ctx, s.config.Source.ExcludedFolders, onProgress)
}

// EmbedStaleNotes re-embeds only the notes whose content changed since
// their last embedding.
func (s *Service) EmbedStaleNotes(ctx context.Context, onProgress syncer.ProgressFunc) (*syncer.BatchResult, error) {
	if err := s.notConfigured(); err != nil {
		return nil, err
	}
	return s.syncer.EmbedStale(ctx, s.config.Source.ExcludedFolders, onProgress)
}

// SearchSimilar finds notes semantically similar to the query text.
func (s *Service) SearchSimilar(ctx context.Context, query string, opts search.Options) ([]search.Result, error) {
	if err := s.notConfigured(); err != nil {
		return nil, err
	}
	opts = s.applySearchDefaults(opts)
	return s.search.SearchByText(ctx, query, opts)
}

// FindSimilarToNote finds notes semantically similar to an existing
// note, excluding the note itself.
func (s *Service) FindSimilarToNote(ctx context.Context, noteID string, opts search.Options) ([]search.Result, error) {
	if err := s.notConfigured(); err != nil {
		return nil, err
	}
	opts = s.applySearchDefaults(opts)
	return s.search.SearchByDocument(ctx, noteID, opts)
}

func (s *Service) applySearchDefaults(opts search.Options) search.Options {
	if opts.Threshold == 0 && s.config.Search.Threshold != 0 {
		opts.Threshold = s.config.Search.Threshold
	}
	if opts.Limit == 0 && s.config.Search.Limit != 0 {
		opts.Limit = s.config.Search.Limit
	}
	if len(opts.ExcludedFolders) == 0 {
		opts.ExcludedFolders = s.config.Source.ExcludedFolders
	}
	return opts
}

// NoteEdited registers an edit to the note at path. Rapid edits
// coalesce; the actual re-embedding runs after the configured debounce
// window of quiet.
func (s *Service) NoteEdited(path string) {
	if s.notConfigured() != nil {
		return
	}
	s.queue.Enqueue(path)
}

// flushEditedPaths is the queue's flush callback: it re-embeds each
// edited note, tolerating per-note failures.
func (s *Service) flushEditedPaths(ctx context.Context, paths []string) error {
	for _, path := range paths {
		note, err := s.source.FindByPath(path)
		if err != nil {
			if errortypes.IsNotFound(err) {
				// The note was deleted between the edit and the flush;
				// drop its embedding.
				s.logger.Debug("Edited note no longer exists, removing embedding", "path", path)
				if rec, findErr := s.store.FindByPath(path); findErr == nil {
					if delErr := s.store.Delete(rec.NoteID); delErr != nil {
						s.logger.Error("Failed to delete embedding for removed note", "path", path, "error", delErr)
					}
				}
				continue
			}
			s.logger.Error("Failed to resolve edited note", "path", path, "error", err)
			continue
		}

		if _, err := s.syncer.EmbedNote(ctx, note); err != nil {
			s.logger.Error("Failed to re-embed edited note", "path", path, "error", err)
		}
	}
	return nil
}

// HasEmbedding reports whether an embedding record exists for the note.
func (s *Service) HasEmbedding(noteID string) (bool, error) {
	if err := s.notConfigured(); err != nil {
		return false, err
	}
	return s.store.Exists(noteID)
}

// GetEmbedding returns the stored embedding record for the note.
func (s *Service) GetEmbedding(noteID string) (*store.Record, error) {
	if err := s.notConfigured(); err != nil {
		return nil, err
	}
	return s.store.FindByID(noteID)
}

// DeleteEmbedding removes the stored embedding for the note. Deleting
// a note that has no embedding is not an error.
func (s *Service) DeleteEmbedding(noteID string) error {
	if err := s.notConfigured(); err != nil {
		return err
	}
	return s.store.Delete(noteID)
}

// ClearAllEmbeddings deletes every stored embedding and resets the
// index.
func (s *Service) ClearAllEmbeddings() error {
	if err := s.notConfigured(); err != nil {
		return err
	}
	return s.store.Clear()
}

// GetStats summarizes the state of the embedding store.
func (s *Service) GetStats() (*Stats, error) {
	if err := s.notConfigured(); err != nil {
		return nil, err
	}

	summary, err := s.store.Index()
	if err != nil {
		return nil, err
	}

	return &Stats{
		TotalEmbeddings: summary.Total,
		Provider:        summary.Provider,
		Model:           summary.Model,
		Dimensions:      s.provider.Dimensions(),
		LastUpdated:     summary.UpdatedAt,
	}, nil
}

// GetStore returns the embedding store instance used by the service.
func (s *Service) GetStore() store.Store {
	return s.store
}

// GetSource returns the document source instance used by the service.
func (s *Service) GetSource() notes.Source {
	return s.source
}

// GetProvider returns the embedding provider instance used by the
// service.
func (s *Service) GetProvider() provider.Provider {
	return s.provider
}

// Metrics returns the service's metrics collector.
func (s *Service) Metrics() *telemetry.MetricsCollector {
	return s.metrics
}
