package engine

import (
	"log/slog"

	"github.com/Aman-CERP/mcqrag/internal/config"
	"github.com/Aman-CERP/mcqrag/internal/embed"
	"github.com/Aman-CERP/mcqrag/internal/extract"
)

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithConfig overrides the default RAGConfig.
func WithConfig(cfg config.RAGConfig) Option {
	return func(e *Engine) {
		e.config = cfg
	}
}

// WithEmbedder overrides the default DeterministicHashEmbedder. The
// caller is responsible for matching its dimension to the configured
// DenseDim if replacing the default.
func WithEmbedder(embedder embed.Embedder) Option {
	return func(e *Engine) {
		e.embedder = embedder
	}
}

// WithLogger overrides the default no-op logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithFileParser overrides the default extract.PlainTextParser used for
// the file-ingestion path.
func WithFileParser(parser extract.FileParser) Option {
	return func(e *Engine) {
		e.fileParser = parser
	}
}

// New constructs an Engine, applying opts over the default configuration:
// config.Default(), a CachedEmbedder wrapping DeterministicHashEmbedder
// sized to the configured dense dimension, a discard logger, and
// extract.PlainTextParser.
func New(opts ...Option) *Engine {
	cfg := config.Default()
	e := &Engine{
		config:     cfg,
		embedder:   embed.NewCachedEmbedder(embed.NewDeterministicHashEmbedder(cfg.DenseDim), embed.DefaultCacheSize),
		logger:     slog.New(slog.NewTextHandler(discardWriter{}, nil)),
		fileParser: extract.NewPlainTextParser(),

		docs:            make(map[string]QuestionDocument),
		vectors:         make(map[string]docVectors),
		exactHashMap:    make(map[string]string),
		templateHashMap: make(map[string][]string),
	}

	for _, opt := range opts {
		opt(e)
	}

	e.rebuildIndexes()
	return e
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
