package cli

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"resumatch/internal/chunker"
	"resumatch/internal/config"
	"resumatch/internal/domain"
	"resumatch/internal/embedding"
	"resumatch/internal/embedding/hashing"
	"resumatch/internal/embedding/openai"
	"resumatch/internal/extract"
	"resumatch/internal/logger"
	"resumatch/internal/matcher"
	"resumatch/internal/query"
	"resumatch/internal/service"
	"resumatch/internal/store"
	"resumatch/internal/summarizer"
	"resumatch/internal/vectorstore"
	"resumatch/internal/vectorstore/memory"
	"resumatch/internal/vectorstore/npy"
)

type application struct {
	cfg *config.AppConfig
	log *zap.Logger
	svc *service.MatchService
}

func loadConfig(opts *rootOptions) (*config.AppConfig, string, error) {
	if opts.configPath == "" {
		return config.LoadDefault()
	}
	cfg, err := config.Load(opts.configPath)
	return cfg, opts.configPath, err
}

// newApplication assembles the store, query holder, engine and service.
// The embedding model is built eagerly so a broken model fails startup.
func newApplication(opts *rootOptions) (*application, error) {
	cfg, cfgPath, err := loadConfig(opts)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	base, err := logger.New(opts.json || cfg.Log.JSON, opts.debug || cfg.Log.Debug)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	if opts.quiet {
		base = base.WithOptions(zap.IncreaseLevel(zapcore.ErrorLevel))
	}
	log := logger.WithFields(base, zap.String("app", app))
	log.Debug("config loaded", zap.String("path", cfgPath))

	factory, err := embedderFactory(cfg.Embedder)
	if err != nil {
		return nil, err
	}
	provider := embedding.NewProvider(factory, log)
	if _, err := provider.Get(); err != nil {
		return nil, err
	}

	vectors, err := vectorStorage(cfg.Storage.Vectors, cfg.EmbeddingsPath())
	if err != nil {
		return nil, err
	}
	segmenter := chunker.NewSentenceSplitter(cfg.Segmenter.MaxSentences, cfg.Segmenter.FallbackChars)
	extractor := extract.New()
	st := store.New(store.Config{
		IndexPath: cfg.IndexPath(),
		Vectors:   vectors,
		Embedder:  provider,
		Segmenter: segmenter,
		Extractor: extractor,
		Logger:    log,
	})
	report := st.Load()
	log.Info("resumes loaded from disk",
		zap.Int("count", report.Loaded),
		zap.Int("dropped", len(report.Dropped)),
		zap.String("index", cfg.IndexPath()),
	)

	holder := query.NewHolder(provider, segmenter)
	engine := matcher.NewEngine(st, holder, cfg.Matcher())
	svc := service.NewMatchService(st, holder, engine, extractor,
		summarizer.NewFrequencySummarizer(segmenter), cfg.ResumesPath(), cfg.Matching.DefaultTopK, log)

	return &application{cfg: cfg, log: log, svc: svc}, nil
}

func embedderFactory(cfg config.EmbedderConfig) (embedding.Factory, error) {
	switch cfg.Type {
	case "hashing", "":
		dim := hashing.DefaultDimension
		if cfg.Hashing != nil && cfg.Hashing.Dimension > 0 {
			dim = cfg.Hashing.Dimension
		}
		return func() (domain.Embedder, error) { return hashing.NewEmbedder(dim), nil }, nil
	case "openai":
		if cfg.OpenAI == nil {
			return nil, fmt.Errorf("openai embedder config missing")
		}
		oc := *cfg.OpenAI
		return func() (domain.Embedder, error) {
			return openai.NewClient(openai.Config{
				BaseURL:   oc.BaseURL,
				APIKeyEnv: oc.APIKeyEnv,
				Model:     oc.Model,
				Timeout:   time.Duration(oc.TimeoutSecs) * time.Second,
				BatchSize: oc.BatchSize,
			})
		}, nil
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Type)
	}
}

func vectorStorage(kind, dir string) (vectorstore.Storage, error) {
	switch kind {
	case "npy", "":
		vs, err := npy.NewStorage(dir)
		if err != nil {
			return nil, fmt.Errorf("open vector storage: %w", err)
		}
		return vs, nil
	case "memory":
		return memory.NewStorage(), nil
	default:
		return nil, fmt.Errorf("unknown vector storage: %s", kind)
	}
}

func (a *application) close() {
	_ = a.log.Sync()
}
