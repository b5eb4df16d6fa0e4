package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/linkmill/partners-cli/internal/research"
	"github.com/linkmill/partners-cli/internal/store"
	"github.com/linkmill/partners-cli/pkg/coupang"
	"github.com/linkmill/partners-cli/pkg/insight"
	"github.com/linkmill/partners-cli/pkg/perplexity"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		path := cfg.Store.Path
		if path == "" {
			path = "partners.db"
		}
		return store.NewSQLite(path)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// openStore opens and migrates the configured store.
func openStore(ctx context.Context) (store.Store, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

func initCoupang() (coupang.Client, error) {
	if err := cfg.Coupang.Validate(); err != nil {
		return nil, err
	}
	opts := []coupang.Option{coupang.WithBaseURL(cfg.Coupang.BaseURL)}
	if cfg.Coupang.SubID != "" {
		opts = append(opts, coupang.WithSubID(cfg.Coupang.SubID))
	}
	return coupang.NewClient(cfg.Coupang.AccessKey, cfg.Coupang.SecretKey, opts...), nil
}

// initProvider builds the configured research provider.
func initProvider() (research.Provider, error) {
	if err := cfg.Research.Validate(cfg); err != nil {
		return nil, err
	}
	switch cfg.Research.Provider {
	case "insight":
		var opts []insight.Option
		if cfg.Insight.Key != "" {
			opts = append(opts, insight.WithAPIKey(cfg.Insight.Key))
		}
		return insight.NewClient(cfg.Insight.BaseURL, opts...), nil
	case "perplexity":
		client := perplexity.NewClient(cfg.Perplexity.Key,
			perplexity.WithBaseURL(cfg.Perplexity.BaseURL),
			perplexity.WithModel(cfg.Perplexity.Model),
		)
		return perplexity.NewResearcher(client), nil
	default:
		return nil, eris.Errorf("unsupported research provider: %s", cfg.Research.Provider)
	}
}

// initOrchestrator assembles the research orchestrator with the
// configured provider, batch size, and optional SEO generator.
func initOrchestrator(notifier research.Notifier) (*research.Orchestrator, error) {
	provider, err := initProvider()
	if err != nil {
		return nil, err
	}

	opts := []research.Option{
		research.WithBatchSize(cfg.Research.BatchSize),
		research.WithNotifier(notifier),
	}
	if cfg.Research.SEO {
		if cfg.Anthropic.Key == "" {
			return nil, eris.New("anthropic key is required when research.seo is enabled")
		}
		opts = append(opts, research.WithSEO(research.NewClaudeGenerator(cfg.Anthropic.Key, cfg.Anthropic.Model)))
	}
	return research.New(provider, opts...), nil
}
