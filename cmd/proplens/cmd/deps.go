package cmd

import (
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/dohyunlee/proplens/internal/cache"
	"github.com/dohyunlee/proplens/internal/config"
	"github.com/dohyunlee/proplens/internal/filter"
	"github.com/dohyunlee/proplens/internal/molit"
	"github.com/dohyunlee/proplens/internal/naver"
	"github.com/dohyunlee/proplens/internal/odsay"
	"github.com/dohyunlee/proplens/internal/pipeline"
	"github.com/dohyunlee/proplens/internal/question"
	"github.com/dohyunlee/proplens/internal/report"
	"github.com/dohyunlee/proplens/internal/risk"
	"github.com/dohyunlee/proplens/pkg/llm"
	score "github.com/dohyunlee/proplens/pkg/scorer"
)

// buildOrchestrator wires all collaborators and rule engines from the config.
// Enrichment and commute lookups are only wired when their API keys are set.
func buildOrchestrator(cfg *config.Config, log *slog.Logger) (*pipeline.Orchestrator, error) {
	naverOpts := []naver.Option{
		naver.WithMaxItems(cfg.Naver.MaxItems),
		naver.WithRateLimiter(rate.NewLimiter(rate.Limit(cfg.Naver.PerSecond), cfg.Naver.Burst)),
	}
	if cfg.Naver.BaseURL != "" {
		naverOpts = append(naverOpts, naver.WithBaseURL(cfg.Naver.BaseURL))
	}
	if cfg.Naver.CacheDir != "" {
		fileCache, err := cache.NewFileCache(cfg.Naver.CacheDir, "naver", log,
			cache.WithTTL(cfg.Naver.CacheTTL))
		if err != nil {
			return nil, fmt.Errorf("creating listing cache: %w", err)
		}
		naverOpts = append(naverOpts, naver.WithCache(fileCache))
	}
	searcher := naver.NewClient(log, naverOpts...)

	riskEngine, err := risk.NewEngine(cfg.Risk.Patterns, cfg.Risk.Thresholds)
	if err != nil {
		return nil, fmt.Errorf("building risk engine: %w", err)
	}

	var assemblerOpts []report.Option
	if cfg.LLM.Enabled {
		backend := llm.NewOllamaBackend(cfg.LLM.Endpoint, cfg.LLM.Model,
			llm.WithOllamaHTTPClient(&http.Client{Timeout: cfg.LLM.Timeout}))
		assemblerOpts = append(assemblerOpts, report.WithPolisher(llm.NewPolisher(backend)))
	}

	orchestratorOpts := []pipeline.OrchestratorOption{
		pipeline.WithWorkers(cfg.Pipeline.Workers),
	}

	if cfg.Molit.APIKey != "" {
		molitOpts := []molit.Option{molit.WithMonths(cfg.Molit.Months)}
		if cfg.Molit.BaseURL != "" {
			molitOpts = append(molitOpts, molit.WithBaseURL(cfg.Molit.BaseURL))
		}
		client := molit.NewClient(cfg.Molit.APIKey, log, molitOpts...)
		orchestratorOpts = append(orchestratorOpts,
			pipeline.WithEnricher(molit.NewEnricher(client, log)))
	} else {
		log.Info("molit api key not set, price enrichment disabled")
	}

	if cfg.ODsay.APIKey != "" {
		odsayOpts := []odsay.Option{}
		if cfg.ODsay.BaseURL != "" {
			odsayOpts = append(odsayOpts, odsay.WithBaseURL(cfg.ODsay.BaseURL))
		}
		orchestratorOpts = append(orchestratorOpts,
			pipeline.WithCommuteLookup(odsay.NewClient(cfg.ODsay.APIKey, log, odsayOpts...)))
	} else {
		log.Info("odsay api key not set, commute evaluation disabled")
	}

	return pipeline.NewOrchestrator(
		log,
		searcher,
		filter.NewEngine(),
		score.New(cfg.Scoring.Weights),
		riskEngine,
		question.NewEngine(),
		report.NewAssembler(log, assemblerOpts...),
		orchestratorOpts...,
	), nil
}
