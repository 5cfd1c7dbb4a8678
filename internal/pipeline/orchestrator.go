package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/dohyunlee/proplens/internal/filter"
	"github.com/dohyunlee/proplens/internal/metrics"
	"github.com/dohyunlee/proplens/internal/question"
	"github.com/dohyunlee/proplens/internal/report"
	"github.com/dohyunlee/proplens/internal/risk"
	score "github.com/dohyunlee/proplens/pkg/scorer"
	domain "github.com/dohyunlee/proplens/pkg/types"
)

const defaultWorkers = 8

// Searcher collects candidate listings for the criteria. A whole-run search
// failure is fatal for the pipeline run.
type Searcher interface {
	Search(ctx context.Context, c *domain.SearchCriteria) ([]domain.Listing, error)
}

// Enricher annotates one listing with external data (실거래가, 전세가율).
// A failure is non-fatal; the listing keeps its prior state.
type Enricher interface {
	Enrich(ctx context.Context, l domain.Listing) (domain.Listing, error)
}

// CommuteRoute is one transit lookup result.
type CommuteRoute struct {
	Minutes     int
	PathType    string
	TransferCnt int
}

// CommuteLookup resolves the transit time from a coordinate to a named
// destination. A nil route with nil error means no route was found.
type CommuteLookup interface {
	Route(ctx context.Context, lat, lng float64, destination string) (*CommuteRoute, error)
}

// Per-stage agent inputs.
type evalInput struct {
	listing  *domain.Listing
	criteria *domain.SearchCriteria
}

type questionInput struct {
	listing  *domain.Listing
	filter   *domain.FilterResult
	risk     *domain.RiskResult
	criteria *domain.SearchCriteria
}

// Orchestrator wires the collaborators and rule engines into the staged
// evaluation pipeline. Every stage runs under the Agent contract so that
// validation and failure isolation are uniform.
type Orchestrator struct {
	log     *slog.Logger
	tracer  trace.Tracer
	workers int

	enricher Enricher
	commute  CommuteLookup

	assembler *report.Assembler

	searchAgent    *Agent[*domain.SearchCriteria, []domain.Listing]
	enrichAgent    *Agent[domain.Listing, domain.Listing]
	normalizeAgent *Agent[domain.Listing, domain.Listing]
	filterAgent    *Agent[evalInput, domain.FilterResult]
	scoreAgent     *Agent[evalInput, domain.ScoredListing]
	riskAgent      *Agent[*domain.Listing, domain.RiskResult]
	questionAgent  *Agent[questionInput, domain.QuestionResult]
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithEnricher installs the optional enrichment collaborator.
func WithEnricher(e Enricher) OrchestratorOption {
	return func(o *Orchestrator) { o.enricher = e }
}

// WithCommuteLookup installs the optional commute collaborator.
func WithCommuteLookup(c CommuteLookup) OrchestratorOption {
	return func(o *Orchestrator) { o.commute = c }
}

// WithWorkers bounds the per-listing worker pools.
func WithWorkers(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		if n > 0 {
			o.workers = n
		}
	}
}

// NewOrchestrator creates an Orchestrator around the rule engines and the
// search collaborator.
func NewOrchestrator(
	log *slog.Logger,
	searcher Searcher,
	filterEngine *filter.Engine,
	scoreEngine *score.Engine,
	riskEngine *risk.Engine,
	questionEngine *question.Engine,
	assembler *report.Assembler,
	opts ...OrchestratorOption,
) *Orchestrator {
	o := &Orchestrator{
		log:       log.With("component", "pipeline"),
		tracer:    otel.Tracer("proplens/pipeline"),
		workers:   defaultWorkers,
		assembler: assembler,
	}
	for _, opt := range opts {
		opt(o)
	}

	o.searchAgent = NewAgent("search", log, searcher.Search,
		WithInputValidator[*domain.SearchCriteria, []domain.Listing](func(c *domain.SearchCriteria) error {
			if c == nil {
				return errors.New("criteria is nil")
			}
			return filterEngine.ValidateCriteria(c)
		}))

	if o.enricher != nil {
		o.enrichAgent = NewAgent("enrich", log, o.enricher.Enrich)
	}

	o.normalizeAgent = NewAgent("normalize", log,
		func(_ context.Context, l domain.Listing) (domain.Listing, error) {
			return Normalize(l), nil
		})

	o.filterAgent = NewAgent("filter", log,
		func(_ context.Context, in evalInput) (domain.FilterResult, error) {
			return filterEngine.Evaluate(in.listing, in.criteria), nil
		},
		WithInputValidator[evalInput, domain.FilterResult](func(in evalInput) error {
			if in.listing.ID == "" {
				return errors.New("listing has no id")
			}
			return nil
		}))

	o.scoreAgent = NewAgent("score", log,
		func(_ context.Context, in evalInput) (domain.ScoredListing, error) {
			return scoreEngine.Score(in.listing, in.criteria), nil
		})

	o.riskAgent = NewAgent("risk", log,
		func(_ context.Context, l *domain.Listing) (domain.RiskResult, error) {
			return riskEngine.Analyze(l), nil
		})

	o.questionAgent = NewAgent("question", log,
		func(_ context.Context, in questionInput) (domain.QuestionResult, error) {
			return questionEngine.Generate(in.listing, in.filter, in.risk, in.criteria), nil
		})

	return o
}

// listingState carries one listing through the run together with whatever
// stage results and errors it accumulates.
type listingState struct {
	listing  domain.Listing
	filter   *domain.FilterResult
	score    *domain.ScoredListing
	risk     *domain.RiskResult
	question *domain.QuestionResult
	errs     []string
}

func (s *listingState) recordErr(stage string, err error) {
	s.errs = append(s.errs, fmt.Sprintf("%s: %v", stage, err))
	metrics.StageErrorsTotal.WithLabelValues(stage).Inc()
}

// Run executes the full pipeline for one criteria set and returns the
// assembled report. Search failure is the only fatal collaborator failure;
// everything after is isolated per listing.
func (o *Orchestrator) Run(ctx context.Context, criteria *domain.SearchCriteria) (domain.Report, error) {
	started := time.Now()
	ctx, span := o.tracer.Start(ctx, "pipeline.run")
	defer span.End()

	metrics.PipelineRunsTotal.Inc()
	defer func() {
		metrics.PipelineDuration.Observe(time.Since(started).Seconds())
	}()

	listings, err := o.search(ctx, criteria)
	if err != nil {
		return domain.Report{}, err
	}
	if len(listings) == 0 {
		o.log.Warn("no listings found")
		return o.assembler.Assemble(ctx, nil), nil
	}
	o.log.Info("search complete", "listings", len(listings))
	span.SetAttributes(attribute.Int("listings", len(listings)))

	states := make([]*listingState, len(listings))
	for i, l := range listings {
		states[i] = &listingState{listing: l}
	}

	o.enrich(ctx, states)
	o.normalize(ctx, states)
	o.filter(ctx, states, criteria)
	o.commuteCheck(ctx, states, criteria)
	o.score(ctx, states, criteria)
	o.analyzeRisk(ctx, states)
	o.generateQuestions(ctx, states, criteria)

	reports := make([]domain.ListingReport, len(states))
	for i, s := range states {
		reports[i] = domain.ListingReport{
			Listing:        s.listing,
			FilterResult:   s.filter,
			ScoreResult:    s.score,
			RiskResult:     s.risk,
			QuestionResult: s.question,
			Errors:         s.errs,
		}
	}

	out := o.assembler.Assemble(ctx, reports)
	o.log.Info("pipeline complete",
		"passed", out.PassedCount,
		"total", out.TotalCount,
		"duration", time.Since(started))
	return out, nil
}

// search runs the collaborator and de-duplicates its result by listing id,
// first occurrence winning.
func (o *Orchestrator) search(ctx context.Context, c *domain.SearchCriteria) ([]domain.Listing, error) {
	ctx, span := o.tracer.Start(ctx, "pipeline.search")
	defer span.End()

	found, err := o.searchAgent.Run(ctx, c)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(found))
	listings := found[:0]
	for _, l := range found {
		if seen[l.ID] {
			continue
		}
		seen[l.ID] = true
		listings = append(listings, l)
	}
	return listings, nil
}

func (o *Orchestrator) enrich(ctx context.Context, states []*listingState) {
	if o.enrichAgent == nil {
		return
	}
	ctx, span := o.tracer.Start(ctx, "pipeline.enrich")
	defer span.End()

	o.forEach(ctx, states, func(ctx context.Context, s *listingState) {
		enriched, err := o.enrichAgent.Run(ctx, s.listing)
		if err != nil {
			s.recordErr("enrich", err)
			return
		}
		s.listing = enriched
	})
}

func (o *Orchestrator) normalize(ctx context.Context, states []*listingState) {
	ctx, span := o.tracer.Start(ctx, "pipeline.normalize")
	defer span.End()

	o.forEach(ctx, states, func(ctx context.Context, s *listingState) {
		normalized, err := o.normalizeAgent.Run(ctx, s.listing)
		if err != nil {
			s.recordErr("normalize", err)
			return
		}
		s.listing = normalized
	})
}

func (o *Orchestrator) filter(ctx context.Context, states []*listingState, c *domain.SearchCriteria) {
	ctx, span := o.tracer.Start(ctx, "pipeline.filter")
	defer span.End()

	o.forEach(ctx, states, func(ctx context.Context, s *listingState) {
		result, err := o.filterAgent.Run(ctx, evalInput{listing: &s.listing, criteria: c})
		if err != nil {
			s.recordErr("filter", err)
			return
		}
		s.filter = &result
		metrics.FilterStatusTotal.WithLabelValues(string(result.Status)).Inc()
	})
}

// commuteCheck resolves transit times for listings that survived filtering
// and appends a synthetic failed constraint to the ones over the bound.
// Lookup failures pass the listing by default.
func (o *Orchestrator) commuteCheck(ctx context.Context, states []*listingState, c *domain.SearchCriteria) {
	if o.commute == nil || c.CommuteDestination == "" {
		return
	}
	ctx, span := o.tracer.Start(ctx, "pipeline.commute")
	defer span.End()

	for _, s := range states {
		if s.filter != nil && s.filter.Status == domain.FilterFail {
			continue
		}
		l := &s.listing
		if l.Latitude == nil || l.Longitude == nil {
			continue
		}

		route, err := o.commute.Route(ctx, *l.Latitude, *l.Longitude, c.CommuteDestination)
		if err != nil {
			s.recordErr("commute", err)
			continue
		}
		if route == nil {
			continue
		}

		l.Description += fmt.Sprintf("\n\n[통근 정보] %s까지 약 %d분 (%s, 환승 %d회)",
			c.CommuteDestination, route.Minutes, route.PathType, route.TransferCnt)

		if c.MaxCommuteMinutes == nil || route.Minutes <= *c.MaxCommuteMinutes {
			continue
		}
		if s.filter == nil {
			continue
		}
		s.filter.FailedConditions = append(s.filter.FailedConditions, filter.CommuteConditionName)
		if s.filter.FailureReasons == nil {
			s.filter.FailureReasons = map[string]string{}
		}
		s.filter.FailureReasons[filter.CommuteConditionName] =
			fmt.Sprintf("통근 시간 %d분 > 상한 %d분", route.Minutes, *c.MaxCommuteMinutes)
		s.filter.Recompute(c)
	}
}

func (o *Orchestrator) score(ctx context.Context, states []*listingState, c *domain.SearchCriteria) {
	ctx, span := o.tracer.Start(ctx, "pipeline.score")
	defer span.End()

	o.forEach(ctx, states, func(ctx context.Context, s *listingState) {
		if s.filter != nil && s.filter.Status == domain.FilterFail {
			return
		}
		result, err := o.scoreAgent.Run(ctx, evalInput{listing: &s.listing, criteria: c})
		if err != nil {
			s.recordErr("score", err)
			return
		}
		s.score = &result
		metrics.ScoreDistribution.Observe(result.TotalScore)
	})
}

func (o *Orchestrator) analyzeRisk(ctx context.Context, states []*listingState) {
	ctx, span := o.tracer.Start(ctx, "pipeline.risk")
	defer span.End()

	o.forEach(ctx, states, func(ctx context.Context, s *listingState) {
		result, err := o.riskAgent.Run(ctx, &s.listing)
		if err != nil {
			s.recordErr("risk", err)
			return
		}
		s.risk = &result
		metrics.RiskScoreDistribution.Observe(float64(result.RiskScore))
	})
}

func (o *Orchestrator) generateQuestions(ctx context.Context, states []*listingState, c *domain.SearchCriteria) {
	ctx, span := o.tracer.Start(ctx, "pipeline.question")
	defer span.End()

	o.forEach(ctx, states, func(ctx context.Context, s *listingState) {
		result, err := o.questionAgent.Run(ctx, questionInput{
			listing:  &s.listing,
			filter:   s.filter,
			risk:     s.risk,
			criteria: c,
		})
		if err != nil {
			s.recordErr("question", err)
			return
		}
		s.question = &result
	})
}

// forEach runs fn for every listing state on a bounded worker pool. Each fn
// owns its state exclusively, so results land in order without extra
// bookkeeping.
func (o *Orchestrator) forEach(ctx context.Context, states []*listingState, fn func(context.Context, *listingState)) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)
	for _, s := range states {
		g.Go(func() error {
			fn(ctx, s)
			return nil
		})
	}
	_ = g.Wait()
}
