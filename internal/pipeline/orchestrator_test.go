package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dohyunlee/proplens/internal/filter"
	"github.com/dohyunlee/proplens/internal/question"
	"github.com/dohyunlee/proplens/internal/report"
	"github.com/dohyunlee/proplens/internal/risk"
	score "github.com/dohyunlee/proplens/pkg/scorer"
	domain "github.com/dohyunlee/proplens/pkg/types"
)

func intPtr(v int) *int { return &v }

type stubSearcher struct {
	listings []domain.Listing
	err      error
}

func (s *stubSearcher) Search(_ context.Context, _ *domain.SearchCriteria) ([]domain.Listing, error) {
	return s.listings, s.err
}

type stubEnricher struct {
	note string
	err  error
}

func (s *stubEnricher) Enrich(_ context.Context, l domain.Listing) (domain.Listing, error) {
	if s.err != nil {
		return l, s.err
	}
	l.Description += s.note
	return l, nil
}

type stubCommute struct {
	minutes int
	err     error
}

func (s *stubCommute) Route(_ context.Context, _, _ float64, _ string) (*CommuteRoute, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &CommuteRoute{Minutes: s.minutes, PathType: "지하철", TransferCnt: 1}, nil
}

func newTestOrchestrator(t *testing.T, searcher Searcher, opts ...OrchestratorOption) *Orchestrator {
	t.Helper()

	riskEngine, err := risk.NewEngine(risk.DefaultPatterns(), risk.DefaultThresholds(), risk.WithYear(2025))
	require.NoError(t, err)

	log := quietLogger()
	return NewOrchestrator(
		log,
		searcher,
		filter.NewEngine(),
		score.New(score.DefaultWeights(), score.WithYear(2025)),
		riskEngine,
		question.NewEngine(question.WithYear(2025)),
		report.NewAssembler(log),
		opts...,
	)
}

func listing(id string, deposit int) domain.Listing {
	return domain.Listing{
		ID:      id,
		Source:  domain.SourceNaver,
		Title:   "매물 " + id,
		Deposit: intPtr(deposit),
	}
}

func TestRun_HappyPath(t *testing.T) {
	t.Parallel()

	searcher := &stubSearcher{listings: []domain.Listing{
		listing("L-1", 15000),
		listing("L-2", 30000),
	}}
	o := newTestOrchestrator(t, searcher)

	criteria := &domain.SearchCriteria{
		MaxDeposit:     intPtr(20000),
		MustConditions: []string{"max_deposit"},
	}

	out, err := o.Run(context.Background(), criteria)
	require.NoError(t, err)

	assert.Equal(t, 2, out.TotalCount)
	assert.Equal(t, 1, out.PassedCount)
	require.Len(t, out.Recommendations, 1)
	require.Len(t, out.FilteredOut, 1)

	rec := out.Recommendations[0]
	assert.Equal(t, "L-1", rec.Listing.ID)
	require.NotNil(t, rec.FilterResult)
	require.NotNil(t, rec.ScoreResult)
	require.NotNil(t, rec.RiskResult)
	require.NotNil(t, rec.QuestionResult)
	assert.NotEmpty(t, rec.QuestionResult.Questions)

	failed := out.FilteredOut[0]
	assert.Equal(t, "L-2", failed.Listing.ID)
	assert.Equal(t, domain.FilterFail, failed.FilterResult.Status)
	// Failed listings are not scored but still get risk and questions.
	assert.Nil(t, failed.ScoreResult)
	assert.NotNil(t, failed.RiskResult)
	assert.NotNil(t, failed.QuestionResult)
}

func TestRun_SearchFailureIsFatal(t *testing.T) {
	t.Parallel()

	boom := errors.New("source unavailable")
	o := newTestOrchestrator(t, &stubSearcher{err: boom})

	_, err := o.Run(context.Background(), &domain.SearchCriteria{})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestRun_UnknownMustConditionRejected(t *testing.T) {
	t.Parallel()

	o := newTestOrchestrator(t, &stubSearcher{})

	_, err := o.Run(context.Background(), &domain.SearchCriteria{
		MustConditions: []string{"max_price"},
	})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestRun_EmptySearchResult(t *testing.T) {
	t.Parallel()

	o := newTestOrchestrator(t, &stubSearcher{})

	out, err := o.Run(context.Background(), &domain.SearchCriteria{})
	require.NoError(t, err)
	assert.Equal(t, 0, out.TotalCount)
	assert.Contains(t, out.Summary, "조건에 맞는 매물이 없습니다")
}

func TestRun_DuplicateListingsDropped(t *testing.T) {
	t.Parallel()

	searcher := &stubSearcher{listings: []domain.Listing{
		listing("L-1", 15000),
		listing("L-1", 16000),
	}}
	o := newTestOrchestrator(t, searcher)

	out, err := o.Run(context.Background(), &domain.SearchCriteria{})
	require.NoError(t, err)
	assert.Equal(t, 1, out.TotalCount)
	// First occurrence wins.
	require.Len(t, out.Recommendations, 1)
	assert.Equal(t, intPtr(15000), out.Recommendations[0].Listing.Deposit)
}

func TestRun_EnrichFailureIsRecordedNotFatal(t *testing.T) {
	t.Parallel()

	searcher := &stubSearcher{listings: []domain.Listing{listing("L-1", 15000)}}
	o := newTestOrchestrator(t, searcher,
		WithEnricher(&stubEnricher{err: errors.New("molit down")}))

	out, err := o.Run(context.Background(), &domain.SearchCriteria{})
	require.NoError(t, err)
	require.Len(t, out.Recommendations, 1)
	require.NotEmpty(t, out.Recommendations[0].Errors)
	assert.Contains(t, out.Recommendations[0].Errors[0], "enrich")
}

func TestRun_EnrichAnnotatesDescription(t *testing.T) {
	t.Parallel()

	l := listing("L-1", 15000)
	searcher := &stubSearcher{listings: []domain.Listing{l}}
	o := newTestOrchestrator(t, searcher,
		WithEnricher(&stubEnricher{note: "\n\n[전세가율] 85.0% 위험"}))

	out, err := o.Run(context.Background(), &domain.SearchCriteria{})
	require.NoError(t, err)
	require.Len(t, out.Recommendations, 1)

	rec := out.Recommendations[0]
	assert.Contains(t, rec.Listing.Description, "전세가율")
	// The risk engine sees the enrichment note.
	require.NotNil(t, rec.RiskResult)
	assert.GreaterOrEqual(t, rec.RiskResult.RiskScore, 25)
}

func commuteListing(id string) domain.Listing {
	l := listing(id, 15000)
	lat, lng := 37.54, 126.95
	l.Latitude, l.Longitude = &lat, &lng
	return l
}

func TestRun_CommuteOverBoundMustFails(t *testing.T) {
	t.Parallel()

	searcher := &stubSearcher{listings: []domain.Listing{commuteListing("L-1")}}
	o := newTestOrchestrator(t, searcher, WithCommuteLookup(&stubCommute{minutes: 55}))

	criteria := &domain.SearchCriteria{
		CommuteDestination: "강남역",
		MaxCommuteMinutes:  intPtr(40),
		MustConditions:     []string{"max_commute_minutes"},
	}

	out, err := o.Run(context.Background(), criteria)
	require.NoError(t, err)
	require.Len(t, out.FilteredOut, 1)

	fr := out.FilteredOut[0].FilterResult
	require.NotNil(t, fr)
	assert.Equal(t, domain.FilterFail, fr.Status)
	assert.Contains(t, fr.FailedConditions, "max_commute_minutes")
	assert.Equal(t, "통근 시간 55분 > 상한 40분", fr.FailureReasons["max_commute_minutes"])
	assert.Contains(t, out.FilteredOut[0].Listing.Description, "강남역까지 약 55분")
}

func TestRun_CommuteOverBoundNonMustIsPartial(t *testing.T) {
	t.Parallel()

	searcher := &stubSearcher{listings: []domain.Listing{commuteListing("L-1")}}
	o := newTestOrchestrator(t, searcher, WithCommuteLookup(&stubCommute{minutes: 55}))

	criteria := &domain.SearchCriteria{
		CommuteDestination: "강남역",
		MaxCommuteMinutes:  intPtr(40),
	}

	out, err := o.Run(context.Background(), criteria)
	require.NoError(t, err)
	require.Len(t, out.Recommendations, 1)
	assert.Equal(t, domain.FilterPartial, out.Recommendations[0].FilterResult.Status)
}

func TestRun_CommuteLookupFailurePassesListing(t *testing.T) {
	t.Parallel()

	searcher := &stubSearcher{listings: []domain.Listing{commuteListing("L-1")}}
	o := newTestOrchestrator(t, searcher,
		WithCommuteLookup(&stubCommute{err: errors.New("odsay down")}))

	criteria := &domain.SearchCriteria{
		CommuteDestination: "강남역",
		MaxCommuteMinutes:  intPtr(40),
		MustConditions:     []string{"max_commute_minutes"},
	}

	out, err := o.Run(context.Background(), criteria)
	require.NoError(t, err)
	require.Len(t, out.Recommendations, 1)
	assert.Contains(t, out.Recommendations[0].Errors[0], "commute")
}

func TestRun_NormalizationFeedsFilter(t *testing.T) {
	t.Parallel()

	l := listing("L-1", 15000)
	l.Address = "서울 마포구 공덕동 123"
	searcher := &stubSearcher{listings: []domain.Listing{l}}
	o := newTestOrchestrator(t, searcher)

	criteria := &domain.SearchCriteria{
		Regions:        []string{"마포구"},
		MustConditions: []string{"regions"},
	}

	out, err := o.Run(context.Background(), criteria)
	require.NoError(t, err)
	require.Len(t, out.Recommendations, 1)
	assert.Equal(t, "마포구", out.Recommendations[0].Listing.RegionGu)
	assert.Contains(t, out.Recommendations[0].FilterResult.PassedConditions, "regions")
}
