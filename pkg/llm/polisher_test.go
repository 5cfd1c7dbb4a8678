package llm_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dohyunlee/proplens/pkg/llm"
	domain "github.com/dohyunlee/proplens/pkg/types"
)

type stubBackend struct {
	gotReq llm.GenerateRequest
	resp   llm.GenerateResponse
	err    error
}

func (s *stubBackend) Generate(_ context.Context, req llm.GenerateRequest) (llm.GenerateResponse, error) {
	s.gotReq = req
	return s.resp, s.err
}

func (*stubBackend) Name() string { return "stub" }

func sampleReport() *domain.Report {
	return &domain.Report{
		TotalCount:  10,
		PassedCount: 3,
		Summary:     "총 10개 중 3개 매물이 조건에 부합합니다.",
		Insights:    []string{"평균 보증금: 4억 2,000만원"},
		Recommendations: []domain.ListingReport{
			{
				Listing:     domain.Listing{ID: "naver_1", Title: "마포래미안푸르지오 전세"},
				ScoreResult: &domain.ScoredListing{ListingID: "naver_1", TotalScore: 82.5},
			},
		},
	}
}

func TestPolisher_PolishSummary(t *testing.T) {
	t.Parallel()

	backend := &stubBackend{resp: llm.GenerateResponse{Content: "  다듬어진 요약입니다.\n"}}
	p := llm.NewPolisher(backend)

	got, err := p.PolishSummary(context.Background(), sampleReport())
	require.NoError(t, err)
	assert.Equal(t, "다듬어진 요약입니다.", got)

	assert.Contains(t, backend.gotReq.Prompt, "전체 10개 매물 중 3개가 조건을 통과했습니다.")
	assert.Contains(t, backend.gotReq.Prompt, "기존 요약: 총 10개 중 3개 매물이 조건에 부합합니다.")
	assert.Contains(t, backend.gotReq.Prompt, "평균 보증금: 4억 2,000만원")
	assert.Contains(t, backend.gotReq.Prompt, "1. 마포래미안푸르지오 전세 (82.5점)")
	assert.NotEmpty(t, backend.gotReq.SystemMsg)
}

func TestPolisher_BackendError(t *testing.T) {
	t.Parallel()

	p := llm.NewPolisher(&stubBackend{err: errors.New("connection refused")})

	_, err := p.PolishSummary(context.Background(), sampleReport())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "polishing summary via stub")
}
