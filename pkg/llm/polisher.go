package llm

import (
	"context"
	"fmt"
	"strings"

	domain "github.com/dohyunlee/proplens/pkg/types"
)

const polisherSystemMsg = "당신은 부동산 매물 분석 리포트를 다듬는 어시스턴트입니다. " +
	"주어진 통계와 요약을 바탕으로 자연스러운 한국어 요약을 2~3문장으로 작성하세요. " +
	"새로운 사실을 추가하거나 수치를 바꾸지 마세요."

// maxPromptListings bounds how many recommendations are quoted in the prompt.
const maxPromptListings = 5

// Polisher rewrites the rule-based report summary through an LLM backend.
// It satisfies the report assembler's SummaryPolisher interface.
type Polisher struct {
	backend Backend
}

// NewPolisher creates a Polisher on top of the given backend.
func NewPolisher(backend Backend) *Polisher {
	return &Polisher{backend: backend}
}

// PolishSummary asks the backend for a rewritten summary. The caller keeps
// the rule-based summary on error or empty output.
func (p *Polisher) PolishSummary(ctx context.Context, report *domain.Report) (string, error) {
	resp, err := p.backend.Generate(ctx, GenerateRequest{
		Prompt:      buildSummaryPrompt(report),
		SystemMsg:   polisherSystemMsg,
		Temperature: 0.3,
		MaxTokens:   300,
	})
	if err != nil {
		return "", fmt.Errorf("polishing summary via %s: %w", p.backend.Name(), err)
	}
	return strings.TrimSpace(resp.Content), nil
}

func buildSummaryPrompt(report *domain.Report) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "전체 %d개 매물 중 %d개가 조건을 통과했습니다.\n",
		report.TotalCount, report.PassedCount)
	fmt.Fprintf(&sb, "기존 요약: %s\n", report.Summary)

	if len(report.Insights) > 0 {
		sb.WriteString("주요 인사이트:\n")
		for _, insight := range report.Insights {
			fmt.Fprintf(&sb, "- %s\n", insight)
		}
	}

	if len(report.Recommendations) > 0 {
		sb.WriteString("상위 추천 매물:\n")
		for i, rec := range report.Recommendations {
			if i >= maxPromptListings {
				break
			}
			score := 0.0
			if rec.ScoreResult != nil {
				score = rec.ScoreResult.TotalScore
			}
			fmt.Fprintf(&sb, "%d. %s (%.1f점)\n", i+1, rec.Listing.Title, score)
		}
	}

	sb.WriteString("위 내용을 바탕으로 요약을 다시 작성하세요.")
	return sb.String()
}
