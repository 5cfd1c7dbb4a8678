// Package report assembles per-listing stage results into the final ranked
// report with a summary and aggregate insights.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	domain "github.com/dohyunlee/proplens/pkg/types"
)

// highRiskScore is the risk score at or above which a recommendation is
// flagged in the insights.
const highRiskScore = 50

// largeComplexHouseholds marks a complex as "대단지" in the insights.
const largeComplexHouseholds = 1000

// SummaryPolisher optionally rewrites the rule-based summary. Implemented by
// the LLM runner; a polish failure falls back to the rule-based text.
type SummaryPolisher interface {
	PolishSummary(ctx context.Context, report *domain.Report) (string, error)
}

// Assembler builds Reports. Safe for concurrent use.
type Assembler struct {
	logger   *slog.Logger
	polisher SummaryPolisher
	now      func() time.Time
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithPolisher installs an optional summary polisher.
func WithPolisher(p SummaryPolisher) Option {
	return func(a *Assembler) { a.polisher = p }
}

// WithClock overrides the report timestamp source for tests.
func WithClock(now func() time.Time) Option {
	return func(a *Assembler) { a.now = now }
}

// NewAssembler creates an Assembler.
func NewAssembler(logger *slog.Logger, opts ...Option) *Assembler {
	a := &Assembler{logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assemble partitions the listing reports, ranks the recommendations, and
// derives the summary and insights. Input order does not matter; the output
// order is deterministic.
func (a *Assembler) Assemble(ctx context.Context, reports []domain.ListingReport) domain.Report {
	var recommendations, filteredOut []domain.ListingReport
	for _, lr := range reports {
		if excluded(&lr) {
			filteredOut = append(filteredOut, lr)
		} else {
			recommendations = append(recommendations, lr)
		}
	}

	slices.SortFunc(recommendations, func(x, y domain.ListingReport) int {
		switch {
		case domain.Less(&x, &y):
			return -1
		case domain.Less(&y, &x):
			return 1
		default:
			return 0
		}
	})
	for i := range recommendations {
		if sr := recommendations[i].ScoreResult; sr != nil {
			rank := i + 1
			sr.Rank = &rank
		}
	}

	out := domain.Report{
		ID:              uuid.NewString(),
		CreatedAt:       a.now(),
		TotalCount:      len(reports),
		PassedCount:     len(recommendations),
		Recommendations: recommendations,
		FilteredOut:     filteredOut,
		Insights:        insights(recommendations, filteredOut),
	}
	out.Summary = summarize(recommendations, filteredOut)

	if a.polisher != nil {
		polished, err := a.polisher.PolishSummary(ctx, &out)
		if err != nil {
			a.logger.Warn("summary polish failed, keeping rule-based summary", "error", err)
		} else if polished != "" {
			out.Summary = polished
		}
	}

	a.logger.Info("report assembled",
		"report_id", out.ID,
		"total", out.TotalCount,
		"passed", out.PassedCount)
	return out
}

// excluded reports whether the listing leaves the recommendation list.
// Only a listing that was filtered, passed, and scored may be recommended.
func excluded(lr *domain.ListingReport) bool {
	if lr.FilterResult == nil || lr.FilterResult.Status == domain.FilterFail {
		return true
	}
	return lr.ScoreResult == nil
}

func summarize(passed, failed []domain.ListingReport) string {
	total := len(passed) + len(failed)
	if len(passed) == 0 {
		return fmt.Sprintf("분석한 %d개 매물 중 조건에 맞는 매물이 없습니다. 조건을 완화해 보세요.", total)
	}

	top := passed[0]
	topName := top.Listing.Title
	if topName == "" {
		topName = top.Listing.ComplexName
	}
	if topName == "" {
		topName = "1순위 매물"
	}
	topScore := 0.0
	if top.ScoreResult != nil {
		topScore = top.ScoreResult.TotalScore
	}

	summary := fmt.Sprintf("%d개 매물 중 %d개가 조건에 부합합니다. '%s'이(가) %.1f점으로 가장 추천됩니다.",
		total, len(passed), topName, topScore)

	if reason := firstFailureReason(failed); reason != "" {
		summary += fmt.Sprintf(" 탈락 매물의 주요 사유: %s", reason)
	}
	return summary
}

// firstFailureReason returns the first failure reason among the first three
// filtered-out listings, in constraint evaluation order.
func firstFailureReason(failed []domain.ListingReport) string {
	for _, lr := range failed[:min(3, len(failed))] {
		fr := lr.FilterResult
		if fr == nil {
			continue
		}
		for _, name := range fr.FailedConditions {
			if reason := fr.FailureReasons[name]; reason != "" {
				return reason
			}
		}
	}
	return ""
}

func insights(passed, failed []domain.ListingReport) []string {
	var out []string

	var deposits []int
	for _, lr := range passed {
		if lr.Listing.Deposit != nil {
			deposits = append(deposits, *lr.Listing.Deposit)
		}
	}
	if len(deposits) > 0 {
		sum, minDeposit := 0, deposits[0]
		for _, d := range deposits {
			sum += d
			minDeposit = min(minDeposit, d)
		}
		avg := float64(sum) / float64(len(deposits))
		out = append(out, fmt.Sprintf("조건 충족 매물의 평균 보증금: %.1f억원 (최저 %.1f억원)",
			avg/10000, float64(minDeposit)/10000))
	}

	largeComplex := 0
	for _, lr := range passed {
		if lr.Listing.Households != nil && *lr.Listing.Households >= largeComplexHouseholds {
			largeComplex++
		}
	}
	if largeComplex > 0 {
		out = append(out, fmt.Sprintf("1,000세대 이상 대단지: %d개", largeComplex))
	}

	highRisk := 0
	for _, lr := range passed {
		if lr.RiskResult != nil && lr.RiskResult.RiskScore >= highRiskScore {
			highRisk++
		}
	}
	if highRisk > 0 {
		out = append(out, fmt.Sprintf("리스크 점수 50점 이상 매물 %d개 - 주의 필요", highRisk))
	}

	if name, count := dominantFailure(failed); name != "" {
		out = append(out, fmt.Sprintf("가장 많은 탈락 사유: %s (%d건)", name, count))
	}

	return out
}

// dominantFailure returns the most frequent failed constraint among the
// filtered-out listings, ties broken by name for determinism.
func dominantFailure(failed []domain.ListingReport) (string, int) {
	counts := map[string]int{}
	for _, lr := range failed {
		if lr.FilterResult == nil {
			continue
		}
		for _, name := range lr.FilterResult.FailedConditions {
			counts[name]++
		}
	}

	best, bestCount := "", 0
	for name, count := range counts {
		if count > bestCount || (count == bestCount && name < best) {
			best, bestCount = name, count
		}
	}
	return best, bestCount
}
