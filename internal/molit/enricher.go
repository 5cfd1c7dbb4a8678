package molit

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/dohyunlee/proplens/internal/naver"
	domain "github.com/dohyunlee/proplens/pkg/types"
)

// Listings without an area still get a market comparison against the most
// common apartment size.
const fallbackAreaSqm = 84.0

// Enricher annotates listings with 실거래가 analysis. The annotations are
// appended to the description so the downstream risk patterns (전세가율,
// 깡통전세) can match on them. It implements the pipeline's enrich
// collaborator.
type Enricher struct {
	client *Client
	log    *slog.Logger
}

// NewEnricher wraps a Client as a pipeline enrich collaborator.
func NewEnricher(client *Client, log *slog.Logger) *Enricher {
	return &Enricher{client: client, log: log.With("agent", "enrich")}
}

// Enrich returns a copy of the listing with price-analysis notes appended to
// its description. Listings without region, complex name or deposit are
// returned unchanged.
func (e *Enricher) Enrich(ctx context.Context, l domain.Listing) (domain.Listing, error) {
	if l.RegionGu == "" || l.Deposit == nil || *l.Deposit == 0 {
		return l, nil
	}
	sigungu, ok := naver.SigunguCode(l.RegionGu)
	if !ok {
		return l, nil
	}
	complexName := l.ComplexName
	if complexName == "" {
		complexName = l.Title
	}
	if complexName == "" {
		return l, nil
	}

	area := fallbackAreaSqm
	if l.AreaSqm != nil {
		area = *l.AreaSqm
	}
	deposit := *l.Deposit

	analysis, err := e.client.AnalyzeComplex(ctx, sigungu, complexName, area, deposit)
	if err != nil {
		return l, fmt.Errorf("price analysis for %s: %w", l.ID, err)
	}

	notes := priceNotes(analysis, deposit)
	if len(notes) == 0 {
		return l, nil
	}
	l.Description = strings.TrimSpace(l.Description + "\n\n" + strings.Join(notes, "\n"))
	return l, nil
}

// priceNotes renders the analysis into the description annotations the risk
// patterns key on.
func priceNotes(analysis *PriceAnalysis, deposit int) []string {
	var notes []string

	if rent := analysis.Rent; rent != nil && rent.Avg > 0 {
		diff := float64(deposit-rent.Avg) / float64(rent.Avg) * 100
		note := fmt.Sprintf("[전세 시세] 최근 6개월 평균: %s만원", formatWon(rent.Avg))
		switch {
		case diff < -5:
			note += fmt.Sprintf(" → 현재 매물 %.1f%% 저렴 ✅", math.Abs(diff))
		case diff > 5:
			note += fmt.Sprintf(" → 현재 매물 %.1f%% 비쌈 ⚠️", diff)
		default:
			note += " → 시세 수준"
		}
		notes = append(notes, note)
	}

	if trade := analysis.Trade; trade != nil {
		notes = append(notes, fmt.Sprintf("[매매 시세] 최근 6개월 평균: %s만원", formatWon(trade.Avg)))
	}

	if jr := analysis.JeonseRatio; jr != nil {
		emoji := map[string]string{
			"안전": "🟢",
			"보통": "🟡",
			"주의": "🟠",
			"위험": "🔴",
		}[jr.RiskLevel]
		if emoji == "" {
			emoji = "⚪"
		}
		note := fmt.Sprintf("[전세가율] %.1f%% %s %s", jr.Ratio, emoji, jr.RiskLevel)
		switch jr.RiskLevel {
		case "위험":
			note += " ⚠️ 깡통전세 위험!"
		case "주의":
			note += " (주의 필요)"
		}
		notes = append(notes, note)
	}

	return notes
}

// formatWon groups digits by thousands: 45000 → "45,000".
func formatWon(v int) string {
	s := strconv.Itoa(v)
	if v < 0 {
		s = s[1:]
	}
	var b strings.Builder
	if v < 0 {
		b.WriteByte('-')
	}
	for i, d := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}
	return b.String()
}
