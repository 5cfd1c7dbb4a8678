package naver

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/dohyunlee/proplens/internal/cache"
	domain "github.com/dohyunlee/proplens/pkg/types"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, handler http.Handler, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	opts = append([]Option{
		WithBaseURL(srv.URL),
		WithRateLimiter(rate.NewLimiter(rate.Inf, 1)),
	}, opts...)
	return NewClient(quietLogger(), opts...)
}

const articlePage = `{
	"code": "success",
	"more": false,
	"body": [
		{
			"atclNo": "2501001",
			"atclNm": "마포래미안푸르지오",
			"tradTpNm": "전세",
			"rletTpNm": "아파트",
			"prc": 45000,
			"rentPrc": 0,
			"spc1": 84.9,
			"spc2": 59.9,
			"flrInfo": "7/15",
			"direction": "남향",
			"atclFetrDesc": "역세권 올수리 매물",
			"lat": 37.5538,
			"lng": 126.9084,
			"tagList": ["25년이상", "역세권"],
			"cortarNo": "1144012000"
		},
		{
			"atclNo": "",
			"atclNm": "무시되는 매물"
		}
	]
}`

const emptyComplexPage = `{"more": false, "result": []}`

func jeonseCriteria(regions ...string) *domain.SearchCriteria {
	maxDeposit := 50000
	return &domain.SearchCriteria{
		TransactionType: domain.TransactionJeonse,
		Regions:         regions,
		MaxDeposit:      &maxDeposit,
	}
}

func TestClient_Search(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/cluster/ajax/articleList", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "B1", r.URL.Query().Get("tradTpCd"))
		assert.Equal(t, "1144000000", r.URL.Query().Get("cortarNo"))
		assert.Equal(t, "50000", r.URL.Query().Get("dprcMax"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(articlePage))
	})
	mux.HandleFunc("/cluster/ajax/complexList", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"more": false,
			"result": [
				{"hscpNo": "900", "hscpNm": "마포 래미안 푸르지오", "totHsehCnt": 3885, "useAprvYmd": "20141231"}
			]
		}`))
	})

	c := newTestClient(t, mux)
	listings, err := c.Search(context.Background(), jeonseCriteria("마포구"))
	require.NoError(t, err)
	require.Len(t, listings, 1, "article without id must be dropped")

	l := listings[0]
	assert.Equal(t, "naver_2501001", l.ID)
	assert.Equal(t, domain.SourceNaver, l.Source)
	assert.Equal(t, "마포래미안푸르지오", l.ComplexName)
	assert.Equal(t, "마포구", l.RegionGu)
	require.NotNil(t, l.TransactionType)
	assert.Equal(t, domain.TransactionJeonse, *l.TransactionType)
	require.NotNil(t, l.Deposit)
	assert.Equal(t, 45000, *l.Deposit)
	require.NotNil(t, l.AreaSqm)
	assert.InDelta(t, 59.9, *l.AreaSqm, 0.001)
	require.NotNil(t, l.AreaPyeong)
	assert.InDelta(t, 18.1, *l.AreaPyeong, 0.001)
	require.NotNil(t, l.Floor)
	assert.Equal(t, 7, *l.Floor)
	require.NotNil(t, l.TotalFloors)
	assert.Equal(t, 15, *l.TotalFloors)
	assert.Equal(t, []string{"25년이상", "역세권"}, l.Options)

	// Backfilled from the complex list with tolerant name matching.
	require.NotNil(t, l.Households)
	assert.Equal(t, 3885, *l.Households)
	require.NotNil(t, l.BuiltYear)
	assert.Equal(t, 2014, *l.BuiltYear)
}

func TestClient_Search_UnknownRegion(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.NewServeMux())
	_, err := c.Search(context.Background(), jeonseCriteria("아틀란티스"))
	require.ErrorIs(t, err, ErrSourceUnavailable)
}

func TestClient_Search_BlockDetection(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "blocking status code",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
			},
		},
		{
			name: "captcha page instead of JSON",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				_, _ = w.Write([]byte("<html>확인이 필요합니다</html>"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := newTestClient(t, tt.handler)
			_, err := c.Search(context.Background(), jeonseCriteria("마포구"))
			require.ErrorIs(t, err, ErrSourceBlocked)

			// The client refuses further requests once blocked.
			_, err = c.Search(context.Background(), jeonseCriteria("강남구"))
			require.ErrorIs(t, err, ErrSourceBlocked)
		})
	}
}

func TestClient_Search_ServerErrorIsUnavailable(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	_, err := c.Search(context.Background(), jeonseCriteria("마포구"))
	require.ErrorIs(t, err, ErrSourceUnavailable)
}

func TestClient_Search_CacheSkipsRequests(t *testing.T) {
	t.Parallel()

	requests := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/cluster/ajax/articleList", func(w http.ResponseWriter, _ *http.Request) {
		requests++
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(articlePage))
	})
	mux.HandleFunc("/cluster/ajax/complexList", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(emptyComplexPage))
	})

	fc, err := cache.NewFileCache(t.TempDir(), "naver-test", quietLogger())
	require.NoError(t, err)

	c := newTestClient(t, mux, WithCache(fc))

	first, err := c.Search(context.Background(), jeonseCriteria("마포구"))
	require.NoError(t, err)
	articleRequests := requests

	second, err := c.Search(context.Background(), jeonseCriteria("마포구"))
	require.NoError(t, err)

	assert.Equal(t, articleRequests, requests, "second search must be served from cache")
	assert.Equal(t, first, second)
}

func TestClient_Search_Concurrent(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/cluster/ajax/articleList", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(articlePage))
	})
	mux.HandleFunc("/cluster/ajax/complexList", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"more": false,
			"result": [
				{"hscpNo": "900", "hscpNm": "마포래미안푸르지오", "totHsehCnt": 3885, "useAprvYmd": "20141231"}
			]
		}`))
	})

	// One client shared by the HTTP server and the scheduler at runtime, so
	// simultaneous searches hit the memoized complex list together.
	c := newTestClient(t, mux)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.Search(context.Background(), jeonseCriteria("마포구"))
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
}

func TestClient_Search_Pagination(t *testing.T) {
	t.Parallel()

	pages := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/cluster/ajax/articleList", func(w http.ResponseWriter, r *http.Request) {
		pages++
		w.Header().Set("Content-Type", "application/json")
		// Every page claims more data; the client must stop at its page cap.
		_, _ = w.Write([]byte(`{
			"code": "success",
			"more": true,
			"body": [{"atclNo": "` + r.URL.Query().Get("page") + `", "atclNm": "단지"}]
		}`))
	})
	mux.HandleFunc("/cluster/ajax/complexList", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(emptyComplexPage))
	})

	c := newTestClient(t, mux)
	listings, err := c.Search(context.Background(), jeonseCriteria("마포구"))
	require.NoError(t, err)

	assert.Equal(t, 5, pages)
	assert.Len(t, listings, 5)
}
