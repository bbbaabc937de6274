package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fairgate/internal/quote"
	dErrors "fairgate/pkg/domain-errors"
	"fairgate/pkg/testutil"
)

type stubService struct {
	resp *quote.Response
	err  error
	last quote.Request
}

func (s *stubService) Issue(_ context.Context, req quote.Request) (*quote.Response, error) {
	s.last = req
	if s.err != nil {
		return nil, s.err
	}
	return s.resp, nil
}

func (s *stubService) OraclePubkeyHex() string { return "aa11" }

func newRouter(svc Service) http.Handler {
	r := chi.NewRouter()
	New(svc, slog.Default()).Register(r)
	return r
}

func TestHandleScore(t *testing.T) {
	t.Run("success returns the quote", func(t *testing.T) {
		svc := &stubService{resp: &quote.Response{DignityScore: 90, UniqKey: "uk"}}
		router := newRouter(svc)

		req := testutil.NewJSONRequest(t, http.MethodPost, "/shield/score", map[string]string{
			"identity": strings.Repeat("ab", 32),
			"mode":     "guest",
		})
		rec := testutil.DoRequest(router, req)

		require.Equal(t, http.StatusOK, rec.Code)
		got := testutil.UnmarshalResponse[quote.Response](t, rec)
		assert.Equal(t, 90, got.DignityScore)
		assert.Equal(t, "guest", svc.last.Mode)
	})

	t.Run("malformed json is a 400", func(t *testing.T) {
		router := newRouter(&stubService{})

		req := testutil.NewRequestWithBody(t, http.MethodPost, "/shield/score", "{")
		rec := testutil.DoRequest(router, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("domain errors map to their status", func(t *testing.T) {
		tests := []struct {
			name       string
			err        error
			wantStatus int
		}{
			{"validation", dErrors.New(dErrors.CodeValidation, "bad identity"), http.StatusBadRequest},
			{"ownership", dErrors.New(dErrors.CodeOwnership, "owner mismatch"), http.StatusBadRequest},
			{"replay", dErrors.New(dErrors.CodeReplay, "already used"), http.StatusConflict},
			{"rate limited", dErrors.New(dErrors.CodeRateLimited, "slow down").WithRetryAfter(30), http.StatusTooManyRequests},
			{"backend down", dErrors.New(dErrors.CodeBackendUnavailable, "redis down"), http.StatusServiceUnavailable},
		}
		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				router := newRouter(&stubService{err: tc.err})

				req := testutil.NewRequestWithBody(t, http.MethodPost, "/shield/score", `{}`)
				rec := testutil.DoRequest(router, req)

				assert.Equal(t, tc.wantStatus, rec.Code)
			})
		}
	})

	t.Run("rate limited carries retry-after", func(t *testing.T) {
		err := dErrors.New(dErrors.CodeRateLimited, "slow down").WithRetryAfter(30)
		router := newRouter(&stubService{err: err})

		req := testutil.NewRequestWithBody(t, http.MethodPost, "/shield/score", `{}`)
		rec := testutil.DoRequest(router, req)

		assert.Equal(t, "30", rec.Header().Get("Retry-After"))
	})
}

func TestHandleOraclePubkey(t *testing.T) {
	router := newRouter(&stubService{})

	req := testutil.NewRequest(t, http.MethodGet, "/shield/oracle-pubkey")
	rec := testutil.DoRequest(router, req)

	require.Equal(t, http.StatusOK, rec.Code)
	got := testutil.UnmarshalResponse[map[string]string](t, rec)
	assert.Equal(t, "aa11", (*got)["oracle_pubkey"])
}
