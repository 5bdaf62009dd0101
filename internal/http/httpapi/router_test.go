package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"contentgen/internal/domain"
	"contentgen/internal/http/handlers"
	"contentgen/internal/infra"
	"contentgen/internal/jobs"
	"contentgen/internal/middleware"
	"contentgen/pkg/zip"
)

type stubJobs struct{ balanceUser string }

func (s *stubJobs) Create(context.Context, string, jobs.CreateInput) (*domain.Job, error) {
	return nil, domain.ErrInvalidJob
}
func (s *stubJobs) Get(context.Context, string, string) (*domain.Job, error) {
	return nil, domain.ErrNotFound
}
func (s *stubJobs) Artifacts(context.Context, string, string) ([]domain.Artifact, error) {
	return nil, domain.ErrNotFound
}
func (s *stubJobs) Export(context.Context, string, string) ([]zip.Entry, error) {
	return nil, domain.ErrNotFound
}
func (s *stubJobs) Balance(_ context.Context, userID string) (int64, error) {
	s.balanceUser = userID
	return 7, nil
}

func TestRouterAuthBoundary(t *testing.T) {
	const secret = "test-secret"
	svc := &stubJobs{}
	h := NewRouter(handlers.NewApp(svc, nil, infra.NopLogger()), Options{
		JWT:    middleware.JWTConfig{Secret: secret},
		Logger: infra.NopLogger(),
	})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/healthz", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.NotEmpty(t, rr.Header().Get("X-Request-ID"))

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/credits", nil))
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	token, err := middleware.SignJWT(secret, middleware.TokenClaims{
		Sub: "user-1",
		Exp: time.Now().Add(time.Hour).Unix(),
	})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/v1/credits", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "user-1", svc.balanceUser)
}

func TestRouterOpenAPI(t *testing.T) {
	h := NewRouter(handlers.NewApp(&stubJobs{}, nil, infra.NopLogger()), Options{Logger: infra.NopLogger()})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/openapi.json", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "/v1/jobs/{job_id}/export")
}

func TestRouterOpenAPIConditionalGet(t *testing.T) {
	h := NewRouter(handlers.NewApp(&stubJobs{}, nil, infra.NopLogger()), Options{Logger: infra.NopLogger()})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/openapi.json", nil))
	etag := rr.Header().Get("ETag")
	require.NotEmpty(t, etag)

	req := httptest.NewRequest(http.MethodGet, "/v1/openapi.json", nil)
	req.Header.Set("If-None-Match", etag)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusNotModified, rr.Code)
	require.Zero(t, rr.Body.Len())
}
