package profile

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/delordemm1/matrimony-api/internal/middleware"
	"github.com/delordemm1/matrimony-api/internal/ratelimit"
	"github.com/delordemm1/matrimony-api/internal/session/sessiontest"
	"github.com/delordemm1/matrimony-api/internal/token"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiFixture struct {
	api    humatest.TestAPI
	svc    Service
	tokens *token.Service
}

func newTestAPI(t *testing.T) *apiFixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	limiter := ratelimit.NewRedisLimiter(client, logger, nil)

	tokens, err := token.NewService(token.Config{
		AccessSecret:  []byte("access-secret"),
		RefreshSecret: []byte("refresh-secret"),
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
	}, sessiontest.NewStore(), logger)
	require.NoError(t, err)

	svc := NewService(newMemRepo(), limiter, testConfig(), logger)
	_, api := humatest.New(t)
	NewHandler(svc, logger, middleware.BearerAuth(tokens, logger)).RegisterRoutes(api)
	return &apiFixture{api: api, svc: svc, tokens: tokens}
}

func (f *apiFixture) member(t *testing.T, name string) (string, string) {
	t.Helper()
	id := uuid.NewString()
	require.NoError(t, f.svc.CreateStub(context.Background(), id, name, ""))
	access, _, err := f.tokens.IssueAccessToken(id, "member")
	require.NoError(t, err)
	return id, "Authorization: Bearer " + access
}

func TestHandler_ViewProfile(t *testing.T) {
	f := newTestAPI(t)
	_, viewer := f.member(t, "Ravi")
	target, _ := f.member(t, "Asha")

	for range 3 {
		resp := f.api.Get("/profiles/"+target, viewer)
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
		var body struct {
			AccountID   string `json:"accountId"`
			DisplayName string `json:"displayName"`
		}
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
		assert.Equal(t, target, body.AccountID)
		assert.Equal(t, "Asha", body.DisplayName)
	}

	limited := f.api.Get("/profiles/"+target, viewer)
	require.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.NotEmpty(t, limited.Header().Get("Retry-After"))
	var problem struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(limited.Body.Bytes(), &problem))
	assert.Equal(t, "ErrRateLimitExceeded", problem.Code)

	anon := f.api.Get("/profiles/" + target)
	assert.Equal(t, http.StatusUnauthorized, anon.Code)
}

func TestHandler_ViewUnknownProfile(t *testing.T) {
	f := newTestAPI(t)
	_, viewer := f.member(t, "Ravi")

	resp := f.api.Get("/profiles/"+uuid.NewString(), viewer)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestHandler_SendInterest(t *testing.T) {
	f := newTestAPI(t)
	sender, auth := f.member(t, "Ravi")
	first, _ := f.member(t, "Asha")
	second, _ := f.member(t, "Meera")

	resp := f.api.Post("/profiles/"+first+"/interest", auth)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	repeat := f.api.Post("/profiles/"+first+"/interest", auth)
	require.Equal(t, http.StatusOK, repeat.Code, repeat.Body.String())
	var body struct {
		Created bool `json:"created"`
	}
	require.NoError(t, json.Unmarshal(repeat.Body.Bytes(), &body))
	assert.False(t, body.Created)

	limited := f.api.Post("/profiles/"+second+"/interest", auth)
	require.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "86400", limited.Header().Get("Retry-After"))

	self := f.api.Post("/profiles/"+sender+"/interest", auth)
	assert.Equal(t, http.StatusBadRequest, self.Code)
}
