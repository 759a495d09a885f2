package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"go.uber.org/zap"

	"match-service/internal/client"
	"match-service/internal/model"
	redisrepo "match-service/internal/repository/redis"
)

func newTestHandler(t *testing.T) (*OpsHandler, *client.RedisClient) {
	t.Helper()
	srv := miniredis.RunT(t)
	rc := client.NewRedisClientForAddr(srv.Addr())
	t.Cleanup(func() { rc.Close() })

	h := NewOpsHandler(
		rc,
		redisrepo.NewWaitingPool(rc),
		redisrepo.NewSessionStore(rc),
		nil,
		zap.NewNop(),
	)
	return h, rc
}

func TestHealthCheck(t *testing.T) {
	t.Parallel()
	h, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "healthy" {
		t.Errorf("status field = %q, want healthy", body["status"])
	}
}

func TestGetStats(t *testing.T) {
	t.Parallel()
	h, rc := newTestHandler(t)
	ctx := context.Background()

	pool := redisrepo.NewWaitingPool(rc)
	sessions := redisrepo.NewSessionStore(rc)
	if err := pool.Enqueue(ctx, 1, model.AttributeMale, "a"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := pool.Enqueue(ctx, 2, model.AttributeMale, "b"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := pool.Enqueue(ctx, 3, model.AttributeFemale, "c"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := sessions.CreatePair(ctx, 10, 11); err != nil {
		t.Fatalf("create pair: %v", err)
	}

	rec := httptest.NewRecorder()
	h.GetStats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Success bool          `json:"success"`
		Data    StatsResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if !body.Success {
		t.Error("success = false")
	}
	if body.Data.WaitingMale != 2 || body.Data.WaitingFemale != 1 {
		t.Errorf("queue depths = %d/%d, want 2/1", body.Data.WaitingMale, body.Data.WaitingFemale)
	}
	if body.Data.ActiveSessions != 1 {
		t.Errorf("active sessions = %d, want 1", body.Data.ActiveSessions)
	}
}

func TestGetRecentPairingsWithoutArchive(t *testing.T) {
	t.Parallel()
	h, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.GetRecentPairings(rec, httptest.NewRequest(http.MethodGet, "/api/v1/history/recent", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestGetRecentPairingsRejectsBadLimit(t *testing.T) {
	t.Parallel()
	h, _ := newTestHandler(t)

	for _, limit := range []string{"0", "-5", "9999", "lots"} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/history/recent?limit="+limit, nil)
		h.GetRecentPairings(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("limit %q: status = %d, want 400", limit, rec.Code)
		}
	}
}

func TestRouterServesHealth(t *testing.T) {
	t.Parallel()
	h, _ := newTestHandler(t)
	router := NewRouter(h, nil, "", zap.NewNop())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("GET /health = %d, want 200", rec.Code)
	}
}

func TestRouterNotFound(t *testing.T) {
	t.Parallel()
	h, _ := newTestHandler(t)
	router := NewRouter(h, nil, "", zap.NewNop())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET /nope = %d, want 404", rec.Code)
	}
}
