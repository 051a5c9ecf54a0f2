package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/memoir-press/internal/auth"
	"github.com/yourusername/memoir-press/internal/jobs"
	"github.com/yourusername/memoir-press/internal/memoir"
	"github.com/yourusername/memoir-press/internal/store"
)

type stubUsers struct{}

func (stubUsers) UserByID(ctx context.Context, id string) (*store.User, error) {
	return &store.User{ID: id, Username: "zhang"}, nil
}

type stubSections struct{}

func (stubSections) SectionsForOwner(ctx context.Context, ownerID string) ([]memoir.Section, error) {
	return memoir.BuildSections(nil), nil
}

type stubRenderer struct{}

func (stubRenderer) Render(ctx context.Context, owner *store.User, sections []memoir.Section) (*memoir.Result, error) {
	return nil, errors.New("not rendered in this test")
}

func newJobRouter(t *testing.T, capacity int) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	jobService, err := jobs.NewService(jobs.NewMemoryStore(), stubUsers{}, stubSections{}, stubRenderer{}, jobs.Options{
		QueueCapacity: capacity,
	})
	if err != nil {
		t.Fatalf("NewService returned error: %v", err)
	}
	// ワーカーは起動しない。投入直後の状態を検証するため。

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(auth.ContextUserKey, "u1")
	})
	router.POST("/api/pdf/generate", generateHandler(jobService))
	router.GET("/api/pdf/status/:jobId", jobStatusHandler(jobService))
	return router
}

func TestGenerateHandlerReturns202WithQueuedJob(t *testing.T) {
	router := newJobRouter(t, 4)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/pdf/generate", nil))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("unexpected status: %d body=%s", rec.Code, rec.Body.String())
	}

	var payload struct {
		JobID    string `json:"jobId"`
		Status   string `json:"status"`
		Progress int    `json:"progress"`
		Message  string `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if payload.JobID == "" || payload.Status != string(jobs.StatusQueued) || payload.Progress != 0 {
		t.Fatalf("unexpected payload: %#v", payload)
	}

	// 作成直後のジョブは同じユーザーからすぐ照会できる
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/pdf/status/"+payload.JobID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestGenerateHandlerReturns503WhenQueueIsFull(t *testing.T) {
	router := newJobRouter(t, 1)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/pdf/generate", nil))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("unexpected status: %d body=%s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/pdf/generate", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("unexpected status: %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestJobStatusHandlerUnknownJobIs404(t *testing.T) {
	router := newJobRouter(t, 4)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/pdf/status/no-such-job", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("unexpected status: %d body=%s", rec.Code, rec.Body.String())
	}

	var payload map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if payload["code"] != "JOB_NOT_FOUND" {
		t.Fatalf("unexpected code: %s", payload["code"])
	}
}
