package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/yourusername/memoir-press/internal/memoir"
	"github.com/yourusername/memoir-press/internal/store"
)

type stubUsers struct {
	users map[string]*store.User
}

func (s *stubUsers) UserByID(ctx context.Context, id string) (*store.User, error) {
	if user, ok := s.users[id]; ok {
		return user, nil
	}
	return nil, store.ErrNotFound
}

type stubSections struct {
	err error
}

func (s *stubSections) SectionsForOwner(ctx context.Context, ownerID string) ([]memoir.Section, error) {
	if s.err != nil {
		return nil, s.err
	}
	return memoir.BuildSections(map[string]string{"childhood": "小时候的事"}), nil
}

type stubRenderer struct {
	mu       sync.Mutex
	err      error
	rendered []string
}

func (s *stubRenderer) Render(ctx context.Context, owner *store.User, sections []memoir.Section) (*memoir.Result, error) {
	s.mu.Lock()
	s.rendered = append(s.rendered, owner.ID)
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	fileName := fmt.Sprintf("memoir_%s_1700000000000.pdf", owner.ID)
	return &memoir.Result{
		FileName: fileName,
		URL:      "/uploads/pdf/" + fileName,
	}, nil
}

func (s *stubRenderer) order() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.rendered...)
}

func newTestService(t *testing.T, users *stubUsers, sections *stubSections, renderer *stubRenderer, queueCap int) *Service {
	t.Helper()
	svc, err := NewService(NewMemoryStore(), users, sections, renderer, Options{
		QueueCapacity: queueCap,
	})
	if err != nil {
		t.Fatalf("NewService returned error: %v", err)
	}
	return svc
}

func waitForTerminal(t *testing.T, svc *Service, jobID, ownerID string) *Record {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		record, err := svc.GetForOwner(context.Background(), jobID, ownerID)
		if err != nil {
			t.Fatalf("GetForOwner returned error: %v", err)
		}
		if record.Status.IsTerminal() {
			return record
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("job did not reach a terminal state in time")
	return nil
}

func TestEnqueueReturnsQueuedRecord(t *testing.T) {
	users := &stubUsers{users: map[string]*store.User{"u1": {ID: "u1", Username: "zhang"}}}
	svc := newTestService(t, users, &stubSections{}, &stubRenderer{}, 4)

	record, err := svc.Enqueue(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Enqueue returned error: %v", err)
	}
	if record.Status != StatusQueued {
		t.Fatalf("unexpected status: %s", record.Status)
	}
	if record.Progress != 0 {
		t.Fatalf("unexpected progress: %d", record.Progress)
	}
	if record.JobID == "" {
		t.Fatal("expected a job id")
	}
	if record.OwnerID != "u1" {
		t.Fatalf("unexpected owner: %s", record.OwnerID)
	}
}

func TestJobCompletes(t *testing.T) {
	users := &stubUsers{users: map[string]*store.User{"u1": {ID: "u1", Username: "zhang"}}}
	svc := newTestService(t, users, &stubSections{}, &stubRenderer{}, 4)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)

	record, err := svc.Enqueue(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Enqueue returned error: %v", err)
	}

	final := waitForTerminal(t, svc, record.JobID, "u1")
	if final.Status != StatusCompleted {
		t.Fatalf("unexpected status: %s (error=%q)", final.Status, final.Error)
	}
	if final.Progress != 100 {
		t.Fatalf("unexpected progress: %d", final.Progress)
	}
	if final.Result == nil || final.Result.FileName == "" {
		t.Fatalf("expected a result, got %#v", final.Result)
	}
	if !strings.Contains(final.Result.FileName, "_u1_") {
		t.Fatalf("file name does not encode owner: %s", final.Result.FileName)
	}
	if final.Error != "" {
		t.Fatalf("completed job must not carry an error: %q", final.Error)
	}
}

func TestJobFailsWhenOwnerVanished(t *testing.T) {
	users := &stubUsers{users: map[string]*store.User{}}
	svc := newTestService(t, users, &stubSections{}, &stubRenderer{}, 4)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)

	record, err := svc.Enqueue(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("Enqueue returned error: %v", err)
	}

	final := waitForTerminal(t, svc, record.JobID, "ghost")
	if final.Status != StatusFailed {
		t.Fatalf("unexpected status: %s", final.Status)
	}
	if final.Error == "" {
		t.Fatal("failed job must carry an error message")
	}
	if final.Result != nil {
		t.Fatalf("failed job must not carry a result: %#v", final.Result)
	}
}

func TestJobFailsWhenRendererFails(t *testing.T) {
	users := &stubUsers{users: map[string]*store.User{"u1": {ID: "u1"}}}
	renderer := &stubRenderer{err: errors.New("写入输出流失败")}
	svc := newTestService(t, users, &stubSections{}, renderer, 4)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)

	record, err := svc.Enqueue(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Enqueue returned error: %v", err)
	}

	final := waitForTerminal(t, svc, record.JobID, "u1")
	if final.Status != StatusFailed {
		t.Fatalf("unexpected status: %s", final.Status)
	}
	if final.Error == "" {
		t.Fatal("expected an error message")
	}
}

func TestStatusIsUniformlyNotFoundForForeignJobs(t *testing.T) {
	users := &stubUsers{users: map[string]*store.User{"u1": {ID: "u1"}, "u2": {ID: "u2"}}}
	svc := newTestService(t, users, &stubSections{}, &stubRenderer{}, 4)

	record, err := svc.Enqueue(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Enqueue returned error: %v", err)
	}

	// 他ユーザーからの照会と未知IDの照会が区別できないこと
	if _, err := svc.GetForOwner(context.Background(), record.JobID, "u2"); !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound for foreign owner, got %v", err)
	}
	if _, err := svc.GetForOwner(context.Background(), "no-such-job", "u2"); !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound for unknown job, got %v", err)
	}
}

func TestJobsProcessedInSubmissionOrder(t *testing.T) {
	users := &stubUsers{users: map[string]*store.User{
		"u1": {ID: "u1"},
		"u2": {ID: "u2"},
		"u3": {ID: "u3"},
	}}
	renderer := &stubRenderer{}
	svc := newTestService(t, users, &stubSections{}, renderer, 8)

	// ワーカー起動前に投入しておけば処理順が投入順と一致するはず
	var jobIDs []string
	for _, owner := range []string{"u1", "u2", "u3"} {
		record, err := svc.Enqueue(context.Background(), owner)
		if err != nil {
			t.Fatalf("Enqueue(%s) returned error: %v", owner, err)
		}
		jobIDs = append(jobIDs, record.JobID)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)

	for i, owner := range []string{"u1", "u2", "u3"} {
		final := waitForTerminal(t, svc, jobIDs[i], owner)
		if final.Status != StatusCompleted {
			t.Fatalf("job %d: unexpected status %s", i, final.Status)
		}
	}

	order := renderer.order()
	if len(order) != 3 || order[0] != "u1" || order[1] != "u2" || order[2] != "u3" {
		t.Fatalf("jobs were not processed in submission order: %v", order)
	}
}

func TestEnqueueFailsWhenQueueIsFull(t *testing.T) {
	users := &stubUsers{users: map[string]*store.User{"u1": {ID: "u1"}}}
	// ワーカーを起動しないのでキューは掃けない
	svc := newTestService(t, users, &stubSections{}, &stubRenderer{}, 1)

	if _, err := svc.Enqueue(context.Background(), "u1"); err != nil {
		t.Fatalf("first Enqueue returned error: %v", err)
	}

	record, err := svc.Enqueue(context.Background(), "u1")
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	if record != nil {
		t.Fatalf("expected no record on failure, got %#v", record)
	}
}
