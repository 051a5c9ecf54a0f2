package jobs

import (
	"context"
	"testing"
	"time"
)

func putRecord(t *testing.T, s *MemoryStore, jobID, ownerID string) {
	t.Helper()
	err := s.Put(context.Background(), &Record{
		JobID:   jobID,
		OwnerID: ownerID,
		Status:  StatusQueued,
		Message: "任务已创建，等待处理",
	})
	if err != nil {
		t.Fatalf("Put returned error: %v", err)
	}
}

func TestMemoryStorePutRejectsDuplicates(t *testing.T) {
	s := NewMemoryStore()
	putRecord(t, s, "j1", "u1")

	if err := s.Put(context.Background(), &Record{JobID: "j1", OwnerID: "u1"}); err == nil {
		t.Fatal("expected error for duplicate job id")
	}
}

func TestMemoryStoreProgressNeverRegresses(t *testing.T) {
	s := NewMemoryStore()
	putRecord(t, s, "j1", "u1")

	if err := s.UpdateProgress(context.Background(), "j1", 45, "正在排版章节内容"); err != nil {
		t.Fatalf("UpdateProgress returned error: %v", err)
	}
	if err := s.UpdateProgress(context.Background(), "j1", 15, "正在收集章节内容"); err != nil {
		t.Fatalf("UpdateProgress returned error: %v", err)
	}

	record, err := s.Get(context.Background(), "j1")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if record.Progress != 45 {
		t.Fatalf("progress regressed: %d", record.Progress)
	}
	if record.Status != StatusProcessing {
		t.Fatalf("unexpected status: %s", record.Status)
	}
}

func TestMemoryStoreTerminalStateIsFinal(t *testing.T) {
	s := NewMemoryStore()
	putRecord(t, s, "j1", "u1")

	if err := s.MarkDone(context.Background(), "j1", &ResultInfo{URL: "/uploads/pdf/a.pdf", FileName: "a.pdf"}); err != nil {
		t.Fatalf("MarkDone returned error: %v", err)
	}

	if err := s.UpdateProgress(context.Background(), "j1", 50, "x"); err == nil {
		t.Fatal("expected error when updating a finished job")
	}
	if err := s.MarkFailed(context.Background(), "j1", "boom"); err == nil {
		t.Fatal("expected error when failing a finished job")
	}

	record, err := s.Get(context.Background(), "j1")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if record.Status != StatusCompleted {
		t.Fatalf("status changed after completion: %s", record.Status)
	}
	if record.Result == nil || record.Error != "" {
		t.Fatalf("completed record must carry result and no error: %#v", record)
	}
}

func TestMemoryStoreFailedRecordHasNoResult(t *testing.T) {
	s := NewMemoryStore()
	putRecord(t, s, "j1", "u1")

	if err := s.MarkFailed(context.Background(), "j1", "用户不存在或已被删除"); err != nil {
		t.Fatalf("MarkFailed returned error: %v", err)
	}

	record, err := s.Get(context.Background(), "j1")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if record.Status != StatusFailed {
		t.Fatalf("unexpected status: %s", record.Status)
	}
	if record.Error == "" || record.Result != nil {
		t.Fatalf("failed record must carry error and no result: %#v", record)
	}
	if record.Message != "生成失败" {
		t.Fatalf("unexpected message: %s", record.Message)
	}
}

func TestMemoryStoreSweepSkipsActiveJobs(t *testing.T) {
	s := NewMemoryStore()
	putRecord(t, s, "processing", "u1")
	putRecord(t, s, "done", "u1")

	if err := s.UpdateProgress(context.Background(), "processing", 45, "正在排版章节内容"); err != nil {
		t.Fatalf("UpdateProgress returned error: %v", err)
	}
	if err := s.MarkDone(context.Background(), "done", &ResultInfo{FileName: "a.pdf"}); err != nil {
		t.Fatalf("MarkDone returned error: %v", err)
	}

	// 全レコードの作成時刻より未来を基準にしても、処理中のジョブは消えない
	removed, err := s.SweepExpired(context.Background(), time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("SweepExpired returned error: %v", err)
	}
	if removed != 1 {
		t.Fatalf("unexpected sweep count: %d", removed)
	}

	if record, _ := s.Get(context.Background(), "processing"); record == nil {
		t.Fatal("processing job must survive the sweep")
	}
	if record, _ := s.Get(context.Background(), "done"); record != nil {
		t.Fatal("terminal job older than TTL must be swept")
	}
}

func TestMemoryStoreSweepKeepsFreshTerminalJobs(t *testing.T) {
	s := NewMemoryStore()
	putRecord(t, s, "j1", "u1")
	if err := s.MarkDone(context.Background(), "j1", &ResultInfo{FileName: "a.pdf"}); err != nil {
		t.Fatalf("MarkDone returned error: %v", err)
	}

	removed, err := s.SweepExpired(context.Background(), time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("SweepExpired returned error: %v", err)
	}
	if removed != 0 {
		t.Fatalf("fresh job was swept: %d", removed)
	}
}

func TestMemoryStoreGetReturnsCopy(t *testing.T) {
	s := NewMemoryStore()
	putRecord(t, s, "j1", "u1")

	record, err := s.Get(context.Background(), "j1")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	record.Status = StatusFailed
	record.Progress = 99

	again, err := s.Get(context.Background(), "j1")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if again.Status != StatusQueued || again.Progress != 0 {
		t.Fatalf("stored record was mutated through a returned copy: %#v", again)
	}
}
