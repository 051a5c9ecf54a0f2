package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Store はジョブレコードの保存先を抽象化します。
// 既定はプロセス内メモリ（MemoryStore）ですが、永続化したい配備では
// RedisStore に差し替えられます。ワーカーのロジックは実装に依存しません。
type Store interface {
	// Put は新しいレコードを登録します。
	Put(ctx context.Context, record *Record) error
	// Get はレコードを取得します。存在しない場合は (nil, nil) を返します。
	Get(ctx context.Context, jobID string) (*Record, error)
	// UpdateProgress は処理中ジョブの進捗と状態メッセージを更新します。
	UpdateProgress(ctx context.Context, jobID string, progress int, message string) error
	// MarkDone はジョブを completed にし、成果物参照を保存します。
	MarkDone(ctx context.Context, jobID string, result *ResultInfo) error
	// MarkFailed はジョブを failed にし、診断メッセージを保存します。
	MarkFailed(ctx context.Context, jobID string, errMsg string) error
	// Delete はレコードを削除します。
	Delete(ctx context.Context, jobID string) error
	// SweepExpired は olderThan より前に作られた終端状態のレコードを削除し、件数を返します。
	// 処理中のジョブは対象外です。
	SweepExpired(ctx context.Context, olderThan time.Time) (int, error)
}

// MemoryStore はジョブレコードをプロセス内メモリに保持する Store です。
// プロセス再起動で全ジョブ状態が失われるのは仕様です。
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*Record
	now     func() time.Time
}

// NewMemoryStore は MemoryStore を作成します。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*Record),
		now:     time.Now,
	}
}

// Put は新しいレコードを登録します。
func (s *MemoryStore) Put(ctx context.Context, record *Record) error {
	if record == nil {
		return fmt.Errorf("record is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[record.JobID]; exists {
		return fmt.Errorf("job already exists: %s", record.JobID)
	}
	now := s.now().UTC()
	stored := record.Clone()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	s.records[record.JobID] = stored
	return nil
}

// Get はレコードのコピーを取得します。存在しない場合は (nil, nil) を返します。
func (s *MemoryStore) Get(ctx context.Context, jobID string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[jobID]
	if !ok {
		return nil, nil
	}
	return record.Clone(), nil
}

// UpdateProgress は処理中ジョブの進捗を更新します。状態は processing になります。
func (s *MemoryStore) UpdateProgress(ctx context.Context, jobID string, progress int, message string) error {
	return s.mutate(jobID, func(record *Record) error {
		if record.Status.IsTerminal() {
			return fmt.Errorf("job already finished: %s", jobID)
		}
		if progress < record.Progress {
			// 進捗は後退させない
			progress = record.Progress
		}
		record.Status = StatusProcessing
		record.Progress = progress
		record.Message = message
		return nil
	})
}

// MarkDone はジョブを完了状態にします。
func (s *MemoryStore) MarkDone(ctx context.Context, jobID string, result *ResultInfo) error {
	return s.mutate(jobID, func(record *Record) error {
		if record.Status.IsTerminal() {
			return fmt.Errorf("job already finished: %s", jobID)
		}
		record.Status = StatusCompleted
		record.Progress = 100
		record.Message = "PDF 生成完成"
		record.Result = result
		record.Error = ""
		return nil
	})
}

// MarkFailed はジョブを失敗状態にします。
func (s *MemoryStore) MarkFailed(ctx context.Context, jobID string, errMsg string) error {
	return s.mutate(jobID, func(record *Record) error {
		if record.Status.IsTerminal() {
			return fmt.Errorf("job already finished: %s", jobID)
		}
		record.Status = StatusFailed
		record.Message = "生成失败"
		record.Error = errMsg
		record.Result = nil
		return nil
	})
}

// Delete はレコードを削除します。
func (s *MemoryStore) Delete(ctx context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, jobID)
	return nil
}

// SweepExpired は期限切れの終端状態レコードを削除します。
func (s *MemoryStore) SweepExpired(ctx context.Context, olderThan time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for jobID, record := range s.records {
		if record.Status.IsTerminal() && record.CreatedAt.Before(olderThan) {
			delete(s.records, jobID)
			removed++
		}
	}
	return removed, nil
}

func (s *MemoryStore) mutate(jobID string, fn func(*Record) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[jobID]
	if !ok {
		return fmt.Errorf("job not found: %s", jobID)
	}
	if err := fn(record); err != nil {
		return err
	}
	record.UpdatedAt = s.now().UTC()
	return nil
}
