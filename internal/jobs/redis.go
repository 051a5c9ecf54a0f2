package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const jobKeyPrefix = "memoirjob:"

// RedisStore はジョブレコードを Redis に保存する Store です。
// プロセス再起動をまたいでジョブ状態を参照したい配備向けのオプションで、
// 期限切れの削除は Redis のキー有効期限に任せます（SweepExpired は何もしません）。
// そのため処理中ジョブもTTL到達で消え得る点はメモリ実装と異なります。
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisStore は RedisStore を作成します。
func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{
		rdb: rdb,
		ttl: ttl,
	}
}

// Put は新しいレコードを登録します。
func (s *RedisStore) Put(ctx context.Context, record *Record) error {
	if record == nil {
		return fmt.Errorf("record is nil")
	}
	now := time.Now().UTC()
	stored := record.Clone()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now

	payload, err := json.Marshal(stored)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, jobKey(record.JobID), payload, s.ttl).Err()
}

// Get はレコードを取得します。存在しない場合は (nil, nil) を返します。
func (s *RedisStore) Get(ctx context.Context, jobID string) (*Record, error) {
	if jobID == "" {
		return nil, fmt.Errorf("jobID is required")
	}
	data, err := s.rdb.Get(ctx, jobKey(jobID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// UpdateProgress は処理中ジョブの進捗を更新します。
func (s *RedisStore) UpdateProgress(ctx context.Context, jobID string, progress int, message string) error {
	return s.updatePartial(ctx, jobID, func(record *Record) error {
		if record.Status.IsTerminal() {
			return fmt.Errorf("job already finished: %s", jobID)
		}
		if progress < record.Progress {
			progress = record.Progress
		}
		record.Status = StatusProcessing
		record.Progress = progress
		record.Message = message
		return nil
	})
}

// MarkDone はジョブを完了状態にします。
func (s *RedisStore) MarkDone(ctx context.Context, jobID string, result *ResultInfo) error {
	return s.updatePartial(ctx, jobID, func(record *Record) error {
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
func (s *RedisStore) MarkFailed(ctx context.Context, jobID string, errMsg string) error {
	return s.updatePartial(ctx, jobID, func(record *Record) error {
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
func (s *RedisStore) Delete(ctx context.Context, jobID string) error {
	return s.rdb.Del(ctx, jobKey(jobID)).Err()
}

// SweepExpired は何もしません。期限切れの削除はキー有効期限が担います。
func (s *RedisStore) SweepExpired(ctx context.Context, olderThan time.Time) (int, error) {
	return 0, nil
}

func (s *RedisStore) updatePartial(ctx context.Context, jobID string, mutate func(*Record) error) error {
	key := jobKey(jobID)
	return s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if err == redis.Nil {
				return fmt.Errorf("job not found: %s", jobID)
			}
			return err
		}
		var record Record
		if err := json.Unmarshal(data, &record); err != nil {
			return err
		}
		if err := mutate(&record); err != nil {
			return err
		}
		record.UpdatedAt = time.Now().UTC()
		payload, err := json.Marshal(&record)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, s.ttl)
			return nil
		})
		return err
	}, key)
}

func jobKey(id string) string {
	return jobKeyPrefix + id
}
