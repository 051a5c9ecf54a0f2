package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/memoir-press/internal/memoir"
	"github.com/yourusername/memoir-press/internal/store"
)

// ワーカーの各段階で報告する進捗値。
const (
	progressPreparing  = 5
	progressCollecting = 15
	progressComposing  = 45
)

var (
	// ErrJobNotFound はジョブが存在しない、または照会者の所有物でないことを表します。
	// 他ユーザーのジョブの存在を推測できないよう、両者は区別されません。
	ErrJobNotFound = errors.New("jobs: job not found")
	// ErrQueueFull は投入時にキューが満杯だったことを表します。
	ErrQueueFull = errors.New("jobs: queue is full")
)

// OwnerLookup はジョブ所有者のプロフィールを解決します。
type OwnerLookup interface {
	UserByID(ctx context.Context, id string) (*store.User, error)
}

// SectionSource はユーザーの章をスキーマ順で提供します。
type SectionSource interface {
	SectionsForOwner(ctx context.Context, ownerID string) ([]memoir.Section, error)
}

// Renderer は（ユーザー, 章リスト）からPDFを生成します。
type Renderer interface {
	Render(ctx context.Context, owner *store.User, sections []memoir.Section) (*memoir.Result, error)
}

// Options は Service の動作設定です。
type Options struct {
	TTL           time.Duration // ジョブレコードの保持時間
	SweepInterval time.Duration // 期限切れ掃除の間隔
	QueueCapacity int           // キュー容量
	Logger        *log.Logger
}

// Service はジョブの投入・照会と、単一ワーカーによる逐次処理を担います。
//
// キューは容量付きチャネルで、消費するワーカーゴルーチンはちょうど1つです。
// ジョブは投入順（FIFO）に処理され、同時に組版されるのは常に1件だけです。
type Service struct {
	store    Store
	users    OwnerLookup
	sections SectionSource
	renderer Renderer

	queue  chan string
	ttl    time.Duration
	sweep  time.Duration
	logger *log.Logger
	now    func() time.Time
}

// NewService は Service を作成します。
func NewService(jobStore Store, users OwnerLookup, sections SectionSource, renderer Renderer, opts Options) (*Service, error) {
	if jobStore == nil {
		return nil, errors.New("jobStore is nil")
	}
	if users == nil {
		return nil, errors.New("users is nil")
	}
	if sections == nil {
		return nil, errors.New("sections is nil")
	}
	if renderer == nil {
		return nil, errors.New("renderer is nil")
	}

	if opts.TTL <= 0 {
		opts.TTL = 12 * time.Hour
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = 30 * time.Minute
	}
	if opts.QueueCapacity <= 0 {
		opts.QueueCapacity = 64
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	return &Service{
		store:    jobStore,
		users:    users,
		sections: sections,
		renderer: renderer,
		queue:    make(chan string, opts.QueueCapacity),
		ttl:      opts.TTL,
		sweep:    opts.SweepInterval,
		logger:   opts.Logger,
		now:      time.Now,
	}, nil
}

// Start はワーカーと掃除タイマーをバックグラウンドで起動します。
// ctx のキャンセルで両方が停止します。
func (s *Service) Start(ctx context.Context) {
	go s.runWorker(ctx)
	go s.runSweeper(ctx)
}

// Enqueue はジョブを作成してキューへ投入し、初期状態を返します。
// 組版は一切ここでは行われず、呼び出し側はすぐに制御を取り戻します。
func (s *Service) Enqueue(ctx context.Context, ownerID string) (*Record, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("ownerID is required")
	}

	now := s.now().UTC()
	record := &Record{
		JobID:     uuid.NewString(),
		OwnerID:   ownerID,
		Status:    StatusQueued,
		Progress:  0,
		Message:   "任务已创建，等待处理",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Put(ctx, record); err != nil {
		return nil, err
	}

	select {
	case s.queue <- record.JobID:
	default:
		// 投入失敗時にレコードを残さない
		_ = s.store.Delete(ctx, record.JobID)
		return nil, ErrQueueFull
	}

	return record.Clone(), nil
}

// GetForOwner はジョブの現在状態を返します。
// ジョブが存在しない場合も、他ユーザーの所有だった場合も、一様に ErrJobNotFound を返します。
func (s *Service) GetForOwner(ctx context.Context, jobID, ownerID string) (*Record, error) {
	if jobID == "" {
		return nil, ErrJobNotFound
	}
	record, err := s.store.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if record == nil || record.OwnerID != ownerID {
		return nil, ErrJobNotFound
	}
	return record, nil
}

func (s *Service) runWorker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case jobID := <-s.queue:
			s.process(ctx, jobID)
		}
	}
}

func (s *Service) runSweeper(ctx context.Context) {
	ticker := time.NewTicker(s.sweep)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := s.store.SweepExpired(ctx, s.now().Add(-s.ttl))
			if err != nil {
				s.logger.Printf("job sweep failed: %v", err)
				continue
			}
			if removed > 0 {
				s.logger.Printf("swept %d expired job(s)", removed)
			}
		}
	}
}

// process は1件のジョブを最後まで実行します。
// 失敗はすべてレコードへ書き戻し、ワーカーループ自体は決して止めません。
func (s *Service) process(ctx context.Context, jobID string) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Printf("job %s panicked: %v", jobID, r)
			s.fail(jobID, fmt.Sprintf("内部错误: %v", r))
		}
	}()

	if err := s.updateProgress(jobID, progressPreparing, "正在准备生成所需内容"); err != nil {
		s.logger.Printf("job %s: %v", jobID, err)
		return
	}

	record, err := s.store.Get(ctx, jobID)
	if err != nil || record == nil {
		s.logger.Printf("job %s vanished before processing", jobID)
		return
	}

	// enqueue から処理開始までの間にユーザーが削除されているケースに備える
	owner, err := s.users.UserByID(ctx, record.OwnerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.fail(jobID, "用户不存在或已被删除")
		} else {
			s.fail(jobID, err.Error())
		}
		return
	}
	if err := ctx.Err(); err != nil {
		s.fail(jobID, err.Error())
		return
	}

	if err := s.updateProgress(jobID, progressCollecting, "正在收集章节内容"); err != nil {
		s.logger.Printf("job %s: %v", jobID, err)
	}
	sections, err := s.sections.SectionsForOwner(ctx, record.OwnerID)
	if err != nil {
		s.fail(jobID, err.Error())
		return
	}
	if err := ctx.Err(); err != nil {
		s.fail(jobID, err.Error())
		return
	}

	if err := s.updateProgress(jobID, progressComposing, "正在排版章节内容"); err != nil {
		s.logger.Printf("job %s: %v", jobID, err)
	}
	result, err := s.renderer.Render(ctx, owner, sections)
	if err != nil {
		s.fail(jobID, err.Error())
		return
	}

	if err := s.store.MarkDone(context.Background(), jobID, &ResultInfo{
		URL:      result.URL,
		FileName: result.FileName,
	}); err != nil {
		s.logger.Printf("job %s: failed to mark done: %v", jobID, err)
	}
}

func (s *Service) updateProgress(jobID string, progress int, message string) error {
	return s.store.UpdateProgress(context.Background(), jobID, progress, message)
}

func (s *Service) fail(jobID, errMsg string) {
	if errMsg == "" {
		errMsg = "生成失败"
	}
	if err := s.store.MarkFailed(context.Background(), jobID, errMsg); err != nil {
		s.logger.Printf("job %s: failed to mark failed: %v", jobID, err)
	}
	s.logger.Printf("job %s failed: %s", jobID, errMsg)
}
