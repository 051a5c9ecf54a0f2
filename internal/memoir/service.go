package memoir

import (
	"context"
	"log"
	"time"

	"github.com/yourusername/memoir-press/internal/config"
)

// ChapterContents は保存済みの章テキストを提供します。
type ChapterContents interface {
	ChapterContents(ctx context.Context, userID string) (map[string]string, error)
}

// Service は回忆录PDFの生成と成果物管理を担います。
type Service struct {
	cfg      *config.Config
	chapters ChapterContents
	logger   *log.Logger
	now      func() time.Time
}

// NewService は Service を作成します。
func NewService(cfg *config.Config, chapters ChapterContents, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		cfg:      cfg,
		chapters: chapters,
		logger:   logger,
		now:      time.Now,
	}
}

// SectionsForOwner は指定ユーザーの章をスキーマ順で返します。
// 未記入の章も空内容のSectionとして含まれます。
func (s *Service) SectionsForOwner(ctx context.Context, ownerID string) ([]Section, error) {
	contents, err := s.chapters.ChapterContents(ctx, ownerID)
	if err != nil {
		return nil, newError("CHAPTER_FETCH_FAILED", "章节内容获取失败", err)
	}
	return BuildSections(contents), nil
}
