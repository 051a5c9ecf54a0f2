// Package chapters は章テキストの読み書きAPIを提供します。
package chapters

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/memoir-press/internal/auth"
	"github.com/yourusername/memoir-press/internal/memoir"
	"github.com/yourusername/memoir-press/internal/store"
)

// ChapterStore は章テキストの永続化操作を提供します。
type ChapterStore interface {
	ChapterContents(ctx context.Context, userID string) (map[string]string, error)
	ChapterByID(ctx context.Context, userID, chapterID string) (*store.Chapter, error)
	UpsertChapter(ctx context.Context, userID, chapterID, content string) error
}

type chapterView struct {
	ID        string     `json:"id"`
	Ordinal   int        `json:"ordinal"`
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	IsEmpty   bool       `json:"isEmpty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// ListHandler は GET /api/chapters のハンドラーを返します。
// 未保存の章も空内容で必ず含まれ、並び順は文書スキーマで固定です。
func ListHandler(chapters ChapterStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString(auth.ContextUserKey)

		contents, err := chapters.ChapterContents(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "获取章节列表失败",
			})
			return
		}

		sections := memoir.BuildSections(contents)
		views := make([]chapterView, len(sections))
		for i, section := range sections {
			views[i] = chapterView{
				ID:      section.ID,
				Ordinal: section.Ordinal,
				Title:   section.Title,
				Content: section.Content,
				IsEmpty: section.IsEmpty(),
			}
		}
		c.JSON(http.StatusOK, gin.H{"chapters": views})
	}
}

// GetHandler は GET /api/chapters/:chapterId のハンドラーを返します。
func GetHandler(chapters ChapterStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString(auth.ContextUserKey)
		chapterID := c.Param("chapterId")
		if !memoir.IsChapterID(chapterID) {
			c.JSON(http.StatusNotFound, gin.H{
				"code":    "CHAPTER_NOT_FOUND",
				"message": "章节不存在",
			})
			return
		}

		view := chapterView{
			ID:      chapterID,
			Title:   memoir.TitleFor(chapterID),
			IsEmpty: true,
		}
		chapter, err := chapters.ChapterByID(c.Request.Context(), userID, chapterID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusInternalServerError, gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "获取章节失败",
			})
			return
		}
		if chapter != nil {
			view.Content = chapter.Content
			view.IsEmpty = strings.TrimSpace(chapter.Content) == ""
			view.UpdatedAt = &chapter.UpdatedAt
		}

		c.JSON(http.StatusOK, view)
	}
}

type saveRequest struct {
	Content string `json:"content"`
}

// SaveHandler は PUT /api/chapters/:chapterId のハンドラーを返します。
func SaveHandler(chapters ChapterStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString(auth.ContextUserKey)
		chapterID := c.Param("chapterId")
		if !memoir.IsChapterID(chapterID) {
			c.JSON(http.StatusNotFound, gin.H{
				"code":    "CHAPTER_NOT_FOUND",
				"message": "章节不存在",
			})
			return
		}

		var req saveRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    "INVALID_INPUT",
				"message": "请以JSON格式提供 content",
			})
			return
		}

		if err := chapters.UpsertChapter(c.Request.Context(), userID, chapterID, req.Content); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "保存章节失败",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "章节已保存"})
	}
}
