package main

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"

	"github.com/yourusername/memoir-press/internal/auth"
	"github.com/yourusername/memoir-press/internal/config"
	"github.com/yourusername/memoir-press/internal/jobs"
	"github.com/yourusername/memoir-press/internal/memoir"
	"github.com/yourusername/memoir-press/internal/store"
)

func setupJobs(cfg *config.Config, memoirService *memoir.Service, db *store.SQLite) (*jobs.Service, error) {
	ttlHours := cfg.JobTTLHours
	if ttlHours <= 0 {
		ttlHours = 12
	}
	ttl := time.Duration(ttlHours) * time.Hour

	var jobStore jobs.Store
	switch cfg.JobStoreKind {
	case "redis":
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		jobStore = jobs.NewRedisStore(redis.NewClient(opt), ttl)
	default:
		jobStore = jobs.NewMemoryStore()
	}

	return jobs.NewService(jobStore, db, memoirService, memoirService, jobs.Options{
		TTL:           ttl,
		SweepInterval: time.Duration(cfg.JobSweepMinutes) * time.Minute,
		QueueCapacity: cfg.JobQueueCap,
		Logger:        log.Default(),
	})
}

// generateHandler は POST /api/pdf/generate のハンドラーです。
// ジョブを作成してすぐ 202 を返し、組版はバックグラウンドのワーカーに任せます。
func generateHandler(jobService *jobs.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		ownerID := c.GetString(auth.ContextUserKey)

		record, err := jobService.Enqueue(c.Request.Context(), ownerID)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, jobs.ErrQueueFull) {
				status = http.StatusServiceUnavailable
			}
			c.JSON(status, gin.H{
				"code":    "JOB_SUBMIT_FAILED",
				"message": "提交生成任务失败，请稍后再试",
			})
			return
		}

		c.JSON(http.StatusAccepted, gin.H{
			"jobId":    record.JobID,
			"status":   record.Status,
			"progress": record.Progress,
			"message":  record.Message,
		})
	}
}

// jobStatusHandler は GET /api/pdf/status/:jobId のハンドラーです。
// ジョブが存在しない場合と他ユーザーの所有だった場合は同じ404を返します。
func jobStatusHandler(jobService *jobs.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		ownerID := c.GetString(auth.ContextUserKey)
		jobID := c.Param("jobId")

		record, err := jobService.GetForOwner(c.Request.Context(), jobID, ownerID)
		if err != nil {
			if errors.Is(err, jobs.ErrJobNotFound) {
				c.JSON(http.StatusNotFound, gin.H{
					"code":    "JOB_NOT_FOUND",
					"message": "未找到该任务",
				})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "查询任务状态失败",
			})
			return
		}

		c.JSON(http.StatusOK, record)
	}
}
