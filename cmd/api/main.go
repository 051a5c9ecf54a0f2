// Package main はAPIサーバーのエントリーポイントです。
package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/memoir-press/internal/auth"
	"github.com/yourusername/memoir-press/internal/chapters"
	"github.com/yourusername/memoir-press/internal/config"
	"github.com/yourusername/memoir-press/internal/jobs"
	"github.com/yourusername/memoir-press/internal/memoir"
	"github.com/yourusername/memoir-press/internal/store"
)

func main() {
	// 設定の読み込み
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Ginのモードを設定
	gin.SetMode(cfg.GinMode)

	// ユーザー・章データストアを開く
	db, err := store.Open(cfg.SQLitePath)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer db.Close()

	// 回忆录サービスとジョブエンジンを組み立てる
	memoirService := memoir.NewService(cfg, db, log.Default())
	jobService, err := setupJobs(cfg, memoirService, db)
	if err != nil {
		log.Fatalf("Failed to set up jobs: %v", err)
	}

	// ワーカーと掃除タイマーを起動（SIGINT/SIGTERMで停止）
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	jobService.Start(ctx)

	// Ginルーターの初期化（デフォルトミドルウェア: Logger, Recovery）
	router := gin.Default()

	// セッションストアの設定（クッキー署名鍵は必須）
	sessionStore := cookie.NewStore([]byte(cfg.SessionSecret))
	sessionStore.Options(sessions.Options{
		Path:     "/",
		MaxAge:   auth.SessionMaxAgeSeconds(),
		HttpOnly: true,
		Secure:   cfg.GinMode == gin.ReleaseMode,
		SameSite: http.SameSiteStrictMode,
	})
	router.Use(sessions.Sessions(auth.SessionCookieName, sessionStore))

	// CORSミドルウェアの設定
	corsConfig := cors.DefaultConfig()
	// CORS許可オリジンを設定（カンマ区切りの文字列を配列に変換）
	origins := strings.Split(cfg.CORSAllowedOrigins, ",")
	corsConfig.AllowOrigins = origins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{
		"Origin",
		"Content-Type",
		"Accept",
		"Authorization",
		"X-CSRF-Token", // CSRF保護用ヘッダー
	}
	// フロントエンドがレスポンスヘッダーから CSRF トークンを読み取れるように公開
	corsConfig.ExposeHeaders = []string{"X-CSRF-Token"}
	router.Use(cors.New(corsConfig))

	// ルーティングの設定
	setupRoutes(router, cfg, db, memoirService, jobService)

	// サーバーの起動
	addr := ":" + cfg.Port
	log.Printf("Starting API server on %s (mode: %s)", addr, cfg.GinMode)
	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// handleHealth はヘルスチェックエンドポイントのハンドラーです。
func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "memoir-press-api",
		"version": "0.1.0",
	})
}

// setupRoutes は API グループと認証周りの配線を行います。
func setupRoutes(router *gin.Engine, cfg *config.Config, db *store.SQLite, memoirService *memoir.Service, jobService *jobs.Service) {
	// まずは誰でも叩けるヘルスチェックを登録
	router.GET("/health", handleHealth)

	// 生成済みPDFの静的配信
	router.Static(strings.TrimRight(cfg.PDFPublicBaseURL, "/"), cfg.PDFOutputDir)

	authManager := auth.NewManager(db)

	api := router.Group("/api")
	{
		authRoutes := api.Group("/auth")
		{
			// 登録・ログイン時はセッション未生成なので CSRF 検証は不要
			authRoutes.POST("/register", authManager.Register)
			authRoutes.POST("/login", authManager.Login)
			authRoutes.POST("/logout",
				authManager.RequireLogin(),
				authManager.VerifyCSRF(),
				authManager.Logout,
			)
		}

		protected := api.Group("")
		protected.Use(authManager.RequireLogin(), authManager.VerifyCSRF())
		{
			chapterRoutes := protected.Group("/chapters")
			{
				chapterRoutes.GET("", chapters.ListHandler(db))
				chapterRoutes.GET("/:chapterId", chapters.GetHandler(db))
				chapterRoutes.PUT("/:chapterId", chapters.SaveHandler(db))
			}

			pdfRoutes := protected.Group("/pdf")
			{
				pdfRoutes.POST("/generate", generateHandler(jobService))
				pdfRoutes.GET("/status/:jobId", jobStatusHandler(jobService))
				pdfRoutes.GET("/list", memoir.ListHandler(memoirService))
				pdfRoutes.DELETE("/file/:fileName", memoir.DeleteHandler(memoirService))
			}
		}
	}
}
