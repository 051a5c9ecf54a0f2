// Package config は環境変数から設定を読み込み、アプリケーション全体で使用する設定を提供します。
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config はアプリケーションの設定を保持する構造体です。
type Config struct {
	// サーバー設定
	Port    string // APIサーバーのポート番号
	GinMode string // Ginの実行モード (debug, release, test)

	// セッション設定
	SessionSecret string // セッション署名用の秘密鍵

	// CORS設定
	CORSAllowedOrigins string // CORS許可オリジン（カンマ区切り）

	// データベース設定
	SQLitePath string // ユーザー・章データ用SQLiteファイルのパス

	// PDF出力設定
	PDFOutputDir     string   // 生成PDFの保存先ディレクトリ
	PDFPublicBaseURL string   // 生成PDFの公開URLプレフィックス
	CoverImagePaths  []string // 表紙画像の候補パス（優先順）
	FontPaths        []string // 中文フォントの候補パス（優先順）

	// ジョブ設定
	JobTTLHours     int    // ジョブレコードの保持時間（時間）
	JobSweepMinutes int    // 期限切れジョブ掃除の間隔（分）
	JobQueueCap     int    // ジョブキューの容量
	JobStoreKind    string // ジョブストアの種類 (memory, redis)
	RedisURL        string // JobStoreKind=redis の場合の接続URL
}

// デフォルトの表紙画像候補。先に存在したものが使われます。
var defaultCoverImagePaths = []string{
	"assets/images/memoirbook.png",
	"/opt/memoir-press/assets/images/memoirbook.png",
}

// デフォルトの中文フォント候補。Linux系のNoto/文泉驛を優先し、macOSのシステムフォントも試します。
var defaultFontPaths = []string{
	"/usr/share/fonts/truetype/noto/NotoSansSC-Regular.otf",
	"/usr/share/fonts/opentype/noto/NotoSansCJK-Regular.ttc",
	"/usr/share/fonts/truetype/noto/NotoSansCJK-Regular.ttc",
	"/usr/share/fonts/truetype/wqy/wqy-zenhei.ttc",
	"/usr/share/fonts/truetype/arphic/ukai.ttc",
	"/System/Library/Fonts/PingFang.ttc",
	"/System/Library/Fonts/STHeiti Light.ttc",
	"/Library/Fonts/Songti.ttc",
	"/System/Library/Fonts/Hiragino Sans GB.ttc",
}

// Load は環境変数から設定を読み込みます。
// .env.local ファイルが存在する場合はそこから読み込みます。
func Load() (*Config, error) {
	// .env.local ファイルを読み込む（存在しない場合はスキップ）
	loadEnvFile()

	config := &Config{
		// サーバー設定
		Port:    getEnv("PORT", "8080"),
		GinMode: getEnv("GIN_MODE", "debug"),

		// セッション設定
		SessionSecret: getEnv("SESSION_SECRET", ""),

		// CORS設定
		CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),

		// データベース設定
		SQLitePath: getEnv("SQLITE_PATH", "memoir.db"),

		// PDF出力設定
		PDFOutputDir:     getEnv("PDF_OUTPUT_DIR", "uploads/pdf"),
		PDFPublicBaseURL: getEnv("PDF_PUBLIC_BASE_URL", "/uploads/pdf"),
		CoverImagePaths:  getEnvAsPaths("COVER_IMAGE_PATHS", defaultCoverImagePaths),
		FontPaths:        getEnvAsPaths("FONT_PATHS", defaultFontPaths),

		// ジョブ設定
		JobTTLHours:     getEnvAsInt("JOB_TTL_HOURS", 12),
		JobSweepMinutes: getEnvAsInt("JOB_SWEEP_MINUTES", 30),
		JobQueueCap:     getEnvAsInt("JOB_QUEUE_CAPACITY", 64),
		JobStoreKind:    getEnv("JOB_STORE", "memory"),
		RedisURL:        getEnv("REDIS_URL", "redis://127.0.0.1:6379/0"),
	}

	// 必須設定のバリデーション
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func loadEnvFile() {
	if err := godotenv.Load(".env.local"); err == nil {
		return
	}

	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	parent := filepath.Dir(cwd)
	if parent == "" || parent == cwd {
		return
	}

	_ = godotenv.Load(filepath.Join(parent, ".env.local"))
}

// Validate は設定の妥当性を検証します。
func (c *Config) Validate() error {
	switch c.JobStoreKind {
	case "memory", "redis":
	default:
		return fmt.Errorf("JOB_STORE には memory または redis を指定してください (received: %s)", c.JobStoreKind)
	}

	// ローカル開発ではセッション設定は任意
	// 本番環境では厳格にチェックする想定
	if c.GinMode == "release" {
		if c.SessionSecret == "" {
			return fmt.Errorf("SESSION_SECRET is required in release mode")
		}
		if c.JobStoreKind == "redis" && c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when JOB_STORE=redis")
		}
	}

	return nil
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します。
func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt は環境変数を整数として取得します。
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsPaths はカンマ区切りの環境変数をパスのリストとして取得します。
func getEnvAsPaths(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	paths := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			paths = append(paths, trimmed)
		}
	}
	if len(paths) == 0 {
		return defaultValue
	}
	return paths
}
