package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPPort    string
	DatabaseDSN string // 비어 있으면 embedded PostgreSQL 사용
	JWTSecret   string
	CORSOrigins string

	SlackWebhookURL        string // 공용 웹훅
	SlackWebhookInspection string // 검수 완료 알림 전용 (없으면 공용으로 전송)
	SiteURL                string // 슬랙 알림의 링크 버튼에 사용
}

func Load() *Config {
	// .env가 없으면 조용히 넘어감 (배포 환경은 실제 환경변수 사용)
	_ = godotenv.Load()

	cfg := &Config{
		HTTPPort:               getEnv("HTTP_PORT", "8080"),
		DatabaseDSN:            getEnv("DATABASE_DSN", ""),
		JWTSecret:              getEnv("JWT_SECRET", ""),
		CORSOrigins:            getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
		SlackWebhookURL:        getEnv("SLACK_WEBHOOK_URL", ""),
		SlackWebhookInspection: getEnv("SLACK_WEBHOOK_INSPECTION", ""),
		SiteURL:                getEnv("SITE_URL", ""),
	}

	if cfg.JWTSecret == "" {
		log.Fatal("[FATAL] JWT_SECRET 환경변수가 설정되지 않았습니다.")
	}
	if len(cfg.JWTSecret) < 32 {
		log.Fatal("[FATAL] JWT_SECRET은 32자 이상이어야 합니다.")
	}
	if cfg.DatabaseDSN == "" {
		log.Println("[WARN] DATABASE_DSN이 비어 있어 embedded PostgreSQL로 동작합니다. 운영 환경에서는 외부 DB를 지정하세요.")
	}
	if cfg.SlackWebhookURL == "" && cfg.SlackWebhookInspection == "" {
		log.Println("[WARN] 슬랙 웹훅이 설정되지 않아 검수 완료 알림이 비활성화됩니다.")
	}

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
