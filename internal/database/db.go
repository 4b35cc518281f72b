package database

import (
	"fmt"
	"log"

	"logis-backoffice/internal/config"
	"logis-backoffice/internal/models"

	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const (
	embeddedDataPath = "./db_data"
	embeddedPort     = 5433
)

var DB *gorm.DB

// DATABASE_DSN이 비어 있을 때 기동되는 embedded PostgreSQL 프로세스
var embedded *embeddedpostgres.EmbeddedPostgres

func Init(cfg *config.Config) {
	dsn := cfg.DatabaseDSN
	if dsn == "" {
		embeddedCfg := embeddedpostgres.DefaultConfig().
			DataPath(embeddedDataPath).
			Port(embeddedPort).
			Database("logis").
			Username("postgres").
			Password("postgres")

		embedded = embeddedpostgres.NewDatabase(embeddedCfg)
		if err := embedded.Start(); err != nil {
			log.Fatalf("embedded PostgreSQL을 시작할 수 없습니다: %v", err)
		}
		dsn = fmt.Sprintf("host=localhost user=postgres password=postgres dbname=logis port=%d sslmode=disable", embeddedPort)
		log.Printf("embedded PostgreSQL 시작됨 (port %d)", embeddedPort)
	}

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("데이터베이스에 연결할 수 없습니다: %v", err)
	}

	if err := Migrate(DB); err != nil {
		log.Fatalf("마이그레이션 실패: %v", err)
	}

	log.Println("데이터베이스 연결 및 마이그레이션 완료")
}

// Migrate는 스키마를 생성한다. 테스트에서도 동일한 스키마를 쓰기 위해 분리되어 있다.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.UploadBatch{},
		&models.Order{},
		&models.OrderProduct{},
		&models.InspectionLog{},
		&models.Product{},
		&models.Location{},
		&models.InventorySession{},
		&models.InventoryRecord{},
	)
	if err != nil {
		return err
	}

	// 활성 세션은 시스템 전체에 하나만 허용.
	// 애플리케이션 레벨 체크만으로는 동시 시작 레이스가 남으므로 DB 제약으로 막는다.
	// AutoMigrate는 partial unique index를 표현하지 못해 직접 생성한다.
	return db.Exec(
		`CREATE UNIQUE INDEX IF NOT EXISTS uniq_inventory_sessions_active
		 ON inventory_sessions ((status)) WHERE status = 'active'`,
	).Error
}

// Close는 embedded 모드일 때 PostgreSQL 프로세스를 정리한다.
func Close() {
	if embedded != nil {
		if err := embedded.Stop(); err != nil {
			log.Printf("[WARN] embedded PostgreSQL 종료 실패: %v", err)
		}
	}
}
