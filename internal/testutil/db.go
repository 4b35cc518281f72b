package testutil

import (
	"fmt"
	"net"
	"os"
	"testing"

	"logis-backoffice/internal/database"
	"logis-backoffice/internal/models"

	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewDB는 테스트용 embedded PostgreSQL을 띄우고 마이그레이션된 커넥션을 반환한다.
// 프로세스 기동 비용이 크므로 패키지당 한 번만 띄워 서브테스트로 공유할 것.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	// go test는 패키지별 바이너리를 병렬로 돌리므로 고정 포트는 충돌한다
	testPort := freePort(t)

	dataPath, err := os.MkdirTemp("", "logis-test-pg-*")
	if err != nil {
		t.Fatalf("임시 디렉터리 생성 실패: %v", err)
	}

	embedded := embeddedpostgres.NewDatabase(embeddedpostgres.DefaultConfig().
		DataPath(dataPath).
		Port(uint32(testPort)).
		Database("logis_test").
		Username("postgres").
		Password("postgres"))
	if err := embedded.Start(); err != nil {
		t.Fatalf("테스트 PostgreSQL 시작 실패: %v", err)
	}
	t.Cleanup(func() {
		if err := embedded.Stop(); err != nil {
			t.Logf("테스트 PostgreSQL 종료 실패: %v", err)
		}
		os.RemoveAll(dataPath)
	})

	dsn := fmt.Sprintf("host=localhost user=postgres password=postgres dbname=logis_test port=%d sslmode=disable", testPort)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("테스트 데이터베이스 연결 실패: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		t.Fatalf("테스트 마이그레이션 실패: %v", err)
	}
	return db
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("포트 확보 실패: %v", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

// Reset은 테스트 간 데이터 격리를 위해 도메인 테이블을 비운다.
func Reset(t *testing.T, db *gorm.DB) {
	t.Helper()

	tables := []interface{}{
		&models.InspectionLog{},
		&models.OrderProduct{},
		&models.Order{},
		&models.UploadBatch{},
		&models.InventoryRecord{},
		&models.InventorySession{},
		&models.Location{},
		&models.Product{},
		&models.User{},
	}
	for _, table := range tables {
		if err := db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(table).Error; err != nil {
			t.Fatalf("테이블 초기화 실패: %v", err)
		}
	}
}
