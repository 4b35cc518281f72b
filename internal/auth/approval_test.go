package auth

import (
	"testing"

	"logis-backoffice/internal/models"
	"logis-backoffice/internal/testutil"

	"gorm.io/gorm"
)

func TestApproveUser(t *testing.T) {
	if testing.Short() {
		t.Skip("embedded PostgreSQL 테스트는 -short에서 건너뜀")
	}
	db := testutil.NewDB(t)

	user := models.User{
		Name:         "신규작업자",
		Email:        "worker@example.com",
		PasswordHash: "x",
		Role:         models.RoleWorker,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatal(err)
	}
	if user.IsApproved {
		t.Fatal("가입 직후인데 승인 상태")
	}

	approved, err := ApproveUser(db, user.ID)
	if err != nil {
		t.Fatalf("ApproveUser: %v", err)
	}
	if !approved.IsApproved {
		t.Error("승인 후에도 is_approved = false")
	}

	var stored models.User
	if err := db.First(&stored, "id = ?", user.ID).Error; err != nil {
		t.Fatal(err)
	}
	if !stored.IsApproved {
		t.Error("DB에 승인 상태가 반영되지 않음")
	}

	// 재승인은 그대로 통과
	if again, err := ApproveUser(db, user.ID); err != nil || !again.IsApproved {
		t.Errorf("재승인 = %+v, err = %v", again, err)
	}

	if _, err := ApproveUser(db, 99999); err != gorm.ErrRecordNotFound {
		t.Errorf("없는 계정 err = %v, want ErrRecordNotFound", err)
	}
}
