package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Location: 로케이션 (선반/구역). 스캔 시 미등록이면 자동 생성된다.
type Location struct {
	ID        uint   `gorm:"primaryKey"`
	Barcode   string `gorm:"size:50;uniqueIndex;not null"` // 항상 대문자로 저장
	Name      string `gorm:"size:100"`
	Zone      string `gorm:"size:50"` // 구역
	CreatedAt time.Time
}

func (Location) TableName() string { return "locations" }

// 저장 직전에 바코드를 대문자로 정규화 (핸디 스캐너 설정에 따라 소문자로 올 수 있음)
func (l *Location) BeforeSave(tx *gorm.DB) error {
	l.Barcode = strings.ToUpper(strings.TrimSpace(l.Barcode))
	return nil
}
