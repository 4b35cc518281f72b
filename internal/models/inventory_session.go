package models

import "time"

type SessionStatus string

const (
	SessionActive SessionStatus = "active" // 진행중
	SessionClosed SessionStatus = "closed" // 종료
)

// InventorySession: 재고조사 세션
//
// 시스템 전체에서 동시에 하나만 active일 수 있다.
// database.Init이 status='active'에 대한 부분 유니크 인덱스를 생성해 이를 보장한다.
type InventorySession struct {
	ID        uint          `gorm:"primaryKey"`
	Name      string        `gorm:"size:100;not null"`
	Status    SessionStatus `gorm:"size:10;index;not null;default:'active'"`
	StartedAt time.Time     `gorm:"autoCreateTime"`
	EndedAt   *time.Time
	StartedBy string `gorm:"size:50"`

	Records []InventoryRecord `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE"`
}

func (InventorySession) TableName() string { return "inventory_sessions" }
