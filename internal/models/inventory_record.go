package models

import "time"

// InventoryRecord: 재고 기록 (세션 × 로케이션 × 상품 단위)
//
// 같은 세션·로케이션에서 (바코드, 상품명, 유통기한, 로트)가 동일한 스캔은
// 새 행을 만들지 않고 수량을 누적한다. 키 전체를 덮는 유니크 인덱스가
// 동시 첫 스캔으로 같은 키의 행이 두 개 생기는 것을 막는다.
type InventoryRecord struct {
	ID         uint `gorm:"primaryKey"`
	SessionID  uint `gorm:"not null;uniqueIndex:uniq_inventory_records_key,priority:1"`
	LocationID uint `gorm:"not null;uniqueIndex:uniq_inventory_records_key,priority:2"`
	Location   Location

	Barcode     string    `gorm:"size:50;index;uniqueIndex:uniq_inventory_records_key,priority:3"` // 상품바코드 (직접 입력 시 빈 값 가능)
	ProductName string    `gorm:"size:200;uniqueIndex:uniq_inventory_records_key,priority:4"`      // 상품명
	Quantity    int       `gorm:"not null;default:1"`
	ExpiryDate  string    `gorm:"size:20;uniqueIndex:uniq_inventory_records_key,priority:5"` // 유통기한
	LotNumber   string    `gorm:"size:50;uniqueIndex:uniq_inventory_records_key,priority:6"` // 로트번호
	Worker      string    `gorm:"size:50"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time
}

func (InventoryRecord) TableName() string { return "inventory_records" }
