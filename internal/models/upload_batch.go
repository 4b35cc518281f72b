package models

import "time"

// UploadBatch: 엑셀 파일 단위 업로드 이력
type UploadBatch struct {
	ID            uint      `gorm:"primaryKey"`
	FileName      string    `gorm:"size:200;not null"` // 파일명
	PrintOrder    string    `gorm:"size:100"`          // 출력차수
	DeliveryMemo  string    `gorm:"size:200"`          // 배송메모
	TotalOrders   int       `gorm:"not null;default:0"` // 송장 수
	TotalProducts int       `gorm:"not null;default:0"` // 상품 수
	UploadedBy    string    `gorm:"size:50"`            // 업로드자
	UploadedAt    time.Time `gorm:"autoCreateTime;index"`
	Notified      bool      `gorm:"not null;default:false"` // 검수 완료 슬랙 알림 전송 여부

	Orders []Order `gorm:"foreignKey:UploadBatchID;constraint:OnDelete:CASCADE"`
}

func (UploadBatch) TableName() string { return "upload_batches" }
