package models

import "time"

// 스캔타입
type ScanType string

const (
	ScanTypeTracking ScanType = "송장"
	ScanTypeProduct  ScanType = "상품"
)

// 알림코드 (스캐너 단말이 코드값별로 비프음/색상을 분기하므로 문자열을 바꾸면 안 됨)
type AlertCode string

const (
	AlertNormal          AlertCode = "정상"
	AlertRemaining       AlertCode = "숫자" // 해당 상품의 잔여 수량이 남아 있음
	AlertCompleted       AlertCode = "완료"
	AlertScanError       AlertCode = "스캔오류"
	AlertUnknownTracking AlertCode = "송장번호미등록"
	AlertAlreadyShipped  AlertCode = "기처리배송"
	AlertDuplicateScan   AlertCode = "중복스캔"
	AlertProductError    AlertCode = "상품오류"
)

// InspectionLog: 검수 로그 (모든 스캔 시도를 성공 여부와 무관하게 기록, 수정/삭제 없음)
type InspectionLog struct {
	ID             uint      `gorm:"primaryKey"`
	TrackingNumber string    `gorm:"size:50;index;not null"` // 실제 송장 존재 여부와 무관
	Barcode        *string   `gorm:"size:50"`                // 송장 스캔에는 없음
	ScanType       ScanType  `gorm:"size:20;not null"`
	AlertCode      AlertCode `gorm:"size:20;not null"`
	Worker         *string   `gorm:"size:50"`
	CreatedAt      time.Time `gorm:"autoCreateTime;index"`
}

func (InspectionLog) TableName() string { return "inspection_logs" }
