package models

import "time"

// 송장 상태 (스캐너 단말이 이 문자열에 의존하므로 코드값을 바꾸면 안 됨)
type OrderStatus string

const (
	StatusWaiting    OrderStatus = "대기중"
	StatusInspecting OrderStatus = "검수중"
	StatusCompleted  OrderStatus = "완료"
)

// Order: 송장 (운송장 번호 단위의 검수 대상 패키지)
type Order struct {
	ID            uint  `gorm:"primaryKey"`
	UploadBatchID *uint `gorm:"index"` // 배치 삭제 시 함께 삭제됨
	UploadBatch   *UploadBatch

	TrackingNumber  string      `gorm:"size:50;uniqueIndex;not null"` // 송장번호
	Seller          string      `gorm:"size:100"`                     // 판매처
	ReceiverName    string      `gorm:"size:100"`                     // 수령인
	ReceiverPhone   string      `gorm:"size:20"`                      // 핸드폰
	ReceiverAddress string      `gorm:"type:text"`                    // 주소
	RegisteredDate  string      `gorm:"size:50"`                      // 등록일 (엑셀 문자열 그대로 보존)
	Courier         string      `gorm:"size:50"`                      // 택배사
	PrintOrder      string      `gorm:"size:100"`                     // 출력차수
	DeliveryMemo    string      `gorm:"size:200"`                     // 배송메모
	Status          OrderStatus `gorm:"size:20;index;not null;default:'대기중'"`
	UploadedAt      time.Time   `gorm:"autoCreateTime;index"`
	CompletedAt     *time.Time // 검수 완료 시간

	Products []OrderProduct `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

func (Order) TableName() string { return "orders" }

// OrderProduct: 송장 내 주문 상품 한 줄
type OrderProduct struct {
	ID      uint `gorm:"primaryKey"`
	OrderID uint `gorm:"index;not null"`

	Barcode         string `gorm:"size:50;index;not null"` // 상품바코드
	ProductName     string `gorm:"size:200;not null"`      // 상품명
	Quantity        int    `gorm:"not null"`               // 주문수량
	ScannedQuantity int    `gorm:"not null;default:0"`     // 스캔수량 (0 <= scanned <= quantity)
}

func (OrderProduct) TableName() string { return "order_products" }
