package models

import "time"

// Product: 상품 마스터 (바코드-상품명 매핑)
//
// 동일 바코드가 여러 상품명에 매핑될 수 있다 (합포장 바코드).
// 따라서 자연키는 (barcode, name) 쌍이고 스캔 시점에 다건이면 선택을 요구한다.
type Product struct {
	ID          uint   `gorm:"primaryKey"`
	Barcode     string `gorm:"size:50;index;not null;uniqueIndex:uniq_products_barcode_name"`
	Name        string `gorm:"size:200;not null;uniqueIndex:uniq_products_barcode_name"`
	DisplayName string `gorm:"size:200"` // 관리명
	OptionCode  string `gorm:"size:50;index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (Product) TableName() string { return "products" }

// 관리명이 있으면 관리명, 없으면 상품명
func (p *Product) Label() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.Name
}
