package inventory

import (
	"strings"

	"logis-backoffice/internal/models"

	"gorm.io/gorm"
)

// 상품/로케이션 마스터 조회·등록.

// UpsertProduct는 (바코드, 상품명) 쌍 기준으로 상품을 등록하거나 갱신한다.
// 쌍이 이미 있으면 관리명/옵션코드만 갱신된다. 반환값은 (상품, 새로 생성 여부).
func UpsertProduct(db *gorm.DB, barcode, name, displayName, optionCode string) (*models.Product, bool, error) {
	barcode = strings.TrimSpace(barcode)
	name = strings.TrimSpace(name)

	var product models.Product
	err := db.Where("barcode = ? AND name = ?", barcode, name).First(&product).Error
	if err == gorm.ErrRecordNotFound {
		product = models.Product{
			Barcode:     barcode,
			Name:        name,
			DisplayName: strings.TrimSpace(displayName),
			OptionCode:  strings.TrimSpace(optionCode),
		}
		if err := db.Create(&product).Error; err != nil {
			return nil, false, err
		}
		return &product, true, nil
	}
	if err != nil {
		return nil, false, err
	}

	updates := map[string]interface{}{}
	if v := strings.TrimSpace(displayName); v != "" {
		updates["display_name"] = v
	}
	if v := strings.TrimSpace(optionCode); v != "" {
		updates["option_code"] = v
	}
	if len(updates) > 0 {
		if err := db.Model(&product).Updates(updates).Error; err != nil {
			return nil, false, err
		}
	}
	return &product, false, nil
}

// LookupByBarcode는 바코드에 매핑된 상품을 모두 반환한다.
// 0건/1건/다건 구분이 중요하다: 다건이면 호출부는 추측하지 말고 선택을 요구해야 한다.
func LookupByBarcode(db *gorm.DB, barcode string) ([]models.Product, error) {
	var products []models.Product
	err := db.Where("barcode = ?", strings.TrimSpace(barcode)).
		Order("name").Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

// UpsertLocation은 로케이션을 대문자 정규화된 바코드로 조회하고 없으면 생성한다.
// 반환값은 (로케이션, 새로 생성 여부).
func UpsertLocation(db *gorm.DB, barcode string) (*models.Location, bool, error) {
	normalized := strings.ToUpper(strings.TrimSpace(barcode))

	var location models.Location
	err := db.Where("barcode = ?", normalized).First(&location).Error
	if err == nil {
		return &location, false, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, false, err
	}

	location = models.Location{Barcode: normalized}
	if err := db.Create(&location).Error; err != nil {
		// 동시 생성 레이스: 다른 요청이 먼저 만들었으면 그대로 사용
		var raced models.Location
		if lookupErr := db.Where("barcode = ?", normalized).First(&raced).Error; lookupErr == nil {
			return &raced, false, nil
		}
		return nil, false, err
	}
	return &location, true, nil
}
