package inspection

import (
	"fmt"
	"time"

	"logis-backoffice/internal/audit"
	"logis-backoffice/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// 검수 상태 머신: 대기중 → 검수중 → 완료 (완료는 종결 상태)
//
// 모든 비즈니스 거절(미등록 송장, 중복스캔, 상품오류 등)은 구조화된 결과로
// 반환하며 에러는 DB 장애 같은 예외 상황에만 쓴다.

type LookupResult struct {
	Found     bool
	AlertCode models.AlertCode
	Order     models.Order // Found일 때만 유효 (Products 포함)
}

// LookupOrder는 송장번호로 송장을 조회한다. 조회 자체도 스캔 시도로 기록된다.
//
// 이미 완료된 송장은 '기처리배송' 경고와 함께 데이터를 그대로 반환한다.
// 완료된 박스를 다시 확인해야 하는 경우가 있어 의도적으로 차단하지 않는다.
func LookupOrder(db *gorm.DB, trackingNumber string, worker *string) (*LookupResult, error) {
	var order models.Order
	err := db.Preload("Products", func(q *gorm.DB) *gorm.DB {
		return q.Order("order_products.id")
	}).Where("tracking_number = ?", trackingNumber).First(&order).Error

	if err == gorm.ErrRecordNotFound {
		audit.WriteScanLog(db, audit.LogOptions{
			TrackingNumber: trackingNumber,
			ScanType:       models.ScanTypeTracking,
			AlertCode:      models.AlertUnknownTracking,
			Worker:         worker,
		})
		return &LookupResult{Found: false, AlertCode: models.AlertUnknownTracking}, nil
	}
	if err != nil {
		return nil, err
	}

	code := models.AlertNormal
	if order.Status == models.StatusCompleted {
		code = models.AlertAlreadyShipped
	}

	audit.WriteScanLog(db, audit.LogOptions{
		TrackingNumber: trackingNumber,
		ScanType:       models.ScanTypeTracking,
		AlertCode:      code,
		Worker:         worker,
	})

	return &LookupResult{Found: true, AlertCode: code, Order: order}, nil
}

type ScanResult struct {
	Success      bool
	AlertCode    models.AlertCode
	Message      string
	AllCompleted bool
	Remaining    int                   // 이번에 스캔한 상품의 잔여 수량
	Product      *models.OrderProduct  // 이번에 증가한 상품
	Products     []models.OrderProduct // 송장의 전체 상품 현황
	Order        models.Order
}

// ScanProduct는 상품 바코드 스캔 한 번을 처리한다.
//
// 동시에 여러 작업자가 같은 송장을 스캔할 수 있으므로 송장 행과 바코드가
// 일치하는 상품 행을 먼저 FOR UPDATE로 잠근 뒤에 증가 대상을 고른다.
// 잠금 없이는 두 스캐너가 같은 상품을 동시에 "스캔 가능"으로 읽어
// scanned > quantity 가 될 수 있다.
func ScanProduct(db *gorm.DB, trackingNumber, barcode string, worker *string) (*ScanResult, error) {
	result := &ScanResult{}

	err := db.Transaction(func(tx *gorm.DB) error {
		var order models.Order
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("tracking_number = ?", trackingNumber).First(&order).Error
		if err == gorm.ErrRecordNotFound {
			result.AlertCode = models.AlertUnknownTracking
			result.Message = "등록되지 않은 송장번호입니다."
			return nil
		}
		if err != nil {
			return err
		}

		var matches []models.OrderProduct
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("order_id = ? AND barcode = ?", order.ID, barcode).
			Order("id").Find(&matches).Error; err != nil {
			return err
		}

		if len(matches) == 0 {
			result.AlertCode = models.AlertProductError
			result.Message = "해당 송장에 없는 상품입니다."
			audit.WriteScanLog(tx, audit.LogOptions{
				TrackingNumber: trackingNumber,
				Barcode:        &barcode,
				ScanType:       models.ScanTypeProduct,
				AlertCode:      models.AlertProductError,
				Worker:         worker,
			})
			return nil
		}

		// 스캔 가능한 첫 상품 (등록 순서 기준 first-fit)
		var target *models.OrderProduct
		for i := range matches {
			if matches[i].ScannedQuantity < matches[i].Quantity {
				target = &matches[i]
				break
			}
		}

		if target == nil {
			result.AlertCode = models.AlertDuplicateScan
			result.Message = "이미 스캔 완료된 상품입니다."
			audit.WriteScanLog(tx, audit.LogOptions{
				TrackingNumber: trackingNumber,
				Barcode:        &barcode,
				ScanType:       models.ScanTypeProduct,
				AlertCode:      models.AlertDuplicateScan,
				Worker:         worker,
			})
			return nil
		}

		target.ScannedQuantity++
		if err := tx.Model(target).Update("scanned_quantity", target.ScannedQuantity).Error; err != nil {
			return err
		}

		if order.Status == models.StatusWaiting {
			order.Status = models.StatusInspecting
			if err := tx.Model(&order).Update("status", order.Status).Error; err != nil {
				return err
			}
		}

		remaining := target.Quantity - target.ScannedQuantity

		// 완료 판정은 방금 만진 상품이 아니라 송장 전체로 다시 계산한다.
		var all []models.OrderProduct
		if err := tx.Where("order_id = ?", order.ID).Order("id").Find(&all).Error; err != nil {
			return err
		}
		allCompleted := true
		for _, p := range all {
			if p.ScannedQuantity < p.Quantity {
				allCompleted = false
				break
			}
		}

		if allCompleted {
			now := time.Now()
			order.Status = models.StatusCompleted
			order.CompletedAt = &now
			if err := tx.Model(&order).Updates(map[string]interface{}{
				"status":       order.Status,
				"completed_at": order.CompletedAt,
			}).Error; err != nil {
				return err
			}

			audit.WriteScanLog(tx, audit.LogOptions{
				TrackingNumber: trackingNumber,
				Barcode:        &barcode,
				ScanType:       models.ScanTypeProduct,
				AlertCode:      models.AlertCompleted,
				Worker:         worker,
			})

			result.Success = true
			result.AlertCode = models.AlertCompleted
			result.AllCompleted = true
			result.Product = target
			result.Products = all
			result.Order = order
			return nil
		}

		code := models.AlertNormal
		if remaining > 0 {
			code = models.AlertRemaining
		}

		audit.WriteScanLog(tx, audit.LogOptions{
			TrackingNumber: trackingNumber,
			Barcode:        &barcode,
			ScanType:       models.ScanTypeProduct,
			AlertCode:      code,
			Worker:         worker,
		})

		result.Success = true
		result.AlertCode = code
		result.Remaining = remaining
		result.Product = target
		result.Products = all
		result.Order = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

type CompleteResult struct {
	Success         bool
	AlertCode       models.AlertCode
	Message         string
	IncompleteCount int
	Order           models.Order
}

// CompleteInspection은 수동 완료 처리다. 모든 상품이 스캔 완료 상태일 때만 허용한다.
func CompleteInspection(db *gorm.DB, trackingNumber string, worker *string) (*CompleteResult, error) {
	result := &CompleteResult{}

	err := db.Transaction(func(tx *gorm.DB) error {
		var order models.Order
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("tracking_number = ?", trackingNumber).First(&order).Error
		if err == gorm.ErrRecordNotFound {
			result.AlertCode = models.AlertUnknownTracking
			result.Message = "등록되지 않은 송장번호입니다."
			return nil
		}
		if err != nil {
			return err
		}

		var all []models.OrderProduct
		if err := tx.Where("order_id = ?", order.ID).Find(&all).Error; err != nil {
			return err
		}

		incomplete := 0
		for _, p := range all {
			if p.ScannedQuantity < p.Quantity {
				incomplete++
			}
		}
		if incomplete > 0 {
			result.IncompleteCount = incomplete
			result.Message = fmt.Sprintf("아직 스캔하지 않은 상품이 %d건 있습니다.", incomplete)
			return nil
		}

		now := time.Now()
		order.Status = models.StatusCompleted
		order.CompletedAt = &now
		if err := tx.Model(&order).Updates(map[string]interface{}{
			"status":       order.Status,
			"completed_at": order.CompletedAt,
		}).Error; err != nil {
			return err
		}

		audit.WriteScanLog(tx, audit.LogOptions{
			TrackingNumber: trackingNumber,
			ScanType:       models.ScanTypeProduct,
			AlertCode:      models.AlertCompleted,
			Worker:         worker,
		})

		result.Success = true
		result.AlertCode = models.AlertCompleted
		result.Message = "검수가 완료되었습니다."
		result.Order = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}
