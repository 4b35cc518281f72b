package inspection

import (
	"logis-backoffice/internal/models"

	"gorm.io/gorm"
)

// IngestOptions: 업로드 커밋에 필요한 배치 메타데이터
type IngestOptions struct {
	FileName     string
	PrintOrder   string
	DeliveryMemo string
	UploadedBy   string
}

type IngestResult struct {
	BatchID       uint
	TotalOrders   int
	TotalProducts int
	Duplicated    int // 기존 송장을 대체한 건수
}

// Ingest는 파싱된 송장들을 하나의 트랜잭션으로 저장한다.
//
// 동일 송장번호가 이미 있으면 기존 송장과 상품을 지우고 새로 넣는다
// (병합이 아니라 전체 대체). 삭제는 ORM cascade에 맡기지 않고
// 상품 → 송장 순으로 직접 수행해 트랜잭션 경계를 드러낸다.
func Ingest(db *gorm.DB, opts IngestOptions, parsed *ParseResult) (*IngestResult, error) {
	result := &IngestResult{}

	err := db.Transaction(func(tx *gorm.DB) error {
		batch := models.UploadBatch{
			FileName:     opts.FileName,
			PrintOrder:   opts.PrintOrder,
			DeliveryMemo: opts.DeliveryMemo,
			UploadedBy:   opts.UploadedBy,
		}
		if err := tx.Create(&batch).Error; err != nil {
			return err
		}

		for _, po := range parsed.Orders {
			var existing models.Order
			err := tx.Where("tracking_number = ?", po.TrackingNumber).First(&existing).Error
			if err == nil {
				if err := tx.Where("order_id = ?", existing.ID).Delete(&models.OrderProduct{}).Error; err != nil {
					return err
				}
				if err := tx.Delete(&existing).Error; err != nil {
					return err
				}
				result.Duplicated++
			} else if err != gorm.ErrRecordNotFound {
				return err
			}

			order := models.Order{
				UploadBatchID:   &batch.ID,
				TrackingNumber:  po.TrackingNumber,
				Seller:          po.Seller,
				ReceiverName:    po.ReceiverName,
				ReceiverPhone:   po.ReceiverPhone,
				ReceiverAddress: po.ReceiverAddress,
				RegisteredDate:  po.RegisteredDate,
				Courier:         po.Courier,
				PrintOrder:      po.PrintOrder,
				DeliveryMemo:    po.DeliveryMemo,
				Status:          models.StatusWaiting,
			}
			if err := tx.Create(&order).Error; err != nil {
				return err
			}
			result.TotalOrders++

			if len(po.Items) > 0 {
				products := make([]models.OrderProduct, 0, len(po.Items))
				for _, item := range po.Items {
					products = append(products, models.OrderProduct{
						OrderID:     order.ID,
						Barcode:     item.Barcode,
						ProductName: item.Name,
						Quantity:    item.Quantity,
					})
				}
				if err := tx.Create(&products).Error; err != nil {
					return err
				}
				result.TotalProducts += len(products)
			}
		}

		// 집계는 커밋 직전에 한 번만 기록
		updates := map[string]interface{}{
			"total_orders":   result.TotalOrders,
			"total_products": result.TotalProducts,
		}
		if err := tx.Model(&batch).Updates(updates).Error; err != nil {
			return err
		}

		result.BatchID = batch.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}
