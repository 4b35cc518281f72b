package inspection

import (
	"fmt"
	"log"
	"time"

	"logis-backoffice/internal/config"
	"logis-backoffice/internal/models"
	"logis-backoffice/internal/notify"

	"gorm.io/gorm"
)

// NotifyBatchIfComplete는 배치의 모든 송장이 완료되었으면 슬랙으로 요약을 전송한다.
// 스캔 트랜잭션 커밋 이후 고루틴에서 호출된다 (전송 실패는 검수 처리에 영향 없음).
func NotifyBatchIfComplete(cfg *config.Config, db *gorm.DB, batchID uint) {
	webhookURL := cfg.SlackWebhookInspection
	if webhookURL == "" {
		webhookURL = cfg.SlackWebhookURL
	}
	if webhookURL == "" {
		return
	}

	var remaining int64
	if err := db.Model(&models.Order{}).
		Where("upload_batch_id = ? AND status <> ?", batchID, models.StatusCompleted).
		Count(&remaining).Error; err != nil {
		log.Printf("[WARN] 배치 완료 확인 실패: %v", err)
		return
	}
	if remaining > 0 {
		return
	}

	// 동시에 마지막 송장을 완료한 두 스캐너가 모두 알림을 보내지 않도록
	// notified 플래그를 조건부로 선점한다.
	claim := db.Model(&models.UploadBatch{}).
		Where("id = ? AND notified = ?", batchID, false).
		Update("notified", true)
	if claim.Error != nil {
		log.Printf("[WARN] 배치 알림 플래그 갱신 실패: %v", claim.Error)
		return
	}
	if claim.RowsAffected == 0 {
		return // 이미 다른 요청이 알림을 전송함
	}

	var batch models.UploadBatch
	if err := db.First(&batch, "id = ?", batchID).Error; err != nil {
		log.Printf("[WARN] 배치 조회 실패: %v", err)
		return
	}

	var orders []models.Order
	if err := db.Where("upload_batch_id = ?", batchID).Find(&orders).Error; err != nil {
		log.Printf("[WARN] 배치 송장 조회 실패: %v", err)
		return
	}

	var totalProducts int64
	db.Model(&models.OrderProduct{}).
		Joins("JOIN orders ON orders.id = order_products.order_id").
		Where("orders.upload_batch_id = ?", batchID).
		Select("COALESCE(SUM(order_products.quantity), 0)").
		Scan(&totalProducts)

	// 소요 시간: 첫 송장 완료 ~ 마지막 송장 완료
	var first, last *time.Time
	for i := range orders {
		t := orders[i].CompletedAt
		if t == nil {
			continue
		}
		if first == nil || t.Before(*first) {
			first = t
		}
		if last == nil || t.After(*last) {
			last = t
		}
	}

	durationLine := ""
	if first != nil && last != nil {
		durationLine = fmt.Sprintf("*소요시간:*  %s (%s ~ %s)",
			notify.Duration(last.Sub(*first)),
			first.Local().Format("15:04"),
			last.Local().Format("15:04"))
	}

	printOrderLine := ""
	if batch.PrintOrder != "" {
		printOrderLine = fmt.Sprintf("*출력차수:*  %s", batch.PrintOrder)
	}
	memoLine := ""
	if batch.DeliveryMemo != "" {
		memoLine = fmt.Sprintf("*배송메모:*  %s", batch.DeliveryMemo)
	}

	uploadedByText := ""
	if batch.UploadedBy != "" {
		uploadedByText = " | 업로드자: " + batch.UploadedBy
	}

	blocks := []notify.Block{
		notify.Header("검수 완료"),
		notify.Section(fmt.Sprintf(":package: *%s*", batch.FileName)),
		notify.Section(notify.JoinLines(
			printOrderLine,
			memoLine,
			fmt.Sprintf("*송장 수:*  %d건", len(orders)),
			fmt.Sprintf("*상품 수:*  %d개", totalProducts),
			durationLine,
		)),
		notify.Context(fmt.Sprintf("업로드: %s | 완료: %s%s",
			batch.UploadedAt.Local().Format("2006-01-02 15:04"),
			time.Now().Local().Format("2006-01-02 15:04"),
			uploadedByText)),
	}
	if cfg.SiteURL != "" {
		blocks = append(blocks, notify.LinkButton("관리 페이지 열기", cfg.SiteURL+"/inspection/office/", "open_office_page"))
	}

	notify.Post(webhookURL,
		fmt.Sprintf("검수 완료: %s (%d건)", batch.FileName, len(orders)),
		blocks)
}
