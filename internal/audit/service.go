package audit

import (
	"log"
	"time"

	"logis-backoffice/internal/models"

	"gorm.io/gorm"
)

// LogOptions: 검수 로그 한 건의 기록 옵션
type LogOptions struct {
	TrackingNumber string
	Barcode        *string
	ScanType       models.ScanType
	AlertCode      models.AlertCode
	Worker         *string
}

// WriteScanLog는 스캔 시도를 기록한다. 진단용 append-only 데이터이므로
// 실패해도 본 처리를 막지 않고 경고만 남긴다.
func WriteScanLog(db *gorm.DB, opts LogOptions) {
	entry := models.InspectionLog{
		TrackingNumber: opts.TrackingNumber,
		Barcode:        opts.Barcode,
		ScanType:       opts.ScanType,
		AlertCode:      opts.AlertCode,
		Worker:         opts.Worker,
	}
	if err := db.Create(&entry).Error; err != nil {
		log.Printf("[WARN] 검수 로그 기록 실패: %v", err)
	}
}

// LogFilter: 로그 조회 필터. 각 항목은 독립적으로 선택 가능.
type LogFilter struct {
	TrackingNumber string
	AlertCode      string
	DateFrom       *time.Time // 해당 날짜 00:00 포함
	DateTo         *time.Time // 해당 날짜 24:00 미만
	Limit          int        // 0이면 기본 200
}

// QueryScanLogs는 필터에 맞는 로그를 최신순으로 반환한다 (최대 Limit건, 전체 건수 별도).
func QueryScanLogs(db *gorm.DB, f LogFilter) ([]models.InspectionLog, int64, error) {
	q := db.Model(&models.InspectionLog{})

	if f.TrackingNumber != "" {
		q = q.Where("tracking_number = ?", f.TrackingNumber)
	}
	if f.AlertCode != "" {
		q = q.Where("alert_code = ?", f.AlertCode)
	}
	if f.DateFrom != nil {
		q = q.Where("created_at >= ?", *f.DateFrom)
	}
	if f.DateTo != nil {
		q = q.Where("created_at < ?", f.DateTo.AddDate(0, 0, 1))
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 200
	}

	var logs []models.InspectionLog
	if err := q.Order("created_at DESC, id DESC").Limit(limit).Find(&logs).Error; err != nil {
		return nil, 0, err
	}

	return logs, total, nil
}
