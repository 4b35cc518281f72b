package inspection

import (
	"fmt"
	"strings"
	"time"

	"logis-backoffice/internal/audit"
	"logis-backoffice/internal/auth"
	"logis-backoffice/internal/config"
	"logis-backoffice/internal/database"
	"logis-backoffice/internal/models"
	"logis-backoffice/internal/xlsx"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

var validate = validator.New()

// POST /api/inspection/upload
// 엑셀 파일과 배치 메타(출력차수, 배송메모)를 받아 송장을 등록한다.
func UploadHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := auth.Require(c, auth.ActionUploadOrders); err != nil {
			return err
		}

		fileHeader, err := c.FormFile("file")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false, "message": "파일이 없습니다.",
			})
		}

		lower := strings.ToLower(fileHeader.Filename)
		if !strings.HasSuffix(lower, ".xlsx") && !strings.HasSuffix(lower, ".xls") {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false, "message": "엑셀 파일만 업로드 가능합니다.",
			})
		}

		file, err := fileHeader.Open()
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false, "message": fmt.Sprintf("파일 처리 중 오류: %v", err),
			})
		}
		defer file.Close()

		sheet, err := xlsx.ReadSheet(file)
		if err != nil {
			// 파싱 예외는 그대로 노출하지 않고 구조화된 결과로 감싼다
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false, "message": fmt.Sprintf("파일 처리 중 오류: %v", err),
			})
		}

		parsed, err := Parse(sheet)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false, "message": err.Error(),
			})
		}

		if len(parsed.Orders) == 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false, "message": "유효한 데이터가 없습니다.",
			})
		}

		uploadedBy := ""
		if worker := auth.WorkerName(c); worker != nil {
			uploadedBy = *worker
		}

		result, err := Ingest(database.DB, IngestOptions{
			FileName:     fileHeader.Filename,
			PrintOrder:   strings.TrimSpace(c.FormValue("print_order")),
			DeliveryMemo: strings.TrimSpace(c.FormValue("delivery_memo")),
			UploadedBy:   uploadedBy,
		}, parsed)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "업로드를 저장할 수 없습니다.")
		}

		message := fmt.Sprintf("%d건의 송장이 등록되었습니다.", result.TotalOrders)
		if result.Duplicated > 0 {
			message += fmt.Sprintf(" (중복 %d건 재등록)", result.Duplicated)
		}

		return c.JSON(fiber.Map{
			"success":        true,
			"message":        message,
			"batch_id":       result.BatchID,
			"total_orders":   result.TotalOrders,
			"total_products": result.TotalProducts,
			"duplicated":     result.Duplicated,
		})
	}
}

// GET /api/inspection/orders/:tracking_number
func GetOrderHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		trackingNumber := strings.TrimSpace(c.Params("tracking_number"))
		worker := auth.WorkerName(c)

		result, err := LookupOrder(database.DB, trackingNumber, worker)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "송장을 조회할 수 없습니다.")
		}

		if !result.Found {
			return c.JSON(fiber.Map{
				"success":    false,
				"alert_code": models.AlertUnknownTracking,
				"message":    "등록되지 않은 송장번호입니다.",
			})
		}

		resp := fiber.Map{
			"success":    true,
			"alert_code": result.AlertCode,
			"order":      orderDict(&result.Order, result.AlertCode == models.AlertAlreadyShipped),
			"products":   productDicts(result.Order.Products),
		}
		return c.JSON(resp)
	}
}

type ScanProductRequest struct {
	TrackingNumber string `json:"tracking_number" validate:"required"`
	Barcode        string `json:"barcode" validate:"required"`
}

// POST /api/inspection/scan/product
func ScanProductHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := auth.Require(c, auth.ActionScanInspection); err != nil {
			return err
		}

		var body ScanProductRequest
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false, "message": "잘못된 요청입니다.",
			})
		}
		body.TrackingNumber = strings.TrimSpace(body.TrackingNumber)
		body.Barcode = strings.TrimSpace(body.Barcode)
		if err := validate.Struct(body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false, "message": "송장번호와 바코드가 필요합니다.",
			})
		}

		worker := auth.WorkerName(c)
		result, err := ScanProduct(database.DB, body.TrackingNumber, body.Barcode, worker)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "스캔을 처리할 수 없습니다.")
		}

		if !result.Success {
			return c.JSON(fiber.Map{
				"success":    false,
				"alert_code": result.AlertCode,
				"message":    result.Message,
			})
		}

		if result.AllCompleted {
			// 배치 전체 완료 여부는 응답 이후 백그라운드에서 확인
			if result.Order.UploadBatchID != nil {
				batchID := *result.Order.UploadBatchID
				go NotifyBatchIfComplete(cfg, database.DB, batchID)
			}

			return c.JSON(fiber.Map{
				"success":       true,
				"alert_code":    result.AlertCode,
				"all_completed": true,
				"product":       productDict(*result.Product),
				"order": fiber.Map{
					"tracking_number": result.Order.TrackingNumber,
					"completed_at":    result.Order.CompletedAt.Format(time.RFC3339),
				},
			})
		}

		return c.JSON(fiber.Map{
			"success":       true,
			"alert_code":    result.AlertCode,
			"remaining":     result.Remaining,
			"product":       productDict(*result.Product),
			"all_completed": false,
			"products":      productDicts(result.Products),
		})
	}
}

type CompleteRequest struct {
	TrackingNumber string `json:"tracking_number" validate:"required"`
}

// POST /api/inspection/scan/complete
// 스캔 자동 완료 대신 수동으로 검수를 종결한다.
func CompleteHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := auth.Require(c, auth.ActionScanInspection); err != nil {
			return err
		}

		var body CompleteRequest
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false, "message": "잘못된 요청입니다.",
			})
		}
		body.TrackingNumber = strings.TrimSpace(body.TrackingNumber)
		if err := validate.Struct(body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false, "message": "송장번호가 필요합니다.",
			})
		}

		worker := auth.WorkerName(c)
		result, err := CompleteInspection(database.DB, body.TrackingNumber, worker)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "완료 처리를 할 수 없습니다.")
		}

		if !result.Success {
			return c.JSON(fiber.Map{
				"success": false,
				"message": result.Message,
			})
		}

		if result.Order.UploadBatchID != nil {
			batchID := *result.Order.UploadBatchID
			go NotifyBatchIfComplete(cfg, database.DB, batchID)
		}

		return c.JSON(fiber.Map{
			"success":         true,
			"message":         result.Message,
			"tracking_number": result.Order.TrackingNumber,
			"completed_at":    result.Order.CompletedAt.Format(time.RFC3339),
		})
	}
}

// GET /api/inspection/logs
// 필터: tracking_number, alert_code, date_from, date_to (YYYY-MM-DD)
func LogsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := auth.Require(c, auth.ActionViewLogs); err != nil {
			return err
		}

		filter := audit.LogFilter{
			TrackingNumber: strings.TrimSpace(c.Query("tracking_number")),
			AlertCode:      strings.TrimSpace(c.Query("alert_code")),
		}
		if v := c.Query("date_from"); v != "" {
			t, err := time.ParseInLocation("2006-01-02", v, time.Local)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "date_from 형식은 'YYYY-MM-DD'이어야 합니다.")
			}
			filter.DateFrom = &t
		}
		if v := c.Query("date_to"); v != "" {
			t, err := time.ParseInLocation("2006-01-02", v, time.Local)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "date_to 형식은 'YYYY-MM-DD'이어야 합니다.")
			}
			filter.DateTo = &t
		}

		logs, total, err := audit.QueryScanLogs(database.DB, filter)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "로그를 조회할 수 없습니다.")
		}

		items := make([]fiber.Map, 0, len(logs))
		for _, l := range logs {
			items = append(items, fiber.Map{
				"id":              l.ID,
				"tracking_number": l.TrackingNumber,
				"barcode":         l.Barcode,
				"scan_type":       l.ScanType,
				"alert_code":      l.AlertCode,
				"worker":          l.Worker,
				"created_at":      l.CreatedAt.Format(time.RFC3339),
			})
		}

		return c.JSON(fiber.Map{
			"success": true,
			"logs":    items,
			"total":   total,
		})
	}
}

// GET /api/inspection/orders
// 오피스팀 현황판: status/search 필터, 최근 100건
func OrdersStatusHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := database.DB.Model(&models.Order{})

		if status := c.Query("status"); status != "" {
			q = q.Where("status = ?", status)
		}
		if search := strings.TrimSpace(c.Query("search")); search != "" {
			q = q.Where("tracking_number ILIKE ?", "%"+search+"%")
		}

		var total int64
		if err := q.Count(&total).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "송장 현황을 조회할 수 없습니다.")
		}

		var orders []models.Order
		if err := q.Preload("Products").Order("uploaded_at DESC").Limit(100).Find(&orders).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "송장 현황을 조회할 수 없습니다.")
		}

		items := make([]fiber.Map, 0, len(orders))
		for _, o := range orders {
			item := fiber.Map{
				"tracking_number": o.TrackingNumber,
				"seller":          o.Seller,
				"receiver_name":   o.ReceiverName,
				"status":          o.Status,
				"uploaded_at":     o.UploadedAt.Format(time.RFC3339),
				"completed_at":    nil,
				"product_count":   len(o.Products),
			}
			if o.CompletedAt != nil {
				item["completed_at"] = o.CompletedAt.Format(time.RFC3339)
			}
			items = append(items, item)
		}

		return c.JSON(fiber.Map{
			"success": true,
			"orders":  items,
			"total":   total,
		})
	}
}

// GET /api/inspection/batches
func ListBatchesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := auth.Require(c, auth.ActionManageBatches); err != nil {
			return err
		}

		var batches []models.UploadBatch
		if err := database.DB.Order("uploaded_at DESC").Find(&batches).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "업로드 이력을 조회할 수 없습니다.")
		}

		items := make([]fiber.Map, 0, len(batches))
		for _, b := range batches {
			items = append(items, fiber.Map{
				"id":             b.ID,
				"file_name":      b.FileName,
				"print_order":    b.PrintOrder,
				"delivery_memo":  b.DeliveryMemo,
				"total_orders":   b.TotalOrders,
				"total_products": b.TotalProducts,
				"uploaded_by":    b.UploadedBy,
				"uploaded_at":    b.UploadedAt.Format(time.RFC3339),
			})
		}

		return c.JSON(fiber.Map{"success": true, "batches": items})
	}
}

// DELETE /api/inspection/batches/:id
// 배치와 소속 송장/상품을 함께 삭제한다.
func DeleteBatchHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := auth.Require(c, auth.ActionManageBatches); err != nil {
			return err
		}

		id, err := c.ParamsInt("id")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "잘못된 배치 ID입니다.")
		}

		var batch models.UploadBatch
		if err := database.DB.First(&batch, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "업로드 이력을 찾을 수 없습니다.")
		}

		err = database.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Where(
				"order_id IN (?)",
				tx.Model(&models.Order{}).Select("id").Where("upload_batch_id = ?", batch.ID),
			).Delete(&models.OrderProduct{}).Error; err != nil {
				return err
			}
			if err := tx.Where("upload_batch_id = ?", batch.ID).Delete(&models.Order{}).Error; err != nil {
				return err
			}
			return tx.Delete(&batch).Error
		})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "업로드 이력을 삭제할 수 없습니다.")
		}

		return c.JSON(fiber.Map{"success": true})
	}
}

func orderDict(o *models.Order, includeCompletedAt bool) fiber.Map {
	dict := fiber.Map{
		"tracking_number":  o.TrackingNumber,
		"seller":           o.Seller,
		"receiver_name":    o.ReceiverName,
		"receiver_phone":   o.ReceiverPhone,
		"receiver_address": o.ReceiverAddress,
		"status":           o.Status,
	}
	if includeCompletedAt {
		if o.CompletedAt != nil {
			dict["completed_at"] = o.CompletedAt.Format(time.RFC3339)
		} else {
			dict["completed_at"] = nil
		}
	}
	return dict
}

func productDict(p models.OrderProduct) fiber.Map {
	return fiber.Map{
		"id":               p.ID,
		"barcode":          p.Barcode,
		"product_name":     p.ProductName,
		"quantity":         p.Quantity,
		"scanned_quantity": p.ScannedQuantity,
	}
}

func productDicts(products []models.OrderProduct) []fiber.Map {
	dicts := make([]fiber.Map, 0, len(products))
	for _, p := range products {
		dicts = append(dicts, productDict(p))
	}
	return dicts
}
