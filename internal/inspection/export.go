package inspection

import (
	"fmt"
	"time"

	"logis-backoffice/internal/auth"
	"logis-backoffice/internal/database"
	"logis-backoffice/internal/models"
	"logis-backoffice/internal/xlsx"

	"github.com/gofiber/fiber/v2"
)

// GET /api/inspection/orders/export
// 송장을 상품분리 양식으로 내려받는다. 이 파일을 다시 업로드하면
// 동일 송장번호 대체 규칙에 따라 같은 데이터가 재구성된다.
// 필터: batch_id, status (둘 다 선택)
func ExportOrdersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := auth.Require(c, auth.ActionManageBatches); err != nil {
			return err
		}

		q := database.DB.Model(&models.Order{}).Preload("Products")

		if batchID := c.QueryInt("batch_id"); batchID > 0 {
			q = q.Where("upload_batch_id = ?", batchID)
		}
		if status := c.Query("status"); status != "" {
			q = q.Where("status = ?", status)
		}

		var orders []models.Order
		if err := q.Order("uploaded_at, id").Find(&orders).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "송장을 조회할 수 없습니다.")
		}

		var rows [][]interface{}
		for _, o := range orders {
			for _, p := range o.Products {
				rows = append(rows, []interface{}{
					o.TrackingNumber,
					o.Seller,
					o.ReceiverName,
					o.ReceiverPhone,
					o.ReceiverAddress,
					p.Barcode,
					p.ProductName,
					p.Quantity,
				})
			}
		}

		data, err := xlsx.WriteSheet("송장", itemizedRequired, rows)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "엑셀 파일을 생성할 수 없습니다.")
		}

		fileName := fmt.Sprintf("orders_%s.xlsx", time.Now().Format("20060102_150405"))
		c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, fileName))
		return c.Send(data)
	}
}
