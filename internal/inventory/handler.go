package inventory

import (
	"strings"
	"time"

	"logis-backoffice/internal/auth"
	"logis-backoffice/internal/database"
	"logis-backoffice/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

type StartSessionRequest struct {
	Name string `json:"name" validate:"required"`
}

// POST /api/inventory/sessions
func StartSessionHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := auth.Require(c, auth.ActionManageSessions); err != nil {
			return err
		}

		var body StartSessionRequest
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false, "message": "잘못된 요청입니다.",
			})
		}
		body.Name = strings.TrimSpace(body.Name)
		if err := validate.Struct(body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false, "message": "세션 이름이 필요합니다.",
			})
		}

		startedBy := ""
		if worker := auth.WorkerName(c); worker != nil {
			startedBy = *worker
		}

		created, conflict, err := StartSession(database.DB, body.Name, startedBy)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "세션을 시작할 수 없습니다.")
		}
		if conflict != nil {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"success": false,
				"message": "이미 진행 중인 세션이 있습니다: " + conflict.Name,
				"session": sessionDict(conflict),
			})
		}

		return c.JSON(fiber.Map{
			"success": true,
			"message": "재고조사 세션이 시작되었습니다.",
			"session": sessionDict(created),
		})
	}
}

// POST /api/inventory/sessions/:id/end
func EndSessionHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := auth.Require(c, auth.ActionManageSessions); err != nil {
			return err
		}

		id, err := c.ParamsInt("id")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "잘못된 세션 ID입니다.")
		}

		session, err := EndSession(database.DB, uint(id))
		switch err {
		case nil:
		case ErrSessionNotFound:
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		case ErrSessionClosed:
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false, "message": err.Error(),
			})
		default:
			return fiber.NewError(fiber.StatusInternalServerError, "세션을 종료할 수 없습니다.")
		}

		return c.JSON(fiber.Map{
			"success": true,
			"message": "재고조사 세션이 종료되었습니다.",
			"session": sessionDict(session),
		})
	}
}

// GET /api/inventory/sessions
func ListSessionsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		summaries, err := ListSessions(database.DB)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "세션 목록을 조회할 수 없습니다.")
		}
		return c.JSON(fiber.Map{"success": true, "sessions": summaries})
	}
}

// GET /api/inventory/sessions/active
// 작업자 화면 진입 시 호출. 활성 세션이 없으면 success=false.
func ActiveSessionHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, err := ActiveSession(database.DB)
		if err == ErrNoActiveSession {
			return c.JSON(fiber.Map{
				"success": false, "message": err.Error(),
			})
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "세션을 조회할 수 없습니다.")
		}
		return c.JSON(fiber.Map{"success": true, "session": sessionDict(session)})
	}
}

type ScanLocationRequest struct {
	Barcode string `json:"barcode" validate:"required"`
}

// POST /api/inventory/scan/location
func ScanLocationHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := auth.Require(c, auth.ActionScanInventory); err != nil {
			return err
		}

		var body ScanLocationRequest
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false, "message": "잘못된 요청입니다.",
			})
		}
		body.Barcode = strings.TrimSpace(body.Barcode)
		if err := validate.Struct(body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false, "message": "로케이션 바코드가 필요합니다.",
			})
		}

		result, err := ScanLocation(database.DB, body.Barcode)
		if err == ErrNoActiveSession {
			return c.JSON(fiber.Map{
				"success": false, "message": err.Error(),
			})
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "로케이션 스캔을 처리할 수 없습니다.")
		}

		return c.JSON(fiber.Map{
			"success": true,
			"location": fiber.Map{
				"id":      result.Location.ID,
				"barcode": result.Location.Barcode,
				"name":    result.Location.Name,
				"zone":    result.Location.Zone,
			},
			"created":      result.Created,
			"record_count": result.RecordCount,
		})
	}
}

type ScanProductCountRequest struct {
	SessionID   uint   `json:"session_id" validate:"required"`
	LocationID  uint   `json:"location_id" validate:"required"`
	Barcode     string `json:"barcode"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	ExpiryDate  string `json:"expiry_date"`
	LotNumber   string `json:"lot_number"`
}

// POST /api/inventory/scan/product
func ScanProductCountHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := auth.Require(c, auth.ActionScanInventory); err != nil {
			return err
		}

		var body ScanProductCountRequest
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false, "message": "잘못된 요청입니다.",
			})
		}
		if err := validate.Struct(body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false, "message": "세션과 로케이션이 필요합니다.",
			})
		}

		worker := ""
		if w := auth.WorkerName(c); w != nil {
			worker = *w
		}

		result, err := ScanProductCount(database.DB, CountScanInput{
			SessionID:   body.SessionID,
			LocationID:  body.LocationID,
			Barcode:     body.Barcode,
			ProductName: body.ProductName,
			Quantity:    body.Quantity,
			ExpiryDate:  strings.TrimSpace(body.ExpiryDate),
			LotNumber:   strings.TrimSpace(body.LotNumber),
			Worker:      worker,
		})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "수량 등록을 처리할 수 없습니다.")
		}

		if result.Rejected {
			resp := fiber.Map{
				"success": false,
				"code":    result.RejectCode,
				"message": result.Message,
			}
			if len(result.Candidates) > 0 {
				candidates := make([]fiber.Map, 0, len(result.Candidates))
				for i := range result.Candidates {
					p := &result.Candidates[i]
					candidates = append(candidates, fiber.Map{
						"id":           p.ID,
						"barcode":      p.Barcode,
						"name":         p.Name,
						"display_name": p.DisplayName,
						"option_code":  p.OptionCode,
						"label":        p.Label(),
					})
				}
				resp["candidates"] = candidates
			}
			return c.JSON(resp)
		}

		return c.JSON(fiber.Map{
			"success":     true,
			"accumulated": result.Accumulated,
			"record":      recordView(*result.Record),
		})
	}
}

// GET /api/inventory/sessions/:id/records
// group=location(기본)|product, search=부분 일치 검색어
func ListRecordsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "잘못된 세션 ID입니다.")
		}
		search := c.Query("search")

		if c.Query("group") == "product" {
			groups, err := ListRecordsByProduct(database.DB, uint(id), search)
			if err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "기록을 조회할 수 없습니다.")
			}
			return c.JSON(fiber.Map{"success": true, "group": "product", "products": groups})
		}

		groups, err := ListRecordsByLocation(database.DB, uint(id), search)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "기록을 조회할 수 없습니다.")
		}
		return c.JSON(fiber.Map{"success": true, "group": "location", "locations": groups})
	}
}

// GET /api/inventory/locations/:id/records
// 활성 세션에서 해당 로케이션에 등록된 기록만 반환한다.
func LocationRecordsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "잘못된 로케이션 ID입니다.")
		}

		session, err := ActiveSession(database.DB)
		if err == ErrNoActiveSession {
			return c.JSON(fiber.Map{"success": false, "message": err.Error()})
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "세션을 조회할 수 없습니다.")
		}

		records, err := ListLocationRecords(database.DB, session.ID, uint(id))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "기록을 조회할 수 없습니다.")
		}
		return c.JSON(fiber.Map{"success": true, "records": records})
	}
}

// DELETE /api/inventory/records/:id
func DeleteRecordHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := auth.Require(c, auth.ActionManageInventory); err != nil {
			return err
		}

		id, err := c.ParamsInt("id")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "잘못된 기록 ID입니다.")
		}

		switch err := DeleteRecord(database.DB, uint(id)); err {
		case nil:
			return c.JSON(fiber.Map{"success": true})
		case ErrRecordNotFound:
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		default:
			return fiber.NewError(fiber.StatusInternalServerError, "기록을 삭제할 수 없습니다.")
		}
	}
}

func sessionDict(s *models.InventorySession) fiber.Map {
	dict := fiber.Map{
		"id":         s.ID,
		"name":       s.Name,
		"status":     s.Status,
		"started_at": s.StartedAt.Format(time.RFC3339),
		"started_by": s.StartedBy,
		"ended_at":   nil,
	}
	if s.EndedAt != nil {
		dict["ended_at"] = s.EndedAt.Format(time.RFC3339)
	}
	return dict
}
