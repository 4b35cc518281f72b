package inventory

import (
	"fmt"
	"strings"

	"logis-backoffice/internal/auth"
	"logis-backoffice/internal/database"
	"logis-backoffice/internal/models"
	"logis-backoffice/internal/xlsx"

	"github.com/gofiber/fiber/v2"
)

// 상품 일괄 등록 시 행 단위 오류는 이 개수까지만 응답에 담는다
const maxImportErrors = 20

// GET /api/catalog/products
// search=바코드/상품명/관리명 부분 일치, 최근 200건
func ListProductsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := database.DB.Model(&models.Product{})

		if search := strings.TrimSpace(c.Query("search")); search != "" {
			pattern := "%" + search + "%"
			q = q.Where("barcode ILIKE ? OR name ILIKE ? OR display_name ILIKE ?",
				pattern, pattern, pattern)
		}

		var total int64
		if err := q.Count(&total).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "상품 목록을 조회할 수 없습니다.")
		}

		var products []models.Product
		if err := q.Order("updated_at DESC").Limit(200).Find(&products).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "상품 목록을 조회할 수 없습니다.")
		}

		items := make([]fiber.Map, 0, len(products))
		for i := range products {
			items = append(items, catalogProductDict(&products[i]))
		}
		return c.JSON(fiber.Map{"success": true, "products": items, "total": total})
	}
}

type SaveProductRequest struct {
	Barcode     string `json:"barcode" validate:"required"`
	Name        string `json:"name" validate:"required"`
	DisplayName string `json:"display_name"`
	OptionCode  string `json:"option_code"`
}

// POST /api/catalog/products
// (바코드, 상품명) 기준 업서트. 같은 쌍이 있으면 관리명/옵션코드만 갱신된다.
func SaveProductHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := auth.Require(c, auth.ActionManageCatalog); err != nil {
			return err
		}

		var body SaveProductRequest
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false, "message": "잘못된 요청입니다.",
			})
		}
		body.Barcode = strings.TrimSpace(body.Barcode)
		body.Name = strings.TrimSpace(body.Name)
		if err := validate.Struct(body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false, "message": "바코드와 상품명이 필요합니다.",
			})
		}

		product, created, err := UpsertProduct(database.DB,
			body.Barcode, body.Name,
			strings.TrimSpace(body.DisplayName), strings.TrimSpace(body.OptionCode))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "상품을 저장할 수 없습니다.")
		}

		message := "상품이 수정되었습니다."
		if created {
			message = "상품이 등록되었습니다."
		}
		return c.JSON(fiber.Map{
			"success": true,
			"message": message,
			"created": created,
			"product": catalogProductDict(product),
		})
	}
}

// DELETE /api/catalog/products/:id
func DeleteProductHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := auth.Require(c, auth.ActionManageCatalog); err != nil {
			return err
		}

		id, err := c.ParamsInt("id")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "잘못된 상품 ID입니다.")
		}

		res := database.DB.Delete(&models.Product{}, "id = ?", id)
		if res.Error != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "상품을 삭제할 수 없습니다.")
		}
		if res.RowsAffected == 0 {
			return fiber.NewError(fiber.StatusNotFound, "상품을 찾을 수 없습니다.")
		}
		return c.JSON(fiber.Map{"success": true})
	}
}

// POST /api/catalog/products/import
// 엑셀 일괄 등록. 필수 컬럼: 상품바코드, 상품명 / 선택: 관리명, 옵션코드
func ImportProductsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := auth.Require(c, auth.ActionManageCatalog); err != nil {
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
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false, "message": fmt.Sprintf("파일 처리 중 오류: %v", err),
			})
		}

		index := sheet.HeaderIndex()
		barcodeIdx, hasBarcode := index["상품바코드"]
		nameIdx, hasName := index["상품명"]
		if !hasBarcode || !hasName {
			missing := []string{}
			if !hasBarcode {
				missing = append(missing, "상품바코드")
			}
			if !hasName {
				missing = append(missing, "상품명")
			}
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": "필수 컬럼이 없습니다: " + strings.Join(missing, ", "),
			})
		}
		displayIdx, hasDisplay := index["관리명"]
		optionIdx, hasOption := index["옵션코드"]

		created, updated, skipped := 0, 0, 0
		rowErrors := []string{}
		for i, row := range sheet.Rows {
			barcode := strings.TrimSpace(sheet.Cell(row, barcodeIdx))
			name := strings.TrimSpace(sheet.Cell(row, nameIdx))
			if barcode == "" && name == "" {
				continue
			}
			if barcode == "" || name == "" {
				skipped++
				if len(rowErrors) < maxImportErrors {
					rowErrors = append(rowErrors, fmt.Sprintf("%d행: 바코드 또는 상품명 누락", i+2))
				}
				continue
			}

			displayName := ""
			if hasDisplay {
				displayName = strings.TrimSpace(sheet.Cell(row, displayIdx))
			}
			optionCode := ""
			if hasOption {
				optionCode = strings.TrimSpace(sheet.Cell(row, optionIdx))
			}

			_, wasCreated, err := UpsertProduct(database.DB, barcode, name, displayName, optionCode)
			if err != nil {
				skipped++
				if len(rowErrors) < maxImportErrors {
					rowErrors = append(rowErrors, fmt.Sprintf("%d행: 저장 실패", i+2))
				}
				continue
			}
			if wasCreated {
				created++
			} else {
				updated++
			}
		}

		if created == 0 && updated == 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": "유효한 데이터가 없습니다.",
				"errors":  rowErrors,
			})
		}

		return c.JSON(fiber.Map{
			"success": true,
			"message": fmt.Sprintf("상품 %d건 등록, %d건 수정되었습니다.", created, updated),
			"created": created,
			"updated": updated,
			"skipped": skipped,
			"errors":  rowErrors,
		})
	}
}

func catalogProductDict(p *models.Product) fiber.Map {
	return fiber.Map{
		"id":           p.ID,
		"barcode":      p.Barcode,
		"name":         p.Name,
		"display_name": p.DisplayName,
		"option_code":  p.OptionCode,
		"label":        p.Label(),
	}
}
