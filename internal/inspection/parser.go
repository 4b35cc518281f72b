package inspection

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"logis-backoffice/internal/xlsx"
)

// 업로드 엑셀은 두 가지 양식을 지원한다.
//
//   - 상품분리 양식: 행마다 상품바코드/상품명/수량 컬럼이 있고,
//     같은 송장번호의 행들이 하나의 송장으로 묶인다.
//   - 합포셀 양식: 송장당 한 행이며 "상품" 셀 하나에 여러 상품이
//     "상품명●수량개 [접두어-바코드]|..." 형태로 들어 있다.
//
// 헤더를 보고 양식을 한 번 판별한 뒤 해당 파서로 분기한다.

type Layout int

const (
	LayoutUnknown Layout = iota
	LayoutItemized
	LayoutPackedCell
)

var itemizedRequired = []string{"송장번호", "판매처", "수령인", "핸드폰", "주소", "상품바코드", "상품명", "수량"}
var packedRequired = []string{"송장번호", "수령인", "상품"}

// 합포셀 양식의 선택 컬럼 (있으면 그대로 보존)
var packedOptional = []string{"등록일", "택배사", "핸드폰", "주소", "판매처", "출력차수", "배송메모"}

type ParsedItem struct {
	Barcode  string
	Name     string
	Quantity int
}

type ParsedOrder struct {
	TrackingNumber  string
	Seller          string
	ReceiverName    string
	ReceiverPhone   string
	ReceiverAddress string
	RegisteredDate  string
	Courier         string
	PrintOrder      string
	DeliveryMemo    string
	Items           []ParsedItem
}

type ParseResult struct {
	Layout Layout
	Orders []ParsedOrder // 엑셀 등장 순서 유지
}

// DetectLayout은 헤더 집합으로 양식을 판별한다.
// 상품바코드/상품명/수량 계열 컬럼이 하나라도 있으면 상품분리 양식 후보,
// 아니고 "상품" 컬럼이 있으면 합포셀 양식 후보로 본다.
func DetectLayout(headers []string) Layout {
	set := headerSet(headers)
	if set["상품바코드"] || set["상품명"] || set["수량"] {
		return LayoutItemized
	}
	if set["상품"] {
		return LayoutPackedCell
	}
	return LayoutUnknown
}

func headerSet(headers []string) map[string]bool {
	set := make(map[string]bool, len(headers))
	for _, h := range headers {
		if h != "" {
			set[h] = true
		}
	}
	return set
}

// missingColumns는 필수 컬럼 중 빠진 것들을 엑셀 정의 순서대로 반환한다.
func missingColumns(headers []string, required []string) []string {
	set := headerSet(headers)
	var missing []string
	for _, col := range required {
		if !set[col] {
			missing = append(missing, col)
		}
	}
	return missing
}

// Parse는 시트를 송장 단위로 정규화한다.
// 양식 오인식/필수 컬럼 누락은 에러로 반환하고 행 단위 문제는 건너뛴다.
func Parse(sheet *xlsx.Sheet) (*ParseResult, error) {
	layout := DetectLayout(sheet.Headers)

	switch layout {
	case LayoutItemized:
		if missing := missingColumns(sheet.Headers, itemizedRequired); len(missing) > 0 {
			return nil, fmt.Errorf("필수 컬럼이 없습니다: %s", strings.Join(missing, ", "))
		}
		return parseItemized(sheet)
	case LayoutPackedCell:
		if missing := missingColumns(sheet.Headers, packedRequired); len(missing) > 0 {
			return nil, fmt.Errorf("필수 컬럼이 없습니다: %s", strings.Join(missing, ", "))
		}
		return parsePacked(sheet)
	default:
		return nil, fmt.Errorf("인식할 수 없는 엑셀 양식입니다.")
	}
}

func parseItemized(sheet *xlsx.Sheet) (*ParseResult, error) {
	col := sheet.HeaderIndex()

	result := &ParseResult{Layout: LayoutItemized}
	index := map[string]int{} // 송장번호 → result.Orders 인덱스

	for _, row := range sheet.Rows {
		tracking := sheet.Cell(row, col["송장번호"])
		if tracking == "" {
			continue // 빈 송장번호 행은 조용히 건너뜀
		}

		i, ok := index[tracking]
		if !ok {
			// 첫 행의 송장 정보가 우선한다. 이후 행은 상품만 추가.
			result.Orders = append(result.Orders, ParsedOrder{
				TrackingNumber:  tracking,
				Seller:          sheet.Cell(row, col["판매처"]),
				ReceiverName:    sheet.Cell(row, col["수령인"]),
				ReceiverPhone:   sheet.Cell(row, col["핸드폰"]),
				ReceiverAddress: sheet.Cell(row, col["주소"]),
			})
			i = len(result.Orders) - 1
			index[tracking] = i
		}

		barcode := sheet.Cell(row, col["상품바코드"])
		name := sheet.Cell(row, col["상품명"])
		if barcode == "" || name == "" {
			continue // 이 상품 라인만 건너뜀
		}

		result.Orders[i].Items = append(result.Orders[i].Items, ParsedItem{
			Barcode:  barcode,
			Name:     name,
			Quantity: parseQuantity(sheet.Cell(row, col["수량"])),
		})
	}

	return result, nil
}

func parsePacked(sheet *xlsx.Sheet) (*ParseResult, error) {
	col := sheet.HeaderIndex()
	optCol := func(row []string, name string) string {
		idx, ok := col[name]
		if !ok {
			return ""
		}
		return sheet.Cell(row, idx)
	}

	result := &ParseResult{Layout: LayoutPackedCell}
	index := map[string]int{}

	for _, row := range sheet.Rows {
		tracking := sheet.Cell(row, col["송장번호"])
		if tracking == "" {
			continue
		}

		i, ok := index[tracking]
		if !ok {
			result.Orders = append(result.Orders, ParsedOrder{
				TrackingNumber:  tracking,
				Seller:          optCol(row, "판매처"),
				ReceiverName:    sheet.Cell(row, col["수령인"]),
				ReceiverPhone:   optCol(row, "핸드폰"),
				ReceiverAddress: optCol(row, "주소"),
				RegisteredDate:  optCol(row, "등록일"),
				Courier:         optCol(row, "택배사"),
				PrintOrder:      optCol(row, "출력차수"),
				DeliveryMemo:    optCol(row, "배송메모"),
			})
			i = len(result.Orders) - 1
			index[tracking] = i
		}

		for _, item := range ParsePackedCell(sheet.Cell(row, col["상품"])) {
			// 같은 송장 내 중복 바코드는 첫 등장이 우선
			if containsBarcode(result.Orders[i].Items, item.Barcode) {
				continue
			}
			result.Orders[i].Items = append(result.Orders[i].Items, item)
		}
	}

	return result, nil
}

func containsBarcode(items []ParsedItem, barcode string) bool {
	for _, it := range items {
		if it.Barcode == barcode {
			return true
		}
	}
	return false
}

// 합포셀 항목 끝의 바코드 태그: " [P1-8800309590019]"
var packedTagRe = regexp.MustCompile(`\s*\[[A-Za-z0-9]+-([0-9A-Za-z]+)\]$`)

// 수량 마커: "●2개" (없으면 1개로 간주)
var packedQtyRe = regexp.MustCompile(`●\s*([0-9][0-9,]*)\s*개\s*$`)

// ParsePackedCell은 합포셀 하나를 상품 목록으로 분해한다.
//
//	"Widget A(70p)[90019]●2개 [P1-8800309590019]|Widget B●1개 [P1-8800309590057]"
//	→ {Widget A(70p)[90019], 8800309590019, 2}, {Widget B, 8800309590057, 1}
//
// 바코드 태그가 없는 항목은 등록할 수 없으므로 버린다.
func ParsePackedCell(cell string) []ParsedItem {
	var items []ParsedItem

	for _, part := range strings.Split(cell, "|") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		tagMatch := packedTagRe.FindStringSubmatch(part)
		if tagMatch == nil {
			continue
		}
		barcode := tagMatch[1]
		rest := strings.TrimSpace(part[:len(part)-len(tagMatch[0])])

		quantity := 1
		if qtyMatch := packedQtyRe.FindStringSubmatch(rest); qtyMatch != nil {
			quantity = parseQuantity(qtyMatch[1])
			if quantity < 1 {
				quantity = 1
			}
			rest = strings.TrimSpace(rest[:len(rest)-len(qtyMatch[0])])
		}

		name := strings.TrimSpace(rest)
		if name == "" {
			continue
		}

		items = append(items, ParsedItem{Barcode: barcode, Name: name, Quantity: quantity})
	}

	return items
}

// parseQuantity는 천단위 구분자와 소수 표기("1,000", "2.0")를 허용한다.
// 해석할 수 없으면 0.
func parseQuantity(s string) int {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int(f)
}
