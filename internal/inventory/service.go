package inventory

import (
	"errors"
	"sort"
	"strings"
	"time"

	"logis-backoffice/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrSessionNotFound = errors.New("세션을 찾을 수 없습니다.")
	ErrSessionClosed   = errors.New("이미 종료된 세션입니다.")
	ErrNoActiveSession = errors.New("진행 중인 세션이 없습니다.")
	ErrRecordNotFound  = errors.New("기록을 찾을 수 없습니다.")
)

// StartSession은 새 재고조사 세션을 시작한다.
// 이미 active 세션이 있으면 conflict로 그 세션을 반환한다.
// 애플리케이션 체크를 통과해도 DB의 부분 유니크 인덱스가 동시 시작을 막는다.
func StartSession(db *gorm.DB, name, startedBy string) (created, conflict *models.InventorySession, err error) {
	var active models.InventorySession
	err = db.Where("status = ?", models.SessionActive).First(&active).Error
	if err == nil {
		return nil, &active, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, nil, err
	}

	session := models.InventorySession{
		Name:      strings.TrimSpace(name),
		Status:    models.SessionActive,
		StartedBy: startedBy,
	}
	if err := db.Create(&session).Error; err != nil {
		// 유니크 인덱스 충돌 = 다른 관리자가 방금 시작함
		var raced models.InventorySession
		if lookupErr := db.Where("status = ?", models.SessionActive).First(&raced).Error; lookupErr == nil {
			return nil, &raced, nil
		}
		return nil, nil, err
	}
	return &session, nil, nil
}

// EndSession은 세션을 종료한다. 기존 기록에는 영향이 없다.
func EndSession(db *gorm.DB, sessionID uint) (*models.InventorySession, error) {
	var session models.InventorySession
	if err := db.First(&session, "id = ?", sessionID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	if session.Status == models.SessionClosed {
		return nil, ErrSessionClosed
	}

	now := time.Now()
	session.Status = models.SessionClosed
	session.EndedAt = &now
	if err := db.Model(&session).Updates(map[string]interface{}{
		"status":   session.Status,
		"ended_at": session.EndedAt,
	}).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

// ActiveSession은 현재 진행 중인 세션을 반환한다. 없으면 ErrNoActiveSession.
func ActiveSession(db *gorm.DB) (*models.InventorySession, error) {
	var session models.InventorySession
	err := db.Where("status = ?", models.SessionActive).First(&session).Error
	if err == gorm.ErrRecordNotFound {
		return nil, ErrNoActiveSession
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// LocationScanResult: 로케이션 스캔 결과 (작업자 피드백용 현황 포함)
type LocationScanResult struct {
	Location    models.Location
	Created     bool  // 이번 스캔으로 새로 등록되었는지
	RecordCount int64 // 활성 세션에서 이 로케이션에 이미 등록된 기록 수
}

// ScanLocation은 로케이션 바코드를 스캔한다. 미등록이면 자동 생성.
func ScanLocation(db *gorm.DB, barcode string) (*LocationScanResult, error) {
	active, err := ActiveSession(db)
	if err != nil {
		return nil, err
	}

	location, created, err := UpsertLocation(db, barcode)
	if err != nil {
		return nil, err
	}

	var count int64
	if err := db.Model(&models.InventoryRecord{}).
		Where("session_id = ? AND location_id = ?", active.ID, location.ID).
		Count(&count).Error; err != nil {
		return nil, err
	}

	return &LocationScanResult{Location: *location, Created: created, RecordCount: count}, nil
}

// CountScanInput: 상품 수량 등록 입력
type CountScanInput struct {
	SessionID   uint
	LocationID  uint
	Barcode     string
	ProductName string // 비어 있으면 마스터에서 자동 결정
	Quantity    int    // 1 미만이면 1로 보정
	ExpiryDate  string
	LotNumber   string
	Worker      string
}

// 거절 코드 (UI 분기용, 메시지와 별도)
const (
	RejectSessionMismatch     = "session_mismatch"
	RejectLocationNotFound    = "location_not_found"
	RejectMissingInput        = "missing_input"
	RejectUnregisteredBarcode = "unregistered_barcode"
	RejectAmbiguousBarcode    = "ambiguous_barcode"
)

// CountScanResult: 상품 수량 등록 결과
type CountScanResult struct {
	Rejected    bool
	RejectCode  string
	Message     string
	Candidates  []models.Product // ambiguous_barcode일 때 선택지
	Record      *models.InventoryRecord
	Accumulated bool // 기존 기록에 수량이 합산되었는지
}

// ScanProductCount는 재고조사 수량 한 건을 등록한다.
//
// 같은 세션·로케이션에서 (바코드, 상품명, 유통기한, 로트)가 동일한 기록이
// 있으면 행을 늘리지 않고 수량을 누적한다. 기존 행은 FOR UPDATE로 잠가
// 누적 갱신이 유실되지 않게 한다. 행이 아직 없으면 잠글 대상도 없으므로
// 동시 첫 스캔은 키 전체를 덮는 유니크 인덱스가 막고, 충돌한 쪽은 한 번
// 재시도해 누적 경로로 합류한다.
func ScanProductCount(db *gorm.DB, in CountScanInput) (*CountScanResult, error) {
	in.Barcode = strings.TrimSpace(in.Barcode)
	in.ProductName = strings.TrimSpace(in.ProductName)
	if in.Quantity < 1 {
		in.Quantity = 1
	}

	if in.Barcode == "" && in.ProductName == "" {
		return &CountScanResult{
			Rejected: true, RejectCode: RejectMissingInput,
			Message: "상품바코드 또는 상품명을 입력해주세요.",
		}, nil
	}

	// 현재 활성 세션과 일치해야 한다 ("존재하는 세션"으로는 부족)
	active, err := ActiveSession(db)
	if err != nil {
		if err == ErrNoActiveSession {
			return &CountScanResult{
				Rejected: true, RejectCode: RejectSessionMismatch,
				Message: "진행 중인 세션이 없습니다.",
			}, nil
		}
		return nil, err
	}
	if active.ID != in.SessionID {
		return &CountScanResult{
			Rejected: true, RejectCode: RejectSessionMismatch,
			Message: "활성 세션을 찾을 수 없습니다.",
		}, nil
	}

	var location models.Location
	if err := db.First(&location, "id = ?", in.LocationID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return &CountScanResult{
				Rejected: true, RejectCode: RejectLocationNotFound,
				Message: "로케이션을 찾을 수 없습니다.",
			}, nil
		}
		return nil, err
	}

	// 상품명이 비어 있으면 마스터에서 결정한다. 다건이면 추측하지 않는다.
	if in.ProductName == "" {
		candidates, err := LookupByBarcode(db, in.Barcode)
		if err != nil {
			return nil, err
		}
		switch len(candidates) {
		case 0:
			return &CountScanResult{
				Rejected: true, RejectCode: RejectUnregisteredBarcode,
				Message: "등록되지 않은 바코드입니다. 상품을 먼저 등록하거나 상품명을 직접 입력해주세요.",
			}, nil
		case 1:
			in.ProductName = candidates[0].Label()
		default:
			return &CountScanResult{
				Rejected: true, RejectCode: RejectAmbiguousBarcode,
				Message:    "동일 바코드의 상품이 여러 개입니다. 상품을 선택해주세요.",
				Candidates: candidates,
			}, nil
		}
	}

	var result *CountScanResult
	for attempt := 0; ; attempt++ {
		result = &CountScanResult{}
		err = db.Transaction(func(tx *gorm.DB) error {
			var existing models.InventoryRecord
			err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("session_id = ? AND location_id = ? AND barcode = ? AND product_name = ? AND expiry_date = ? AND lot_number = ?",
					in.SessionID, in.LocationID, in.Barcode, in.ProductName, in.ExpiryDate, in.LotNumber).
				First(&existing).Error

			if err == nil {
				existing.Quantity += in.Quantity
				existing.Worker = in.Worker
				if err := tx.Model(&existing).Updates(map[string]interface{}{
					"quantity": existing.Quantity,
					"worker":   existing.Worker,
				}).Error; err != nil {
					return err
				}
				result.Record = &existing
				result.Accumulated = true
				return nil
			}
			if err != gorm.ErrRecordNotFound {
				return err
			}

			record := models.InventoryRecord{
				SessionID:   in.SessionID,
				LocationID:  in.LocationID,
				Barcode:     in.Barcode,
				ProductName: in.ProductName,
				Quantity:    in.Quantity,
				ExpiryDate:  in.ExpiryDate,
				LotNumber:   in.LotNumber,
				Worker:      in.Worker,
			}
			if err := tx.Create(&record).Error; err != nil {
				return err
			}
			result.Record = &record
			return nil
		})
		if err == nil {
			break
		}
		// 동시 첫 스캔이 유니크 인덱스에서 충돌한 경우: 이긴 쪽의 행이
		// 커밋되어 있으므로 한 번 더 돌면 누적 경로를 탄다
		if attempt == 0 {
			continue
		}
		return nil, err
	}

	result.Record.Location = location
	return result, nil
}

// DeleteRecord는 기록을 즉시 삭제한다 (세션 상태 무관, 복구 없음).
func DeleteRecord(db *gorm.DB, recordID uint) error {
	res := db.Delete(&models.InventoryRecord{}, "id = ?", recordID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// --- 조회 ---

type RecordView struct {
	ID              uint   `json:"id"`
	Barcode         string `json:"barcode"`
	ProductName     string `json:"product_name"`
	Quantity        int    `json:"quantity"`
	ExpiryDate      string `json:"expiry_date"`
	LotNumber       string `json:"lot_number"`
	Worker          string `json:"worker"`
	LocationBarcode string `json:"location_barcode"`
	LocationName    string `json:"location_name"`
	CreatedAt       string `json:"created_at"`
}

type LocationView struct {
	ID      uint   `json:"id"`
	Barcode string `json:"barcode"`
	Name    string `json:"name"`
	Zone    string `json:"zone"`
}

type LocationGroup struct {
	Location      LocationView `json:"location"`
	Products      []RecordView `json:"products"`
	TotalQuantity int          `json:"total_quantity"`
}

type ProductLocationView struct {
	LocationBarcode string `json:"location_barcode"`
	LocationName    string `json:"location_name"`
	Quantity        int    `json:"quantity"`
	ExpiryDate      string `json:"expiry_date"`
	LotNumber       string `json:"lot_number"`
	RecordID        uint   `json:"record_id"`
	Worker          string `json:"worker"`
	CreatedAt       string `json:"created_at"`
}

type ProductGroup struct {
	Barcode       string                `json:"barcode"`
	ProductName   string                `json:"product_name"`
	Locations     []ProductLocationView `json:"locations"`
	TotalQuantity int                   `json:"total_quantity"`
}

func queryRecords(db *gorm.DB, sessionID uint, search string) ([]models.InventoryRecord, error) {
	q := db.Model(&models.InventoryRecord{}).
		Joins("Location").
		Where("inventory_records.session_id = ?", sessionID)

	if search = strings.TrimSpace(search); search != "" {
		pattern := "%" + search + "%"
		q = q.Where(
			`inventory_records.barcode ILIKE ? OR inventory_records.product_name ILIKE ?
			 OR "Location".barcode ILIKE ? OR "Location".name ILIKE ?`,
			pattern, pattern, pattern, pattern)
	}

	var records []models.InventoryRecord
	if err := q.Order("inventory_records.created_at DESC, inventory_records.id DESC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func recordView(r models.InventoryRecord) RecordView {
	return RecordView{
		ID:              r.ID,
		Barcode:         r.Barcode,
		ProductName:     r.ProductName,
		Quantity:        r.Quantity,
		ExpiryDate:      r.ExpiryDate,
		LotNumber:       r.LotNumber,
		Worker:          r.Worker,
		LocationBarcode: r.Location.Barcode,
		LocationName:    r.Location.Name,
		CreatedAt:       r.CreatedAt.Local().Format("2006-01-02 15:04"),
	}
}

// ListLocationRecords는 한 로케이션의 기록만 최신순으로 반환한다.
// 로케이션 스캔 직후 작업자 화면에 해당 선반의 현황을 보여주는 용도.
func ListLocationRecords(db *gorm.DB, sessionID, locationID uint) ([]RecordView, error) {
	var records []models.InventoryRecord
	err := db.Preload("Location").
		Where("session_id = ? AND location_id = ?", sessionID, locationID).
		Order("created_at DESC, id DESC").Find(&records).Error
	if err != nil {
		return nil, err
	}

	views := make([]RecordView, 0, len(records))
	for _, r := range records {
		views = append(views, recordView(r))
	}
	return views, nil
}

// ListRecordsByLocation은 로케이션별 그룹 목록을 로케이션 바코드 순으로 반환한다.
func ListRecordsByLocation(db *gorm.DB, sessionID uint, search string) ([]LocationGroup, error) {
	records, err := queryRecords(db, sessionID, search)
	if err != nil {
		return nil, err
	}

	index := map[uint]int{}
	groups := []LocationGroup{}
	for _, r := range records {
		i, ok := index[r.LocationID]
		if !ok {
			groups = append(groups, LocationGroup{
				Location: LocationView{
					ID:      r.Location.ID,
					Barcode: r.Location.Barcode,
					Name:    r.Location.Name,
					Zone:    r.Location.Zone,
				},
			})
			i = len(groups) - 1
			index[r.LocationID] = i
		}
		groups[i].Products = append(groups[i].Products, recordView(r))
		groups[i].TotalQuantity += r.Quantity
	}

	sort.SliceStable(groups, func(a, b int) bool {
		return groups[a].Location.Barcode < groups[b].Location.Barcode
	})
	return groups, nil
}

// ListRecordsByProduct는 상품별 그룹 목록을 상품 바코드 순으로 반환한다.
func ListRecordsByProduct(db *gorm.DB, sessionID uint, search string) ([]ProductGroup, error) {
	records, err := queryRecords(db, sessionID, search)
	if err != nil {
		return nil, err
	}

	index := map[string]int{}
	groups := []ProductGroup{}
	for _, r := range records {
		key := r.Barcode
		if key == "" {
			key = r.ProductName
		}
		i, ok := index[key]
		if !ok {
			groups = append(groups, ProductGroup{
				Barcode:     r.Barcode,
				ProductName: r.ProductName,
			})
			i = len(groups) - 1
			index[key] = i
		}
		groups[i].Locations = append(groups[i].Locations, ProductLocationView{
			LocationBarcode: r.Location.Barcode,
			LocationName:    r.Location.Name,
			Quantity:        r.Quantity,
			ExpiryDate:      r.ExpiryDate,
			LotNumber:       r.LotNumber,
			RecordID:        r.ID,
			Worker:          r.Worker,
			CreatedAt:       r.CreatedAt.Local().Format("2006-01-02 15:04"),
		})
		groups[i].TotalQuantity += r.Quantity
	}

	sort.SliceStable(groups, func(a, b int) bool {
		ka, kb := groups[a].Barcode, groups[b].Barcode
		if ka == "" {
			ka = groups[a].ProductName
		}
		if kb == "" {
			kb = groups[b].ProductName
		}
		return ka < kb
	})
	return groups, nil
}

// SessionSummary: 목록 화면용 세션 요약
type SessionSummary struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Status      string `json:"status"`
	StartedAt   string `json:"started_at"`
	EndedAt     string `json:"ended_at,omitempty"`
	StartedBy   string `json:"started_by"`
	RecordCount int64  `json:"record_count"`
}

// ListSessions는 세션 목록을 기록 수와 함께 최신순으로 반환한다.
func ListSessions(db *gorm.DB) ([]SessionSummary, error) {
	var sessions []models.InventorySession
	if err := db.Order("started_at DESC").Find(&sessions).Error; err != nil {
		return nil, err
	}

	summaries := make([]SessionSummary, 0, len(sessions))
	for _, s := range sessions {
		var count int64
		if err := db.Model(&models.InventoryRecord{}).Where("session_id = ?", s.ID).Count(&count).Error; err != nil {
			return nil, err
		}
		summary := SessionSummary{
			ID:          s.ID,
			Name:        s.Name,
			Status:      string(s.Status),
			StartedAt:   s.StartedAt.Local().Format("2006-01-02 15:04"),
			StartedBy:   s.StartedBy,
			RecordCount: count,
		}
		if s.EndedAt != nil {
			summary.EndedAt = s.EndedAt.Local().Format("2006-01-02 15:04")
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}
