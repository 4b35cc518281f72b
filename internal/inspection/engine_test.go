package inspection

import (
	"sync"
	"testing"
	"time"

	"logis-backoffice/internal/models"
	"logis-backoffice/internal/testutil"

	"gorm.io/gorm"
)

// 검수 흐름 통합 테스트. embedded PostgreSQL 기동 비용이 크므로
// 하나의 테스트에서 서브테스트로 나눠 DB를 공유한다.
func TestInspectionFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("embedded PostgreSQL 테스트는 -short에서 건너뜀")
	}
	db := testutil.NewDB(t)
	worker := "테스트작업자"

	// TRK-1: Widget A 2개 + Widget B 1개
	seed := func(t *testing.T) {
		t.Helper()
		testutil.Reset(t, db)
		_, err := Ingest(db, IngestOptions{FileName: "orders.xlsx", UploadedBy: worker}, &ParseResult{
			Layout: LayoutItemized,
			Orders: []ParsedOrder{{
				TrackingNumber: "TRK-1",
				Seller:         "스토어A",
				ReceiverName:   "홍길동",
				Items: []ParsedItem{
					{Barcode: "8800309590019", Name: "Widget A", Quantity: 2},
					{Barcode: "8800309590057", Name: "Widget B", Quantity: 1},
				},
			}},
		})
		if err != nil {
			t.Fatalf("Ingest: %v", err)
		}
	}

	t.Run("스캔으로 완료까지", func(t *testing.T) {
		seed(t)

		// A 1/2: 잔여 있음
		r, err := ScanProduct(db, "TRK-1", "8800309590019", &worker)
		if err != nil {
			t.Fatalf("ScanProduct: %v", err)
		}
		if !r.Success || r.AlertCode != models.AlertRemaining || r.Remaining != 1 {
			t.Fatalf("첫 스캔 = %+v", r)
		}
		if r.Order.Status != models.StatusInspecting {
			t.Errorf("status = %s, want 검수중", r.Order.Status)
		}

		// A 2/2: 이 상품은 끝났지만 B가 남아 정상
		r, err = ScanProduct(db, "TRK-1", "8800309590019", &worker)
		if err != nil {
			t.Fatalf("ScanProduct: %v", err)
		}
		if !r.Success || r.AlertCode != models.AlertNormal || r.Remaining != 0 || r.AllCompleted {
			t.Fatalf("둘째 스캔 = %+v", r)
		}

		// B 1/1: 송장 전체 완료
		r, err = ScanProduct(db, "TRK-1", "8800309590057", &worker)
		if err != nil {
			t.Fatalf("ScanProduct: %v", err)
		}
		if !r.Success || r.AlertCode != models.AlertCompleted || !r.AllCompleted {
			t.Fatalf("셋째 스캔 = %+v", r)
		}
		if r.Order.Status != models.StatusCompleted || r.Order.CompletedAt == nil {
			t.Errorf("완료 상태 = %s, completed_at = %v", r.Order.Status, r.Order.CompletedAt)
		}
	})

	t.Run("동시 스캔에도 수량 초과 없음", func(t *testing.T) {
		seed(t)

		// Widget A는 주문수량 2: 동시 스캔 몇 건이 몰려도 정확히 2건만
		// 성공하고 나머지는 중복스캔으로 거절되어야 한다
		const workers = 8
		var wg sync.WaitGroup
		results := make([]*ScanResult, workers)
		errs := make([]error, workers)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i], errs[i] = ScanProduct(db, "TRK-1", "8800309590019", &worker)
			}(i)
		}
		wg.Wait()

		succeeded := 0
		for i := range results {
			if errs[i] != nil {
				t.Fatalf("동시 스캔[%d]: %v", i, errs[i])
			}
			if results[i].Success {
				succeeded++
				continue
			}
			if results[i].AlertCode != models.AlertDuplicateScan {
				t.Errorf("거절[%d] = %s, want 중복스캔", i, results[i].AlertCode)
			}
		}
		if succeeded != 2 {
			t.Errorf("성공 스캔 수 = %d, want 2", succeeded)
		}

		var p models.OrderProduct
		if err := db.Where("barcode = ?", "8800309590019").First(&p).Error; err != nil {
			t.Fatal(err)
		}
		if p.ScannedQuantity > p.Quantity {
			t.Errorf("scanned %d > quantity %d", p.ScannedQuantity, p.Quantity)
		}
		if p.ScannedQuantity != 2 {
			t.Errorf("scanned = %d, want 2", p.ScannedQuantity)
		}
	})

	t.Run("중복스캔", func(t *testing.T) {
		seed(t)
		mustScan(t, db, "TRK-1", "8800309590057", &worker)

		r, err := ScanProduct(db, "TRK-1", "8800309590057", &worker)
		if err != nil {
			t.Fatalf("ScanProduct: %v", err)
		}
		if r.Success || r.AlertCode != models.AlertDuplicateScan {
			t.Fatalf("결과 = %+v", r)
		}
		if r.Message != "이미 스캔 완료된 상품입니다." {
			t.Errorf("메시지 = %q", r.Message)
		}

		// 거절 스캔으로 수량이 변하지 않았는지
		var p models.OrderProduct
		if err := db.Where("barcode = ?", "8800309590057").First(&p).Error; err != nil {
			t.Fatal(err)
		}
		if p.ScannedQuantity != 1 {
			t.Errorf("scanned = %d, want 1", p.ScannedQuantity)
		}
	})

	t.Run("상품오류", func(t *testing.T) {
		seed(t)

		r, err := ScanProduct(db, "TRK-1", "0000000000000", &worker)
		if err != nil {
			t.Fatalf("ScanProduct: %v", err)
		}
		if r.Success || r.AlertCode != models.AlertProductError {
			t.Fatalf("결과 = %+v", r)
		}
		if r.Message != "해당 송장에 없는 상품입니다." {
			t.Errorf("메시지 = %q", r.Message)
		}
	})

	t.Run("미등록 송장", func(t *testing.T) {
		seed(t)

		lr, err := LookupOrder(db, "TRK-NOPE", &worker)
		if err != nil {
			t.Fatalf("LookupOrder: %v", err)
		}
		if lr.Found || lr.AlertCode != models.AlertUnknownTracking {
			t.Fatalf("결과 = %+v", lr)
		}

		// 실패한 조회도 로그에 남는다
		var count int64
		db.Model(&models.InspectionLog{}).
			Where("tracking_number = ? AND alert_code = ?", "TRK-NOPE", models.AlertUnknownTracking).
			Count(&count)
		if count != 1 {
			t.Errorf("미등록 송장 로그 수 = %d, want 1", count)
		}

		sr, err := ScanProduct(db, "TRK-NOPE", "8800309590019", &worker)
		if err != nil {
			t.Fatalf("ScanProduct: %v", err)
		}
		if sr.Success || sr.AlertCode != models.AlertUnknownTracking {
			t.Fatalf("상품 스캔 결과 = %+v", sr)
		}
	})

	t.Run("기처리배송 경고", func(t *testing.T) {
		seed(t)
		completeAll(t, db, &worker)

		lr, err := LookupOrder(db, "TRK-1", &worker)
		if err != nil {
			t.Fatalf("LookupOrder: %v", err)
		}
		// 완료된 송장도 차단하지 않고 경고와 함께 반환한다
		if !lr.Found || lr.AlertCode != models.AlertAlreadyShipped {
			t.Fatalf("결과 = %+v", lr)
		}
		if lr.Order.CompletedAt == nil {
			t.Error("completed_at이 비어 있음")
		}
	})

	t.Run("수동완료 잔여수량 거절", func(t *testing.T) {
		seed(t)
		mustScan(t, db, "TRK-1", "8800309590019", &worker) // A 1/2, B 0/1

		r, err := CompleteInspection(db, "TRK-1", &worker)
		if err != nil {
			t.Fatalf("CompleteInspection: %v", err)
		}
		if r.Success {
			t.Fatal("잔여 수량이 있는데 완료됨")
		}
		if r.IncompleteCount != 2 {
			t.Errorf("incomplete = %d, want 2", r.IncompleteCount)
		}
		if r.Message != "아직 스캔하지 않은 상품이 2건 있습니다." {
			t.Errorf("메시지 = %q", r.Message)
		}
	})

	t.Run("수동완료 성공", func(t *testing.T) {
		seed(t)
		// 모든 상품 스캔 완료 상태로 만들되 자동 완료를 거치지 않는다
		if err := db.Model(&models.OrderProduct{}).
			Where("1 = 1").
			Update("scanned_quantity", gorm.Expr("quantity")).Error; err != nil {
			t.Fatal(err)
		}

		r, err := CompleteInspection(db, "TRK-1", &worker)
		if err != nil {
			t.Fatalf("CompleteInspection: %v", err)
		}
		if !r.Success || r.Message != "검수가 완료되었습니다." {
			t.Fatalf("결과 = %+v", r)
		}
		if r.Order.Status != models.StatusCompleted || r.Order.CompletedAt == nil {
			t.Errorf("완료 상태 = %s", r.Order.Status)
		}
	})

	t.Run("재업로드는 전체 대체", func(t *testing.T) {
		seed(t)
		mustScan(t, db, "TRK-1", "8800309590019", &worker)

		result, err := Ingest(db, IngestOptions{FileName: "orders2.xlsx", UploadedBy: worker}, &ParseResult{
			Layout: LayoutItemized,
			Orders: []ParsedOrder{{
				TrackingNumber: "TRK-1",
				ReceiverName:   "홍길동",
				Items: []ParsedItem{
					{Barcode: "8800309590064", Name: "Widget C", Quantity: 1},
				},
			}},
		})
		if err != nil {
			t.Fatalf("Ingest: %v", err)
		}
		if result.Duplicated != 1 {
			t.Errorf("duplicated = %d, want 1", result.Duplicated)
		}

		var order models.Order
		if err := db.Preload("Products").Where("tracking_number = ?", "TRK-1").First(&order).Error; err != nil {
			t.Fatal(err)
		}
		// 병합이 아닌 대체: 기존 상품과 스캔 수량이 사라진다
		if order.Status != models.StatusWaiting {
			t.Errorf("status = %s, want 대기중", order.Status)
		}
		if len(order.Products) != 1 || order.Products[0].Barcode != "8800309590064" {
			t.Errorf("products = %+v", order.Products)
		}
		if order.Products[0].ScannedQuantity != 0 {
			t.Errorf("scanned = %d, want 0", order.Products[0].ScannedQuantity)
		}
	})

	t.Run("스캔 로그 누적", func(t *testing.T) {
		seed(t)
		completeAll(t, db, &worker)

		var logs []models.InspectionLog
		if err := db.Order("id").Find(&logs).Error; err != nil {
			t.Fatal(err)
		}
		// A(숫자) + A(정상) + B(완료) = 3건
		if len(logs) != 3 {
			t.Fatalf("로그 수 = %d, want 3", len(logs))
		}
		codes := []models.AlertCode{models.AlertRemaining, models.AlertNormal, models.AlertCompleted}
		for i, l := range logs {
			if l.AlertCode != codes[i] {
				t.Errorf("로그[%d] = %s, want %s", i, l.AlertCode, codes[i])
			}
			if l.ScanType != models.ScanTypeProduct {
				t.Errorf("로그[%d] scan_type = %s", i, l.ScanType)
			}
			if l.Worker == nil || *l.Worker != worker {
				t.Errorf("로그[%d] worker = %v", i, l.Worker)
			}
			if time.Since(l.CreatedAt) > time.Minute {
				t.Errorf("로그[%d] created_at = %v", i, l.CreatedAt)
			}
		}
	})
}

func mustScan(t *testing.T, db *gorm.DB, tracking, barcode string, worker *string) *ScanResult {
	t.Helper()
	r, err := ScanProduct(db, tracking, barcode, worker)
	if err != nil {
		t.Fatalf("ScanProduct(%s, %s): %v", tracking, barcode, err)
	}
	if !r.Success {
		t.Fatalf("ScanProduct(%s, %s) 거절: %s %s", tracking, barcode, r.AlertCode, r.Message)
	}
	return r
}

// TRK-1 시드를 스캔으로 완료 상태까지 만든다
func completeAll(t *testing.T, db *gorm.DB, worker *string) {
	t.Helper()
	mustScan(t, db, "TRK-1", "8800309590019", worker)
	mustScan(t, db, "TRK-1", "8800309590019", worker)
	mustScan(t, db, "TRK-1", "8800309590057", worker)
}
