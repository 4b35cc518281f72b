package inventory

import (
	"sync"
	"testing"

	"logis-backoffice/internal/models"
	"logis-backoffice/internal/testutil"
)

// 재고조사 흐름 통합 테스트. embedded PostgreSQL 기동 비용이 크므로
// 하나의 테스트에서 서브테스트로 나눠 DB를 공유한다.
func TestInventoryFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("embedded PostgreSQL 테스트는 -short에서 건너뜀")
	}
	db := testutil.NewDB(t)

	start := func(t *testing.T, name string) *models.InventorySession {
		t.Helper()
		created, conflict, err := StartSession(db, name, "관리자")
		if err != nil {
			t.Fatalf("StartSession: %v", err)
		}
		if conflict != nil {
			t.Fatalf("예상치 못한 충돌: %s", conflict.Name)
		}
		return created
	}

	scanLoc := func(t *testing.T, barcode string) *LocationScanResult {
		t.Helper()
		r, err := ScanLocation(db, barcode)
		if err != nil {
			t.Fatalf("ScanLocation(%s): %v", barcode, err)
		}
		return r
	}

	count := func(t *testing.T, in CountScanInput) *CountScanResult {
		t.Helper()
		r, err := ScanProductCount(db, in)
		if err != nil {
			t.Fatalf("ScanProductCount: %v", err)
		}
		return r
	}

	t.Run("세션은 동시에 하나만", func(t *testing.T) {
		testutil.Reset(t, db)

		first := start(t, "8월 정기조사")
		if first.Status != models.SessionActive {
			t.Fatalf("status = %s", first.Status)
		}

		created, conflict, err := StartSession(db, "중복 시도", "관리자")
		if err != nil {
			t.Fatalf("StartSession: %v", err)
		}
		if created != nil || conflict == nil {
			t.Fatalf("created = %v, conflict = %v", created, conflict)
		}
		if conflict.Name != "8월 정기조사" {
			t.Errorf("conflict.Name = %q", conflict.Name)
		}

		ended, err := EndSession(db, first.ID)
		if err != nil {
			t.Fatalf("EndSession: %v", err)
		}
		if ended.Status != models.SessionClosed || ended.EndedAt == nil {
			t.Fatalf("종료 결과 = %+v", ended)
		}

		if _, err := EndSession(db, first.ID); err != ErrSessionClosed {
			t.Errorf("재종료 err = %v, want ErrSessionClosed", err)
		}

		// 종료 후에는 새 세션을 시작할 수 있다
		start(t, "2차 조사")
	})

	t.Run("로케이션 스캔은 대문자 정규화와 자동 생성", func(t *testing.T) {
		testutil.Reset(t, db)

		if _, err := ScanLocation(db, "a-01-01"); err != ErrNoActiveSession {
			t.Fatalf("세션 없이 스캔 err = %v", err)
		}

		start(t, "조사")
		r := scanLoc(t, "a-01-01")
		if !r.Created {
			t.Error("신규 로케이션인데 created = false")
		}
		if r.Location.Barcode != "A-01-01" {
			t.Errorf("barcode = %q, want A-01-01", r.Location.Barcode)
		}
		if r.RecordCount != 0 {
			t.Errorf("record_count = %d", r.RecordCount)
		}

		// 대소문자만 다른 재스캔은 같은 로케이션
		again := scanLoc(t, "A-01-01")
		if again.Created || again.Location.ID != r.Location.ID {
			t.Errorf("재스캔 = %+v", again)
		}
	})

	t.Run("동일 키 스캔은 수량 누적", func(t *testing.T) {
		testutil.Reset(t, db)
		session := start(t, "조사")
		loc := scanLoc(t, "A-01-01")

		base := CountScanInput{
			SessionID:   session.ID,
			LocationID:  loc.Location.ID,
			Barcode:     "8800309590019",
			ProductName: "Widget A",
			Quantity:    2,
			Worker:      "작업자1",
		}

		r1 := count(t, base)
		if r1.Rejected || r1.Accumulated {
			t.Fatalf("첫 등록 = %+v", r1)
		}
		if r1.Record.Quantity != 2 {
			t.Errorf("quantity = %d", r1.Record.Quantity)
		}

		base.Quantity = 1
		base.Worker = "작업자2"
		r2 := count(t, base)
		if r2.Rejected || !r2.Accumulated {
			t.Fatalf("누적 등록 = %+v", r2)
		}
		if r2.Record.ID != r1.Record.ID || r2.Record.Quantity != 3 {
			t.Errorf("누적 결과 = %+v", r2.Record)
		}
		if r2.Record.Worker != "작업자2" {
			t.Errorf("worker = %q, want 마지막 작업자", r2.Record.Worker)
		}

		// 유통기한이 다르면 별도 행
		base.ExpiryDate = "2027-01-31"
		r3 := count(t, base)
		if r3.Rejected || r3.Accumulated {
			t.Fatalf("유통기한 분리 = %+v", r3)
		}
		if r3.Record.ID == r1.Record.ID {
			t.Error("유통기한이 다른데 같은 행에 누적됨")
		}

		var total int64
		db.Model(&models.InventoryRecord{}).Count(&total)
		if total != 2 {
			t.Errorf("기록 행 수 = %d, want 2", total)
		}
	})

	t.Run("동시 첫 스캔도 한 행으로 누적", func(t *testing.T) {
		testutil.Reset(t, db)
		session := start(t, "조사")
		loc := scanLoc(t, "A-01-01")

		// 아직 행이 없는 키를 여러 작업자가 동시에 스캔해도
		// 행이 하나만 생기고 수량이 모두 합산되어야 한다
		const workers = 6
		var wg sync.WaitGroup
		errs := make([]error, workers)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = ScanProductCount(db, CountScanInput{
					SessionID:   session.ID,
					LocationID:  loc.Location.ID,
					Barcode:     "8800309590019",
					ProductName: "Widget A",
					Quantity:    1,
				})
			}(i)
		}
		wg.Wait()

		for i, err := range errs {
			if err != nil {
				t.Fatalf("동시 스캔[%d]: %v", i, err)
			}
		}

		var records []models.InventoryRecord
		if err := db.Find(&records).Error; err != nil {
			t.Fatal(err)
		}
		if len(records) != 1 {
			t.Fatalf("기록 행 수 = %d, want 1", len(records))
		}
		if records[0].Quantity != workers {
			t.Errorf("quantity = %d, want %d", records[0].Quantity, workers)
		}
	})

	t.Run("수량 기본값과 보정", func(t *testing.T) {
		testutil.Reset(t, db)
		session := start(t, "조사")
		loc := scanLoc(t, "A-01-01")

		r := count(t, CountScanInput{
			SessionID: session.ID, LocationID: loc.Location.ID,
			Barcode: "8800309590019", ProductName: "Widget A",
			Quantity: 0, // 미지정
		})
		if r.Rejected || r.Record.Quantity != 1 {
			t.Fatalf("결과 = %+v", r)
		}
	})

	t.Run("상품명 자동 결정", func(t *testing.T) {
		testutil.Reset(t, db)
		session := start(t, "조사")
		loc := scanLoc(t, "A-01-01")

		in := CountScanInput{SessionID: session.ID, LocationID: loc.Location.ID, Barcode: "8800309590019"}

		// 마스터 미등록
		r := count(t, in)
		if !r.Rejected || r.RejectCode != RejectUnregisteredBarcode {
			t.Fatalf("미등록 결과 = %+v", r)
		}

		// 단건 등록: 관리명이 우선
		if _, _, err := UpsertProduct(db, "8800309590019", "Widget A", "위젯A 70포", ""); err != nil {
			t.Fatal(err)
		}
		r = count(t, in)
		if r.Rejected {
			t.Fatalf("자동 결정 결과 = %+v", r)
		}
		if r.Record.ProductName != "위젯A 70포" {
			t.Errorf("product_name = %q", r.Record.ProductName)
		}

		// 같은 바코드에 상품명이 하나 더 생기면 추측하지 않는다
		if _, _, err := UpsertProduct(db, "8800309590019", "Widget A 리뉴얼", "", ""); err != nil {
			t.Fatal(err)
		}
		r = count(t, in)
		if !r.Rejected || r.RejectCode != RejectAmbiguousBarcode {
			t.Fatalf("다건 결과 = %+v", r)
		}
		if len(r.Candidates) != 2 {
			t.Errorf("candidates = %d, want 2", len(r.Candidates))
		}

		// 상품명을 직접 입력하면 통과
		in.ProductName = "Widget A 리뉴얼"
		if r = count(t, in); r.Rejected {
			t.Fatalf("직접 입력 결과 = %+v", r)
		}
	})

	t.Run("활성 세션과 불일치하면 거절", func(t *testing.T) {
		testutil.Reset(t, db)
		old := start(t, "1차")
		loc := scanLoc(t, "A-01-01")
		if _, err := EndSession(db, old.ID); err != nil {
			t.Fatal(err)
		}

		// 세션 없음
		r := count(t, CountScanInput{SessionID: old.ID, LocationID: loc.Location.ID, Barcode: "x", ProductName: "상품"})
		if !r.Rejected || r.RejectCode != RejectSessionMismatch {
			t.Fatalf("결과 = %+v", r)
		}

		// 종료된 세션 ID로는 활성 세션이 있어도 거절
		start(t, "2차")
		r = count(t, CountScanInput{SessionID: old.ID, LocationID: loc.Location.ID, Barcode: "x", ProductName: "상품"})
		if !r.Rejected || r.RejectCode != RejectSessionMismatch {
			t.Fatalf("결과 = %+v", r)
		}
	})

	t.Run("기록 삭제", func(t *testing.T) {
		testutil.Reset(t, db)
		session := start(t, "조사")
		loc := scanLoc(t, "A-01-01")
		r := count(t, CountScanInput{
			SessionID: session.ID, LocationID: loc.Location.ID,
			Barcode: "8800309590019", ProductName: "Widget A",
		})

		if err := DeleteRecord(db, r.Record.ID); err != nil {
			t.Fatalf("DeleteRecord: %v", err)
		}
		if err := DeleteRecord(db, r.Record.ID); err != ErrRecordNotFound {
			t.Errorf("재삭제 err = %v", err)
		}
	})

	t.Run("로케이션별 상품별 그룹 조회", func(t *testing.T) {
		testutil.Reset(t, db)
		session := start(t, "조사")
		locA := scanLoc(t, "A-01-01")
		locB := scanLoc(t, "B-02-01")

		count(t, CountScanInput{SessionID: session.ID, LocationID: locA.Location.ID,
			Barcode: "8800309590019", ProductName: "Widget A", Quantity: 2})
		count(t, CountScanInput{SessionID: session.ID, LocationID: locA.Location.ID,
			Barcode: "8800309590057", ProductName: "Widget B", Quantity: 1})
		count(t, CountScanInput{SessionID: session.ID, LocationID: locB.Location.ID,
			Barcode: "8800309590019", ProductName: "Widget A", Quantity: 5})

		byLoc, err := ListRecordsByLocation(db, session.ID, "")
		if err != nil {
			t.Fatalf("ListRecordsByLocation: %v", err)
		}
		if len(byLoc) != 2 {
			t.Fatalf("로케이션 그룹 수 = %d, want 2", len(byLoc))
		}
		if byLoc[0].Location.Barcode != "A-01-01" || byLoc[1].Location.Barcode != "B-02-01" {
			t.Errorf("정렬 = %s, %s", byLoc[0].Location.Barcode, byLoc[1].Location.Barcode)
		}
		if byLoc[0].TotalQuantity != 3 || byLoc[1].TotalQuantity != 5 {
			t.Errorf("합계 = %d, %d", byLoc[0].TotalQuantity, byLoc[1].TotalQuantity)
		}

		byProd, err := ListRecordsByProduct(db, session.ID, "")
		if err != nil {
			t.Fatalf("ListRecordsByProduct: %v", err)
		}
		if len(byProd) != 2 {
			t.Fatalf("상품 그룹 수 = %d, want 2", len(byProd))
		}
		if byProd[0].Barcode != "8800309590019" || byProd[0].TotalQuantity != 7 {
			t.Errorf("첫 그룹 = %+v", byProd[0])
		}
		if len(byProd[0].Locations) != 2 {
			t.Errorf("Widget A 로케이션 수 = %d", len(byProd[0].Locations))
		}

		// 단일 로케이션 현황
		recs, err := ListLocationRecords(db, session.ID, locA.Location.ID)
		if err != nil {
			t.Fatalf("ListLocationRecords: %v", err)
		}
		if len(recs) != 2 {
			t.Fatalf("A-01-01 기록 수 = %d, want 2", len(recs))
		}
		if recs[0].LocationBarcode != "A-01-01" {
			t.Errorf("location_barcode = %q", recs[0].LocationBarcode)
		}

		// 검색: 상품명 부분 일치
		filtered, err := ListRecordsByLocation(db, session.ID, "Widget B")
		if err != nil {
			t.Fatalf("검색: %v", err)
		}
		if len(filtered) != 1 || len(filtered[0].Products) != 1 {
			t.Fatalf("검색 결과 = %+v", filtered)
		}

		// 검색: 로케이션 바코드로도 찾는다
		filtered, err = ListRecordsByLocation(db, session.ID, "b-02")
		if err != nil {
			t.Fatalf("검색: %v", err)
		}
		if len(filtered) != 1 || filtered[0].Location.Barcode != "B-02-01" {
			t.Fatalf("검색 결과 = %+v", filtered)
		}
	})

	t.Run("세션 목록과 기록 수", func(t *testing.T) {
		testutil.Reset(t, db)
		session := start(t, "조사")
		loc := scanLoc(t, "A-01-01")
		count(t, CountScanInput{SessionID: session.ID, LocationID: loc.Location.ID,
			Barcode: "8800309590019", ProductName: "Widget A"})

		summaries, err := ListSessions(db)
		if err != nil {
			t.Fatalf("ListSessions: %v", err)
		}
		if len(summaries) != 1 {
			t.Fatalf("세션 수 = %d", len(summaries))
		}
		if summaries[0].RecordCount != 1 || summaries[0].Status != string(models.SessionActive) {
			t.Errorf("요약 = %+v", summaries[0])
		}
	})

	t.Run("상품 마스터 업서트", func(t *testing.T) {
		testutil.Reset(t, db)

		p, created, err := UpsertProduct(db, "8800309590019", "Widget A", "", "OPT-1")
		if err != nil {
			t.Fatalf("UpsertProduct: %v", err)
		}
		if !created || p.Label() != "Widget A" {
			t.Fatalf("생성 결과 = %+v (created=%v)", p, created)
		}

		// 같은 (바코드, 상품명)은 관리명/옵션코드만 갱신
		p2, created, err := UpsertProduct(db, "8800309590019", "Widget A", "위젯A", "OPT-2")
		if err != nil {
			t.Fatalf("UpsertProduct: %v", err)
		}
		if created || p2.ID != p.ID {
			t.Fatalf("갱신 결과 = %+v (created=%v)", p2, created)
		}
		if p2.Label() != "위젯A" || p2.OptionCode != "OPT-2" {
			t.Errorf("갱신 필드 = %+v", p2)
		}

		var total int64
		db.Model(&models.Product{}).Count(&total)
		if total != 1 {
			t.Errorf("상품 수 = %d, want 1", total)
		}
	})
}
