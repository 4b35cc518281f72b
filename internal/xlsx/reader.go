package xlsx

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Sheet: 엑셀 파일의 첫 시트를 헤더/행으로 분리한 결과
type Sheet struct {
	Headers []string
	Rows    [][]string
}

// ReadSheet는 업로드된 xlsx 파일의 첫 시트를 읽는다.
// 헤더는 공백이 정리된 상태로 반환된다.
func ReadSheet(r io.Reader) (*Sheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("엑셀 파일을 열 수 없습니다: %w", err)
	}
	defer f.Close()

	sheetList := f.GetSheetList()
	if len(sheetList) == 0 {
		return nil, fmt.Errorf("엑셀 파일에 시트가 없습니다")
	}

	rows, err := f.GetRows(sheetList[0])
	if err != nil {
		return nil, fmt.Errorf("시트를 읽을 수 없습니다: %w", err)
	}

	if len(rows) == 0 {
		return &Sheet{}, nil
	}

	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.TrimSpace(h)
	}

	return &Sheet{
		Headers: headers,
		Rows:    rows[1:],
	}, nil
}

// Cell은 행에서 해당 인덱스의 셀 값을 반환한다.
// excelize.GetRows는 뒤쪽 빈 셀을 잘라내므로 범위 밖이면 빈 문자열.
func (s *Sheet) Cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// HeaderIndex는 헤더명 → 컬럼 인덱스 매핑을 만든다. 같은 이름이 중복되면 앞쪽이 우선.
func (s *Sheet) HeaderIndex() map[string]int {
	idx := make(map[string]int, len(s.Headers))
	for i, h := range s.Headers {
		if h == "" {
			continue
		}
		if _, exists := idx[h]; !exists {
			idx[h] = i
		}
	}
	return idx
}
