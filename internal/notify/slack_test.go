package notify

import (
	"testing"
	"time"
)

func TestDuration(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want string
	}{
		{45 * time.Second, "45초"},
		{3*time.Minute + 20*time.Second, "3분 20초"},
		{time.Hour + 5*time.Minute, "1시간 5분"},
		{time.Hour + 5*time.Minute + 59*time.Second, "1시간 5분"}, // 시간 단위에서는 초 생략
		{0, "0초"},
		{-time.Second, "0초"},
	}
	for _, tc := range cases {
		if got := Duration(tc.in); got != tc.want {
			t.Errorf("Duration(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestJoinLines(t *testing.T) {
	if got := JoinLines("a", "", "b", ""); got != "a\nb" {
		t.Errorf("JoinLines = %q", got)
	}
	if got := JoinLines(); got != "" {
		t.Errorf("JoinLines() = %q", got)
	}
}
