package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// Slack Incoming Webhook 클라이언트.
// 알림은 best-effort: 실패는 로그만 남기고 호출자에게 전파하지 않는다.

var httpClient = &http.Client{Timeout: 10 * time.Second}

// Block: Slack Block Kit 블록 (필요한 형태만 맵으로 구성)
type Block map[string]interface{}

// Post는 웹훅으로 페이로드를 전송한다. URL이 비어 있으면 아무것도 하지 않는다.
func Post(webhookURL, fallbackText string, blocks []Block) {
	if webhookURL == "" {
		return
	}

	payload := map[string]interface{}{
		"text": fallbackText,
	}
	if len(blocks) > 0 {
		payload["blocks"] = blocks
	}

	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[WARN] 슬랙 페이로드 직렬화 실패: %v", err)
		return
	}

	resp, err := httpClient.Post(webhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		log.Printf("[WARN] 슬랙 알림 전송 중 오류: %v", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		log.Printf("[WARN] 슬랙 알림 실패: status=%d body=%s", resp.StatusCode, string(respBody))
	}
}

func Header(text string) Block {
	return Block{
		"type": "header",
		"text": map[string]interface{}{"type": "plain_text", "text": text, "emoji": true},
	}
}

func Section(markdown string) Block {
	return Block{
		"type": "section",
		"text": map[string]interface{}{"type": "mrkdwn", "text": markdown},
	}
}

func Context(markdown string) Block {
	return Block{
		"type": "context",
		"elements": []interface{}{
			map[string]interface{}{"type": "mrkdwn", "text": markdown},
		},
	}
}

func LinkButton(text, url, actionID string) Block {
	return Block{
		"type": "actions",
		"elements": []interface{}{
			map[string]interface{}{
				"type":      "button",
				"text":      map[string]interface{}{"type": "plain_text", "text": text, "emoji": true},
				"url":       url,
				"action_id": actionID,
			},
		},
	}
}

// Duration은 소요시간을 알림 표기 형식으로 만든다 (예: "1시간 5분", "3분 20초", "45초").
func Duration(d time.Duration) string {
	total := int(d.Seconds())
	if total < 0 {
		total = 0
	}
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60
	switch {
	case hours > 0:
		return fmt.Sprintf("%d시간 %d분", hours, minutes)
	case minutes > 0:
		return fmt.Sprintf("%d분 %d초", minutes, seconds)
	default:
		return fmt.Sprintf("%d초", seconds)
	}
}

// JoinLines는 섹션 본문용으로 비어 있지 않은 줄만 이어 붙인다.
func JoinLines(lines ...string) string {
	var kept []string
	for _, l := range lines {
		if l != "" {
			kept = append(kept, l)
		}
	}
	return strings.Join(kept, "\n")
}
