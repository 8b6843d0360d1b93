package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const telegramAPI = "https://api.telegram.org"

// TelegramSender sends plain-text messages through the Bot API.
type TelegramSender struct {
	apiBase string
	token   string
	chatID  string
	http    *resty.Client
}

func NewTelegramSender(token, chatID string) *TelegramSender {
	return &TelegramSender{
		apiBase: telegramAPI,
		token:   token,
		chatID:  chatID,
		http:    resty.New().SetTimeout(10 * time.Second),
	}
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func (t *TelegramSender) Send(ctx context.Context, msg Message) error {
	var result telegramResponse
	resp, err := t.http.R().
		SetContext(ctx).
		SetPathParam("token", t.token).
		SetBody(map[string]any{
			"chat_id":                  t.chatID,
			"text":                     plainText(msg),
			"disable_web_page_preview": true,
		}).
		SetResult(&result).
		SetError(&result).
		Post(t.apiBase + "/bot{token}/sendMessage")
	if err != nil {
		return fmt.Errorf("telegram: send: %w", err)
	}
	if resp.IsError() || !result.OK {
		return fmt.Errorf("telegram: unexpected status %d: %s", resp.StatusCode(), result.Description)
	}
	return nil
}

func (t *TelegramSender) Name() string {
	return "telegram"
}

// plainText flattens msg for channels without rich embeds.
func plainText(msg Message) string {
	var b strings.Builder
	b.WriteString(msg.Title)
	if msg.Body != "" {
		b.WriteString("\n")
		b.WriteString(msg.Body)
	}
	for _, f := range msg.Fields {
		fmt.Fprintf(&b, "\n%s: %s", f.Name, f.Value)
	}
	if msg.URL != "" {
		b.WriteString("\n")
		b.WriteString(msg.URL)
	}
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
