package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"
)

// TelegramNotifier sends alerts via Telegram Bot API. Signal alerts render
// the composite signal (direction, price, confidence, reasons) as a
// MarkdownV2 message; other alerts fall back to the plain title/message.
type TelegramNotifier struct {
	botToken string
	chatID   string
	client   *http.Client
}

// NewTelegramNotifier creates a Telegram notifier.
// botToken: Bot API token from @BotFather
// chatID: Target chat/group/channel ID
func NewTelegramNotifier(botToken, chatID string) *TelegramNotifier {
	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (t *TelegramNotifier) Send(ctx context.Context, alert Alert) error {
	body, _ := json.Marshal(map[string]interface{}{
		"chat_id":    t.chatID,
		"text":       t.renderText(alert),
		"parse_mode": "MarkdownV2",
	})

	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.botToken)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram: unexpected status %d", resp.StatusCode)
	}

	log.Printf("[telegram] sent alert: %s", alert.Title)
	return nil
}

// renderText builds the MarkdownV2 message body for an alert.
func (t *TelegramNotifier) renderText(alert Alert) string {
	if alert.Signal == nil {
		emoji := "ℹ️"
		switch alert.Level {
		case AlertWarning:
			emoji = "⚠️"
		case AlertCritical:
			emoji = "🚨"
		}
		return fmt.Sprintf("%s *%s*\n\n%s", emoji, escapeMarkdown(alert.Title), escapeMarkdown(alert.Message))
	}

	sig := alert.Signal
	emoji := "📈"
	if sig.Type == "SELL" {
		emoji = "📉"
	}
	ts := time.UnixMilli(sig.Timestamp).UTC().Format("2006-01-02 15:04 UTC")

	var b strings.Builder
	fmt.Fprintf(&b, "%s *%s %s* `%s`\n", emoji,
		escapeMarkdown(string(sig.Type)), escapeMarkdown(sig.Symbol), escapeMarkdown(sig.Timeframe))
	fmt.Fprintf(&b, "price %s at %s\n",
		escapeMarkdown(fmt.Sprintf("%.4f", sig.Price)), escapeMarkdown(ts))
	fmt.Fprintf(&b, "confidence %s\n", escapeMarkdown(fmt.Sprintf("%.0f%%", sig.Confidence*100)))
	for _, reason := range sig.Reasons {
		fmt.Fprintf(&b, "• %s\n", escapeMarkdown(reason))
	}
	return b.String()
}

// escapeMarkdown escapes special characters for Telegram MarkdownV2.
func escapeMarkdown(s string) string {
	specials := []byte{'_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!'}
	var buf bytes.Buffer
	for i := 0; i < len(s); i++ {
		for _, sp := range specials {
			if s[i] == sp {
				buf.WriteByte('\\')
				break
			}
		}
		buf.WriteByte(s[i])
	}
	return buf.String()
}
