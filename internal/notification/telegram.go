package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// DefaultTelegramAPI is the Bot API base URL.
const DefaultTelegramAPI = "https://api.telegram.org"

// TelegramNotifier posts signal alerts to a chat through the Bot API.
type TelegramNotifier struct {
	baseURL string
	token   string
	chatID  string
	http    *http.Client
}

// NewTelegramNotifier returns a notifier for the bot token and target chat.
func NewTelegramNotifier(token, chatID string) *TelegramNotifier {
	return &TelegramNotifier{
		baseURL: DefaultTelegramAPI,
		token:   token,
		chatID:  chatID,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// WithBaseURL points the notifier at another Bot API host.
func (t *TelegramNotifier) WithBaseURL(u string) *TelegramNotifier {
	t.baseURL = strings.TrimRight(u, "/")
	return t
}

type sendMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

func (t *TelegramNotifier) Send(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(sendMessage{
		ChatID:    t.chatID,
		Text:      telegramText(alert),
		ParseMode: "MarkdownV2",
	})
	if err != nil {
		return fmt.Errorf("telegram: marshal: %w", err)
	}

	endpoint := t.baseURL + "/bot" + t.token + "/sendMessage"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("telegram: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.http.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram: unexpected status %d", resp.StatusCode)
	}

	slog.Debug("telegram alert sent", "symbol", alert.Symbol, "signal", alert.Signal.String())
	return nil
}

// telegramText renders the alert as MarkdownV2: a bold title, the message,
// then one line per signal field that is set.
func telegramText(a Alert) string {
	var b strings.Builder
	b.WriteString(levelMarker(a.Level))
	b.WriteString(" *")
	b.WriteString(escapeMarkdown(a.Title))
	b.WriteString("*\n\n")
	b.WriteString(escapeMarkdown(a.Message))

	field := func(name, value string) {
		if value == "" {
			return
		}
		fmt.Fprintf(&b, "\n%s: `%s`", name, escapeMarkdown(value))
	}
	if a.Symbol != "" {
		b.WriteString("\n")
		field("Symbol", a.Symbol)
		field("Date", a.Date)
		field("Signal", a.Signal.String())
		field("Position", fmt.Sprintf("%+d", a.Position))
	}
	field("Run", a.RunID)
	return b.String()
}

func levelMarker(l AlertLevel) string {
	switch l {
	case AlertWarning:
		return "⚠️"
	case AlertCritical:
		return "🚨"
	}
	return "ℹ️"
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, "_", `\_`, "*", `\*`, "[", `\[`, "]", `\]`, "(", `\(`, ")", `\)`,
	"~", `\~`, "`", "\\`", ">", `\>`, "#", `\#`, "+", `\+`, "-", `\-`,
	"=", `\=`, "|", `\|`, "{", `\{`, "}", `\}`, ".", `\.`, "!", `\!`,
)

// escapeMarkdown escapes the characters MarkdownV2 reserves.
func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
