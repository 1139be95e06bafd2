package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
)

// TelegramNotifier posts alerts to a chat through the Telegram Bot API.
type TelegramNotifier struct {
	botToken string
	chatID   string
	apiBase  string
	client   *http.Client
}

// NewTelegramNotifier creates a notifier for the given bot token and chat.
func NewTelegramNotifier(botToken, chatID string) *TelegramNotifier {
	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		apiBase:  "https://api.telegram.org",
		client:   newHTTPClient(),
	}
}

func (t *TelegramNotifier) Name() string { return "telegram" }

type sendMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

type botResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

var levelIcon = map[AlertLevel]string{
	AlertInfo:     "ℹ️",
	AlertWarning:  "⚠️",
	AlertCritical: "🚨",
}

// Send renders alert as MarkdownV2 and calls sendMessage.
func (t *TelegramNotifier) Send(ctx context.Context, alert Alert) error {
	icon, ok := levelIcon[alert.Level]
	if !ok {
		icon = levelIcon[AlertInfo]
	}
	msg := sendMessage{
		ChatID:    t.chatID,
		Text:      icon + " *" + mdV2.Replace(alert.Title) + "*\n\n" + mdV2.Replace(alert.Message),
		ParseMode: "MarkdownV2",
	}

	url := t.apiBase + "/bot" + t.botToken + "/sendMessage"
	body, err := postJSON(ctx, t.client, url, msg)
	if err != nil {
		return fmt.Errorf("telegram: %w", err)
	}

	// The Bot API can answer 200 with ok=false.
	var br botResponse
	if json.Unmarshal(body, &br) == nil && len(body) > 0 && !br.OK && br.Description != "" {
		return fmt.Errorf("telegram: %s", br.Description)
	}

	log.Printf("[telegram] sent alert: %s", alert.Title)
	return nil
}

// mdV2 escapes the characters Telegram MarkdownV2 reserves.
var mdV2 = strings.NewReplacer(
	`\`, `\\`, "_", `\_`, "*", `\*`, "[", `\[`, "]", `\]`, "(", `\(`, ")", `\)`,
	"~", `\~`, "`", "\\`", ">", `\>`, "#", `\#`, "+", `\+`, "-", `\-`,
	"=", `\=`, "|", `\|`, "{", `\{`, "}", `\}`, ".", `\.`, "!", `\!`,
)
