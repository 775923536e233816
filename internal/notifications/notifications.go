// Package notifications delivers operator messages to Telegram chats and
// ntfy topics.
package notifications

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	config "github.com/maheshrc27/reelflow/configs"
)

const (
	userAgent       = "reelflow/1.0"
	telegramAPIBase = "https://api.telegram.org"
	requestTimeout  = 10 * time.Second
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

func (l Level) Emoji() string {
	switch l {
	case LevelSuccess:
		return "✅"
	case LevelWarning:
		return "⚠️"
	case LevelError:
		return "❌"
	default:
		return "ℹ️"
	}
}

func (l Level) priority() string {
	switch l {
	case LevelError:
		return "high"
	case LevelWarning:
		return "default"
	default:
		return "low"
	}
}

type Notifier interface {
	Notify(ctx context.Context, level Level, message string) error
}

// NewNotifier fans out to every configured sink. With nothing configured
// it returns a notifier that drops messages.
func NewNotifier(cfg config.Config) Notifier {
	client := &http.Client{Timeout: requestTimeout}

	var sinks []Notifier
	if token := strings.TrimSpace(cfg.TelegramBotToken); token != "" && len(cfg.TelegramChatIDs) > 0 {
		sinks = append(sinks, NewTelegram(client, telegramAPIBase, token, cfg.TelegramChatIDs))
	}
	if topic := strings.TrimSpace(cfg.NtfyTopic); topic != "" {
		sinks = append(sinks, NewNtfy(client, topic))
	}

	switch len(sinks) {
	case 0:
		return Noop{}
	case 1:
		return sinks[0]
	default:
		return Multi(sinks)
	}
}

type Noop struct{}

func (Noop) Notify(context.Context, Level, string) error { return nil }

// Multi delivers to every sink and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, level Level, message string) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, level, message); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type telegram struct {
	client  *http.Client
	baseURL string
	token   string
	chatIDs []string
}

func NewTelegram(client *http.Client, baseURL, token string, chatIDs []string) Notifier {
	return &telegram{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		chatIDs: chatIDs,
	}
}

func (t *telegram) Notify(ctx context.Context, level Level, message string) error {
	text := fmt.Sprintf("%s %s", level.Emoji(), strings.TrimSpace(message))
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)

	var errs []error
	for _, chatID := range t.chatIDs {
		form := url.Values{}
		form.Set("chat_id", chatID)
		form.Set("text", text)

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
		if err != nil {
			return fmt.Errorf("build telegram request: %w", err)
		}
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		if err := do(t.client, req); err != nil {
			errs = append(errs, fmt.Errorf("telegram chat %s: %w", chatID, err))
		}
	}
	return errors.Join(errs...)
}

type ntfy struct {
	client   *http.Client
	endpoint string
}

func NewNtfy(client *http.Client, endpoint string) Notifier {
	return &ntfy{client: client, endpoint: endpoint}
}

func (n *ntfy) Notify(ctx context.Context, level Level, message string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(strings.TrimSpace(message)))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	req.Header.Set("Title", "Reelflow - "+strings.ToUpper(string(level[:1]))+string(level[1:]))
	req.Header.Set("Tags", "reelflow,"+string(level))
	if p := level.priority(); p != "default" {
		req.Header.Set("Priority", p)
	}

	if err := do(n.client, req); err != nil {
		return fmt.Errorf("ntfy: %w", err)
	}
	return nil
}

func do(client *http.Client, req *http.Request) error {
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
