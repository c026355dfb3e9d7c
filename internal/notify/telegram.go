// Package notify delivers chat alerts.
//
// Delivery is best effort: Send reports success as a boolean, transport
// failures are logged and never returned, and nothing is retried here.
// The monitor decides whether to try again on its next cycle.
package notify

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/carlmjohnson/requests"

	"github.com/xtxerr/cardiowatch/config"
	"github.com/xtxerr/cardiowatch/internal/errors"
	"github.com/xtxerr/cardiowatch/internal/logging"
)

var log = logging.Component("notify")

// Notifier sends a text message.
type Notifier interface {
	Send(ctx context.Context, text string) bool
}

// Nop is the notifier used when alerts are not configured. Send always
// reports failure so that the caller keeps the alert pending.
type Nop struct{}

// Send implements Notifier.
func (Nop) Send(context.Context, string) bool { return false }

// =============================================================================
// Telegram
// =============================================================================

// TelegramConfig configures the Bot API client.
type TelegramConfig struct {
	APIURL  string
	Token   string
	ChatID  string
	Timeout time.Duration

	// Client overrides the HTTP client. Nil uses http.DefaultClient.
	Client *http.Client
}

// Telegram posts Markdown messages through the Bot API sendMessage method.
type Telegram struct {
	cfg TelegramConfig
}

type sendMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
}

// NewTelegram creates a Telegram notifier.
func NewTelegram(cfg TelegramConfig) *Telegram {
	if cfg.APIURL == "" {
		cfg.APIURL = config.DefaultTelegramAPI
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = config.DefaultTelegramTimeout
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	return &Telegram{cfg: cfg}
}

// New returns a Telegram notifier if token and chat are set, Nop otherwise.
func New(cfg TelegramConfig) Notifier {
	if cfg.Token == "" || cfg.ChatID == "" {
		log.Info("telegram not configured, alerts disabled")
		return Nop{}
	}
	return NewTelegram(cfg)
}

// Send implements Notifier.
func (t *Telegram) Send(ctx context.Context, text string) bool {
	if err := t.send(ctx, text); err != nil {
		log.Error("telegram send failed", "error", err)
		return false
	}
	return true
}

func (t *Telegram) send(ctx context.Context, text string) error {
	ctx, cancel := context.WithTimeout(ctx, t.cfg.Timeout)
	defer cancel()

	var resp apiResponse
	rb := requests.
		URL(t.cfg.APIURL).
		Pathf("/bot%s/sendMessage", t.cfg.Token).
		BodyJSON(sendMessage{
			ChatID:    t.cfg.ChatID,
			Text:      text,
			ParseMode: "Markdown",
		}).
		ToJSON(&resp)
	if t.cfg.Client != nil {
		rb = rb.Client(t.cfg.Client)
	}

	if err := rb.Fetch(ctx); err != nil {
		return errors.Wrap(errors.Join(errors.ErrTransport, err), "sendMessage")
	}
	if !resp.OK {
		return errors.Wrapf(errors.ErrTransport, "sendMessage rejected: %s", resp.Description)
	}
	return nil
}
