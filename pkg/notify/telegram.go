package notify

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-faster/errors"
	"github.com/goccy/go-json"
)

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Telegram sends messages through the Bot API sendMessage method.
type Telegram struct {
	client   *http.Client
	endpoint string
}

func NewTelegram(apiURL, token string) *Telegram {
	return &Telegram{
		client:   &http.Client{Timeout: DefaultSendTimeout},
		endpoint: strings.TrimRight(apiURL, "/") + "/bot" + token + "/sendMessage",
	}
}

func (t *Telegram) Send(ctx context.Context, recipient, message string) error {
	body, err := json.Marshal(sendMessageRequest{
		ChatID:                recipient,
		Text:                  message,
		ParseMode:             "HTML",
		DisableWebPagePreview: true,
	})
	if err != nil {
		return &NotificationError{Recipient: recipient, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return &NotificationError{Recipient: recipient, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		// the url carries the bot token
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return &NotificationError{Recipient: recipient, Err: err}
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var ar apiResponse
	_ = json.Unmarshal(data, &ar)

	if resp.StatusCode != http.StatusOK || !ar.OK {
		desc := ar.Description
		if desc == "" {
			desc = http.StatusText(resp.StatusCode)
		}
		return &NotificationError{Recipient: recipient, Status: resp.StatusCode, Err: errors.New(desc)}
	}
	return nil
}
