package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/yourorg/funding-rate-ranker/internal/config"
	"github.com/yourorg/funding-rate-ranker/internal/model"
)

// telegramMaxLength is the Bot API limit for one message.
const telegramMaxLength = 4096

// TelegramPublisher sends reports through the Bot API sendMessage method.
type TelegramPublisher struct {
	baseURL    string
	token      string
	chatID     string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxLength  int
	clock      clock
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

type telegramReply struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// NewTelegramPublisher creates a new Telegram sink.
func NewTelegramPublisher(cfg config.TelegramConfig, hc *http.Client) *TelegramPublisher {
	perSec := cfg.RatePerSec
	if perSec <= 0 {
		perSec = 1
	}
	return &TelegramPublisher{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		token:      cfg.BotToken,
		chatID:     cfg.ChatID,
		httpClient: hc,
		limiter:    rate.NewLimiter(rate.Limit(perSec), 1),
		maxLength:  telegramMaxLength,
	}
}

// Name identifies the sink.
func (p *TelegramPublisher) Name() string { return config.PublisherTelegram }

// Publish renders the report and sends it, split over several messages when
// it exceeds the Bot API limit.
func (p *TelegramPublisher) Publish(ctx context.Context, largest, smallest []model.FundingRate) error {
	messages := Split(Blocks(largest, smallest, p.clock.now()), p.maxLength)

	for i, text := range messages {
		if err := p.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: telegram message %d/%d: %v", ErrPublish, i+1, len(messages), err)
		}
		if err := p.send(ctx, text); err != nil {
			return fmt.Errorf("%w: telegram message %d/%d: %v", ErrPublish, i+1, len(messages), err)
		}
	}

	logrus.WithFields(logrus.Fields{
		"publisher": p.Name(),
		"messages":  len(messages),
		"largest":   len(largest),
		"smallest":  len(smallest),
	}).Info("Report sent to Telegram")
	return nil
}

func (p *TelegramPublisher) send(ctx context.Context, text string) error {
	payload, err := json.Marshal(sendMessageRequest{ChatID: p.chatID, Text: text, ParseMode: "Markdown"})
	if err != nil {
		return fmt.Errorf("error encoding message: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", p.baseURL, p.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		// The URL carries the bot token.
		return fmt.Errorf("sendMessage request failed: %v", redact(err.Error(), p.token))
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var reply telegramReply
		if json.Unmarshal(body, &reply) == nil && reply.Description != "" {
			return fmt.Errorf("status %d: %s", resp.StatusCode, reply.Description)
		}
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

func redact(s, secret string) string {
	if secret == "" {
		return s
	}
	return strings.ReplaceAll(s, secret, "<redacted>")
}
