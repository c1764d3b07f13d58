package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultAPIURL is the public Bot API endpoint
const DefaultAPIURL = "https://api.telegram.org"

// Client broadcasts messages to a fixed set of chats
type Client interface {
	Broadcast(ctx context.Context, text string) error
}

type client struct {
	apiURL     string
	botToken   string
	chatIDs    []string
	httpClient *http.Client
}

// NewClient creates a Telegram Bot API client
func NewClient(apiURL, botToken string, chatIDs []string) Client {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	return &client{
		apiURL:     apiURL,
		botToken:   botToken,
		chatIDs:    chatIDs,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

// Broadcast sends text (HTML parse mode) to every configured chat.
// All chats are attempted; failures are joined into the returned error.
func (c *client) Broadcast(ctx context.Context, text string) error {
	var errs []error
	for _, chatID := range c.chatIDs {
		if err := c.send(ctx, chatID, text); err != nil {
			errs = append(errs, fmt.Errorf("chat %s: %w", chatID, err))
		}
	}
	return errors.Join(errs...)
}

func (c *client) send(ctx context.Context, chatID, text string) error {
	data, err := json.Marshal(sendMessageRequest{
		ChatID:                chatID,
		Text:                  text,
		ParseMode:             "HTML",
		DisableWebPagePreview: true,
	})
	if err != nil {
		return err
	}

	reqURL := fmt.Sprintf("%s/bot%s/sendMessage", c.apiURL, c.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call Telegram: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("Telegram API returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
