package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// WhatsappSender delivers a WhatsApp text message to a chat
type WhatsappSender interface {
	SendMessage(ctx context.Context, chatID, text string) error
}

// WahaService talks to a WAHA (WhatsApp HTTP API) instance
type WahaService struct {
	baseURL string
	apiKey  string
	session string
	client  *http.Client
}

func NewWahaService() *WahaService {
	url := os.Getenv("WAHA_BASE_URL")
	if url == "" {
		url = "http://waha:3000"
	}
	session := os.Getenv("WAHA_SESSION")
	if session == "" {
		session = "default"
	}
	return &WahaService{
		baseURL: strings.TrimRight(url, "/"),
		apiKey:  os.Getenv("WAHA_API_KEY"),
		session: session,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (s *WahaService) makeRequest(ctx context.Context, endpoint string, payload map[string]string) error {
	payload["session"] = s.session
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+endpoint, bytes.NewBuffer(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("X-Api-Key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}

// NormalizeChatID turns a phone number or group id into a WAHA chat id.
// Local Saudi numbers (05xxxxxxxx) are rewritten to the 966 country code.
func NormalizeChatID(chatID string) string {
	chatID = strings.TrimSpace(chatID)

	if strings.HasSuffix(chatID, "@g.us") {
		return chatID
	}

	chatID = strings.TrimSuffix(chatID, "@c.us")
	chatID = strings.TrimPrefix(chatID, "+")
	chatID = strings.TrimPrefix(chatID, "00")

	if strings.HasPrefix(chatID, "0") {
		chatID = "966" + strings.TrimPrefix(chatID, "0")
	}

	return chatID + "@c.us"
}

// SendMessage marks the chat seen, shows typing briefly, then sends text
func (s *WahaService) SendMessage(ctx context.Context, chatID, text string) error {
	chatID = NormalizeChatID(chatID)

	steps := []struct {
		endpoint string
		pause    time.Duration
	}{
		{"/api/sendSeen", 100 * time.Millisecond},
		{"/api/startTyping", 150 * time.Millisecond},
		{"/api/stopTyping", 50 * time.Millisecond},
	}
	for _, step := range steps {
		if err := s.makeRequest(ctx, step.endpoint, map[string]string{"chatId": chatID}); err != nil {
			return fmt.Errorf("failed to call %s: %w", step.endpoint, err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(step.pause):
		}
	}

	if err := s.makeRequest(ctx, "/api/sendText", map[string]string{"chatId": chatID, "text": text}); err != nil {
		return fmt.Errorf("failed to send text: %w", err)
	}

	return nil
}
