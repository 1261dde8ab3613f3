// Package history is the typed REST client for the chat history API. It is
// the request/response half of the chat core; live events arrive separately
// over the push channel.
package history

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/artinalushaku/onlineStore-sub000/internal/chat"
)

var ErrNotFound = errors.New("history: not found")

type StaffRef struct {
	ID          uint64 `json:"id"`
	DisplayName string `json:"display_name"`
}

// API is what the widget, console and resolver need from the History Store.
type API interface {
	ListConversations(ctx context.Context) ([]chat.ConversationSummary, error)
	GetMessages(ctx context.Context, counterpartID uint64) ([]chat.Message, error)
	SendMessage(ctx context.Context, receiverID uint64, content string) (*chat.Message, error)
	DeleteConversation(ctx context.Context, counterpartID uint64) error
	FindAnyStaff(ctx context.Context) (*StaffRef, error)
}

type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

var _ API = (*Client)(nil)

func New(baseURL, token string) *Client {
	return &Client{
		BaseURL: baseURL,
		Token:   token,
		HTTP:    &http.Client{Timeout: 15 * time.Second},
	}
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.Token)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("history: decode response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("history: status %d: %s", resp.StatusCode, env.Message)
	}
	if out != nil && env.Data != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("history: decode data: %w", err)
		}
	}
	return nil
}

func (c *Client) ListConversations(ctx context.Context) ([]chat.ConversationSummary, error) {
	var out []chat.ConversationSummary
	if err := c.do(ctx, http.MethodGet, "/api/conversations", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetMessages(ctx context.Context, counterpartID uint64) ([]chat.Message, error) {
	var out []chat.Message
	path := fmt.Sprintf("/api/conversations/%d/messages", counterpartID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SendMessage(ctx context.Context, receiverID uint64, content string) (*chat.Message, error) {
	var out chat.Message
	body := map[string]any{"receiver_id": receiverID, "content": content}
	if err := c.do(ctx, http.MethodPost, "/api/messages", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteConversation(ctx context.Context, counterpartID uint64) error {
	path := fmt.Sprintf("/api/conversations/%d", counterpartID)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) FindAnyStaff(ctx context.Context) (*StaffRef, error) {
	var out StaffRef
	if err := c.do(ctx, http.MethodGet, "/api/staff/any", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
