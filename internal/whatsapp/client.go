// Package whatsapp is the transport to a go-whatsapp-web-multidevice
// gateway: sending messages, resolving the bot's own identity and listing
// the groups it belongs to.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/edgard/zmanimbot/internal/config"
)

// ErrNoDevice is returned when the gateway has no logged in device.
var ErrNoDevice = errors.New("whatsapp gateway has no logged in device")

// Client talks to the gateway REST API.
type Client struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
	log        *slog.Logger

	mu   sync.Mutex
	self *JID
}

// NewClient creates a gateway client.
func NewClient(cfg config.WhatsAppConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		username:   cfg.Username,
		password:   cfg.Password,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        logger.With("component", "whatsapp_client"),
	}
}

// envelope is the gateway's common response shape.
type envelope[T any] struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Results T      `json:"results"`
}

type sendMessageRequest struct {
	Phone          string `json:"phone"`
	Message        string `json:"message"`
	ReplyMessageID string `json:"reply_message_id,omitempty"`
}

type sendMessageResult struct {
	MessageID string `json:"message_id"`
	Status    string `json:"status"`
}

// SendMessage sends text to a chat, optionally quoting replyTo, and returns
// the new message id.
func (c *Client) SendMessage(ctx context.Context, chatJID, text, replyTo string) (string, error) {
	if chatJID == "" || text == "" {
		return "", fmt.Errorf("chat jid and text are required")
	}
	body := sendMessageRequest{
		Phone:          NormalizeJID(chatJID),
		Message:        text,
		ReplyMessageID: replyTo,
	}

	var resp envelope[sendMessageResult]
	if err := c.do(ctx, http.MethodPost, "/send/message", body, &resp); err != nil {
		return "", err
	}
	if resp.Results.MessageID == "" {
		return "", fmt.Errorf("gateway accepted message without id: %s", resp.Message)
	}
	c.log.DebugContext(ctx, "Message sent", "chat_jid", body.Phone, "message_id", resp.Results.MessageID)
	return resp.Results.MessageID, nil
}

type device struct {
	Name   string `json:"name"`
	Device string `json:"device"`
}

// SelfJID returns the bot's own normalized JID. The first successful lookup
// is cached for the life of the client.
func (c *Client) SelfJID(ctx context.Context) (JID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.self != nil {
		return *c.self, nil
	}

	var resp envelope[[]device]
	if err := c.do(ctx, http.MethodGet, "/app/devices", nil, &resp); err != nil {
		return JID{}, err
	}
	for _, d := range resp.Results {
		if d.Device == "" {
			continue
		}
		j, err := ParseJID(d.Device)
		if err != nil {
			return JID{}, fmt.Errorf("gateway returned invalid device: %w", err)
		}
		self := j.Normalize()
		c.self = &self
		c.log.InfoContext(ctx, "Resolved own identity", "jid", self.String())
		return self, nil
	}
	return JID{}, ErrNoDevice
}

// GroupInfo is the gateway's view of a joined group.
type GroupInfo struct {
	JID      string `json:"JID"`
	OwnerJID string `json:"OwnerJID"`
	OwnerPN  string `json:"OwnerPN"`
	Name     string `json:"Name"`
	Topic    string `json:"Topic"`
}

// Owner prefers the phone-number identity over the hidden LID one.
func (g GroupInfo) Owner() string {
	if g.OwnerPN != "" {
		return NormalizeJID(g.OwnerPN)
	}
	if g.OwnerJID != "" {
		return NormalizeJID(g.OwnerJID)
	}
	return ""
}

type groupList struct {
	Data []GroupInfo `json:"data"`
}

// ListGroups returns every group the bot has joined.
func (c *Client) ListGroups(ctx context.Context) ([]GroupInfo, error) {
	var resp envelope[groupList]
	if err := c.do(ctx, http.MethodGet, "/user/my/groups", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Results.Data, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) (err error) {
	var reqBody io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", path, err)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create gateway request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request %s failed: %w", path, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close gateway response body: %w", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("gateway %s returned status %d: %s", path, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, 4<<20)).Decode(out); err != nil {
		return fmt.Errorf("failed to decode gateway %s response: %w", path, err)
	}
	return nil
}
