package whatsapp

import (
	"fmt"
	"strings"
	"time"
)

// WebhookPayload is the event the gateway posts for every message.
type WebhookPayload struct {
	From      string         `json:"from"`
	Message   WebhookMessage `json:"message"`
	PushName  string         `json:"pushname"`
	Timestamp string         `json:"timestamp"`
	Image     *WebhookMedia  `json:"image,omitempty"`
	Video     *WebhookMedia  `json:"video,omitempty"`
	Document  *WebhookMedia  `json:"document,omitempty"`
	Audio     *WebhookMedia  `json:"audio,omitempty"`
}

// WebhookMessage carries the message body.
type WebhookMessage struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	RepliedID string `json:"replied_id"`
}

// WebhookMedia is an attachment saved by the gateway.
type WebhookMedia struct {
	MediaPath string `json:"media_path"`
	MimeType  string `json:"mime_type"`
	Caption   string `json:"caption"`
}

// Time parses the payload timestamp, falling back to fallback when the
// gateway sent none or an unparsable one.
func (p *WebhookPayload) Time(fallback time.Time) time.Time {
	if p.Timestamp == "" {
		return fallback
	}
	t, err := time.Parse(time.RFC3339, p.Timestamp)
	if err != nil {
		return fallback
	}
	return t
}

// MediaPath returns the first attachment path, if any.
func (p *WebhookPayload) MediaPath() string {
	for _, m := range []*WebhookMedia{p.Image, p.Video, p.Document, p.Audio} {
		if m != nil && m.MediaPath != "" {
			return m.MediaPath
		}
	}
	return ""
}

// Caption returns the first attachment caption, if any.
func (p *WebhookPayload) Caption() string {
	for _, m := range []*WebhookMedia{p.Image, p.Video, p.Document, p.Audio} {
		if m != nil && m.Caption != "" {
			return m.Caption
		}
	}
	return ""
}

// Source splits "from" into the sender and, for group messages, the group.
// The gateway writes group messages as "<sender> in <group>".
func (p *WebhookPayload) Source() (sender JID, group *JID, err error) {
	senderPart, groupPart, inGroup := strings.Cut(p.From, " in ")

	sender, err = ParseJID(senderPart)
	if err != nil {
		return JID{}, nil, fmt.Errorf("invalid sender in %q: %w", p.From, err)
	}
	sender = sender.Normalize()

	if !inGroup {
		return sender, nil, nil
	}
	g, err := ParseJID(groupPart)
	if err != nil {
		return JID{}, nil, fmt.Errorf("invalid group in %q: %w", p.From, err)
	}
	g = g.Normalize()
	return sender, &g, nil
}
