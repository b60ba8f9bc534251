package database

import (
	"database/sql"
	"database/sql/driver"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"time"
)

// Sender is a WhatsApp account that wrote at least one stored message.
type Sender struct {
	JID       string         `db:"jid"`
	PushName  sql.NullString `db:"push_name"`
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
}

// Group is a WhatsApp group the bot is a member of. Only managed groups get
// replies and knowledge-base ingestion.
type Group struct {
	GroupJID        string         `db:"group_jid"`
	GroupName       sql.NullString `db:"group_name"`
	GroupTopic      sql.NullString `db:"group_topic"`
	OwnerJID        sql.NullString `db:"owner_jid"`
	Managed         bool           `db:"managed"`
	CommunityKeys   string         `db:"community_keys"`
	LastIngest      sql.NullTime   `db:"last_ingest"`
	LastSummarySync sql.NullTime   `db:"last_summary_sync"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

// Name returns the group name or its JID when unnamed.
func (g *Group) Name() string {
	if g.GroupName.Valid && g.GroupName.String != "" {
		return g.GroupName.String
	}
	return g.GroupJID
}

// Keys splits CommunityKeys into its entries.
func (g *Group) Keys() []string {
	var keys []string
	for _, k := range strings.Split(g.CommunityKeys, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// Message is one stored chat message. Group is populated by reads that join
// the owning group.
type Message struct {
	MessageID string         `db:"message_id"`
	Timestamp time.Time      `db:"timestamp"`
	Text      sql.NullString `db:"text"`
	MediaURL  sql.NullString `db:"media_url"`
	ChatJID   string         `db:"chat_jid"`
	SenderJID string         `db:"sender_jid"`
	GroupJID  sql.NullString `db:"group_jid"`
	ReplyToID sql.NullString `db:"reply_to_id"`

	PushName string `db:"-"`
	Group    *Group `db:"-"`
}

// Content returns the message text or an empty string.
func (m *Message) Content() string {
	if m.Text.Valid {
		return m.Text.String
	}
	return ""
}

// KBTopic is one knowledge-base entry distilled from a group conversation.
type KBTopic struct {
	ID        string    `db:"id"`
	GroupJID  string    `db:"group_jid"`
	StartTime time.Time `db:"start_time"`
	Speakers  string    `db:"speakers"`
	Subject   string    `db:"subject"`
	Summary   string    `db:"summary"`
	Embedding Vector    `db:"embedding"`
}

// Vector is an embedding stored as little-endian float32 values.
type Vector []float32

// Value implements driver.Valuer.
func (v Vector) Value() (driver.Value, error) {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf, nil
}

// Scan implements sql.Scanner.
func (v *Vector) Scan(src any) error {
	var raw []byte
	switch s := src.(type) {
	case []byte:
		raw = s
	case string:
		raw = []byte(s)
	case nil:
		*v = nil
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Vector", src)
	}
	if len(raw)%4 != 0 {
		return fmt.Errorf("invalid vector blob length %d", len(raw))
	}
	out := make(Vector, len(raw)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[4*i:]))
	}
	*v = out
	return nil
}
