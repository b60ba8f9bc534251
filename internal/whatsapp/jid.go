package whatsapp

import (
	"fmt"
	"strings"
)

// Well known JID servers.
const (
	ServerUser  = "s.whatsapp.net"
	ServerGroup = "g.us"
	ServerLID   = "lid"
)

// JID is a WhatsApp identity: user[:device]@server.
type JID struct {
	User   string
	Device string
	Server string
}

// ParseJID parses a JID. A bare phone number is read as a user JID.
func ParseJID(s string) (JID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return JID{}, fmt.Errorf("empty jid")
	}

	user, server, found := strings.Cut(s, "@")
	if !found {
		user, server = strings.TrimPrefix(s, "+"), ServerUser
	}
	if user == "" || server == "" {
		return JID{}, fmt.Errorf("invalid jid %q", s)
	}

	var device string
	if u, d, ok := strings.Cut(user, ":"); ok {
		user, device = u, d
	}
	// agent suffix, e.g. 972500000000.0:1@s.whatsapp.net
	if u, _, ok := strings.Cut(user, "."); ok && server != ServerGroup {
		user = u
	}
	return JID{User: user, Device: device, Server: server}, nil
}

// NormalizeJID returns s without its device part, or s itself when it
// cannot be parsed.
func NormalizeJID(s string) string {
	j, err := ParseJID(s)
	if err != nil {
		return s
	}
	return j.Normalize().String()
}

// IsGroup reports whether the JID names a group chat.
func (j JID) IsGroup() bool { return j.Server == ServerGroup }

// Normalize drops the device part.
func (j JID) Normalize() JID {
	return JID{User: j.User, Server: j.Server}
}

// String formats the JID.
func (j JID) String() string {
	if j.Device != "" {
		return j.User + ":" + j.Device + "@" + j.Server
	}
	return j.User + "@" + j.Server
}

// Mention is the in-text tag for the JID's user, e.g. @972500000000.
func (j JID) Mention() string { return "@" + j.User }
